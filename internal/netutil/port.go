// Package netutil picks the address the control API listens on.
package netutil

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrNoFreeAddr means every address tried was already bound.
var ErrNoFreeAddr = errors.New("no free control API address")

// SelectBindAddr returns preferred when it can be bound. Otherwise, with
// autoFallback set, it returns the first free candidate. Each distinct
// address is probed once.
func SelectBindAddr(preferred string, candidates []string, autoFallback bool) (string, error) {
	order := make([]string, 0, len(candidates)+1)
	seen := make(map[string]bool, len(candidates)+1)
	add := func(addr string) error {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[addr] {
			return nil
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid bind address %q: %w", addr, err)
		}
		seen[addr] = true
		order = append(order, addr)
		return nil
	}

	if err := add(preferred); err != nil {
		return "", err
	}
	if preferred == "" || autoFallback {
		for _, c := range candidates {
			if err := add(c); err != nil {
				return "", err
			}
		}
	}

	for _, addr := range order {
		ok, err := IsAddrAvailable(addr)
		if err != nil {
			return "", err
		}
		if ok {
			return addr, nil
		}
	}
	if len(order) == 0 {
		return "", fmt.Errorf("%w: none configured", ErrNoFreeAddr)
	}
	return "", fmt.Errorf("%w: tried %s", ErrNoFreeAddr, strings.Join(order, ", "))
}

// IsAddrAvailable reports whether addr can be listened on right now.
func IsAddrAvailable(addr string) (bool, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false, nil
	}
	if err := ln.Close(); err != nil {
		return false, err
	}
	return true, nil
}
