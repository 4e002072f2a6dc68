package relay

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SSEHandler returns an http.HandlerFunc that streams broker events as SSE.
// Clients may filter feeds via ?feeds=name1,name2. A Last-Event-ID header
// replays remembered events after that id. A comment line is sent every
// keepAlive to hold idle connections open; zero disables it.
func SSEHandler(broker *Broker, keepAlive time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		var feedFilter map[string]bool
		if q := r.URL.Query().Get("feeds"); q != "" {
			feedFilter = make(map[string]bool)
			for _, f := range strings.Split(q, ",") {
				if f = strings.TrimSpace(f); f != "" {
					feedFilter[f] = true
				}
			}
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		id, ch, backlog := broker.SubscribeSince(r.Header.Get("Last-Event-ID"))
		defer broker.Unsubscribe(id)

		send := func(evt Event) {
			if feedFilter != nil && !feedFilter[evt.Feed] {
				return
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", evt.ID, evt.Feed, evt.Payload)
			flusher.Flush()
		}
		for _, evt := range backlog {
			send(evt)
		}

		var tick <-chan time.Time
		if keepAlive > 0 {
			ticker := time.NewTicker(keepAlive)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case <-tick:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case evt, ok := <-ch:
				if !ok {
					return
				}
				send(evt)
			}
		}
	}
}
