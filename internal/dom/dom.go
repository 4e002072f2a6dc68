// Package dom is a small in-memory element tree for chart markup. It parses
// standalone SVG files and HTML pages with inline SVG, answers the id-prefix
// and tag queries the hover engine needs, and emulates the inline/computed
// style split a browser exposes.
package dom

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Element is one element node of a parsed document.
type Element struct {
	Tag      string
	Parent   *Element
	Children []*Element

	attrs []html.Attribute
	style *Style
	text  strings.Builder
}

// Document is a parsed markup tree.
type Document struct {
	Root *Element
	byID map[string]*Element
}

// Parse reads SVG or HTML markup.
func Parse(r io.Reader) (*Document, error) {
	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	doc := &Document{byID: make(map[string]*Element)}
	doc.Root = doc.build(n, nil)
	return doc, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

func (d *Document) build(n *html.Node, parent *Element) *Element {
	var el *Element
	switch n.Type {
	case html.DocumentNode:
		el = &Element{Tag: "#document"}
	case html.ElementNode:
		el = &Element{Tag: strings.ToLower(n.Data), Parent: parent, attrs: n.Attr}
		el.style = ParseStyle(el.attrValue("style"))
		if id := el.ID(); id != "" {
			if _, dup := d.byID[id]; !dup {
				d.byID[id] = el
			}
		}
	case html.TextNode:
		for p := parent; p != nil; p = p.Parent {
			p.text.WriteString(n.Data)
		}
		return nil
	default:
		return nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := d.build(c, el); child != nil {
			el.Children = append(el.Children, child)
		}
	}
	return el
}

// ByID returns the first element carrying the id, like getElementById.
func (d *Document) ByID(id string) *Element {
	if d == nil {
		return nil
	}
	return d.byID[id]
}

func (e *Element) attrValue(name string) string {
	v, _ := e.Attr(name)
	return v
}

// Attr returns an attribute value.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// ID returns the id attribute.
func (e *Element) ID() string { return e.attrValue("id") }

// Float parses a numeric attribute with parseFloat semantics: leading
// numeric prefix, trailing garbage ignored.
func (e *Element) Float(name string) (float64, bool) {
	v, ok := e.Attr(name)
	if !ok {
		return 0, false
	}
	return LeadingFloat(v)
}

// Text returns the concatenated text content of the element.
func (e *Element) Text() string { return e.text.String() }

// Walk visits descendants in document order, not including e itself.
// Returning false from fn stops the walk.
func (e *Element) Walk(fn func(*Element) bool) {
	e.walk(fn)
}

func (e *Element) walk(fn func(*Element) bool) bool {
	for _, c := range e.Children {
		if !fn(c) || !c.walk(fn) {
			return false
		}
	}
	return true
}

// QueryIDPrefix returns every descendant whose id starts with prefix,
// the equivalent of querySelectorAll('[id^="prefix"]').
func (e *Element) QueryIDPrefix(prefix string) []*Element {
	var out []*Element
	e.Walk(func(c *Element) bool {
		if id := c.ID(); id != "" && strings.HasPrefix(id, prefix) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// FirstIDPrefix returns the first descendant whose id starts with prefix.
func (e *Element) FirstIDPrefix(prefix string) *Element {
	var found *Element
	e.Walk(func(c *Element) bool {
		if id := c.ID(); id != "" && strings.HasPrefix(id, prefix) {
			found = c
			return false
		}
		return true
	})
	return found
}

// QueryTags returns every descendant whose tag is in tags.
func (e *Element) QueryTags(tags ...string) []*Element {
	var out []*Element
	e.Walk(func(c *Element) bool {
		if hasTag(c.Tag, tags) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// FirstTag returns the first descendant with the tag.
func (e *Element) FirstTag(tag string) *Element {
	var found *Element
	e.Walk(func(c *Element) bool {
		if c.Tag == tag {
			found = c
			return false
		}
		return true
	})
	return found
}

// ClosestTag returns the nearest ancestor-or-self with the tag.
func (e *Element) ClosestTag(tag string) *Element {
	for p := e; p != nil; p = p.Parent {
		if p.Tag == tag {
			return p
		}
	}
	return nil
}

func hasTag(tag string, tags []string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LeadingFloat mimics JavaScript parseFloat: it parses the longest numeric
// prefix of s after leading whitespace.
func LeadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
scan:
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case (c == '+' || c == '-') && (end == 0 || s[end-1] == 'e' || s[end-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			break scan
		}
		end++
	}
	for end > 0 {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v, true
		}
		end--
	}
	return 0, false
}
