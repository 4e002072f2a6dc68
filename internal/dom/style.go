package dom

import (
	"strconv"
	"strings"
)

type declaration struct {
	prop  string
	value string
}

// Style is an ordered CSS declaration block, as found in a style attribute.
type Style struct {
	decls []declaration
}

// ParseStyle parses "prop: value; prop: value". Malformed declarations are
// dropped.
func ParseStyle(s string) *Style {
	st := &Style{}
	for _, part := range strings.Split(s, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" || value == "" {
			continue
		}
		st.Set(prop, value)
	}
	return st
}

// Get returns the declared value or "".
func (s *Style) Get(prop string) string {
	for _, d := range s.decls {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

// Set declares prop. An empty value removes the declaration, matching how
// assigning "" to element.style.x behaves in a browser.
func (s *Style) Set(prop, value string) {
	for i, d := range s.decls {
		if d.prop != prop {
			continue
		}
		if value == "" {
			s.decls = append(s.decls[:i], s.decls[i+1:]...)
			return
		}
		s.decls[i].value = value
		return
	}
	if value != "" {
		s.decls = append(s.decls, declaration{prop: prop, value: value})
	}
}

// Len reports the number of declarations.
func (s *Style) Len() int { return len(s.decls) }

func (s *Style) String() string {
	parts := make([]string, 0, len(s.decls))
	for _, d := range s.decls {
		parts = append(parts, d.prop+": "+d.value)
	}
	return strings.Join(parts, "; ")
}

// initialValues are the CSS initial values, as getComputedStyle reports them,
// for the properties the hover engine reads.
var initialValues = map[string]string{
	"fill-opacity": "1",
	"stroke":       "none",
	"font-size":    "16px",
	"fill":         "rgb(0, 0, 0)",
	"stroke-width": "1px",
	"text-anchor":  "start",
}

// inherited lists properties that fall back to the parent's computed value.
var inherited = map[string]bool{
	"fill-opacity": true,
	"stroke":       true,
	"font-size":    true,
	"fill":         true,
	"stroke-width": true,
	"text-anchor":  true,
}

// InlineStyle returns the element's inline declaration for prop.
func (e *Element) InlineStyle(prop string) string {
	if e.style == nil {
		return ""
	}
	return e.style.Get(prop)
}

// SetInlineStyle writes prop to the element's inline style; "" removes it.
func (e *Element) SetInlineStyle(prop, value string) {
	if e.style == nil {
		e.style = &Style{}
	}
	e.style.Set(prop, value)
}

// StyleAttr serializes the current inline style.
func (e *Element) StyleAttr() string {
	if e.style == nil {
		return ""
	}
	return e.style.String()
}

// ComputedStyle approximates getComputedStyle for the supported properties:
// inline declaration, then presentation attribute, then the parent's computed
// value for inherited properties, then the initial value. No stylesheet
// cascade is applied.
func (e *Element) ComputedStyle(prop string) string {
	for el := e; el != nil && el.Tag != "#document"; el = el.Parent {
		if v := el.InlineStyle(prop); v != "" {
			return normalizeComputed(prop, v)
		}
		if v, ok := el.Attr(prop); ok && strings.TrimSpace(v) != "" {
			return normalizeComputed(prop, strings.TrimSpace(v))
		}
		if !inherited[prop] {
			break
		}
	}
	return initialValues[prop]
}

func normalizeComputed(prop, v string) string {
	switch prop {
	case "font-size", "stroke-width":
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64) + "px"
		}
	}
	return v
}
