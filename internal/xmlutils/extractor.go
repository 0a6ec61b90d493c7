// Package xmlutils provides the streaming tag-path extractor shared by the EBICS and
// CAMT.053 parsers, plus small XPath helpers.
package xmlutils

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"fjacquet/camt-attest/internal/verifyerror"
)

// EventKind identifies the token class delivered to a rule.
type EventKind int

const (
	// EventOpen fires when an element starts; Cursor.Path already includes it.
	EventOpen EventKind = iota + 1
	// EventAttr fires once per attribute of the element that was just opened.
	EventAttr
	// EventText fires with the character data found inside the current element.
	EventText
	// EventClose fires when an element ends; Cursor.Path still includes it.
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventAttr:
		return "attr"
	case EventText:
		return "text"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Event is a single token seen by the extractor.
// Name is the element local name for open/close events and the attribute local name
// for attribute events. Value holds the attribute value or the text.
type Event struct {
	Kind  EventKind
	Name  string
	Value string
}

// Path is the stack of open element local names, outermost first.
type Path []string

// HasPrefix reports whether the path starts with segs.
func (p Path) HasPrefix(segs ...string) bool {
	if len(segs) > len(p) {
		return false
	}
	for i, s := range segs {
		if p[i] != s {
			return false
		}
	}
	return true
}

// HasSuffix reports whether the path ends with segs.
func (p Path) HasSuffix(segs ...string) bool {
	if len(segs) > len(p) {
		return false
	}
	off := len(p) - len(segs)
	for i, s := range segs {
		if p[off+i] != s {
			return false
		}
	}
	return true
}

// Equal reports whether the path is exactly segs.
func (p Path) Equal(segs ...string) bool {
	return len(p) == len(segs) && p.HasPrefix(segs...)
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

// Cursor describes the extractor position when an event fires.
// Current is the most recently opened element and is cleared by any close, so text
// that follows a child's end tag is not attributed to the parent's Current.
type Cursor struct {
	Path    Path
	Current string
}

// Handler consumes a matched event. Returning an error aborts the run.
type Handler func(ev Event, c Cursor) error

// Rule binds a path pattern to a handler.
// Empty Path, Prefix, Suffix, Current or Name match anything.
type Rule struct {
	On EventKind
	// Path requires the whole element path to be equal.
	Path    []string
	Prefix  []string
	Suffix  []string
	Current string
	// Name filters attribute events by attribute name and open/close events by element name.
	Name   string
	Handle Handler
}

func (r *Rule) matches(ev Event, c Cursor) bool {
	if r.On != ev.Kind {
		return false
	}
	if r.Name != "" && r.Name != ev.Name {
		return false
	}
	if r.Current != "" && r.Current != c.Current {
		return false
	}
	if r.Path != nil && !c.Path.Equal(r.Path...) {
		return false
	}
	return c.Path.HasPrefix(r.Prefix...) && c.Path.HasSuffix(r.Suffix...)
}

// Extractor is a push-style consumer of an XML token stream that dispatches events
// to a table of rules. It accepts fragment input: several top-level elements and
// top-level text are allowed, but every element must be balanced.
type Extractor struct {
	name  string
	rules []Rule

	path    Path
	current string
	text    bytes.Buffer
}

// NewExtractor creates an extractor; name labels errors.
func NewExtractor(name string, rules ...Rule) *Extractor {
	return &Extractor{name: name, rules: rules}
}

// RunString tokenizes s.
func (x *Extractor) RunString(s string) error {
	return x.Run(strings.NewReader(s))
}

// Run tokenizes r until EOF. Any tokenizer error is returned as a malformed-input
// failure; the extractor can be run again on new input afterwards.
// Declared encodings are not honoured: the bytes are always read as UTF-8.
func (x *Extractor) Run(r io.Reader) error {
	x.reset()
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = identityCharset

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if len(x.path) != 0 {
				return verifyerror.New(verifyerror.KindMalformedInput, x.name,
					"unexpected end of input inside <"+x.path.String()+">")
			}
			return x.flushText()
		}
		if err != nil {
			return verifyerror.Wrap(verifyerror.KindMalformedInput, x.name, "xml syntax error", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := x.flushText(); err != nil {
				return err
			}
			x.path = append(x.path, t.Name.Local)
			x.current = t.Name.Local
			if err := x.dispatch(Event{Kind: EventOpen, Name: t.Name.Local}); err != nil {
				return err
			}
			for _, a := range t.Attr {
				if err := x.dispatch(Event{Kind: EventAttr, Name: a.Name.Local, Value: a.Value}); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if err := x.flushText(); err != nil {
				return err
			}
			if err := x.dispatch(Event{Kind: EventClose, Name: t.Name.Local}); err != nil {
				return err
			}
			x.path = x.path[:len(x.path)-1]
			x.current = ""
		case xml.CharData:
			x.text.Write(t)
		}
	}
}

// identityCharset accepts any encoding label without transcoding. The decoder still
// rejects bytes that are not valid UTF-8.
func identityCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

func (x *Extractor) reset() {
	x.path = x.path[:0]
	x.current = ""
	x.text.Reset()
}

func (x *Extractor) flushText() error {
	if x.text.Len() == 0 {
		return nil
	}
	text := x.text.String()
	x.text.Reset()
	return x.dispatch(Event{Kind: EventText, Value: text})
}

func (x *Extractor) dispatch(ev Event) error {
	c := Cursor{Path: x.path, Current: x.current}
	for i := range x.rules {
		r := &x.rules[i]
		if r.matches(ev, c) {
			if err := r.Handle(ev, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// TextAt builds a rule that stores the text of the element at exactly path.
func TextAt(dst *string, path ...string) Rule {
	return Rule{
		On:   EventText,
		Path: path,
		Handle: func(ev Event, _ Cursor) error {
			*dst = ev.Value
			return nil
		},
	}
}

// CurrentText builds a rule that stores text found while tag is the current element.
func CurrentText(dst *string, tag string) Rule {
	return Rule{
		On:      EventText,
		Current: tag,
		Handle: func(ev Event, _ Cursor) error {
			*dst = ev.Value
			return nil
		},
	}
}
