package parser

import (
	"bytes"
	"encoding/json"
)

// Value is one converted markup node: a Text or an *Element.
type Value interface {
	writeJSON(w *jsonWriter)
}

// Text is an element that held only character data, or was empty.
type Text string

// Attr is a single attribute in document order.
type Attr struct {
	Name  string
	Value string
}

// Field groups the child elements sharing a name, in first-appearance order.
type Field struct {
	Name   string
	Values []Value
}

// Element is an element with attributes or child elements.
//
// It serializes as an object: "$" holds the attributes, every child name
// maps to the array of its values, and "_" holds the character data mixed
// in with them.
type Element struct {
	Attrs  []Attr
	Fields []Field
	Text   string
}

// EntryList is the ordered list of converted entry elements.
type EntryList []Value

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Children returns the values of the child elements with the given name.
func (e *Element) Children(name string) []Value {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Values
		}
	}
	return nil
}

// ChildText returns the text of the first child with the given name when
// that child holds only text.
func (e *Element) ChildText(name string) (string, bool) {
	values := e.Children(name)
	if len(values) == 0 {
		return "", false
	}
	t, ok := values[0].(Text)
	return string(t), ok
}

func (e *Element) add(name string, v Value) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			e.Fields[i].Values = append(e.Fields[i].Values, v)
			return
		}
	}
	e.Fields = append(e.Fields, Field{Name: name, Values: []Value{v}})
}

func (e *Element) MarshalJSON() ([]byte, error) {
	return marshal(e), nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	return marshal(t), nil
}

func (l EntryList) MarshalJSON() ([]byte, error) {
	w := newJSONWriter()
	l.writeJSON(w)
	return w.buf.Bytes(), nil
}

func marshal(v Value) []byte {
	w := newJSONWriter()
	v.writeJSON(w)
	return w.buf.Bytes()
}

func (l EntryList) writeJSON(w *jsonWriter) {
	w.buf.WriteByte('[')
	for i, v := range l {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		v.writeJSON(w)
	}
	w.buf.WriteByte(']')
}

func (t Text) writeJSON(w *jsonWriter) {
	w.str(string(t))
}

func (e *Element) writeJSON(w *jsonWriter) {
	w.buf.WriteByte('{')
	first := true
	key := func(k string) {
		if !first {
			w.buf.WriteByte(',')
		}
		first = false
		w.str(k)
		w.buf.WriteByte(':')
	}

	// text leads, matching the key order xml2js produces
	if e.Text != "" {
		key("_")
		w.str(e.Text)
	}

	if len(e.Attrs) > 0 {
		key("$")
		w.buf.WriteByte('{')
		for i, a := range e.Attrs {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.str(a.Name)
			w.buf.WriteByte(':')
			w.str(a.Value)
		}
		w.buf.WriteByte('}')
	}

	for _, f := range e.Fields {
		key(f.Name)
		w.buf.WriteByte('[')
		for i, v := range f.Values {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			v.writeJSON(w)
		}
		w.buf.WriteByte(']')
	}

	w.buf.WriteByte('}')
}

// jsonWriter builds compact JSON without HTML escaping.
type jsonWriter struct {
	buf *bytes.Buffer
	enc *json.Encoder
}

func newJSONWriter() *jsonWriter {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &jsonWriter{buf: buf, enc: enc}
}

// str writes s as a JSON string. Encode never fails for a string and always
// appends a newline, which is dropped.
func (w *jsonWriter) str(s string) {
	_ = w.enc.Encode(s)
	w.buf.Truncate(w.buf.Len() - 1)
}
