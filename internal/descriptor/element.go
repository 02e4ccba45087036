package descriptor

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is a piece of XML content: *Element, Text, Comment or ProcInst.
type Node interface {
	isNode()
}

// Attr is an attribute with its name written as in the source (prefix:local).
type Attr struct {
	Name  string
	Value string
}

// Element is an XML element that keeps attribute order, comments and
// whitespace so a document can be edited and written back with minimal diff.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []Node
}

// Text is character data.
type Text string

// Comment is an XML comment without its delimiters.
type Comment string

// ProcInst is a processing instruction other than the XML declaration.
type ProcInst struct {
	Target string
	Inst   string
}

func (*Element) isNode() {}
func (Text) isNode()     {}
func (Comment) isNode()  {}
func (ProcInst) isNode() {}

// Document is a parsed XML file: the prolog nodes and the root element.
type Document struct {
	Prolog []Node
	Root   *Element
}

// NewElement returns an element with attributes given as name/value pairs.
func NewElement(name string, attrs ...string) *Element {
	el := &Element{Name: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		el.Attrs = append(el.Attrs, Attr{Name: attrs[i], Value: attrs[i+1]})
	}
	return el
}

// Parse reads an XML document. Namespace prefixes are kept verbatim.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	doc := &Document{}
	var stack []*Element

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		var node Node
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: rawName(t.Name)}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: rawName(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if doc.Root != nil {
					return nil, fmt.Errorf("multiple root elements: %s", el.Name)
				}
				doc.Root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
			continue
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end element %s", rawName(t.Name))
			}
			stack = stack[:len(stack)-1]
			continue
		case xml.CharData:
			node = Text(string(t))
		case xml.Comment:
			node = Comment(string(t))
		case xml.ProcInst:
			if t.Target == "xml" {
				continue
			}
			node = ProcInst{Target: t.Target, Inst: string(t.Inst)}
		case xml.Directive:
			continue
		}

		if len(stack) == 0 {
			if _, ok := node.(Text); ok || doc.Root != nil {
				continue
			}
			doc.Prolog = append(doc.Prolog, node)
			continue
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, node)
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element %s", stack[len(stack)-1].Name)
	}
	if doc.Root == nil {
		return nil, errors.New("document has no root element")
	}
	return doc, nil
}

// ParseBytes parses an in-memory document.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// LocalName strips a namespace prefix.
func LocalName(name string) string {
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr updates an attribute in place or appends it.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.Attrs {
		if a.Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

// Elements returns the child elements with the given local name, or all
// child elements when name is empty.
func (e *Element) Elements(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		el, ok := c.(*Element)
		if !ok {
			continue
		}
		if name == "" || LocalName(el.Name) == name {
			out = append(out, el)
		}
	}
	return out
}

// First returns the first child element with the given local name.
func (e *Element) First(name string) *Element {
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && LocalName(el.Name) == name {
			return el
		}
	}
	return nil
}

// TextContent concatenates the character data of the element and its descendants.
func (e *Element) TextContent() string {
	var b strings.Builder
	for _, c := range e.Children {
		switch n := c.(type) {
		case Text:
			b.WriteString(string(n))
		case *Element:
			b.WriteString(n.TextContent())
		}
	}
	return b.String()
}

// Append adds child as the last element, copying the indentation used by
// the existing children.
func (e *Element) Append(child *Element) {
	n := len(e.Children)
	if n == 0 {
		e.Children = append(e.Children, child)
		return
	}
	closing, ok := e.Children[n-1].(Text)
	if !ok || strings.TrimSpace(string(closing)) != "" {
		e.Children = append(e.Children, child)
		return
	}
	indent := e.childIndent(string(closing))
	children := append([]Node{}, e.Children[:n-1]...)
	children = append(children, Text(indent), child, closing)
	e.Children = children
}

func (e *Element) childIndent(closing string) string {
	for i, c := range e.Children {
		if _, ok := c.(*Element); ok && i > 0 {
			if t, ok := e.Children[i-1].(Text); ok && strings.TrimSpace(string(t)) == "" {
				return string(t)
			}
		}
	}
	return closing + "    "
}

// Remove deletes child and the whitespace directly in front of it.
// It reports whether child was found.
func (e *Element) Remove(child *Element) bool {
	for i, c := range e.Children {
		if c != Node(child) {
			continue
		}
		start := i
		if i > 0 {
			if t, ok := e.Children[i-1].(Text); ok && strings.TrimSpace(string(t)) == "" {
				start = i - 1
			}
		}
		e.Children = append(e.Children[:start:start], e.Children[i+1:]...)
		return true
	}
	return false
}

// Clone returns a deep copy.
func (e *Element) Clone() *Element {
	out := &Element{Name: e.Name, Attrs: append([]Attr(nil), e.Attrs...)}
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			out.Children = append(out.Children, el.Clone())
			continue
		}
		out.Children = append(out.Children, c)
	}
	return out
}

// WriteTo serializes the document with an XML declaration. Attribute order
// is the order held in each element, so output is deterministic.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	cw.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	for _, n := range d.Prolog {
		writeNode(cw, n)
		cw.WriteString("\n")
	}
	writeNode(cw, d.Root)
	cw.WriteString("\n")
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}

// Bytes serializes the document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.Bytes()
}

func writeNode(w *countingWriter, n Node) {
	switch t := n.(type) {
	case *Element:
		w.WriteString("<" + t.Name)
		for _, a := range t.Attrs {
			w.WriteString(" " + a.Name + `="`)
			escapeAttr(w, a.Value)
			w.WriteString(`"`)
		}
		if len(t.Children) == 0 {
			w.WriteString("/>")
			return
		}
		w.WriteString(">")
		for _, c := range t.Children {
			writeNode(w, c)
		}
		w.WriteString("</" + t.Name + ">")
	case Text:
		var buf bytes.Buffer
		_ = xml.EscapeText(&buf, []byte(t))
		// keep newlines readable; EscapeText encodes them
		w.WriteString(strings.NewReplacer("&#xA;", "\n", "&#x9;", "\t", "&#xD;", "\r").Replace(buf.String()))
	case Comment:
		w.WriteString("<!--" + string(t) + "-->")
	case ProcInst:
		w.WriteString("<?" + t.Target + " " + t.Inst + "?>")
	}
}

func escapeAttr(w *countingWriter, s string) {
	w.WriteString(strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"\n", "&#xA;",
		"\t", "&#x9;",
	).Replace(s))
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) WriteString(s string) {
	if c.err != nil {
		return
	}
	n, err := c.w.WriteString(s)
	c.n += int64(n)
	c.err = err
}
