package normalize

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// xmlNode is a minimal element tree. Scan exports vary too much for
// struct-tag decoding, so the tree is walked by name instead.
type xmlNode struct {
	name     string
	attrs    map[string]string
	text     string
	children []*xmlNode
}

func (n *xmlNode) child(name string) *xmlNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// find returns the first element named name, depth-first, including n itself.
func (n *xmlNode) find(name string) *xmlNode {
	if n.name == name {
		return n
	}
	for _, c := range n.children {
		if found := c.find(name); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every descendant named name in document order, excluding n.
func (n *xmlNode) findAll(name string) []*xmlNode {
	var out []*xmlNode
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
		out = append(out, c.findAll(name)...)
	}
	return out
}

func parseXMLTree(content []byte) (*xmlNode, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyDocument
	}

	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = charset.NewReaderLabel
	var (
		root  *xmlNode
		stack []*xmlNode
		text  []*strings.Builder
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("junk after document element: <%s>", t.Name.Local)
			}
			node := &xmlNode{name: t.Name.Local}
			if len(t.Attr) > 0 {
				node.attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					node.attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			} else {
				root = node
			}
			stack = append(stack, node)
			text = append(text, &strings.Builder{})

		case xml.EndElement:
			node := stack[len(stack)-1]
			node.text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]

		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

// xmlRecord reads fields from child element text, falling back to attributes.
type xmlRecord struct {
	node *xmlNode
}

func (r xmlRecord) field(name string) (string, bool) {
	if c := r.node.child(name); c != nil && c.text != "" {
		return c.text, true
	}
	if v := strings.TrimSpace(r.node.attrs[name]); v != "" {
		return v, true
	}
	return "", false
}

func (r xmlRecord) check() error {
	if len(r.node.children) == 0 && len(r.node.attrs) == 0 {
		return fmt.Errorf("<%s> has no fields", r.node.name)
	}
	return nil
}
