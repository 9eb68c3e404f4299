// Package report assembles simulation statistics into an ordered result tree.
//
// The tree is the hand-off point between the kernels and the sinks: the JSON
// results file, the text summary, and the optional results database all
// consume the same Node.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Field is one labeled number inside a leaf.
type Field struct {
	Label string
	Value float64
}

// Fields is an ordered label to value list.
type Fields []Field

// Get returns the value stored under label.
func (f Fields) Get(label string) (float64, bool) {
	for _, field := range f {
		if field.Label == label {
			return field.Value, true
		}
	}
	return 0, false
}

// MarshalJSON encodes the fields as an object, keeping label order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, field.Label, field.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Node is one named entry in a result tree.
//
// A node carries either a Value (number, string, or Fields) or Children.
type Node struct {
	Name     string
	Value    any
	Children []*Node
}

// New returns an empty branch node.
func New(name string) *Node {
	return &Node{Name: name}
}

// Leaf returns a node holding value.
func Leaf(name string, value any) *Node {
	return &Node{Name: name, Value: value}
}

// Add appends children and returns n for chaining.
func (n *Node) Add(children ...*Node) *Node {
	for _, child := range children {
		if child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n
}

// Set appends a leaf child holding value and returns n.
func (n *Node) Set(name string, value any) *Node {
	return n.Add(Leaf(name, value))
}

// Branch returns the child branch called name, creating it when missing.
func (n *Node) Branch(name string) *Node {
	if child := n.Find(name); child != nil {
		return child
	}
	child := New(name)
	n.Children = append(n.Children, child)
	return child
}

// Find returns the direct child called name, or nil.
func (n *Node) Find(name string) *Node {
	for _, child := range n.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Lookup walks a path of child names from n.
func (n *Node) Lookup(path ...string) *Node {
	current := n
	for _, name := range path {
		if current == nil {
			return nil
		}
		current = current.Find(name)
	}
	return current
}

// IsLeaf reports whether the node carries a value instead of children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0 && n.Value != nil
}

// MarshalJSON encodes a branch as an object keyed by child name, in order.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	if n.IsLeaf() {
		return json.Marshal(n.Value)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, child := range n.Children {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, child.Name, child); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WriteJSON writes the tree as 2-space indented JSON.
func WriteJSON(w io.Writer, root *Node) error {
	if root == nil {
		return fmt.Errorf("result tree is required")
	}
	payload, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// Entry is one flattened leaf value.
type Entry struct {
	Path  string
	Label string
	Value float64
	Text  string
}

// PathSeparator joins node names in flattened paths.
const PathSeparator = " / "

// Flatten lists every leaf value under root in tree order.
//
// Fields expand to one entry per label. String values keep Value at zero and
// carry the string in Text.
func Flatten(root *Node) []Entry {
	var entries []Entry
	flatten(root, nil, &entries)
	return entries
}

func flatten(n *Node, path []string, entries *[]Entry) {
	if n == nil {
		return
	}
	if !n.IsLeaf() {
		for _, child := range n.Children {
			flatten(child, append(path, child.Name), entries)
		}
		return
	}

	joined := strings.Join(path, PathSeparator)
	switch value := n.Value.(type) {
	case Fields:
		for _, field := range value {
			*entries = append(*entries, Entry{Path: joined, Label: field.Label, Value: field.Value})
		}
	case float64:
		*entries = append(*entries, Entry{Path: joined, Value: value})
	case int:
		*entries = append(*entries, Entry{Path: joined, Value: float64(value)})
	case string:
		*entries = append(*entries, Entry{Path: joined, Text: value})
	default:
		*entries = append(*entries, Entry{Path: joined, Text: fmt.Sprint(value)})
	}
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	name, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("marshal key %q: %w", key, err)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	buf.Write(name)
	buf.WriteByte(':')
	buf.Write(payload)
	return nil
}
