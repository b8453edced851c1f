// Package sexp implements a small s-expression reader. It is the
// lexical layer underneath the PDDL front end: the reader turns raw
// text into a tree of atoms and lists annotated with source positions,
// and the PDDL package interprets that tree.
//
// The reader is deliberately minimal. It understands parentheses,
// whitespace-delimited atoms, and line comments introduced by ';'.
// Atoms are lowercased on read because PDDL is case-insensitive.
package sexp

import (
	"fmt"
	"strings"
)

// Node is one node of an s-expression tree. A node is either a leaf
// carrying an atom, or a list of child nodes. Line and Col record the
// position of the node's first character for error reporting.
type Node struct {
	Atom string
	List []Node
	Leaf bool
	Line int
	Col  int
}

// IsList reports whether the node is a list (possibly empty).
func (n Node) IsList() bool { return !n.Leaf }

// Head returns the leading atom of a list node, or the empty string if
// the node is empty or its first child is not an atom.
func (n Node) Head() string {
	if n.Leaf || len(n.List) == 0 || !n.List[0].Leaf {
		return ""
	}
	return n.List[0].Atom
}

// Tail returns the children of a list node after the head.
func (n Node) Tail() []Node {
	if n.Leaf || len(n.List) == 0 {
		return nil
	}
	return n.List[1:]
}

// String renders the node back to s-expression text. Useful in error
// messages and tests; not a faithful round trip of the input layout.
func (n Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n Node) write(b *strings.Builder) {
	if n.Leaf {
		b.WriteString(n.Atom)
		return
	}
	b.WriteByte('(')
	for i, c := range n.List {
		if i > 0 {
			b.WriteByte(' ')
		}
		c.write(b)
	}
	b.WriteByte(')')
}

// SyntaxError reports malformed s-expression input.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

type reader struct {
	src  string
	pos  int
	line int
	col  int
}

// Parse reads all top-level s-expressions from src.
func Parse(src string) ([]Node, error) {
	r := &reader{src: src, line: 1, col: 1}
	var nodes []Node
	for {
		r.skipSpace()
		if r.eof() {
			return nodes, nil
		}
		n, err := r.readNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
}

// ParseOne reads exactly one top-level s-expression from src and
// rejects trailing content.
func ParseOne(src string) (Node, error) {
	nodes, err := Parse(src)
	if err != nil {
		return Node{}, err
	}
	if len(nodes) != 1 {
		return Node{}, &SyntaxError{Line: 1, Col: 1, Msg: fmt.Sprintf("expected a single expression, found %d", len(nodes))}
	}
	return nodes[0], nil
}

func (r *reader) eof() bool { return r.pos >= len(r.src) }

func (r *reader) peek() byte { return r.src[r.pos] }

func (r *reader) advance() byte {
	c := r.src[r.pos]
	r.pos++
	if c == '\n' {
		r.line++
		r.col = 1
	} else {
		r.col++
	}
	return c
}

func (r *reader) skipSpace() {
	for !r.eof() {
		c := r.peek()
		switch {
		case c == ';':
			for !r.eof() && r.peek() != '\n' {
				r.advance()
			}
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			r.advance()
		default:
			return
		}
	}
}

func (r *reader) readNode() (Node, error) {
	r.skipSpace()
	if r.eof() {
		return Node{}, &SyntaxError{Line: r.line, Col: r.col, Msg: "unexpected end of input"}
	}
	line, col := r.line, r.col
	switch c := r.peek(); c {
	case '(':
		r.advance()
		node := Node{Line: line, Col: col}
		for {
			r.skipSpace()
			if r.eof() {
				return Node{}, &SyntaxError{Line: line, Col: col, Msg: "unterminated list"}
			}
			if r.peek() == ')' {
				r.advance()
				return node, nil
			}
			child, err := r.readNode()
			if err != nil {
				return Node{}, err
			}
			node.List = append(node.List, child)
		}
	case ')':
		return Node{}, &SyntaxError{Line: line, Col: col, Msg: "unexpected ')'"}
	default:
		return r.readAtom()
	}
}

func (r *reader) readAtom() (Node, error) {
	line, col := r.line, r.col
	start := r.pos
	for !r.eof() {
		c := r.peek()
		if c == '(' || c == ')' || c == ';' || c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			break
		}
		r.advance()
	}
	text := r.src[start:r.pos]
	if text == "" {
		return Node{}, &SyntaxError{Line: line, Col: col, Msg: "empty atom"}
	}
	return Node{Atom: strings.ToLower(text), Leaf: true, Line: line, Col: col}, nil
}
