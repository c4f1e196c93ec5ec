// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package newick reads and writes phylogenetic trees in Newick and NHX
// notation.
//
// The parser is a single left-to-right scan over the input with an
// explicit stack of open internal nodes, so tree depth costs heap, not
// goroutine stack: programmatically generated caterpillar trees of
// 100k+ depth parse fine. The writer is the exact inverse; see write.go
// for the round-trip contract.
//
// # Grammar
//
//	tree       ::= node ';'
//	node       ::= leaf | internal
//	leaf       ::= label [':' length] [NHXblock]
//	internal   ::= '(' node (',' node)* ')' [label] [':' length] [NHXblock]
//	NHXblock   ::= '[&&NHX' (':' key '=' value)* ']'
//	label      ::= bare-token | quoted-string
//
// Bare labels end at any of "(){}[]':;," or whitespace. Quoted labels
// are single-quoted, a doubled quote escaping an embedded one. Bracketed runs
// not carrying the &&NHX sentinel are comments and are skipped.
// Internal-node labels that parse entirely as a number become the
// node's support value; leaf labels are always names. Content after the
// terminating ';' is ignored by Parse and consumed statement-by-
// statement by ParseAll.
package newick

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// ParseOption configures parsing behavior.
type ParseOption func(*parseOptions)

type parseOptions struct {
	strictLengths bool
	maxDepth      int
	noNHX         bool
}

// WithStrictLengths rejects negative branch lengths. The default is
// lenient: negative lengths are syntactically accepted, as some
// distance-based inference programs emit them.
func WithStrictLengths() ParseOption {
	return func(o *parseOptions) { o.strictLengths = true }
}

// WithMaxDepth caps nesting depth. 0 (the default) means unlimited.
// The parser's memory stays linear either way; the cap is for callers
// that feed untrusted input and want an explicit bound.
func WithMaxDepth(n int) ParseOption {
	return func(o *parseOptions) { o.maxDepth = n }
}

// WithoutNHX treats [&&NHX:...] blocks like ordinary comments.
func WithoutNHX() ParseOption {
	return func(o *parseOptions) { o.noNHX = true }
}

// Parse parses the first tree statement in data.
//
// Description:
//
//	Pure function from text to a freshly owned, fully indexed Tree.
//	On failure it returns a nil tree and a *ParseError wrapping one of
//	the package sentinels; no partially built graph ever escapes.
//
// Inputs:
//
//	data - Newick/NHX text. Anything after the terminating ';' is ignored.
//	opts - WithStrictLengths, WithMaxDepth, WithoutNHX.
//
// Outputs:
//
//	*tree.Tree - The parsed tree with idx assigned and caches built.
//	error      - Nil, or a *ParseError.
func Parse(data []byte, opts ...ParseOption) (*tree.Tree, error) {
	o := parseOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	p := &parser{data: data, line: 1, col: 1, opts: o}
	p.skipLayout()
	if p.eof() {
		return nil, p.errorf(ErrEmptyInput, "no tree statement found")
	}
	return p.parseTree()
}

// ParseString is Parse over a string.
func ParseString(s string, opts ...ParseOption) (*tree.Tree, error) {
	return Parse([]byte(s), opts...)
}

// ParseAll parses a multi-tree stream, one statement per ';'.
//
// Whitespace and comments between statements are skipped. An empty
// stream (or one containing only layout) fails with ErrEmptyInput.
func ParseAll(r io.Reader, opts ...ParseOption) ([]*tree.Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("newick: read input: %w", err)
	}
	o := parseOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	p := &parser{data: data, line: 1, col: 1, opts: o}
	var trees []*tree.Tree
	for {
		p.skipLayout()
		if p.eof() {
			break
		}
		t, err := p.parseTree()
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	if len(trees) == 0 {
		return nil, p.errorf(ErrEmptyInput, "no tree statement found")
	}
	return trees, nil
}

// parser scans bytes left to right with position tracking. It holds no
// references to completed trees, so a failed parse leaks nothing.
type parser struct {
	data []byte
	pos  int
	line int
	col  int
	opts parseOptions
}

const (
	stateSubtree = iota // expecting a node (leaf or '(')
	stateAfter          // reading a node's label suffix, ':len', NHX, ',', ')' or ';'
)

// parseTree consumes exactly one 'node ;' statement.
func (p *parser) parseTree() (*tree.Tree, error) {
	var root *tree.Node
	var last *tree.Node
	var stack []*tree.Node
	state := stateSubtree

	attach := func() *tree.Node {
		n := tree.NewNode("")
		if len(stack) > 0 {
			stack[len(stack)-1].AddChild(n)
		} else {
			root = n
		}
		return n
	}

	for {
		p.skipSpace()
		if p.eof() {
			if len(stack) > 0 {
				return nil, p.errorf(ErrUnbalancedParens, "input ended with %d unclosed group(s)", len(stack))
			}
			return nil, p.errorf(ErrUnexpectedToken, "input ended before ';'")
		}
		c := p.data[p.pos]

		if state == stateSubtree {
			switch c {
			case '(':
				if p.opts.maxDepth > 0 && len(stack) >= p.opts.maxDepth {
					return nil, p.errorf(ErrUnexpectedToken, "nesting depth exceeds limit %d", p.opts.maxDepth)
				}
				n := attach()
				stack = append(stack, n)
				p.advance()
			case '[':
				if err := p.skipComment(); err != nil {
					return nil, err
				}
			case ',', ')', ':', ';':
				// Anonymous node, e.g. "(,A);". The delimiter is left
				// for the stateAfter switch.
				last = attach()
				state = stateAfter
			case '\'':
				name, err := p.readQuoted()
				if err != nil {
					return nil, err
				}
				n := attach()
				n.Name = name
				last = n
				state = stateAfter
			default:
				name := p.readBare()
				if name == "" {
					return nil, p.errorf(ErrUnexpectedToken, "unexpected %q", c)
				}
				n := attach()
				n.Name = name
				last = n
				state = stateAfter
			}
			continue
		}

		switch c {
		case ':':
			p.advance()
			p.skipSpace()
			d, err := p.readNumber()
			if err != nil {
				return nil, err
			}
			last.Dist = d
		case '[':
			if err := p.readBracket(last); err != nil {
				return nil, err
			}
		case ',':
			if len(stack) == 0 {
				return nil, p.errorf(ErrUnexpectedToken, "',' outside any group")
			}
			p.advance()
			state = stateSubtree
		case ')':
			if len(stack) == 0 {
				return nil, p.errorf(ErrUnbalancedParens, "')' without matching '('")
			}
			p.advance()
			last = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := p.readCloseLabel(last); err != nil {
				return nil, err
			}
		case ';':
			p.advance()
			if len(stack) > 0 {
				return nil, p.errorf(ErrUnbalancedParens, "';' with %d unclosed group(s)", len(stack))
			}
			return tree.New(root), nil
		default:
			return nil, p.errorf(ErrUnexpectedToken, "unexpected %q", c)
		}
	}
}

// readCloseLabel reads the optional label following ')'. Quoted labels
// are always names; bare labels that parse entirely as a number become
// the node's support value, the usual encoding of bootstrap
// proportions in plain Newick.
func (p *parser) readCloseLabel(n *tree.Node) error {
	p.skipSpace()
	if p.eof() {
		return nil
	}
	c := p.data[p.pos]
	if c == '\'' {
		name, err := p.readQuoted()
		if err != nil {
			return err
		}
		n.Name = name
		return nil
	}
	if isBareChar(c) {
		label := p.readBare()
		if v, err := strconv.ParseFloat(label, 64); err == nil {
			n.SetSupport(v)
		} else {
			n.Name = label
		}
	}
	return nil
}

// readBracket handles a '[...]' run after a node: an NHX feature block
// or a plain comment.
func (p *parser) readBracket(n *tree.Node) error {
	content, isNHX, err := p.scanBracket()
	if err != nil {
		return err
	}
	if !isNHX || p.opts.noNHX {
		return nil
	}
	rest := content[len(nhxSentinel):]
	if rest == "" {
		return nil // "[&&NHX]": legal, featureless
	}
	if rest[0] != ':' {
		return p.errorf(ErrMalformedNHX, "expected ':' after &&NHX sentinel")
	}
	for _, pair := range strings.Split(rest[1:], ":") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return p.errorf(ErrMalformedNHX, "entry %q has no '='", pair)
		}
		if key == "" {
			return p.errorf(ErrMalformedNHX, "entry %q has an empty key", pair)
		}
		if key == "support" {
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				n.SetSupport(v) // overrides a label-derived value
				continue
			}
		}
		n.SetFeature(key, tree.ParseFeatureValue(value))
	}
	return nil
}

const nhxSentinel = "&&NHX"

// skipComment consumes a bracket run that cannot be an NHX block
// (because no node precedes it).
func (p *parser) skipComment() error {
	_, _, err := p.scanBracket()
	return err
}

// scanBracket consumes '[' ... ']' and returns the inner content and
// whether it carries the NHX sentinel. Nesting is not supported, per
// the classic grammar.
func (p *parser) scanBracket() (string, bool, error) {
	p.advance() // '['
	start := p.pos
	for !p.eof() && p.data[p.pos] != ']' {
		p.advance()
	}
	if p.eof() {
		if strings.HasPrefix(string(p.data[start:]), nhxSentinel) {
			return "", false, p.errorf(ErrMalformedNHX, "unterminated NHX block")
		}
		return "", false, p.errorf(ErrUnexpectedToken, "unterminated comment")
	}
	content := string(p.data[start:p.pos])
	p.advance() // ']'
	return content, strings.HasPrefix(content, nhxSentinel), nil
}

// readNumber scans and parses one real number (scientific notation
// accepted). Called with the cursor on the first character.
func (p *parser) readNumber() (float64, error) {
	start := p.pos
	for !p.eof() && isNumberChar(p.data[p.pos]) {
		p.advance()
	}
	token := string(p.data[start:p.pos])
	if token == "" {
		return 0, p.errorf(ErrUnexpectedToken, "':' not followed by a number")
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, p.errorf(ErrUnexpectedToken, "invalid branch length %q", token)
	}
	if p.opts.strictLengths && v < 0 {
		return 0, p.errorf(ErrUnexpectedToken, "negative branch length %v", v)
	}
	return v, nil
}

// readBare scans a run of bare-label characters (possibly empty).
func (p *parser) readBare() string {
	start := p.pos
	for !p.eof() && isBareChar(p.data[p.pos]) {
		p.advance()
	}
	return string(p.data[start:p.pos])
}

// readQuoted scans a single-quoted label with '' escaping.
func (p *parser) readQuoted() (string, error) {
	p.advance() // opening quote
	var sb strings.Builder
	for {
		if p.eof() {
			return "", p.errorf(ErrUnexpectedToken, "unterminated quoted label")
		}
		c := p.data[p.pos]
		p.advance()
		if c != '\'' {
			sb.WriteByte(c)
			continue
		}
		if !p.eof() && p.data[p.pos] == '\'' {
			sb.WriteByte('\'')
			p.advance()
			continue
		}
		return sb.String(), nil
	}
}

// skipLayout skips whitespace and comments between statements.
func (p *parser) skipLayout() {
	for {
		p.skipSpace()
		if p.eof() || p.data[p.pos] != '[' {
			return
		}
		// Between statements a bracket run can only be a comment; an
		// unterminated one just exhausts the input.
		if err := p.skipComment(); err != nil {
			p.pos = len(p.data)
			return
		}
	}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.data[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.advance()
		default:
			return
		}
	}
}

func (p *parser) eof() bool { return p.pos >= len(p.data) }

func (p *parser) advance() {
	if p.data[p.pos] == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	p.pos++
}

func (p *parser) errorf(sentinel error, format string, args ...any) error {
	return &ParseError{
		Offset: p.pos,
		Line:   p.line,
		Column: p.col,
		Msg:    fmt.Sprintf(format, args...),
		Err:    sentinel,
	}
}

func isBareChar(c byte) bool {
	switch c {
	case '(', ')', '[', ']', '{', '}', '\'', ':', ';', ',', ' ', '\t', '\r', '\n':
		return false
	}
	return true
}

func isNumberChar(c byte) bool {
	return (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.' || c == 'e' || c == 'E'
}
