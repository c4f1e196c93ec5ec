// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package newick

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// WriteOption configures serialization.
type WriteOption func(*writeOptions)

type writeOptions struct {
	noLengths bool
	noSupport bool
	noNHX     bool
	distFmt   byte
	distPrec  int
}

func defaultWriteOptions() writeOptions {
	// 'g' with precision -1 is the shortest decimal form that parses
	// back to the identical float64, which is what makes the default
	// round trip exact.
	return writeOptions{distFmt: 'g', distPrec: -1}
}

// WithoutLengths omits all ':length' annotations.
func WithoutLengths() WriteOption {
	return func(o *writeOptions) { o.noLengths = true }
}

// WithoutSupport omits internal support labels.
func WithoutSupport() WriteOption {
	return func(o *writeOptions) { o.noSupport = true }
}

// WriteWithoutNHX omits NHX feature blocks.
func WriteWithoutNHX() WriteOption {
	return func(o *writeOptions) { o.noNHX = true }
}

// WithDistFormat sets the strconv.FormatFloat verb and precision for
// branch lengths, e.g. ('f', 6) for fixed six decimals. Round-trip
// equality then holds to the chosen precision rather than bit-exactly.
func WithDistFormat(fmtByte byte, prec int) WriteOption {
	return func(o *writeOptions) { o.distFmt = fmtByte; o.distPrec = prec }
}

// Write serializes a tree to Newick/NHX text ending in ";".
//
// Description:
//
//	Inverse of Parse: re-parsing the output yields a tree with
//	identical topology, names, support values, features, and (in the
//	default format) bit-identical branch lengths. Labels are quoted
//	only when they contain a character the bare grammar reserves.
//	Zero-length edges are written without a ':0' annotation, since an
//	absent length parses back to zero anyway. The walk uses an explicit
//	stack, matching the parser's depth guarantees.
//
// Inputs:
//
//	t    - The tree to serialize.
//	opts - WithoutLengths, WithoutSupport, WriteWithoutNHX, WithDistFormat.
//
// Outputs:
//
//	[]byte - The statement, terminated by ';' (no trailing newline).
func Write(t *tree.Tree, opts ...WriteOption) ([]byte, error) {
	o := defaultWriteOptions()
	for _, opt := range opts {
		opt(&o)
	}
	var buf bytes.Buffer
	writeSubtree(&buf, t.Root(), o)
	buf.WriteByte(';')
	return buf.Bytes(), nil
}

// WriteString is Write returning a string.
func WriteString(t *tree.Tree, opts ...WriteOption) (string, error) {
	b, err := Write(t, opts...)
	return string(b), err
}

// AppendTo writes each tree as one statement per line, the multi-tree
// file format ParseAll reads back.
func AppendTo(w io.Writer, trees []*tree.Tree, opts ...WriteOption) error {
	for i, t := range trees {
		b, err := Write(t, opts...)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("newick: write tree %d: %w", i, err)
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("newick: write tree %d: %w", i, err)
		}
	}
	return nil
}

func writeSubtree(buf *bytes.Buffer, root *tree.Node, o writeOptions) {
	type frame struct {
		n    *tree.Node
		next int
	}
	stack := []frame{{n: root}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		kids := f.n.ChildCount()
		if f.next < kids {
			if f.next == 0 {
				buf.WriteByte('(')
			} else {
				buf.WriteByte(',')
			}
			child := f.n.Child(f.next)
			f.next++
			stack = append(stack, frame{n: child})
			continue
		}
		if kids > 0 {
			buf.WriteByte(')')
		}
		writeNodeSuffix(buf, f.n, o)
		stack = stack[:len(stack)-1]
	}
}

// writeNodeSuffix emits label, ':length' and NHX block for one node,
// called after its children (if any) are closed.
func writeNodeSuffix(buf *bytes.Buffer, n *tree.Node, o writeOptions) {
	supportAsLabel := !n.IsLeaf() && n.Name == "" && !n.IsRoot() &&
		n.Support != nil && !o.noSupport

	var keys []string
	nhxSupport := false
	if !o.noNHX {
		keys = n.FeatureKeys()
		// A named internal node cannot carry its support as the label, so
		// the value rides in the NHX block to keep the round trip lossless.
		_, hasSupportFeature := n.Feature("support")
		nhxSupport = !supportAsLabel && !o.noSupport && !hasSupportFeature &&
			n.Support != nil && !n.IsLeaf() && !n.IsRoot() && n.Name != ""
	}
	hasNHX := len(keys) > 0 || nhxSupport

	switch {
	case n.Name != "" && n.IsLeaf():
		buf.WriteString(quoteLabel(n.Name))
	case n.Name != "":
		buf.WriteString(quoteInternalLabel(n.Name))
	case supportAsLabel:
		// A root's edge does not exist, so neither does its support.
		buf.WriteString(strconv.FormatFloat(*n.Support, 'g', -1, 64))
	case hasNHX && n.IsLeaf():
		// An anonymous featured leaf needs an explicit empty label:
		// with no node token before it the block reads back as a
		// comment and the features vanish.
		buf.WriteString("''")
	}

	if !o.noLengths && n.Dist != 0 && !n.IsRoot() {
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(n.Dist, o.distFmt, o.distPrec, 64))
	}

	if !hasNHX {
		return
	}
	buf.WriteString("[&&NHX")
	if nhxSupport {
		keys = insertSorted(keys, "support")
	}
	for _, k := range keys {
		buf.WriteByte(':')
		buf.WriteString(k)
		buf.WriteByte('=')
		if k == "support" && nhxSupport {
			buf.WriteString(strconv.FormatFloat(*n.Support, 'g', -1, 64))
			continue
		}
		v, _ := n.Feature(k)
		buf.WriteString(v.String())
	}
	buf.WriteByte(']')
}

// insertSorted inserts key into an already sorted slice, keeping order.
func insertSorted(keys []string, key string) []string {
	i := 0
	for i < len(keys) && keys[i] < key {
		i++
	}
	keys = append(keys, "")
	copy(keys[i+1:], keys[i:])
	keys[i] = key
	return keys
}

// quoteInternalLabel quotes internal-node names like quoteLabel, plus
// any name the grammar would read back as a support value: a bare
// close-paren label that parses entirely as a number is support, so a
// numeric name must be quoted to stay a name.
func quoteInternalLabel(label string) string {
	if _, err := strconv.ParseFloat(label, 64); err == nil {
		return "'" + label + "'"
	}
	return quoteLabel(label)
}

// quoteLabel quotes a label iff it contains a reserved character.
// Empty labels stay empty (anonymous node).
func quoteLabel(label string) string {
	if label == "" {
		return ""
	}
	if !strings.ContainsAny(label, "(){}[]':;,= \t\r\n") {
		return label
	}
	return "'" + strings.ReplaceAll(label, "'", "''") + "'"
}
