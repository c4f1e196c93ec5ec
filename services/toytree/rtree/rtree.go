// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rtree generates syntactically valid random and fixed-shape
// trees for testing, benchmarking, and null-model work. Every
// generator is deterministic under WithSeed.
package rtree

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// ErrTooFewTips indicates a requested tip count below two.
var ErrTooFewTips = errors.New("tip count must be at least 2")

// Option configures a generator call.
type Option func(*options)

type options struct {
	seed      int64
	hasSeed   bool
	tipPrefix string
}

func defaultOptions() options {
	return options{tipPrefix: "r"}
}

// WithSeed makes the generator deterministic.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed; o.hasSeed = true }
}

// WithTipPrefix sets the tip-name prefix. Tips are named
// prefix0..prefix{n-1} in generation order. Default "r".
func WithTipPrefix(prefix string) Option {
	return func(o *options) { o.tipPrefix = prefix }
}

func (o options) rng() *rand.Rand {
	if o.hasSeed {
		return rand.New(rand.NewSource(o.seed))
	}
	return rand.New(rand.NewSource(rand.Int63()))
}

func (o options) tips(n int) []*tree.Node {
	out := make([]*tree.Node, n)
	for i := range out {
		out[i] = tree.NewNode(fmt.Sprintf("%s%d", o.tipPrefix, i))
	}
	return out
}

func apply(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Imbalanced returns a fully imbalanced (caterpillar) tree: each
// internal node has one tip child and one internal child. All branch
// lengths are 1.
func Imbalanced(ntips int, opts ...Option) (*tree.Tree, error) {
	if ntips < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewTips, ntips)
	}
	o := apply(opts)
	tips := o.tips(ntips)
	for _, tip := range tips {
		tip.Dist = 1
	}

	cur := tree.NewNode("")
	cur.AddChild(tips[0])
	cur.AddChild(tips[1])
	for i := 2; i < ntips; i++ {
		up := tree.NewNode("")
		cur.Dist = 1
		up.AddChild(cur)
		up.AddChild(tips[i])
		cur = up
	}
	return tree.New(cur), nil
}

// Balanced returns a tree as balanced as ntips allows: tips are split
// as evenly as possible at every level. All branch lengths are 1.
func Balanced(ntips int, opts ...Option) (*tree.Tree, error) {
	if ntips < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewTips, ntips)
	}
	o := apply(opts)
	tips := o.tips(ntips)
	for _, tip := range tips {
		tip.Dist = 1
	}

	// Iterative halving over tip ranges with an explicit stack; each
	// internal node splits its range into ceil/floor halves.
	type job struct {
		node *tree.Node
		lo   int
		hi   int // exclusive
	}
	root := tree.NewNode("")
	stack := []job{{node: root, lo: 0, hi: ntips}}
	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		mid := j.lo + (j.hi-j.lo+1)/2
		left, right := childFor(j.node, tips, j.lo, mid), childFor(j.node, tips, mid, j.hi)
		if left != nil {
			stack = append(stack, job{node: left, lo: j.lo, hi: mid})
		}
		if right != nil {
			stack = append(stack, job{node: right, lo: mid, hi: j.hi})
		}
	}
	return tree.New(root), nil
}

// childFor attaches either the single tip of the range or a fresh
// internal node to parent, returning the internal node (nil for tips).
func childFor(parent *tree.Node, tips []*tree.Node, lo, hi int) *tree.Node {
	if hi-lo == 1 {
		parent.AddChild(tips[lo])
		return nil
	}
	n := tree.NewNode("")
	n.Dist = 1
	parent.AddChild(n)
	return n
}

// Random returns a uniformly random topology over ntips tips, built by
// repeated random joins. Branch lengths are drawn uniformly from (0, 1].
func Random(ntips int, opts ...Option) (*tree.Tree, error) {
	o := apply(opts)
	return randomJoins(ntips, o, func(rng *rand.Rand) float64 {
		return 1 - rng.Float64() // (0, 1]
	})
}

// Unit is Random with every branch length set to 1.
func Unit(ntips int, opts ...Option) (*tree.Tree, error) {
	o := apply(opts)
	return randomJoins(ntips, o, func(*rand.Rand) float64 { return 1 })
}

func randomJoins(ntips int, o options, draw func(*rand.Rand) float64) (*tree.Tree, error) {
	if ntips < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewTips, ntips)
	}
	rng := o.rng()
	pool := o.tips(ntips)
	for _, tip := range pool {
		tip.Dist = draw(rng)
	}
	for len(pool) > 1 {
		i := rng.Intn(len(pool))
		j := rng.Intn(len(pool) - 1)
		if j >= i {
			j++
		}
		if i > j {
			i, j = j, i
		}
		parent := tree.NewNode("")
		parent.Dist = draw(rng)
		parent.AddChild(pool[i])
		parent.AddChild(pool[j])
		pool[j] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		pool[i] = parent
	}
	root := pool[0]
	root.Dist = 0
	return tree.New(root), nil
}

// Coal returns a random coalescent tree: topology by random pairwise
// coalescence, node heights by exponential waiting times with rate
// k(k-1)/2 scaled by the effective population size ne (in units of 2N
// generations). Branch lengths are height differences, so the tree is
// ultrametric.
func Coal(ntips int, ne float64, opts ...Option) (*tree.Tree, error) {
	if ntips < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewTips, ntips)
	}
	if ne <= 0 || math.IsNaN(ne) {
		return nil, fmt.Errorf("effective population size must be positive, got %v", ne)
	}
	o := apply(opts)
	rng := o.rng()

	type lineage struct {
		node   *tree.Node
		height float64
	}
	pool := make([]lineage, ntips)
	for i, tip := range o.tips(ntips) {
		pool[i] = lineage{node: tip}
	}

	height := 0.0
	for len(pool) > 1 {
		k := float64(len(pool))
		rate := k * (k - 1) / 2 / (2 * ne)
		height += rng.ExpFloat64() / rate

		i := rng.Intn(len(pool))
		j := rng.Intn(len(pool) - 1)
		if j >= i {
			j++
		}
		if i > j {
			i, j = j, i
		}
		parent := tree.NewNode("")
		parent.AddChild(pool[i].node)
		parent.AddChild(pool[j].node)
		pool[i].node.Dist = height - pool[i].height
		pool[j].node.Dist = height - pool[j].height

		pool[j] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		pool[i] = lineage{node: parent, height: height}
	}
	return tree.New(pool[0].node), nil
}
