// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package distance

import (
	"fmt"
	"sort"

	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// Consensus builds a majority-rule consensus tree.
//
// Description:
//
//	Counts canonical bipartitions across all input trees and keeps
//	those whose frequency reaches minFreq, then grows the consensus
//	from a star tree by inserting kept splits largest-clade first.
//	Splits above 50% frequency are pairwise compatible, so insertion
//	never conflicts at the default threshold; at exactly 0.5, ties can
//	produce incompatible splits and the greedy order (frequency
//	descending, then size) keeps the more frequent one and drops the
//	loser. Each consensus internal node carries its split's frequency
//	as Support. Branch lengths on consensus edges are the mean of the
//	inducing edges' lengths over the trees containing the split.
//
// Inputs:
//
//	trees   - Input trees, all over the same tip-name set.
//	minFreq - Minimum split frequency in [0.5, 1.0].
//
// Outputs:
//
//	*tree.Tree - The consensus tree, rooted on a star-to-resolved base.
//
// Errors:
//
//	ErrNoTrees           - empty input.
//	ErrBadMinFreq        - threshold outside [0.5, 1.0].
//	ErrTipSetMismatch    - inputs disagree on tips.
//	ErrDuplicateTipNames - an input lacks a tip-name bijection.
func Consensus(trees []*tree.Tree, minFreq float64) (*tree.Tree, error) {
	if len(trees) == 0 {
		return nil, ErrNoTrees
	}
	if minFreq < 0.5 || minFreq > 1.0 {
		return nil, fmt.Errorf("%w: got %v", ErrBadMinFreq, minFreq)
	}
	for _, t := range trees[1:] {
		if err := requireSameTips(trees[0], t); err != nil {
			return nil, err
		}
	}

	universe, _, err := tipUniverse(trees[0])
	if err != nil {
		return nil, err
	}

	type tally struct {
		split  Bipartition
		count  int
		sumLen float64
	}
	counts := make(map[string]*tally)
	for _, t := range trees {
		set, err := Bipartitions(t)
		if err != nil {
			return nil, err
		}
		for key, b := range set.Splits {
			entry, ok := counts[key]
			if !ok {
				entry = &tally{split: b}
				counts[key] = entry
			}
			entry.count++
			entry.sumLen += b.Length
		}
	}

	var kept []*tally
	total := float64(len(trees))
	for _, entry := range counts {
		if float64(entry.count)/total >= minFreq {
			kept = append(kept, entry)
		}
	}
	// Frequency descending, then clade size descending, then key for
	// determinism across map iteration order.
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].count != kept[j].count {
			return kept[i].count > kept[j].count
		}
		si, sj := kept[i].split.Size(), kept[j].split.Size()
		if si != sj {
			return si > sj
		}
		return kept[i].split.Key() < kept[j].split.Key()
	})

	// Star base: every tip under the root.
	root := tree.NewNode("")
	tipNode := make(map[string]*tree.Node, len(universe))
	for _, name := range universe {
		tip := tree.NewNode(name)
		root.AddChild(tip)
		tipNode[name] = tip
	}

	for _, entry := range kept {
		insertSplit(root, entry.split, universe, tipNode,
			float64(entry.count)/total, entry.sumLen/float64(entry.count))
	}
	return tree.New(root), nil
}

// insertSplit groups the children covering the split's tip set under a
// new internal node. Incompatible splits (possible only at exactly 50%
// frequency) are skipped.
func insertSplit(root *tree.Node, b Bipartition, universe []string, tipNode map[string]*tree.Node, freq, length float64) {
	inSplit := make(map[*tree.Node]bool)
	for i := range universe {
		if b.Bits[i/64]>>(i%64)&1 == 1 {
			inSplit[tipNode[universe[i]]] = true
		}
	}
	want := len(inSplit)

	// The insertion parent is the deepest node whose clade contains the
	// whole split. Because splits are inserted largest first, that node
	// is found by descending while some child's clade still covers the
	// split.
	parent := root
	for {
		descended := false
		for _, c := range parent.Children() {
			cov := cladeCover(c, inSplit)
			if cov == want && cladeSize(c) > want {
				parent = c
				descended = true
				break
			}
		}
		if !descended {
			break
		}
	}

	// The split must be exactly a union of some of parent's children.
	var group []*tree.Node
	covered := 0
	for _, c := range parent.Children() {
		cov := cladeCover(c, inSplit)
		size := cladeSize(c)
		if cov == 0 {
			continue
		}
		if cov != size {
			return // straddles a child: incompatible, drop
		}
		group = append(group, c)
		covered += cov
	}
	if covered != want || len(group) < 2 || len(group) == len(parent.Children()) {
		return
	}

	mid := tree.NewNode("")
	mid.Dist = length
	mid.SetSupport(freq)
	for _, c := range group {
		mid.AddChild(c)
	}
	parent.AddChild(mid)
}

// cladeSize counts tips under n (n itself when a tip).
func cladeSize(n *tree.Node) int {
	count := 0
	for d := range n.Traverse(tree.Postorder) {
		if d.IsLeaf() {
			count++
		}
	}
	return count
}

// cladeCover counts tips under n that belong to the split set.
func cladeCover(n *tree.Node, inSplit map[*tree.Node]bool) int {
	count := 0
	for d := range n.Traverse(tree.Postorder) {
		if d.IsLeaf() && inSplit[d] {
			count++
		}
	}
	return count
}
