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
	"strings"

	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// RFResult is the outcome of a Robinson-Foulds comparison.
type RFResult struct {
	// Distance is the symmetric-difference cardinality of the two
	// bipartition sets.
	Distance int

	// MaxDistance is the largest value Distance could take for these
	// two trees: the sum of their non-trivial split counts.
	MaxDistance int

	// Normalized is Distance / MaxDistance, or 0 when MaxDistance is 0.
	Normalized float64

	// SharedSplits counts bipartitions present in both trees.
	SharedSplits int
}

// RobinsonFoulds computes the RF distance between two trees.
//
// Description:
//
//	Counts the bipartitions present in exactly one of the two trees.
//	Canonical bitset splits make the comparison rooting-independent:
//	rotated, ladderized, or rerooted copies of one topology are at
//	distance zero. The metric properties hold: RF(a,a)=0, symmetry,
//	and collapsing one internal edge of a binary tree changes the
//	distance by exactly one split.
//
// Errors:
//
//	ErrTipSetMismatch    - tip-name sets differ (offenders listed).
//	ErrDuplicateTipNames - either tree lacks a tip-name bijection.
func RobinsonFoulds(a, b *tree.Tree) (RFResult, error) {
	if err := requireSameTips(a, b); err != nil {
		return RFResult{}, err
	}
	sa, err := Bipartitions(a)
	if err != nil {
		return RFResult{}, err
	}
	sb, err := Bipartitions(b)
	if err != nil {
		return RFResult{}, err
	}

	shared := 0
	for key := range sa.Splits {
		if _, ok := sb.Splits[key]; ok {
			shared++
		}
	}
	res := RFResult{
		Distance:     len(sa.Splits) + len(sb.Splits) - 2*shared,
		MaxDistance:  len(sa.Splits) + len(sb.Splits),
		SharedSplits: shared,
	}
	if res.MaxDistance > 0 {
		res.Normalized = float64(res.Distance) / float64(res.MaxDistance)
	}
	return res, nil
}

// requireSameTips verifies the two trees share one tip-name set.
func requireSameTips(a, b *tree.Tree) error {
	na := append([]string(nil), a.TipNames()...)
	nb := append([]string(nil), b.TipNames()...)
	sort.Strings(na)
	sort.Strings(nb)

	onlyA := diffSorted(na, nb)
	onlyB := diffSorted(nb, na)
	if len(onlyA) == 0 && len(onlyB) == 0 {
		return nil
	}
	var parts []string
	if len(onlyA) > 0 {
		parts = append(parts, fmt.Sprintf("only in first: %s", strings.Join(onlyA, ", ")))
	}
	if len(onlyB) > 0 {
		parts = append(parts, fmt.Sprintf("only in second: %s", strings.Join(onlyB, ", ")))
	}
	return fmt.Errorf("%w (%s)", ErrTipSetMismatch, strings.Join(parts, "; "))
}

// diffSorted returns elements of a not present in b; both sorted.
func diffSorted(a, b []string) []string {
	var out []string
	i, j := 0, 0
	for i < len(a) {
		switch {
		case j >= len(b) || a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] == b[j]:
			i++
			j++
		default:
			j++
		}
	}
	return out
}
