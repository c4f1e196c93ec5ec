// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tree

import "fmt"

// TieBreak selects how Ladderize orders siblings whose subtree tip
// counts are equal.
type TieBreak int

const (
	// TieBreakNames orders tied siblings by their minimum descendant
	// tip name. Deterministic across trees that differ only in input
	// rotation, which is what comparative pipelines want. Default.
	TieBreakNames TieBreak = iota

	// TieBreakStable keeps tied siblings in their current order.
	TieBreakStable
)

// MutateOption configures a topology mutator call.
//
// All mutators default to copy-then-mutate: the receiver is untouched
// and the mutated copy is returned. WithInPlace opts into mutating the
// receiver directly, for owners that want to avoid the deep copy.
type MutateOption func(*mutateOptions)

type mutateOptions struct {
	inPlace    bool
	rootFrac   float64
	descending bool
	tieBreak   TieBreak
	seed       *int64
}

func defaultMutateOptions() mutateOptions {
	return mutateOptions{rootFrac: 0.5}
}

// WithInPlace mutates the receiver instead of a deep copy.
func WithInPlace() MutateOption {
	return func(o *mutateOptions) { o.inPlace = true }
}

// WithRootDist sets the fraction of the split edge assigned to the
// reroot target's side. Default 0.5 (even bisection). Must be in [0, 1].
func WithRootDist(frac float64) MutateOption {
	return func(o *mutateOptions) { o.rootFrac = frac }
}

// WithDescending makes Ladderize place larger clades first.
func WithDescending() MutateOption {
	return func(o *mutateOptions) { o.descending = true }
}

// WithTieBreak sets the Ladderize tie-break policy.
func WithTieBreak(tb TieBreak) MutateOption {
	return func(o *mutateOptions) { o.tieBreak = tb }
}

// WithResolveSeed makes ResolvePolytomy pick random join orders from a
// seeded source. Without it, resolution is ladder-style in current
// child order.
func WithResolveSeed(seed int64) MutateOption {
	return func(o *mutateOptions) { o.seed = &seed }
}

func applyMutateOptions(opts []MutateOption) (mutateOptions, error) {
	o := defaultMutateOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.rootFrac < 0 || o.rootFrac > 1 {
		return o, fmt.Errorf("%w: root dist fraction %v not in [0, 1]", ErrInvalidOption, o.rootFrac)
	}
	if o.tieBreak != TieBreakNames && o.tieBreak != TieBreakStable {
		return o, fmt.Errorf("%w: unknown tie break %d", ErrInvalidOption, o.tieBreak)
	}
	return o, nil
}

// working returns the tree the mutator should edit (the receiver or a
// deep copy) per the in-place option. Validation must happen before the
// copy so failed calls never pay for one.
func (t *Tree) working(o mutateOptions) *Tree {
	if o.inPlace {
		return t
	}
	return t.Copy()
}
