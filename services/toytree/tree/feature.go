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

import (
	"strconv"
	"strings"
)

// FeatureKind discriminates the variants of a FeatureValue.
type FeatureKind int

const (
	// FeatureString is a free-form text value.
	FeatureString FeatureKind = iota

	// FeatureNumber is a single float64 value.
	FeatureNumber

	// FeatureNumbers is an ordered sequence of float64 values.
	FeatureNumbers
)

// FeatureValue is a tagged variant holding one node annotation.
//
// Description:
//
//	Node feature tables map string keys to heterogeneous values: text
//	labels, scalars (rates, ages, posterior samples), or numeric vectors
//	(per-site likelihoods, trait arrays). FeatureValue models exactly
//	those three shapes behind one immutable value type, so feature maps
//	round-trip through the NHX writer without reflection.
//
// Thread Safety: FeatureValue is immutable after construction.
type FeatureValue struct {
	kind FeatureKind
	text string
	num  float64
	nums []float64
}

// StringFeature returns a text-valued feature.
func StringFeature(s string) FeatureValue {
	return FeatureValue{kind: FeatureString, text: s}
}

// NumberFeature returns a scalar-valued feature.
func NumberFeature(v float64) FeatureValue {
	return FeatureValue{kind: FeatureNumber, num: v}
}

// NumbersFeature returns a vector-valued feature.
//
// The slice is copied; later modification of vs does not affect the value.
func NumbersFeature(vs []float64) FeatureValue {
	out := make([]float64, len(vs))
	copy(out, vs)
	return FeatureValue{kind: FeatureNumbers, nums: out}
}

// Kind returns the variant tag.
func (f FeatureValue) Kind() FeatureKind { return f.kind }

// Text returns the string payload. Zero value for non-string variants.
func (f FeatureValue) Text() string { return f.text }

// Number returns the scalar payload. Zero value for non-number variants.
func (f FeatureValue) Number() float64 { return f.num }

// Numbers returns a copy of the vector payload, or nil for other variants.
func (f FeatureValue) Numbers() []float64 {
	if f.kind != FeatureNumbers {
		return nil
	}
	out := make([]float64, len(f.nums))
	copy(out, f.nums)
	return out
}

// String renders the value in its NHX wire form.
//
// Numbers use the shortest exact decimal form; vectors join elements
// with commas. This is the representation the Newick writer emits and
// the parser type-infers back.
func (f FeatureValue) String() string {
	switch f.kind {
	case FeatureNumber:
		return strconv.FormatFloat(f.num, 'g', -1, 64)
	case FeatureNumbers:
		parts := make([]string, len(f.nums))
		for i, v := range f.nums {
			parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return strings.Join(parts, ",")
	default:
		return f.text
	}
}

// ParseFeatureValue infers the richest variant an NHX value string fits.
//
// A value that parses entirely as a float becomes a number; a
// comma-separated list whose every element parses as a float becomes a
// numeric vector; anything else stays a string.
func ParseFeatureValue(s string) FeatureValue {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return NumberFeature(v)
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		nums := make([]float64, len(parts))
		ok := true
		for i, p := range parts {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				ok = false
				break
			}
			nums[i] = v
		}
		if ok {
			return FeatureValue{kind: FeatureNumbers, nums: nums}
		}
	}
	return StringFeature(s)
}
