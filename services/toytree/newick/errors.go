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
	"errors"
	"fmt"
)

// Sentinel errors classifying parse failures. Match with errors.Is.
var (
	// ErrEmptyInput indicates empty or whitespace/comment-only input.
	ErrEmptyInput = errors.New("empty input")

	// ErrUnbalancedParens indicates an unmatched parenthesis, including
	// input ending before the open groups were closed.
	ErrUnbalancedParens = errors.New("unbalanced parentheses")

	// ErrUnexpectedToken indicates a token the grammar does not allow at
	// that position.
	ErrUnexpectedToken = errors.New("unexpected token")

	// ErrMalformedNHX indicates a broken [&&NHX:...] feature block.
	ErrMalformedNHX = errors.New("malformed NHX block")
)

// ParseError describes a parse failure with its input position.
//
// Description:
//
//	Every parser failure surfaces as a *ParseError wrapping one of the
//	sentinel errors above, so callers can both classify the failure
//	(errors.Is) and report the offending position to the user. The
//	parser never returns a partially constructed tree alongside an
//	error.
type ParseError struct {
	// Offset is the byte offset of the offending token.
	Offset int

	// Line is the 1-based line of the offending token.
	Line int

	// Column is the 1-based column (in bytes) of the offending token.
	Column int

	// Msg is the human-readable description.
	Msg string

	// Err is the wrapped sentinel classifying the failure.
	Err error
}

// Error renders "newick: <msg> at line L, column C (offset N)".
func (e *ParseError) Error() string {
	return fmt.Sprintf("newick: %s at line %d, column %d (offset %d)", e.Msg, e.Line, e.Column, e.Offset)
}

// Unwrap returns the classifying sentinel.
func (e *ParseError) Unwrap() error { return e.Err }
