// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toytree

import (
	"errors"
	"net/http"

	"github.com/eaton-lab/toytree-sub003/services/toytree/distance"
	"github.com/eaton-lab/toytree-sub003/services/toytree/newick"
	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
	"github.com/eaton-lab/toytree-sub003/services/toytree/treebank"
)

// Sentinel errors for the toytree service.
var (
	// ErrSessionNotFound indicates an unknown session tree id.
	ErrSessionNotFound = errors.New("tree session not found")

	// ErrBankDisabled indicates a bank endpoint with no bank configured.
	ErrBankDisabled = errors.New("treebank is not configured")

	// ErrBadRequest indicates a request that fails service-level
	// validation beyond what binding tags cover.
	ErrBadRequest = errors.New("invalid request")
)

// statusFor maps error sentinels onto HTTP status codes.
//
// Parse and validation failures are client errors (400); missing
// sessions, tips, or bank entries are 404; semantically impossible
// operations on well-formed inputs are 422; anything unrecognized is a
// 500.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, newick.ErrEmptyInput),
		errors.Is(err, newick.ErrUnbalancedParens),
		errors.Is(err, newick.ErrUnexpectedToken),
		errors.Is(err, newick.ErrMalformedNHX),
		errors.Is(err, tree.ErrInvalidOption),
		errors.Is(err, distance.ErrBadMinFreq),
		errors.Is(err, distance.ErrTooManyTips),
		errors.Is(err, treebank.ErrEmptyName),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrBankDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, tree.ErrUnknownTipName),
		errors.Is(err, tree.ErrUnknownNode),
		errors.Is(err, tree.ErrInvalidRerootTarget),
		errors.Is(err, tree.ErrInvalidCollapseTarget),
		errors.Is(err, tree.ErrNoMatchingTips),
		errors.Is(err, distance.ErrUnknownTipName),
		errors.Is(err, treebank.ErrTreeNotFound):
		return http.StatusNotFound
	case errors.Is(err, distance.ErrTipSetMismatch),
		errors.Is(err, distance.ErrDuplicateTipNames),
		errors.Is(err, tree.ErrAlreadyUnrooted),
		errors.Is(err, tree.ErrDegenerateTree):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// codeFor returns the short machine-readable code for an error.
func codeFor(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "unprocessable"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}
