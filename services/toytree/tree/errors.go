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

import "errors"

// Sentinel errors for tree structure and mutation operations.
var (
	// ErrUnknownNode indicates an idx lookup outside [0, Len()).
	ErrUnknownNode = errors.New("unknown node idx")

	// ErrUnknownTipName indicates a tip name that is not present in the tree.
	ErrUnknownTipName = errors.New("unknown tip name")

	// ErrInvalidRerootTarget indicates a reroot target that is missing,
	// is the current root, or sits on a degenerate root edge.
	ErrInvalidRerootTarget = errors.New("invalid reroot target")

	// ErrAlreadyUnrooted indicates Unroot on a tree whose root already
	// has three or more children.
	ErrAlreadyUnrooted = errors.New("tree is already unrooted")

	// ErrDegenerateTree indicates an operation that would reduce the tree
	// below two tips, or that requires structure a two-tip tree lacks.
	ErrDegenerateTree = errors.New("operation would produce a degenerate tree")

	// ErrNoMatchingTips indicates a tip selector that matched nothing.
	ErrNoMatchingTips = errors.New("no matching tips")

	// ErrInvalidCollapseTarget indicates a collapse target that is the
	// root, a tip, or not part of this tree.
	ErrInvalidCollapseTarget = errors.New("invalid collapse target")

	// ErrInvalidOption indicates a mutation option with an out-of-range value.
	ErrInvalidOption = errors.New("invalid option value")
)
