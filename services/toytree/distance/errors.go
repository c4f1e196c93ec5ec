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

import "errors"

// Sentinel errors for comparative metrics.
var (
	// ErrTipSetMismatch indicates two trees whose tip-name sets differ.
	ErrTipSetMismatch = errors.New("tip sets do not match")

	// ErrDuplicateTipNames indicates a tree without a tip-name bijection.
	ErrDuplicateTipNames = errors.New("duplicate tip names")

	// ErrUnknownTipName indicates a tip name absent from the tree.
	ErrUnknownTipName = errors.New("unknown tip name")

	// ErrNoTrees indicates a consensus call over an empty tree list.
	ErrNoTrees = errors.New("no trees given")

	// ErrTooManyTips indicates an input above the quartet enumeration cap.
	ErrTooManyTips = errors.New("too many tips for exact quartet enumeration")

	// ErrBadMinFreq indicates a consensus threshold outside [0.5, 1.0].
	ErrBadMinFreq = errors.New("consensus min frequency must be in [0.5, 1.0]")
)
