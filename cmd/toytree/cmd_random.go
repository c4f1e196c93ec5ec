// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/eaton-lab/toytree-sub003/services/toytree/newick"
	"github.com/eaton-lab/toytree-sub003/services/toytree/rtree"
	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

func runRandom(cmd *cobra.Command, args []string) {
	for i := 0; i < randomCount; i++ {
		var opts []rtree.Option
		if randomSeed != 0 {
			// Distinct seeds per tree so --count with --seed stays
			// reproducible without emitting identical trees.
			opts = append(opts, rtree.WithSeed(randomSeed+int64(i)))
		}
		if randomPrefix != "" {
			opts = append(opts, rtree.WithTipPrefix(randomPrefix))
		}

		var t *tree.Tree
		var err error
		switch randomKind {
		case "random":
			t, err = rtree.Random(randomNTips, opts...)
		case "unit":
			t, err = rtree.Unit(randomNTips, opts...)
		case "balanced":
			t, err = rtree.Balanced(randomNTips, opts...)
		case "imbalanced":
			t, err = rtree.Imbalanced(randomNTips, opts...)
		case "coal":
			t, err = rtree.Coal(randomNTips, randomNe, opts...)
		default:
			log.Fatalf("Unknown generator kind %q", randomKind)
		}
		if err != nil {
			log.Fatalf("Failed to generate tree: %v", err)
		}

		out, err := newick.WriteString(t, newick.WithDistFormat('g', config.DistPrecision))
		if err != nil {
			log.Fatalf("Failed to write tree: %v", err)
		}
		fmt.Println(out)
	}
}
