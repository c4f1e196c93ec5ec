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

	"github.com/eaton-lab/toytree-sub003/services/toytree/distance"
	"github.com/eaton-lab/toytree-sub003/services/toytree/newick"
)

func runConsensus(cmd *cobra.Command, args []string) {
	trees := parseAllTrees(args[0], readInput(args))
	if len(trees) == 0 {
		log.Fatalf("No trees found in %s", args[0])
	}

	cons, err := distance.Consensus(trees, minFreq)
	if err != nil {
		log.Fatalf("Failed to build consensus: %v", err)
	}

	out, err := newick.WriteString(cons, newick.WithDistFormat('g', config.DistPrecision))
	if err != nil {
		log.Fatalf("Failed to write consensus tree: %v", err)
	}
	fmt.Println(out)
}
