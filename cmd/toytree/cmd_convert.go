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
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/eaton-lab/toytree-sub003/services/toytree/newick"
	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// readTree loads one tree from the file argument, or stdin when the
// argument is missing or "-".
func readTree(args []string) *tree.Tree {
	data := readInput(args)
	t, err := newick.Parse(data)
	if err != nil {
		log.Fatalf("Failed to parse tree: %v", err)
	}
	return t
}

func readInput(args []string) []byte {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("Failed to read stdin: %v", err)
		}
		return data
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("Failed to read %s: %v", args[0], err)
	}
	return data
}

func runConvert(cmd *cobra.Command, args []string) {
	t := readTree(args)

	// Mutations run in a fixed order: prune first, then reroot, then
	// the order-only operations. All are in-place; the CLI owns its
	// copy of the tree.
	var err error
	if len(dropTips) > 0 {
		t, err = t.DropTips(dropTips, tree.WithInPlace())
		if err != nil {
			log.Fatalf("Failed to drop tips: %v", err)
		}
	}
	if rerootTarget != "" {
		t, err = t.Reroot(rerootTarget, tree.WithInPlace(), tree.WithRootDist(rootFrac))
		if err != nil {
			log.Fatalf("Failed to reroot: %v", err)
		}
	}
	if unrootFlag {
		t, err = t.Unroot(tree.WithInPlace())
		if err != nil {
			log.Fatalf("Failed to unroot: %v", err)
		}
	}
	if resolveFlag {
		t, err = t.ResolvePolytomy(tree.WithInPlace())
		if err != nil {
			log.Fatalf("Failed to resolve polytomies: %v", err)
		}
	}
	if ladderizeFlag {
		opts := []tree.MutateOption{tree.WithInPlace()}
		if descendingFlag {
			opts = append(opts, tree.WithDescending())
		}
		t, err = t.Ladderize(opts...)
		if err != nil {
			log.Fatalf("Failed to ladderize: %v", err)
		}
	}

	wopts := []newick.WriteOption{newick.WithDistFormat('g', config.DistPrecision)}
	if stripNHX {
		wopts = append(wopts, newick.WriteWithoutNHX())
	}
	if stripLengths {
		wopts = append(wopts, newick.WithoutLengths())
	}
	out, err := newick.WriteString(t, wopts...)
	if err != nil {
		log.Fatalf("Failed to write tree: %v", err)
	}

	if outputPath == "" {
		fmt.Println(out)
		return
	}
	if err := os.WriteFile(outputPath, []byte(out+"\n"), 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", outputPath, err)
	}
}
