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
	"bytes"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/eaton-lab/toytree-sub003/services/toytree/newick"
	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

func runStats(cmd *cobra.Command, args []string) {
	type row struct {
		source string
		tree   *tree.Tree
	}

	var rows []row
	if len(args) == 0 {
		trees := parseAllTrees("stdin", readInput(nil))
		for i, t := range trees {
			rows = append(rows, row{source: fmt.Sprintf("stdin[%d]", i), tree: t})
		}
	}
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		trees := parseAllTrees(path, data)
		for i, t := range trees {
			name := path
			if len(trees) > 1 {
				name = fmt.Sprintf("%s[%d]", path, i)
			}
			rows = append(rows, row{source: name, tree: t})
		}
	}

	// Aligned columns on a terminal, plain tab-separated lines when
	// piped, so output stays machine-friendly.
	if isatty.IsTerminal(os.Stdout.Fd()) {
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tNTIPS\tNNODES\tROOTED\tBIFURCATING\tLENGTH\tDEPTH")
		for _, r := range rows {
			fmt.Fprintln(w, statsLine(r.source, r.tree))
		}
		w.Flush()
		return
	}
	for _, r := range rows {
		fmt.Println(statsLine(r.source, r.tree))
	}
}

func statsLine(source string, t *tree.Tree) string {
	return fmt.Sprintf("%s\t%d\t%d\t%t\t%t\t%g\t%d",
		source, t.NTips(), t.Len(), t.IsRooted(), t.IsBifurcating(),
		t.TotalLength(), t.MaxDepth())
}

// parseAllTrees parses every semicolon-terminated tree in data.
func parseAllTrees(source string, data []byte) []*tree.Tree {
	trees, err := newick.ParseAll(bytes.NewReader(data))
	if err != nil {
		log.Fatalf("Failed to parse %s: %v", source, err)
	}
	return trees
}
