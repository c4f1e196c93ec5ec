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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string

	// convert flags
	ladderizeFlag  bool
	descendingFlag bool
	unrootFlag     bool
	resolveFlag    bool
	dropTips       []string
	rerootTarget   string
	rootFrac       float64
	stripNHX       bool
	stripLengths   bool
	outputPath     string

	// distance flags
	patristicTips []string

	// random flags
	randomKind   string
	randomNTips  int
	randomSeed   int64
	randomCount  int
	randomNe     float64
	randomPrefix string

	// consensus flags
	minFreq float64

	// bank flags
	bankDir    string
	bankPrefix string

	rootCmd = &cobra.Command{
		Use:   "toytree",
		Short: "A cli for parsing, mutating, and comparing phylogenetic trees",
		Long: `Toytree reads Newick/NHX tree files, applies topology
				operations, computes tree-to-tree distances, and manages
				a local persistent treebank.

				The HTTP API is served by the separate toytreed binary.`,
	}

	// --- Convert ---
	convertCmd = &cobra.Command{
		Use:   "convert [file]",
		Short: "Read a tree, optionally mutate it, and write Newick to stdout",
		Args:  cobra.MaximumNArgs(1),
		Run:   runConvert, // Defined in cmd_convert.go
	}

	// --- Stats ---
	statsCmd = &cobra.Command{
		Use:   "stats [file...]",
		Short: "Print tip/node counts, rootedness, length, and depth per tree",
		Run:   runStats, // Defined in cmd_stats.go
	}

	// --- Distance ---
	distanceCmd = &cobra.Command{
		Use:   "distance",
		Short: "Compare trees with Robinson-Foulds, quartet, or patristic metrics",
	}
	rfCmd = &cobra.Command{
		Use:   "rf [fileA] [fileB]",
		Short: "Robinson-Foulds distance between two trees",
		Args:  cobra.ExactArgs(2),
		Run:   runRF, // Defined in cmd_distance.go
	}
	quartetCmd = &cobra.Command{
		Use:   "quartet [fileA] [fileB]",
		Short: "Quartet distance between two trees",
		Args:  cobra.ExactArgs(2),
		Run:   runQuartet, // Defined in cmd_distance.go
	}
	patristicCmd = &cobra.Command{
		Use:   "patristic [file]",
		Short: "Patristic distance between two tips, or the full matrix",
		Args:  cobra.ExactArgs(1),
		Run:   runPatristic, // Defined in cmd_distance.go
	}

	// --- Random ---
	randomCmd = &cobra.Command{
		Use:   "random",
		Short: "Generate random, unit, balanced, imbalanced, or coalescent trees",
		Run:   runRandom, // Defined in cmd_random.go
	}

	// --- Consensus ---
	consensusCmd = &cobra.Command{
		Use:   "consensus [file]",
		Short: "Majority-rule consensus over a multi-tree Newick file",
		Args:  cobra.ExactArgs(1),
		Run:   runConsensus, // Defined in cmd_consensus.go
	}

	// --- Bank ---
	bankCmd = &cobra.Command{
		Use:   "bank",
		Short: "Manage the local persistent treebank",
	}
	bankAddCmd = &cobra.Command{
		Use:   "add [name] [file]",
		Short: "Store a tree under a name",
		Args:  cobra.ExactArgs(2),
		Run:   runBankAdd, // Defined in cmd_bank.go
	}
	bankGetCmd = &cobra.Command{
		Use:   "get [name]",
		Short: "Print the canonical Newick of a stored tree",
		Args:  cobra.ExactArgs(1),
		Run:   runBankGet, // Defined in cmd_bank.go
	}
	bankListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored trees",
		Run:   runBankList, // Defined in cmd_bank.go
	}
	bankRmCmd = &cobra.Command{
		Use:   "rm [name]",
		Short: "Remove a stored tree",
		Args:  cobra.ExactArgs(1),
		Run:   runBankRm, // Defined in cmd_bank.go
	}
	bankStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print bank totals",
		Run:   runBankStats, // Defined in cmd_bank.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default ~/.toytree.yaml)")

	// --- Convert ---
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().BoolVar(&ladderizeFlag, "ladderize", false, "Sort children by descendant count")
	convertCmd.Flags().BoolVar(&descendingFlag, "descending", false, "Ladderize larger clades first")
	convertCmd.Flags().BoolVar(&unrootFlag, "unroot", false, "Collapse the root into a polytomy")
	convertCmd.Flags().BoolVar(&resolveFlag, "resolve", false, "Resolve polytomies into bifurcations")
	convertCmd.Flags().StringSliceVar(&dropTips, "drop-tips", nil, "Comma-separated tip names to remove")
	convertCmd.Flags().StringVar(&rerootTarget, "reroot", "", "Reroot on the edge above the named node")
	convertCmd.Flags().Float64Var(&rootFrac, "root-frac", 0.5, "Position of the new root along the target edge")
	convertCmd.Flags().BoolVar(&stripNHX, "no-nhx", false, "Omit NHX comments on output")
	convertCmd.Flags().BoolVar(&stripLengths, "no-lengths", false, "Omit branch lengths on output")
	convertCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default stdout)")

	// --- Stats ---
	rootCmd.AddCommand(statsCmd)

	// --- Distance ---
	rootCmd.AddCommand(distanceCmd)
	distanceCmd.AddCommand(rfCmd)
	distanceCmd.AddCommand(quartetCmd)
	distanceCmd.AddCommand(patristicCmd)
	patristicCmd.Flags().StringSliceVar(&patristicTips, "tips", nil, "Two tip names; omit for the full matrix")

	// --- Random ---
	rootCmd.AddCommand(randomCmd)
	randomCmd.Flags().StringVar(&randomKind, "kind", "random", "Generator: random, unit, balanced, imbalanced, coal")
	randomCmd.Flags().IntVar(&randomNTips, "ntips", 10, "Number of tips")
	randomCmd.Flags().Int64Var(&randomSeed, "seed", 0, "Random seed (0 means time-based)")
	randomCmd.Flags().IntVar(&randomCount, "count", 1, "Number of trees to generate")
	randomCmd.Flags().Float64Var(&randomNe, "ne", 1e5, "Effective population size (coal only)")
	randomCmd.Flags().StringVar(&randomPrefix, "prefix", "r", "Tip name prefix")

	// --- Consensus ---
	rootCmd.AddCommand(consensusCmd)
	consensusCmd.Flags().Float64Var(&minFreq, "min-freq", 0.5, "Split inclusion threshold in [0.5, 1]")

	// --- Bank ---
	rootCmd.AddCommand(bankCmd)
	bankCmd.PersistentFlags().StringVar(&bankDir, "dir", "", "BadgerDB directory (default from config)")
	bankCmd.AddCommand(bankAddCmd)
	bankCmd.AddCommand(bankGetCmd)
	bankCmd.AddCommand(bankListCmd)
	bankListCmd.Flags().StringVar(&bankPrefix, "prefix", "", "Name prefix filter")
	bankCmd.AddCommand(bankRmCmd)
	bankCmd.AddCommand(bankStatsCmd)
}
