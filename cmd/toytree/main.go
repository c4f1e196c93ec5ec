// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command toytree is the CLI for the phylogenetic tree toolkit.
//
// It reads Newick/NHX files (or stdin), applies topology operations,
// computes comparative metrics, generates random trees, and manages a
// local persistent treebank.
//
// Usage:
//
//	toytree convert tree.nwk --ladderize
//	toytree stats tree.nwk
//	toytree distance rf a.nwk b.nwk
//	toytree random --kind balanced --ntips 16 --seed 42
//	toytree consensus trees.nwk --min-freq 0.7
//	toytree bank add mytree tree.nwk
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds CLI-wide settings loadable from a YAML file.
type Config struct {
	// BankPath is the BadgerDB directory used by the bank commands.
	BankPath string `yaml:"bank_path"`

	// DistPrecision controls branch-length formatting on output
	// (strconv precision; -1 means shortest exact form).
	DistPrecision int `yaml:"dist_precision"`
}

var config = Config{DistPrecision: -1}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		path := configPath
		explicit := path != ""
		if path == "" {
			if home, err := os.UserHomeDir(); err == nil {
				path = home + "/.toytree.yaml"
			}
		}
		if path == "" {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if explicit {
				log.Fatalf("Error reading config %s: %v", path, err)
			}
			return
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			log.Fatalf("Error parsing config %s: %v", path, err)
		}
	}
}
