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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	badgerstore "github.com/eaton-lab/toytree-sub003/services/toytree/storage/badger"
	"github.com/eaton-lab/toytree-sub003/services/toytree/treebank"
)

// openBank opens the treebank at --dir (or the config default). The
// caller must Close the returned store.
func openBank() *treebank.Store {
	dir := bankDir
	if dir == "" {
		dir = config.BankPath
	}
	if dir == "" {
		log.Fatalf("No bank directory: pass --dir or set bank_path in the config file")
	}
	db, err := badgerstore.OpenWithPath(dir)
	if err != nil {
		log.Fatalf("Failed to open bank at %s: %v", dir, err)
	}
	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return treebank.New(db, quiet)
}

func runBankAdd(cmd *cobra.Command, args []string) {
	bank := openBank()
	defer bank.Close()

	data, err := os.ReadFile(args[1])
	if err != nil {
		log.Fatalf("Failed to read %s: %v", args[1], err)
	}
	meta, err := bank.Put(context.Background(), args[0], data)
	if err != nil {
		log.Fatalf("Failed to store tree: %v", err)
	}
	fmt.Printf("stored %s (%d tips, %d nodes)\n", meta.Name, meta.NTips, meta.NNodes)
}

func runBankGet(cmd *cobra.Command, args []string) {
	bank := openBank()
	defer bank.Close()

	data, err := bank.GetNewick(context.Background(), args[0])
	if err != nil {
		log.Fatalf("Failed to get tree: %v", err)
	}
	fmt.Println(string(data))
}

func runBankList(cmd *cobra.Command, args []string) {
	bank := openBank()
	defer bank.Close()

	metas, err := bank.List(context.Background(), bankPrefix)
	if err != nil {
		log.Fatalf("Failed to list trees: %v", err)
	}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tNTIPS\tNNODES\tSTORED")
		for _, m := range metas {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", m.Name, m.NTips, m.NNodes,
				m.StoredAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
		return
	}
	for _, m := range metas {
		fmt.Printf("%s\t%d\t%d\t%s\n", m.Name, m.NTips, m.NNodes,
			m.StoredAt.Format("2006-01-02 15:04"))
	}
}

func runBankRm(cmd *cobra.Command, args []string) {
	bank := openBank()
	defer bank.Close()

	if err := bank.Delete(context.Background(), args[0]); err != nil {
		log.Fatalf("Failed to remove tree: %v", err)
	}
	fmt.Printf("removed %s\n", args[0])
}

func runBankStats(cmd *cobra.Command, args []string) {
	bank := openBank()
	defer bank.Close()

	stats, err := bank.Stats(context.Background())
	if err != nil {
		log.Fatalf("Failed to read bank stats: %v", err)
	}
	fmt.Printf("trees:       %d\n", stats.Trees)
	fmt.Printf("total tips:  %d\n", stats.TotalTips)
}
