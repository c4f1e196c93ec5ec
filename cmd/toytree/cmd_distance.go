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

	"github.com/spf13/cobra"

	"github.com/eaton-lab/toytree-sub003/services/toytree/distance"
)

func runRF(cmd *cobra.Command, args []string) {
	a := readTree(args[:1])
	b := readTree(args[1:])

	res, err := distance.RobinsonFoulds(a, b)
	if err != nil {
		log.Fatalf("Failed to compute RF distance: %v", err)
	}
	fmt.Printf("rf distance:    %d\n", res.Distance)
	fmt.Printf("max distance:   %d\n", res.MaxDistance)
	fmt.Printf("normalized:     %.4f\n", res.Normalized)
	fmt.Printf("shared splits:  %d\n", res.SharedSplits)
}

func runQuartet(cmd *cobra.Command, args []string) {
	a := readTree(args[:1])
	b := readTree(args[1:])

	res, err := distance.Quartet(context.Background(), a, b)
	if err != nil {
		log.Fatalf("Failed to compute quartet distance: %v", err)
	}
	fmt.Printf("different:   %d\n", res.Different)
	fmt.Printf("total:       %d\n", res.Total)
	fmt.Printf("normalized:  %.4f\n", res.Normalized)
}

func runPatristic(cmd *cobra.Command, args []string) {
	t := readTree(args)

	if len(patristicTips) == 2 {
		d, err := distance.Patristic(t, patristicTips[0], patristicTips[1])
		if err != nil {
			log.Fatalf("Failed to compute patristic distance: %v", err)
		}
		fmt.Printf("%g\n", d)
		return
	}
	if len(patristicTips) != 0 {
		log.Fatalf("--tips takes exactly two names, got %d", len(patristicTips))
	}

	m, err := distance.PatristicMatrix(context.Background(), t)
	if err != nil {
		log.Fatalf("Failed to compute patristic matrix: %v", err)
	}
	for i, name := range m.Names {
		fmt.Print(name)
		for j := range m.Names {
			fmt.Printf("\t%g", m.Values[i][j])
		}
		fmt.Println()
	}
}
