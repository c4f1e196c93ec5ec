// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toytree

import (
	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// ParseRequest carries a Newick or NHX string to parse into a session
// tree.
type ParseRequest struct {
	// Newick is the tree text. NHX comments are honored unless
	// StrictNewick is set.
	Newick string `json:"newick" binding:"required"`

	// StrictNewick disables NHX interpretation; bracket comments are
	// skipped as whitespace.
	StrictNewick bool `json:"strict_newick"`
}

// TreeSummary is the standard response shape describing one session
// tree.
type TreeSummary struct {
	ID          string  `json:"id"`
	NTips       int     `json:"ntips"`
	NNodes      int     `json:"nnodes"`
	Rooted      bool    `json:"rooted"`
	Bifurcating bool    `json:"bifurcating"`
	TotalLength float64 `json:"total_length"`
	Version     uint64  `json:"version"`
	Newick      string  `json:"newick"`
}

// NodeView is the wire representation of one node in a snapshot.
//
// ParentIdx is -1 for the root. Features holds NHX metadata rendered
// in wire form.
type NodeView struct {
	Idx       int               `json:"idx"`
	Name      string            `json:"name,omitempty"`
	Dist      float64           `json:"dist"`
	Support   *float64          `json:"support,omitempty"`
	ParentIdx int               `json:"parent_idx"`
	Children  []int             `json:"children,omitempty"`
	IsLeaf    bool              `json:"is_leaf"`
	Features  map[string]string `json:"features,omitempty"`
}

// NodesResponse is the full node-table snapshot of a session tree,
// ordered by idx.
type NodesResponse struct {
	ID       string     `json:"id"`
	Version  uint64     `json:"version"`
	TipNames []string   `json:"tip_names"`
	Nodes    []NodeView `json:"nodes"`
}

// RerootRequest re-roots a session tree on the edge above the target
// node.
type RerootRequest struct {
	// Target is the tip or internal node name to reroot on.
	Target string `json:"target" binding:"required"`

	// RootFrac positions the new root along the target edge; 0 places
	// it at the target, 1 at the old parent. Defaults to 0.5.
	RootFrac *float64 `json:"root_frac" binding:"omitempty,gte=0,lte=1"`

	// InPlace mutates the stored tree instead of deriving a new
	// session.
	InPlace bool `json:"in_place"`
}

// DropTipsRequest removes the named tips from a session tree.
type DropTipsRequest struct {
	Names   []string `json:"names" binding:"required,min=1"`
	InPlace bool     `json:"in_place"`
}

// LadderizeRequest reorders children by descendant-count.
type LadderizeRequest struct {
	Descending bool `json:"descending"`

	// TieBreak selects tie handling: "names" (default) or "stable".
	TieBreak string `json:"tie_break" binding:"omitempty,oneof=names stable"`

	InPlace bool `json:"in_place"`
}

// ResolveRequest resolves polytomies into bifurcations.
type ResolveRequest struct {
	// Seed randomizes the join order when set; omitted means
	// deterministic ladder resolution.
	Seed    *int64 `json:"seed"`
	InPlace bool   `json:"in_place"`
}

// CollapseRequest collapses internal edges. Exactly one of Target and
// MinSupport must be set.
type CollapseRequest struct {
	// Target collapses the single named internal node.
	Target string `json:"target"`

	// MinSupport collapses every internal node whose support is below
	// the threshold.
	MinSupport *float64 `json:"min_support"`

	InPlace bool `json:"in_place"`
}

// InPlaceRequest is the body for mutations with no parameters of
// their own (unroot).
type InPlaceRequest struct {
	InPlace bool `json:"in_place"`
}

// TreeRef names one comparison operand: either a stored session id or
// an inline Newick string. Exactly one must be set.
type TreeRef struct {
	ID     string `json:"id"`
	Newick string `json:"newick"`
}

// DistanceRequest carries two trees to compare.
type DistanceRequest struct {
	A TreeRef `json:"a" binding:"required"`
	B TreeRef `json:"b" binding:"required"`
}

// RFResponse reports a Robinson-Foulds comparison.
type RFResponse struct {
	Distance     int     `json:"distance"`
	MaxDistance  int     `json:"max_distance"`
	Normalized   float64 `json:"normalized"`
	SharedSplits int     `json:"shared_splits"`
}

// QuartetResponse reports a quartet comparison.
type QuartetResponse struct {
	Different  int     `json:"different"`
	Total      int     `json:"total"`
	Normalized float64 `json:"normalized"`
}

// PatristicResponse reports the branch-length distance between one
// tip pair.
type PatristicResponse struct {
	ID       string  `json:"id"`
	A        string  `json:"a"`
	B        string  `json:"b"`
	Distance float64 `json:"distance"`
}

// MatrixResponse reports an all-pairs tip distance matrix.
type MatrixResponse struct {
	ID     string      `json:"id"`
	Metric string      `json:"metric"`
	Names  []string    `json:"names"`
	Values [][]float64 `json:"values"`
}

// ConsensusRequest builds a majority-rule consensus over inline
// Newick trees.
type ConsensusRequest struct {
	Newicks []string `json:"newicks" binding:"required,min=1"`

	// MinFreq is the split inclusion threshold in [0.5, 1]. Defaults
	// to 0.5.
	MinFreq *float64 `json:"min_freq" binding:"omitempty,gte=0.5,lte=1"`
}

// RandomRequest generates a tree and stores it as a session.
type RandomRequest struct {
	// Kind selects the generator.
	Kind string `json:"kind" binding:"required,oneof=random unit balanced imbalanced coal"`

	NTips int `json:"ntips" binding:"required,gte=2"`

	Seed *int64 `json:"seed"`

	// TipPrefix overrides the default "r" tip naming.
	TipPrefix string `json:"tip_prefix"`

	// Ne is the effective population size for kind "coal".
	Ne float64 `json:"ne" binding:"omitempty,gt=0"`
}

// BankPutRequest stores a tree in the treebank under the path name.
type BankPutRequest struct {
	Newick string `json:"newick" binding:"required"`
}

// BankMetaResponse describes one stored bank entry.
type BankMetaResponse struct {
	Name     string `json:"name"`
	NTips    int    `json:"ntips"`
	NNodes   int    `json:"nnodes"`
	StoredAt string `json:"stored_at"`
}

// BankListResponse lists bank entries matching a prefix.
type BankListResponse struct {
	Trees []BankMetaResponse `json:"trees"`
}

// BankStatsResponse summarizes the bank contents.
type BankStatsResponse struct {
	Trees     int `json:"trees"`
	TotalTips int `json:"total_tips"`
}

// ErrorResponse is the uniform error shape for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// snapshotNodes renders the idx-ordered node table of a tree.
func snapshotNodes(t *tree.Tree) []NodeView {
	views := make([]NodeView, 0, t.Len())
	for n := range t.Idxorder() {
		v := NodeView{
			Idx:       n.Idx(),
			Name:      n.Name,
			Dist:      n.Dist,
			Support:   n.Support,
			ParentIdx: -1,
			IsLeaf:    n.IsLeaf(),
		}
		if p := n.Parent(); p != nil {
			v.ParentIdx = p.Idx()
		}
		for _, c := range n.Children() {
			v.Children = append(v.Children, c.Idx())
		}
		if keys := n.FeatureKeys(); len(keys) > 0 {
			v.Features = make(map[string]string, len(keys))
			for _, k := range keys {
				if fv, ok := n.Feature(k); ok {
					v.Features[k] = fv.String()
				}
			}
		}
		views = append(views, v)
	}
	return views
}
