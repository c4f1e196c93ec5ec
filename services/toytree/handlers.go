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
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eaton-lab/toytree-sub003/services/toytree/distance"
	"github.com/eaton-lab/toytree-sub003/services/toytree/newick"
	"github.com/eaton-lab/toytree-sub003/services/toytree/rtree"
	"github.com/eaton-lab/toytree-sub003/services/toytree/telemetry"
	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
	"github.com/eaton-lab/toytree-sub003/services/toytree/treebank"
)

// Handlers binds the HTTP endpoints to a Service.
type Handlers struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandlers creates the endpoint set for svc.
func NewHandlers(svc *Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

// respondError writes the uniform error shape with the mapped status.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"path", c.Request.URL.Path, "error", err,
			"request_id", c.GetString("request_id"))
	}
	c.JSON(status, ErrorResponse{
		Error: err.Error(),
		Code:  codeFor(err),
	})
}

// bindError wraps gin binding failures so they map to 400.
func bindError(err error) error {
	return fmt.Errorf("%w: %v", ErrBadRequest, err)
}

// respondSummary writes the standard tree summary for id.
func (h *Handlers) respondSummary(c *gin.Context, status int, id string, t *tree.Tree) {
	sum, err := h.svc.Summary(id, t)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(status, sum)
}

// ParseTree handles POST /trees.
func (h *Handlers) ParseTree(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	id, t, err := h.svc.ParseAndStore(c.Request.Context(), []byte(req.Newick), req.StrictNewick)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSummary(c, http.StatusCreated, id, t)
}

// GetTree handles GET /trees/:id.
func (h *Handlers) GetTree(c *gin.Context) {
	id := c.Param("id")
	t, err := h.svc.Get(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondSummary(c, http.StatusOK, id, t)
}

// GetNodes handles GET /trees/:id/nodes.
func (h *Handlers) GetNodes(c *gin.Context) {
	id := c.Param("id")
	t, err := h.svc.Get(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NodesResponse{
		ID:       id,
		Version:  t.Version(),
		TipNames: t.TipNames(),
		Nodes:    snapshotNodes(t),
	})
}

// GetNewick handles GET /trees/:id/newick. It serves the canonical
// serialized form as text, matching what the bank stores.
func (h *Handlers) GetNewick(c *gin.Context) {
	t, err := h.svc.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	data, err := newick.Write(t)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", append(data, '\n'))
}

// DeleteTree handles DELETE /trees/:id.
func (h *Handlers) DeleteTree(c *gin.Context) {
	if err := h.svc.Remove(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reroot handles POST /trees/:id/reroot.
func (h *Handlers) Reroot(c *gin.Context) {
	var req RerootRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	opts := mutateOpts(req.InPlace)
	if req.RootFrac != nil {
		opts = append(opts, tree.WithRootDist(*req.RootFrac))
	}
	h.mutate(c, "reroot", req.InPlace, func(t *tree.Tree) (*tree.Tree, error) {
		return t.Reroot(req.Target, opts...)
	})
}

// Unroot handles POST /trees/:id/unroot.
func (h *Handlers) Unroot(c *gin.Context) {
	var req InPlaceRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	h.mutate(c, "unroot", req.InPlace, func(t *tree.Tree) (*tree.Tree, error) {
		return t.Unroot(mutateOpts(req.InPlace)...)
	})
}

// DropTips handles POST /trees/:id/drop_tips.
func (h *Handlers) DropTips(c *gin.Context) {
	var req DropTipsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	h.mutate(c, "drop_tips", req.InPlace, func(t *tree.Tree) (*tree.Tree, error) {
		return t.DropTips(req.Names, mutateOpts(req.InPlace)...)
	})
}

// Ladderize handles POST /trees/:id/ladderize.
func (h *Handlers) Ladderize(c *gin.Context) {
	var req LadderizeRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	opts := mutateOpts(req.InPlace)
	if req.Descending {
		opts = append(opts, tree.WithDescending())
	}
	if req.TieBreak == "stable" {
		opts = append(opts, tree.WithTieBreak(tree.TieBreakStable))
	}
	h.mutate(c, "ladderize", req.InPlace, func(t *tree.Tree) (*tree.Tree, error) {
		return t.Ladderize(opts...)
	})
}

// Resolve handles POST /trees/:id/resolve.
func (h *Handlers) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	opts := mutateOpts(req.InPlace)
	if req.Seed != nil {
		opts = append(opts, tree.WithResolveSeed(*req.Seed))
	}
	h.mutate(c, "resolve", req.InPlace, func(t *tree.Tree) (*tree.Tree, error) {
		return t.ResolvePolytomy(opts...)
	})
}

// Collapse handles POST /trees/:id/collapse.
func (h *Handlers) Collapse(c *gin.Context) {
	var req CollapseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	if (req.Target == "") == (req.MinSupport == nil) {
		h.respondError(c, fmt.Errorf("%w: set exactly one of target and min_support", ErrBadRequest))
		return
	}
	h.mutate(c, "collapse", req.InPlace, func(t *tree.Tree) (*tree.Tree, error) {
		if req.Target != "" {
			return t.CollapseNode(req.Target, mutateOpts(req.InPlace)...)
		}
		return t.CollapseLowSupport(*req.MinSupport, mutateOpts(req.InPlace)...)
	})
}

// mutate runs one mutation through the service and writes the summary
// of the resulting session.
func (h *Handlers) mutate(c *gin.Context, kind string, inPlace bool, fn func(*tree.Tree) (*tree.Tree, error)) {
	id, t, err := h.svc.Mutate(c.Request.Context(), c.Param("id"), kind, inPlace, fn)
	if err != nil {
		h.respondError(c, err)
		return
	}
	status := http.StatusOK
	if !inPlace {
		status = http.StatusCreated
	}
	h.respondSummary(c, status, id, t)
}

// Matrix handles GET /trees/:id/matrix?metric=patristic|topo.
func (h *Handlers) Matrix(c *gin.Context) {
	id := c.Param("id")
	t, err := h.svc.Get(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	metricKind := c.DefaultQuery("metric", "patristic")

	var m *distance.Matrix
	switch metricKind {
	case "patristic":
		m, err = distance.PatristicMatrix(c.Request.Context(), t)
	case "topo":
		m, err = distance.TopoMatrix(c.Request.Context(), t)
	default:
		err = fmt.Errorf("%w: unknown metric %q", ErrBadRequest, metricKind)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MatrixResponse{
		ID: id, Metric: metricKind, Names: m.Names, Values: m.Values,
	})
}

// Patristic handles GET /trees/:id/patristic?a=&b= for a single tip
// pair; the matrix endpoint covers the all-pairs case.
func (h *Handlers) Patristic(c *gin.Context) {
	id := c.Param("id")
	t, err := h.svc.Get(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	a, b := c.Query("a"), c.Query("b")
	if a == "" || b == "" {
		h.respondError(c, fmt.Errorf("%w: query parameters a and b are required", ErrBadRequest))
		return
	}
	d, err := distance.Patristic(t, a, b)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PatristicResponse{ID: id, A: a, B: b, Distance: d})
}

// RobinsonFoulds handles POST /distance/rf.
func (h *Handlers) RobinsonFoulds(c *gin.Context) {
	var req DistanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	a, b, err := h.resolvePair(c, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	start := time.Now()
	res, err := distance.RobinsonFoulds(a, b)
	telemetry.Default().RecordDistance(c.Request.Context(), "rf", time.Since(start), err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RFResponse{
		Distance:     res.Distance,
		MaxDistance:  res.MaxDistance,
		Normalized:   res.Normalized,
		SharedSplits: res.SharedSplits,
	})
}

// Quartet handles POST /distance/quartet.
func (h *Handlers) Quartet(c *gin.Context) {
	var req DistanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	a, b, err := h.resolvePair(c, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	start := time.Now()
	res, err := distance.Quartet(c.Request.Context(), a, b)
	telemetry.Default().RecordDistance(c.Request.Context(), "quartet", time.Since(start), err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, QuartetResponse{
		Different:  res.Different,
		Total:      res.Total,
		Normalized: res.Normalized,
	})
}

// resolvePair materializes both operands of a distance request.
func (h *Handlers) resolvePair(c *gin.Context, req DistanceRequest) (*tree.Tree, *tree.Tree, error) {
	a, err := h.svc.Resolve(c.Request.Context(), req.A)
	if err != nil {
		return nil, nil, err
	}
	b, err := h.svc.Resolve(c.Request.Context(), req.B)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// Consensus handles POST /distance/consensus.
func (h *Handlers) Consensus(c *gin.Context) {
	var req ConsensusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	trees := make([]*tree.Tree, 0, len(req.Newicks))
	for _, nwk := range req.Newicks {
		t, err := newick.ParseString(nwk)
		if err != nil {
			h.respondError(c, err)
			return
		}
		trees = append(trees, t)
	}
	minFreq := 0.5
	if req.MinFreq != nil {
		minFreq = *req.MinFreq
	}
	start := time.Now()
	cons, err := distance.Consensus(trees, minFreq)
	telemetry.Default().RecordDistance(c.Request.Context(), "consensus", time.Since(start), err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	id := h.svc.StoreTree(cons)
	h.respondSummary(c, http.StatusCreated, id, cons)
}

// RandomTree handles POST /random.
func (h *Handlers) RandomTree(c *gin.Context) {
	var req RandomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	var opts []rtree.Option
	if req.Seed != nil {
		opts = append(opts, rtree.WithSeed(*req.Seed))
	}
	if req.TipPrefix != "" {
		opts = append(opts, rtree.WithTipPrefix(req.TipPrefix))
	}

	var t *tree.Tree
	var err error
	switch req.Kind {
	case "random":
		t, err = rtree.Random(req.NTips, opts...)
	case "unit":
		t, err = rtree.Unit(req.NTips, opts...)
	case "balanced":
		t, err = rtree.Balanced(req.NTips, opts...)
	case "imbalanced":
		t, err = rtree.Imbalanced(req.NTips, opts...)
	case "coal":
		ne := req.Ne
		if ne == 0 {
			ne = 1e5
		}
		t, err = rtree.Coal(req.NTips, ne, opts...)
	}
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	id := h.svc.StoreTree(t)
	h.respondSummary(c, http.StatusCreated, id, t)
}

// BankPut handles PUT /bank/:name.
func (h *Handlers) BankPut(c *gin.Context) {
	bank, err := h.svc.Bank()
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req BankPutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	meta, err := bank.Put(c.Request.Context(), c.Param("name"), []byte(req.Newick))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bankMeta(meta))
}

// BankGet handles GET /bank/:name. It returns the canonical Newick
// text rather than a session summary; loading into a session is a
// separate POST /trees call.
func (h *Handlers) BankGet(c *gin.Context) {
	bank, err := h.svc.Bank()
	if err != nil {
		h.respondError(c, err)
		return
	}
	data, err := bank.GetNewick(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

// BankDelete handles DELETE /bank/:name.
func (h *Handlers) BankDelete(c *gin.Context) {
	bank, err := h.svc.Bank()
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := bank.Delete(c.Request.Context(), c.Param("name")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BankList handles GET /bank?prefix=.
func (h *Handlers) BankList(c *gin.Context) {
	bank, err := h.svc.Bank()
	if err != nil {
		h.respondError(c, err)
		return
	}
	metas, err := bank.List(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp := BankListResponse{Trees: make([]BankMetaResponse, 0, len(metas))}
	for _, m := range metas {
		resp.Trees = append(resp.Trees, bankMeta(m))
	}
	c.JSON(http.StatusOK, resp)
}

// BankStats handles GET /bank/stats.
func (h *Handlers) BankStats(c *gin.Context) {
	bank, err := h.svc.Bank()
	if err != nil {
		h.respondError(c, err)
		return
	}
	stats, err := bank.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, BankStatsResponse{Trees: stats.Trees, TotalTips: stats.TotalTips})
}

// Healthz handles GET /healthz.
func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.svc.Len()})
}

// bankMeta converts a treebank Meta into its wire shape.
func bankMeta(m treebank.Meta) BankMetaResponse {
	return BankMetaResponse{
		Name:     m.Name,
		NTips:    m.NTips,
		NNodes:   m.NNodes,
		StoredAt: m.StoredAt.UTC().Format(time.RFC3339),
	}
}

// mutateOpts returns the base option slice for a mutation request.
func mutateOpts(inPlace bool) []tree.MutateOption {
	if inPlace {
		return []tree.MutateOption{tree.WithInPlace()}
	}
	return nil
}

// bindOptionalJSON binds a JSON body when one is present; an empty
// body leaves the zero value, so parameterless mutations can be
// POSTed without a payload.
func bindOptionalJSON(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(v)
}
