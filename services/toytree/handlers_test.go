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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	badgerstore "github.com/eaton-lab/toytree-sub003/services/toytree/storage/badger"
	"github.com/eaton-lab/toytree-sub003/services/toytree/treebank"
)

const fiveNode = "(A:1,(B:2,C:3)90:4);"

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := NewService(DefaultServiceConfig(), nil)
	require.NoError(t, err)

	db, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	bank := treebank.New(db, nil)
	t.Cleanup(func() { bank.Close() })
	svc.WithBank(bank)

	r := gin.New()
	RegisterRoutes(r.Group("/v1/toytree"), NewHandlers(svc, nil))
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func parseSession(t *testing.T, r *gin.Engine, nwk string) TreeSummary {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/v1/toytree/trees", ParseRequest{Newick: nwk})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[TreeSummary](t, w)
}

func TestParseTree_CreatesSession(t *testing.T) {
	r, svc := newTestRouter(t)

	sum := parseSession(t, r, fiveNode)
	assert.NotEmpty(t, sum.ID)
	assert.Equal(t, 3, sum.NTips)
	assert.Equal(t, 5, sum.NNodes)
	assert.True(t, sum.Rooted)
	assert.True(t, sum.Bifurcating)
	assert.Equal(t, 10.0, sum.TotalLength)
	assert.Equal(t, fiveNode, sum.Newick)
	assert.Equal(t, 1, svc.Len())

	w := doJSON(t, r, http.MethodGet, "/v1/toytree/trees/"+sum.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sum, decode[TreeSummary](t, w))
}

func TestParseTree_BadInput(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/toytree/trees", ParseRequest{Newick: "(A,B"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "bad_request", resp.Code)
	assert.Contains(t, resp.Error, "unbalanced")

	// Missing required field.
	w = doJSON(t, r, http.MethodPost, "/v1/toytree/trees", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTree_UnknownSession(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/v1/toytree/trees/no-such-id", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, w).Code)
}

func TestGetNodes_SnapshotShape(t *testing.T) {
	r, _ := newTestRouter(t)
	sum := parseSession(t, r, fiveNode)

	w := doJSON(t, r, http.MethodGet, "/v1/toytree/trees/"+sum.ID+"/nodes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[NodesResponse](t, w)

	assert.Equal(t, sum.ID, resp.ID)
	assert.Equal(t, []string{"A", "B", "C"}, resp.TipNames)
	require.Len(t, resp.Nodes, 5)
	for i, n := range resp.Nodes {
		assert.Equal(t, i, n.Idx, "idx order")
	}
	root := resp.Nodes[4]
	assert.Equal(t, -1, root.ParentIdx)
	assert.False(t, root.IsLeaf)
	internal := resp.Nodes[3]
	require.NotNil(t, internal.Support)
	assert.Equal(t, 90.0, *internal.Support)
	assert.Equal(t, []int{1, 2}, internal.Children)
}

func TestDeleteTree(t *testing.T) {
	r, svc := newTestRouter(t)
	sum := parseSession(t, r, fiveNode)

	w := doJSON(t, r, http.MethodDelete, "/v1/toytree/trees/"+sum.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, svc.Len())

	w = doJSON(t, r, http.MethodDelete, "/v1/toytree/trees/"+sum.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReroot_DerivesNewSession(t *testing.T) {
	r, svc := newTestRouter(t)
	sum := parseSession(t, r, fiveNode)

	w := doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/reroot",
		RerootRequest{Target: "B"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	derived := decode[TreeSummary](t, w)

	assert.NotEqual(t, sum.ID, derived.ID)
	assert.Equal(t, 2, svc.Len())
	assert.InDelta(t, sum.TotalLength, derived.TotalLength, 1e-12)

	// Source session is untouched.
	w = doJSON(t, r, http.MethodGet, "/v1/toytree/trees/"+sum.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sum.Newick, decode[TreeSummary](t, w).Newick)
}

func TestReroot_InPlaceKeepsSessionID(t *testing.T) {
	r, svc := newTestRouter(t)
	sum := parseSession(t, r, fiveNode)

	w := doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/reroot",
		RerootRequest{Target: "B", InPlace: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[TreeSummary](t, w)
	assert.Equal(t, sum.ID, got.ID)
	assert.Equal(t, 1, svc.Len())
	assert.NotEqual(t, sum.Newick, got.Newick)
}

func TestReroot_ErrorMapping(t *testing.T) {
	r, _ := newTestRouter(t)
	sum := parseSession(t, r, fiveNode)

	w := doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/reroot",
		RerootRequest{Target: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	frac := 1.5
	w = doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/reroot",
		RerootRequest{Target: "B", RootFrac: &frac})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnroot_EmptyBodyAllowed(t *testing.T) {
	r, _ := newTestRouter(t)
	sum := parseSession(t, r, fiveNode)

	req := httptest.NewRequest(http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/unroot", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode[TreeSummary](t, w)
	assert.False(t, got.Rooted)
	assert.Equal(t, 4, got.NNodes)

	// Unrooting the unrooted result is semantically impossible.
	w = doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+got.ID+"/unroot", InPlaceRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDropTips_Flow(t *testing.T) {
	r, _ := newTestRouter(t)
	sum := parseSession(t, r, fiveNode)

	w := doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/drop_tips",
		DropTipsRequest{Names: []string{"A"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[TreeSummary](t, w).NTips)

	// Unknown tip -> 404; dropping to fewer than two tips -> 422.
	w = doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/drop_tips",
		DropTipsRequest{Names: []string{"Q"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/drop_tips",
		DropTipsRequest{Names: []string{"A", "B"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLadderizeAndResolve(t *testing.T) {
	r, _ := newTestRouter(t)
	sum := parseSession(t, r, "((A,C),B);")

	w := doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/ladderize",
		LadderizeRequest{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "(B,(A,C));", decode[TreeSummary](t, w).Newick)

	star := parseSession(t, r, "(A,B,C,D);")
	w = doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+star.ID+"/resolve",
		ResolveRequest{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode[TreeSummary](t, w)
	assert.True(t, got.Bifurcating)
	assert.Equal(t, 7, got.NNodes)
}

func TestCollapse_ExactlyOneSelector(t *testing.T) {
	r, _ := newTestRouter(t)
	sum := parseSession(t, r, fiveNode)

	// Neither selector.
	w := doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/collapse",
		CollapseRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Both selectors.
	minSup := 50.0
	w = doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/collapse",
		CollapseRequest{Target: "x", MinSupport: &minSup})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Threshold collapse removes the support-90 edge.
	high := 95.0
	w = doJSON(t, r, http.MethodPost, "/v1/toytree/trees/"+sum.ID+"/collapse",
		CollapseRequest{MinSupport: &high})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 4, decode[TreeSummary](t, w).NNodes)
}

func TestGetNewick_ServesCanonicalText(t *testing.T) {
	r, _ := newTestRouter(t)
	sum := parseSession(t, r, "( A :1.0 , ( B:2 , C:3 ) 90 : 4.00 ) ;")

	w := doJSON(t, r, http.MethodGet, "/v1/toytree/trees/"+sum.ID+"/newick", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, fiveNode+"\n", w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/v1/toytree/trees/nope/newick", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatristic_TipPair(t *testing.T) {
	r, _ := newTestRouter(t)
	sum := parseSession(t, r, fiveNode)

	w := doJSON(t, r, http.MethodGet, "/v1/toytree/trees/"+sum.ID+"/patristic?a=A&b=B", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[PatristicResponse](t, w)
	assert.Equal(t, "A", res.A)
	assert.Equal(t, 7.0, res.Distance)

	w = doJSON(t, r, http.MethodGet, "/v1/toytree/trees/"+sum.ID+"/patristic?a=A", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/toytree/trees/"+sum.ID+"/patristic?a=A&b=Z", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMatrix_Metrics(t *testing.T) {
	r, _ := newTestRouter(t)
	sum := parseSession(t, r, fiveNode)

	w := doJSON(t, r, http.MethodGet, "/v1/toytree/trees/"+sum.ID+"/matrix", nil)
	require.Equal(t, http.StatusOK, w.Code)
	m := decode[MatrixResponse](t, w)
	assert.Equal(t, "patristic", m.Metric)
	require.Equal(t, []string{"A", "B", "C"}, m.Names)
	assert.Equal(t, 7.0, m.Values[0][1])

	w = doJSON(t, r, http.MethodGet, "/v1/toytree/trees/"+sum.ID+"/matrix?metric=topo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, decode[MatrixResponse](t, w).Values[0][1])

	w = doJSON(t, r, http.MethodGet, "/v1/toytree/trees/"+sum.ID+"/matrix?metric=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDistanceRF_MixedOperands(t *testing.T) {
	r, _ := newTestRouter(t)
	sum := parseSession(t, r, "((A,B),((C,D),(E,F)));")

	w := doJSON(t, r, http.MethodPost, "/v1/toytree/distance/rf", DistanceRequest{
		A: TreeRef{ID: sum.ID},
		B: TreeRef{Newick: "((A,B),((C,E),(D,F)));"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[RFResponse](t, w)
	assert.Equal(t, 4, res.Distance)
	assert.Equal(t, 6, res.MaxDistance)

	// Mismatched tip sets are semantically impossible, not bad syntax.
	w = doJSON(t, r, http.MethodPost, "/v1/toytree/distance/rf", DistanceRequest{
		A: TreeRef{ID: sum.ID},
		B: TreeRef{Newick: "(A,B,C);"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Both id and newick in one ref.
	w = doJSON(t, r, http.MethodPost, "/v1/toytree/distance/rf", DistanceRequest{
		A: TreeRef{ID: sum.ID, Newick: "(A,B);"},
		B: TreeRef{ID: sum.ID},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDistanceQuartet(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/toytree/distance/quartet", DistanceRequest{
		A: TreeRef{Newick: "((A,B),(C,D));"},
		B: TreeRef{Newick: "((A,C),(B,D));"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[QuartetResponse](t, w)
	assert.Equal(t, QuartetResponse{Different: 1, Total: 1, Normalized: 1}, res)
}

func TestConsensus_StoresResult(t *testing.T) {
	r, svc := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/toytree/distance/consensus", ConsensusRequest{
		Newicks: []string{
			"((A,B),((C,D),(E,F)));",
			"((A,B),((C,D),(E,F)));",
			"((A,B),((C,E),(D,F)));",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decode[TreeSummary](t, w)
	assert.Equal(t, 6, got.NTips)
	assert.Equal(t, 1, svc.Len())

	// Out-of-range threshold.
	low := 0.3
	w = doJSON(t, r, http.MethodPost, "/v1/toytree/distance/consensus", ConsensusRequest{
		Newicks: []string{"(A,B,C,D);"}, MinFreq: &low,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRandomTree_Kinds(t *testing.T) {
	r, _ := newTestRouter(t)
	seed := int64(42)

	for _, kind := range []string{"random", "unit", "balanced", "imbalanced", "coal"} {
		w := doJSON(t, r, http.MethodPost, "/v1/toytree/random",
			RandomRequest{Kind: kind, NTips: 8, Seed: &seed})
		require.Equal(t, http.StatusCreated, w.Code, "%s: %s", kind, w.Body.String())
		assert.Equal(t, 8, decode[TreeSummary](t, w).NTips, kind)
	}

	w := doJSON(t, r, http.MethodPost, "/v1/toytree/random",
		RandomRequest{Kind: "sierpinski", NTips: 8})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/toytree/random",
		RandomRequest{Kind: "random", NTips: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRandomTree_SeededDeterminism(t *testing.T) {
	r, _ := newTestRouter(t)
	seed := int64(7)

	w1 := doJSON(t, r, http.MethodPost, "/v1/toytree/random",
		RandomRequest{Kind: "random", NTips: 12, Seed: &seed})
	w2 := doJSON(t, r, http.MethodPost, "/v1/toytree/random",
		RandomRequest{Kind: "random", NTips: 12, Seed: &seed})
	require.Equal(t, http.StatusCreated, w1.Code)
	require.Equal(t, http.StatusCreated, w2.Code)
	assert.Equal(t, decode[TreeSummary](t, w1).Newick, decode[TreeSummary](t, w2).Newick)
}

func TestBank_FullCycle(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPut, "/v1/toytree/bank/trees/primates",
		BankPutRequest{Newick: fiveNode})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	meta := decode[BankMetaResponse](t, w)
	assert.Equal(t, "primates", meta.Name)
	assert.Equal(t, 3, meta.NTips)
	assert.NotEmpty(t, meta.StoredAt)

	w = doJSON(t, r, http.MethodGet, "/v1/toytree/bank/trees/primates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fiveNode, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = doJSON(t, r, http.MethodGet, "/v1/toytree/bank/trees", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[BankListResponse](t, w).Trees, 1)

	w = doJSON(t, r, http.MethodGet, "/v1/toytree/bank/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, BankStatsResponse{Trees: 1, TotalTips: 3}, decode[BankStatsResponse](t, w))

	w = doJSON(t, r, http.MethodDelete, "/v1/toytree/bank/trees/primates", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/toytree/bank/trees/primates", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBank_DisabledWithoutStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, err := NewService(DefaultServiceConfig(), nil)
	require.NoError(t, err)
	r := gin.New()
	RegisterRoutes(r.Group("/v1/toytree"), NewHandlers(svc, nil))

	w := doJSON(t, r, http.MethodGet, "/v1/toytree/bank/trees", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
