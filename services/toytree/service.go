// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package toytree exposes the tree toolkit over HTTP: session trees
// parsed from Newick, topology mutations, comparative distances, and
// the persistent treebank.
package toytree

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/eaton-lab/toytree-sub003/services/toytree/newick"
	"github.com/eaton-lab/toytree-sub003/services/toytree/telemetry"
	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
	"github.com/eaton-lab/toytree-sub003/services/toytree/treebank"
	"golang.org/x/sync/singleflight"
)

// ServiceConfig controls the session store.
type ServiceConfig struct {
	// MaxSessions caps the number of stored session trees; the least
	// recently used session is evicted past the cap.
	MaxSessions int `json:"max_sessions" yaml:"max_sessions" validate:"gte=1"`

	// RequestsPerSecond is the steady-state rate limit applied by the
	// middleware. Zero disables limiting.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`

	// Burst is the rate limiter burst size.
	Burst int `json:"burst" yaml:"burst" validate:"gte=0"`

	// MaxParseDepth bounds parser nesting to keep hostile inputs from
	// exhausting memory. Zero uses the parser default.
	MaxParseDepth int `json:"max_parse_depth" yaml:"max_parse_depth" validate:"gte=0"`
}

// DefaultServiceConfig returns production-reasonable defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxSessions:       1024,
		RequestsPerSecond: 50,
		Burst:             100,
	}
}

// Validate checks the configuration against its struct tags.
func (c ServiceConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// session is one stored tree plus bookkeeping for LRU eviction.
type session struct {
	tree       *tree.Tree
	createdAt  time.Time
	lastAccess time.Time
}

// Service holds the in-memory session trees and the optional bank.
//
// Description:
//
//	Sessions are keyed by UUID. Parsing identical payloads
//	concurrently is collapsed through singleflight so a burst of the
//	same large tree costs one parse. Mutations default to
//	copy-on-write: the source session is untouched and the result
//	becomes a new session.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	cfg     ServiceConfig
	logger  *slog.Logger
	metrics *telemetry.Metrics
	bank    *treebank.Store

	mu       sync.Mutex
	sessions map[string]*session

	parseGroup singleflight.Group
}

// NewService creates a session service.
//
// Inputs:
//
//	cfg - Service configuration; validated before use.
//	logger - Structured logger; nil falls back to slog.Default().
//
// Outputs:
//
//	*Service - Ready service.
//	error - Non-nil when cfg fails validation.
func NewService(cfg ServiceConfig, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		logger:   logger,
		metrics:  telemetry.Default(),
		sessions: make(map[string]*session),
	}, nil
}

// WithBank attaches a treebank store for the /bank endpoints.
func (s *Service) WithBank(bank *treebank.Store) *Service {
	s.bank = bank
	return s
}

// Bank returns the attached treebank store, or an error when none is
// configured.
func (s *Service) Bank() (*treebank.Store, error) {
	if s.bank == nil {
		return nil, ErrBankDisabled
	}
	return s.bank, nil
}

// ParseAndStore parses data and stores the result as a new session.
//
// Description:
//
//	Concurrent requests carrying byte-identical payloads share one
//	parse through singleflight; each caller still receives its own
//	session id over a copy of the parsed tree, so later mutations
//	never alias across sessions.
//
// Outputs:
//
//	string - New session id.
//	*tree.Tree - The stored tree.
//	error - Parse failures wrap the newick sentinels.
func (s *Service) ParseAndStore(ctx context.Context, data []byte, strict bool) (string, *tree.Tree, error) {
	ctx, span := telemetry.StartSpan(ctx, "toytree.service", "parse")
	defer span.End()

	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if strict {
		key = "strict:" + key
	}

	start := time.Now()
	v, err, shared := s.parseGroup.Do(key, func() (any, error) {
		var opts []newick.ParseOption
		if strict {
			opts = append(opts, newick.WithoutNHX())
		}
		if s.cfg.MaxParseDepth > 0 {
			opts = append(opts, newick.WithMaxDepth(s.cfg.MaxParseDepth))
		}
		return newick.Parse(data, opts...)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordParse(ctx, time.Since(start), 0, codeFor(err))
		return "", nil, err
	}

	parsed := v.(*tree.Tree)
	stored := parsed
	if shared {
		// Another caller holds the same *Tree; keep sessions disjoint.
		stored = parsed.Copy()
	}
	s.metrics.RecordParse(ctx, time.Since(start), stored.Len(), "")

	id := s.store(stored)
	s.logger.Debug("parsed session tree",
		"id", id, "ntips", stored.NTips(), "nnodes", stored.Len(), "shared_parse", shared)
	return id, stored, nil
}

// StoreTree stores an already-built tree as a new session.
func (s *Service) StoreTree(t *tree.Tree) string {
	return s.store(t)
}

// Get returns the session tree for id, refreshing its LRU position.
func (s *Service) Get(id string) (*tree.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	st.lastAccess = time.Now()
	return st.tree, nil
}

// Remove deletes a session. Unknown ids return ErrSessionNotFound.
func (s *Service) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Mutate applies fn to the session tree identified by id.
//
// Description:
//
//	fn receives the current tree and returns the mutated one; with
//	inPlace the result replaces the session, otherwise it is stored
//	under a fresh id and the source session is left untouched. fn is
//	responsible for honoring the copy/in-place option it was built
//	with; Mutate only routes the result.
//
// Outputs:
//
//	string - Session id holding the result (== id when inPlace).
//	*tree.Tree - The resulting tree.
//	error - fn's error, or ErrSessionNotFound.
func (s *Service) Mutate(ctx context.Context, id, kind string, inPlace bool, fn func(*tree.Tree) (*tree.Tree, error)) (string, *tree.Tree, error) {
	ctx, span := telemetry.StartSpan(ctx, "toytree.service", "mutate."+kind)
	defer span.End()

	src, err := s.Get(id)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", nil, err
	}

	out, err := fn(src)
	s.metrics.RecordMutation(ctx, kind, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", nil, err
	}

	if inPlace {
		s.mu.Lock()
		if st, ok := s.sessions[id]; ok {
			st.tree = out
			st.lastAccess = time.Now()
		}
		s.mu.Unlock()
		return id, out, nil
	}
	newID := s.store(out)
	s.logger.Debug("derived session tree", "kind", kind, "from", id, "id", newID)
	return newID, out, nil
}

// Resolve materializes a TreeRef into a tree: stored session by id,
// or a one-shot parse of the inline Newick.
func (s *Service) Resolve(ctx context.Context, ref TreeRef) (*tree.Tree, error) {
	switch {
	case ref.ID != "" && ref.Newick != "":
		return nil, fmt.Errorf("%w: specify id or newick, not both", ErrBadRequest)
	case ref.ID != "":
		return s.Get(ref.ID)
	case ref.Newick != "":
		var opts []newick.ParseOption
		if s.cfg.MaxParseDepth > 0 {
			opts = append(opts, newick.WithMaxDepth(s.cfg.MaxParseDepth))
		}
		return newick.ParseString(ref.Newick, opts...)
	default:
		return nil, fmt.Errorf("%w: empty tree reference", ErrBadRequest)
	}
}

// store inserts t under a fresh id, evicting the oldest session past
// the cap. Caller must not hold s.mu.
func (s *Service) store(t *tree.Tree) string {
	id := uuid.NewString()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &session{tree: t, createdAt: now, lastAccess: now}

	for len(s.sessions) > s.cfg.MaxSessions {
		var oldestID string
		var oldest time.Time
		for sid, st := range s.sessions {
			if sid == id {
				continue
			}
			if oldestID == "" || st.lastAccess.Before(oldest) {
				oldestID, oldest = sid, st.lastAccess
			}
		}
		if oldestID == "" {
			break
		}
		delete(s.sessions, oldestID)
		s.logger.Debug("evicted session tree", "id", oldestID)
	}
	return id
}

// Summary renders the standard response shape for a session tree.
func (s *Service) Summary(id string, t *tree.Tree) (TreeSummary, error) {
	nwk, err := newick.WriteString(t)
	if err != nil {
		return TreeSummary{}, err
	}
	return TreeSummary{
		ID:          id,
		NTips:       t.NTips(),
		NNodes:      t.Len(),
		Rooted:      t.IsRooted(),
		Bifurcating: t.IsBifurcating(),
		TotalLength: t.TotalLength(),
		Version:     t.Version(),
		Newick:      nwk,
	}, nil
}
