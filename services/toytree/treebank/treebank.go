// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package treebank persists named trees in an embedded BadgerDB store.
//
// Values are stored as canonical Newick text (the writer's output, not
// the caller's raw bytes), so everything in the bank is guaranteed
// parseable and normalized. A metadata sidecar key per tree carries
// summary counts without paying a parse on listing.
package treebank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/eaton-lab/toytree-sub003/services/toytree/newick"
	"github.com/eaton-lab/toytree-sub003/services/toytree/tree"
)

// Sentinel errors for treebank operations.
var (
	// ErrTreeNotFound indicates a name with no stored tree.
	ErrTreeNotFound = errors.New("tree not found")

	// ErrEmptyName indicates a blank tree name.
	ErrEmptyName = errors.New("tree name must not be empty")

	// ErrStoreClosed indicates use after Close.
	ErrStoreClosed = errors.New("treebank store is closed")
)

const (
	treePrefix = "tree:"
	metaPrefix = "meta:"
)

// Meta is the stored summary for one tree.
type Meta struct {
	// Name is the tree's bank name.
	Name string `json:"name"`

	// NTips is the tip count.
	NTips int `json:"ntips"`

	// NNodes is the total node count.
	NNodes int `json:"nnodes"`

	// StoredAt is the write timestamp (UTC).
	StoredAt time.Time `json:"stored_at"`
}

// Stats summarizes the whole bank.
type Stats struct {
	// Trees is the number of stored trees.
	Trees int `json:"trees"`

	// TotalTips is the tip count summed over all trees.
	TotalTips int `json:"total_tips"`
}

// Store is a named tree store over one BadgerDB instance.
//
// Thread Safety: safe for concurrent use; BadgerDB transactions
// provide the isolation.
type Store struct {
	db     *badgerdb.DB
	logger *slog.Logger
	closed bool
}

// New wraps an open BadgerDB in a Store. The Store takes ownership and
// closes the database in Close.
func New(db *badgerdb.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Put validates, normalizes, and stores a tree under name.
//
// Description:
//
//	The data is parsed first: a bank never holds unparseable text.
//	What is stored is the writer's canonical serialization, plus a
//	metadata sidecar with tip/node counts. An existing tree under the
//	same name is overwritten.
//
// Inputs:
//
//	ctx - Cancellation checked before the write transaction.
//	name - Bank name. Must be non-blank.
//	data - Newick/NHX text for one tree.
//
// Outputs:
//
//	Meta - The stored metadata.
//
// Errors: ErrEmptyName, ErrStoreClosed, parse errors from the newick
// package, storage errors from BadgerDB.
func (s *Store) Put(ctx context.Context, name string, data []byte) (Meta, error) {
	if err := s.check(name); err != nil {
		return Meta{}, err
	}
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	t, err := newick.Parse(data)
	if err != nil {
		return Meta{}, fmt.Errorf("treebank put %q: %w", name, err)
	}
	canonical, err := newick.Write(t)
	if err != nil {
		return Meta{}, fmt.Errorf("treebank put %q: %w", name, err)
	}
	meta := Meta{
		Name:     name,
		NTips:    t.NTips(),
		NNodes:   t.Len(),
		StoredAt: time.Now().UTC(),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return Meta{}, fmt.Errorf("treebank put %q: %w", name, err)
	}

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set([]byte(treePrefix+name), canonical); err != nil {
			return err
		}
		return txn.Set([]byte(metaPrefix+name), metaBytes)
	})
	if err != nil {
		return Meta{}, fmt.Errorf("treebank put %q: %w", name, err)
	}
	s.logger.Info("stored tree", "name", name, "ntips", meta.NTips, "nnodes", meta.NNodes)
	return meta, nil
}

// Get returns the parsed tree stored under name.
//
// Errors: ErrTreeNotFound, ErrEmptyName, ErrStoreClosed.
func (s *Store) Get(ctx context.Context, name string) (*tree.Tree, error) {
	data, err := s.GetNewick(ctx, name)
	if err != nil {
		return nil, err
	}
	t, err := newick.Parse(data)
	if err != nil {
		// Canonical text failing to parse means external corruption.
		return nil, fmt.Errorf("treebank get %q: stored text corrupt: %w", name, err)
	}
	return t, nil
}

// GetNewick returns the canonical Newick text stored under name.
func (s *Store) GetNewick(ctx context.Context, name string) ([]byte, error) {
	if err := s.check(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(treePrefix + name))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrTreeNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("treebank get %q: %w", name, err)
	}
	return out, nil
}

// Delete removes a stored tree and its metadata.
//
// Errors: ErrTreeNotFound if the name has no tree.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.check(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get([]byte(treePrefix + name)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(treePrefix + name)); err != nil {
			return err
		}
		return txn.Delete([]byte(metaPrefix + name))
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return fmt.Errorf("%w: %q", ErrTreeNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("treebank delete %q: %w", name, err)
	}
	s.logger.Info("deleted tree", "name", name)
	return nil
}

// List returns metadata for every stored tree whose name starts with
// prefix ("" lists everything), sorted by name (BadgerDB key order).
func (s *Store) List(ctx context.Context, prefix string) ([]Meta, error) {
	if s.closed {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Meta
	err := s.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()
		seek := []byte(metaPrefix + prefix)
		for it.Seek(seek); it.ValidForPrefix(seek); it.Next() {
			var meta Meta
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return err
			}
			out = append(out, meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("treebank list: %w", err)
	}
	return out, nil
}

// Stats returns bank-wide summary counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	metas, err := s.List(ctx, "")
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Trees: len(metas)}
	for _, m := range metas {
		st.TotalTips += m.NTips
	}
	return st, nil
}

// Close closes the underlying database. Further calls fail with
// ErrStoreClosed.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) check(name string) error {
	if s.closed {
		return ErrStoreClosed
	}
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}
