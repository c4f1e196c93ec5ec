// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package treebank

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_IngestsExistingFiles(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "primates.nwk"), []byte("(A,(B,C));"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a tree"), 0o644))

	w := NewWatcher(s, dir, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	tr, err := s.Get(ctx, "primates")
	require.NoError(t, err)
	assert.Equal(t, 3, tr.NTips())

	// The .txt file was skipped.
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Trees)
}

func TestWatcher_IngestsDroppedFile(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	w := NewWatcher(s, dir, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "birds.tree"), []byte("((A,B),C);"), 0o644))

	require.Eventually(t, func() bool {
		_, err := s.Get(ctx, "birds")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond, "dropped file should be ingested after the debounce window")
}

func TestWatcher_BadFileIsSkippedNotFatal(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	w := NewWatcher(s, dir, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.nwk"), []byte("(A,B"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.nwk"), []byte("(A,B);"), 0o644))

	require.Eventually(t, func() bool {
		_, err := s.Get(ctx, "good")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	_, err := s.Get(ctx, "broken")
	assert.ErrorIs(t, err, ErrTreeNotFound)
}
