/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package memory keeps staged issues and snapshots in process memory. It backs dry runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/census"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
)

type Store struct {
	mu        sync.Mutex
	staged    []domain.Issue
	snapshots map[time.Time]domain.Snapshot
}

func New() *Store {
	return &Store{snapshots: map[time.Time]domain.Snapshot{}}
}

func (s *Store) ClearIssues(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = nil
	return nil
}

func (s *Store) AddIssues(ctx context.Context, issues []domain.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = append(s.staged, issues...)
	return nil
}

func (s *Store) AllIssues(ctx context.Context) ([]domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Issue, len(s.staged))
	copy(out, s.staged)
	return out, nil
}

// StagedCount returns the number of staged issues.
func (s *Store) StagedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.staged)
}

// DailyCounts filters the staged issues per day, like a per-day count query would.
func (s *Store) DailyCounts(ctx context.Context, rng domain.Range) ([]domain.Snapshot, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	issues, _ := s.AllIssues(ctx)
	return census.Naive(issues, rng), nil
}

func (s *Store) UpsertSnapshots(ctx context.Context, snaps []domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range snaps {
		day := domain.Day(snap.Date)
		counts := domain.NewCounts()
		for c, n := range snap.Counts {
			counts[c] = n
		}
		s.snapshots[day] = domain.Snapshot{Date: day, Counts: counts}
	}
	return nil
}

func (s *Store) ListSnapshots(ctx context.Context, rng domain.Range) ([]domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Snapshot
	for day, snap := range s.snapshots {
		if day.Before(rng.Start) || day.After(rng.End) {
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SnapshotCount returns the number of stored days.
func (s *Store) SnapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}
