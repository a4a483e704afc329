/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package classifier maps the six work-product categories to their Jira queries.
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/config"
	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Source runs queries against the tracker.
type Source interface {
	SearchIssues(ctx context.Context, jql string) ([]domain.Issue, error)
	Count(ctx context.Context, jql string) (int, error)
}

type Classifier struct {
	src     Source
	queries map[domain.Category]string
	workers int
}

func New(src Source, q config.Queries, workers int) *Classifier {
	if workers <= 0 {
		workers = len(domain.Categories)
	}
	return &Classifier{
		src: src,
		queries: map[domain.Category]string{
			domain.CategoryOpen:               q.Open,
			domain.CategoryDefect:             q.Defects,
			domain.CategoryPreCCBNotAnalysed:  q.PreCCBNotAnalysed,
			domain.CategoryPostCCBNotAnalysed: q.PostCCBNotAnalysed,
			domain.CategoryProblemReport:      q.ProblemReports,
			domain.CategoryChangeRequest:      q.ChangeRequests,
		},
		workers: workers,
	}
}

func (c *Classifier) query(cat domain.Category) (string, error) {
	q, ok := c.queries[cat]
	if !ok || q == "" {
		return "", fmt.Errorf("no query configured for category %q", cat)
	}
	return q, nil
}

// Fetch returns the issues of one category with Category set.
func (c *Classifier) Fetch(ctx context.Context, cat domain.Category) ([]domain.Issue, error) {
	q, err := c.query(cat)
	if err != nil {
		return nil, err
	}
	issues, err := c.src.SearchIssues(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", cat, err)
	}
	for i := range issues {
		issues[i].Category = cat
	}
	return issues, nil
}

func (c *Classifier) OpenIssues(ctx context.Context) ([]domain.Issue, error) {
	return c.Fetch(ctx, domain.CategoryOpen)
}

func (c *Classifier) Defects(ctx context.Context) ([]domain.Issue, error) {
	return c.Fetch(ctx, domain.CategoryDefect)
}

func (c *Classifier) PreCCBNotAnalysed(ctx context.Context) ([]domain.Issue, error) {
	return c.Fetch(ctx, domain.CategoryPreCCBNotAnalysed)
}

func (c *Classifier) PostCCBNotAnalysed(ctx context.Context) ([]domain.Issue, error) {
	return c.Fetch(ctx, domain.CategoryPostCCBNotAnalysed)
}

func (c *Classifier) ProblemReports(ctx context.Context) ([]domain.Issue, error) {
	return c.Fetch(ctx, domain.CategoryProblemReport)
}

func (c *Classifier) ChangeRequests(ctx context.Context) ([]domain.Issue, error) {
	return c.Fetch(ctx, domain.CategoryChangeRequest)
}

// FetchAll fetches every category concurrently. The first failure cancels the others.
// Issues come back grouped in category order.
func (c *Classifier) FetchAll(ctx context.Context) ([]domain.Issue, error) {
	results := make([][]domain.Issue, len(domain.Categories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, cat := range domain.Categories {
		g.Go(func() error {
			issues, err := c.Fetch(gctx, cat)
			if err != nil {
				return err
			}
			results[i] = issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []domain.Issue
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// Count returns the tracker-side total of one category.
func (c *Classifier) Count(ctx context.Context, cat domain.Category) (int, error) {
	q, err := c.query(cat)
	if err != nil {
		return 0, err
	}
	n, err := c.src.Count(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", cat, err)
	}
	return n, nil
}

// CurrentTotals builds a snapshot dated day from the live per-category totals.
func (c *Classifier) CurrentTotals(ctx context.Context, day time.Time) (domain.Snapshot, error) {
	counts := domain.NewCounts()
	for _, cat := range domain.Categories {
		n, err := c.Count(ctx, cat)
		if err != nil {
			return domain.Snapshot{}, err
		}
		counts[cat] = n
	}
	return domain.Snapshot{Date: domain.Day(day), Counts: counts}, nil
}
