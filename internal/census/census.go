/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package census reconstructs per-day open issue counts from issue lifespans.
package census

import (
	"slices"
	"time"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
)

// events holds the sorted open and close days of one category.
type events struct {
	opens  []time.Time
	closes []time.Time
}

// Sweep computes one snapshot per day of rng using sorted open/close events per category.
// An issue opens on CreatedOn and closes on max(CreatedOn, ResolvedOn), so it is counted on
// the half-open interval [CreatedOn, ResolvedOn) and issues resolved before they were
// created never count.
func Sweep(issues []domain.Issue, rng domain.Range) []domain.Snapshot {
	if rng.Validate() != nil {
		return nil
	}
	byCat := make(map[domain.Category]*events, len(domain.Categories))
	for _, c := range domain.Categories {
		byCat[c] = &events{}
	}
	for _, is := range issues {
		ev, ok := byCat[is.Category]
		if !ok {
			continue
		}
		// nothing created after the window can be open inside it
		if is.CreatedOn.After(rng.End) {
			continue
		}
		ev.opens = append(ev.opens, is.CreatedOn)
		if is.ResolvedOn != nil {
			closeOn := *is.ResolvedOn
			if closeOn.Before(is.CreatedOn) {
				closeOn = is.CreatedOn
			}
			ev.closes = append(ev.closes, closeOn)
		}
	}
	for _, ev := range byCat {
		slices.SortFunc(ev.opens, compareTime)
		slices.SortFunc(ev.closes, compareTime)
	}

	out := make([]domain.Snapshot, 0, rng.Days())
	opened := make(map[domain.Category]int, len(domain.Categories))
	closed := make(map[domain.Category]int, len(domain.Categories))
	for day := rng.Start; !day.After(rng.End); day = day.AddDate(0, 0, 1) {
		counts := domain.NewCounts()
		for _, c := range domain.Categories {
			ev := byCat[c]
			i := opened[c]
			for i < len(ev.opens) && !ev.opens[i].After(day) {
				i++
			}
			opened[c] = i
			j := closed[c]
			for j < len(ev.closes) && !ev.closes[j].After(day) {
				j++
			}
			closed[c] = j
			counts[c] = i - j
		}
		out = append(out, domain.Snapshot{Date: day, Counts: counts})
	}
	return out
}

// Naive filters every issue for every day. It is the reference for Sweep.
func Naive(issues []domain.Issue, rng domain.Range) []domain.Snapshot {
	if rng.Validate() != nil {
		return nil
	}
	out := make([]domain.Snapshot, 0, rng.Days())
	for day := rng.Start; !day.After(rng.End); day = day.AddDate(0, 0, 1) {
		counts := domain.NewCounts()
		for _, is := range issues {
			if !is.Category.Valid() {
				continue
			}
			if is.OpenOn(day) {
				counts[is.Category]++
			}
		}
		out = append(out, domain.Snapshot{Date: day, Counts: counts})
	}
	return out
}

func compareTime(a, b time.Time) int { return a.Compare(b) }
