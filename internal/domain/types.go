/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used by Jira timestamps (first 10 chars) and the CLI.
const DateLayout = "2006-01-02"

var ErrInvalidRange = errors.New("invalid timespan: start date is after end date")

type Category string

const (
	CategoryOpen               Category = "open"
	CategoryDefect             Category = "defect"
	CategoryPreCCBNotAnalysed  Category = "preccb_not_analysed"
	CategoryPostCCBNotAnalysed Category = "postccb_not_analysed"
	CategoryProblemReport      Category = "pr"
	CategoryChangeRequest      Category = "cr"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategoryOpen,
	CategoryDefect,
	CategoryPreCCBNotAnalysed,
	CategoryPostCCBNotAnalysed,
	CategoryProblemReport,
	CategoryChangeRequest,
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Issue is a staged work product. CreatedOn and ResolvedOn are calendar days (UTC midnight).
type Issue struct {
	ID         string
	CreatedOn  time.Time
	ResolvedOn *time.Time
	Category   Category
}

// OpenOn reports whether the issue counts as open on day d.
func (i Issue) OpenOn(d time.Time) bool {
	if i.CreatedOn.After(d) {
		return false
	}
	return i.ResolvedOn == nil || i.ResolvedOn.After(d)
}

// Counts maps every category to the number of issues open on a day.
type Counts map[Category]int

// NewCounts returns a Counts with every category present and zero.
func NewCounts() Counts {
	c := make(Counts, len(Categories))
	for _, k := range Categories {
		c[k] = 0
	}
	return c
}

type Snapshot struct {
	Date   time.Time `json:"date"`
	Counts Counts    `json:"counts"`
}

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

func NewRange(start, end time.Time) Range {
	return Range{Start: Day(start), End: Day(end)}
}

func (r Range) Validate() error {
	if r.Start.After(r.End) {
		return fmt.Errorf("%w (%s > %s)", ErrInvalidRange, FormatDate(r.Start), FormatDate(r.End))
	}
	return nil
}

// Days returns the number of days in the range, 0 if it is invalid.
func (r Range) Days() int {
	if r.Start.After(r.End) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r Range) String() string {
	return FormatDate(r.Start) + ".." + FormatDate(r.End)
}

// Day truncates t to its calendar day in UTC, keeping the wall-clock date of t.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// Run is the bookkeeping row of one backfill run.
type Run struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	RangeStart   time.Time  `json:"range_start"`
	RangeEnd     time.Time  `json:"range_end"`
	IssuesStaged int        `json:"issues_staged"`
	DaysWritten  int        `json:"days_written"`
	Success      bool       `json:"success"`
	Error        string     `json:"error"`
}
