/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package export writes daily snapshots as CSV files and terminal tables.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/natefinch/atomic"
)

func header() []string {
	h := make([]string, 0, len(domain.Categories)+1)
	h = append(h, "date")
	for _, c := range domain.Categories {
		h = append(h, string(c))
	}
	return h
}

// WriteCSV writes one row per snapshot, categories in reporting order.
func WriteCSV(w io.Writer, snaps []domain.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header()); err != nil {
		return err
	}
	for _, s := range snaps {
		row := make([]string, 0, len(domain.Categories)+1)
		row = append(row, domain.FormatDate(s.Date))
		for _, c := range domain.Categories {
			row = append(row, strconv.Itoa(s.Counts[c]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile replaces path with the CSV of snaps. Readers never see a partial file.
func WriteFile(path string, snaps []domain.Snapshot) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, snaps); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderTable writes snaps as a light-style table.
func RenderTable(w io.Writer, title string, snaps []domain.Snapshot) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if title != "" {
		tw.SetTitle(title)
	}
	tw.SetStyle(table.StyleLight)
	hdr := table.Row{}
	for _, h := range header() {
		hdr = append(hdr, h)
	}
	tw.AppendHeader(hdr)
	for _, s := range snaps {
		row := table.Row{domain.FormatDate(s.Date)}
		for _, c := range domain.Categories {
			row = append(row, s.Counts[c])
		}
		tw.AppendRow(row)
	}
	tw.Render()
}
