/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package files

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/blnkfinance/txengine/model"
)

// Format selects how snapshots are written.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

var header = []string{"client", "available", "held", "total", "locked"}

// ParseFormat maps a format name to a Format. An empty name selects csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatTable:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// Writer writes account snapshots in one of the supported formats.
type Writer struct {
	out    io.Writer
	format Format
}

// NewWriter returns a Writer that renders snapshots to out in format.
func NewWriter(out io.Writer, format Format) *Writer {
	if format == "" {
		format = FormatCSV
	}
	return &Writer{out: out, format: format}
}

// Write renders snapshots in the writer's format.
func (w *Writer) Write(_ context.Context, snapshots []model.Snapshot) error {
	switch w.format {
	case FormatCSV:
		return w.writeCSV(snapshots)
	case FormatJSON:
		return w.writeJSON(snapshots)
	case FormatTable:
		return w.writeTable(snapshots)
	}
	return fmt.Errorf("unsupported output format %q", w.format)
}

func row(s model.Snapshot) []string {
	return []string{
		strconv.FormatUint(uint64(s.ClientID), 10),
		s.Available.StringFixed(s.Precision),
		s.Held.StringFixed(s.Precision),
		s.Total.StringFixed(s.Precision),
		strconv.FormatBool(s.Locked),
	}
}

func (w *Writer) writeCSV(snapshots []model.Snapshot) error {
	csvWriter := csv.NewWriter(w.out)
	if err := csvWriter.Write(header); err != nil {
		return err
	}
	for _, s := range snapshots {
		if err := csvWriter.Write(row(s)); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

type snapshotJSON struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

func (w *Writer) writeJSON(snapshots []model.Snapshot) error {
	rows := make([]snapshotJSON, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, snapshotJSON{
			Client:    s.ClientID,
			Available: s.Available.StringFixed(s.Precision),
			Held:      s.Held.StringFixed(s.Precision),
			Total:     s.Total.StringFixed(s.Precision),
			Locked:    s.Locked,
		})
	}
	encoder := json.NewEncoder(w.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}

// markdownTable renders snapshots as a markdown table.
func markdownTable(snapshots []model.Snapshot) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|---:|---:|---:|---:|:---:|\n")
	for _, s := range snapshots {
		b.WriteString("| " + strings.Join(row(s), " | ") + " |\n")
	}
	return b.String()
}

func (w *Writer) writeTable(snapshots []model.Snapshot) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("notty"),
		glamour.WithWordWrap(0),
	)
	if err != nil {
		return err
	}
	out, err := renderer.Render(markdownTable(snapshots))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w.out, out)
	return err
}
