// Package ingest builds the incident knowledge collection from tabular
// accident data: load rows, embed narratives, run the resolution heuristic,
// and upsert the resulting points in batches.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/TrackSideAI/trackside-mvp/engine/domain"
)

// LoadCSV reads incident records from a latin-1 encoded CSV export. Narrative
// text is the space-joined concatenation of every column whose name contains
// "NARR"; WEATHER and ACCDMG are required columns. Rows with no narrative
// text are dropped. limit > 0 caps the number of records returned.
func LoadCSV(path string, limit int, log *slog.Logger) ([]domain.IncidentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open csv: %w", err)
	}
	defer f.Close()
	return loadCSV(f, limit, log)
}

func loadCSV(r io.Reader, limit int, log *slog.Logger) ([]domain.IncidentRecord, error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.FieldsPerRecord = -1 // source exports are ragged
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: read csv header: %w", err)
	}

	var narrative []int
	weather, damage := -1, -1
	for i, col := range header {
		name := strings.TrimSpace(col)
		switch {
		case strings.Contains(name, "NARR"):
			narrative = append(narrative, i)
		case name == "WEATHER":
			weather = i
		case name == "ACCDMG":
			damage = i
		}
	}
	if len(narrative) == 0 {
		return nil, fmt.Errorf("ingest: %w (columns: %v)", domain.ErrNoNarrativeColumns, header)
	}
	if weather < 0 {
		return nil, fmt.Errorf("ingest: %w: WEATHER", domain.ErrMissingColumn)
	}
	if damage < 0 {
		return nil, fmt.Errorf("ingest: %w: ACCDMG", domain.ErrMissingColumn)
	}

	var records []domain.IncidentRecord
	dropped := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read csv row: %w", err)
		}

		var parts []string
		for _, idx := range narrative {
			if idx < len(row) {
				if s := strings.TrimSpace(row[idx]); s != "" {
					parts = append(parts, s)
				}
			}
		}
		if len(parts) == 0 {
			dropped++
			continue
		}

		rec := domain.IncidentRecord{Narrative: strings.Join(parts, " ")}
		if weather < len(row) {
			rec.Weather = strings.TrimSpace(row[weather])
		}
		if damage < len(row) {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[damage]), 64)
			if err != nil || v < 0 {
				v = 0
			}
			rec.Damage = v
		}

		records = append(records, rec)
		if limit > 0 && len(records) >= limit {
			break
		}
	}

	log.Info("csv loaded", "records", len(records), "empty_dropped", dropped)
	return records, nil
}
