package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/maltedev/tweet-timeline-scraper/internal/models"
)

var leadingColumns = []string{
	models.FieldTweetID,
	models.FieldTime,
	models.FieldText,
	models.FieldReplies,
	models.FieldRetweets,
	models.FieldLikes,
}

func writeRecords(w io.Writer, format string, records []models.Record) error {
	switch format {
	case "stdout":
		return writeLines(w, records)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "csv":
		return writeCSV(w, records)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writeLines prints one compact JSON object per record.
func writeLines(w io.Writer, records []models.Record) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode tweet %s: %w", r.TweetID(), err)
		}
	}
	return nil
}

func writeCSV(w io.Writer, records []models.Record) error {
	columns := csvColumns(records)

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(columns))
	for _, r := range records {
		for i, col := range columns {
			row[i] = cell(r[col])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write tweet %s: %w", r.TweetID(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// csvColumns puts the tweet fields first, then any template keys in
// alphabetical order.
func csvColumns(records []models.Record) []string {
	seen := make(map[string]bool, len(leadingColumns))
	for _, c := range leadingColumns {
		seen[c] = true
	}

	var extra []string
	for _, r := range records {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)

	return append(append([]string{}, leadingColumns...), extra...)
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, models.Template, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
