// Package parse converts the raw delimited dataset into typed records.
package parse

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"

	"sdnscreen/internal/dataset"
	dErrors "sdnscreen/pkg/domain-errors"
)

// Columns the parser requires in the header. The upstream export
// carries more (aliases, identifiers, seen timestamps); extras are
// ignored, but a header missing any of these is a hard failure rather
// than a best-effort guess.
var requiredColumns = []string{
	"id",
	"name",
	"birth_date",
	"countries",
	"addresses",
	"sanctions",
	"dataset",
}

// Parser turns raw CSV bytes into an ordered record sequence.
type Parser struct {
	maxSkipFraction float64
	logger          *slog.Logger
}

// New creates a Parser. maxSkipFraction bounds the share of data rows
// that may be skipped for missing id/name before the whole parse is
// considered failed; this guards against serving a near-empty dataset
// from a partially corrupt source.
func New(maxSkipFraction float64, logger *slog.Logger) *Parser {
	return &Parser{maxSkipFraction: maxSkipFraction, logger: logger}
}

// Parse reads every row of data. It returns the parsed records in
// source order and the count of skipped rows.
func (p *Parser) Parse(data []byte) ([]dataset.Record, int, error) {
	reader := csv.NewReader(bytes.NewReader(data))

	header, err := reader.Read()
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeParseFailed, "read dataset header")
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, 0, dErrors.Newf(dErrors.CodeParseFailed, "dataset header missing column %q", name)
		}
	}

	var (
		records []dataset.Record
		skipped int
		total   int
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Rows with the wrong field count are a per-row defect, not
			// a malformed file.
			if errors.Is(err, csv.ErrFieldCount) {
				total++
				skipped++
				continue
			}
			return nil, 0, dErrors.Wrap(err, dErrors.CodeParseFailed, "read dataset row")
		}

		total++
		record := dataset.Record{
			ID:        row[columns["id"]],
			Name:      row[columns["name"]],
			BirthDate: row[columns["birth_date"]],
			Countries: row[columns["countries"]],
			Addresses: row[columns["addresses"]],
			Sanctions: row[columns["sanctions"]],
			Dataset:   row[columns["dataset"]],
		}
		if record.ID == "" || record.Name == "" {
			skipped++
			continue
		}
		records = append(records, record)
	}

	if total > 0 && float64(skipped)/float64(total) > p.maxSkipFraction {
		return nil, skipped, dErrors.Newf(dErrors.CodeParseFailed,
			"dataset skipped %d of %d rows, above the %.2f threshold", skipped, total, p.maxSkipFraction)
	}
	if skipped > 0 && p.logger != nil {
		p.logger.Warn("dataset rows skipped during parse",
			"skipped", skipped,
			"total", total,
		)
	}

	return records, skipped, nil
}
