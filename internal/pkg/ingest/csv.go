package ingest

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/utils"
)

const (
	colFilename = "filename"
	colText     = "transcription"
	colSegStart = "segment_start_ms"
	colSegEnd   = "segment_end_ms"
)

// ParseCSV reads audio import data.
// Expected header: filename, transcription and optional segment_start_ms, segment_end_ms.
// Returns rows in file order, Row starts at 1 for the first data row.
// Client data failures are wrapped into utils.ErrBadInput
func ParseCSV(r io.Reader) ([]persistence.ImportEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("can't read data: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, utils.NewErrBadInput(fmt.Errorf("file is not utf-8 encoded"))
	}
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, utils.NewErrBadInput(fmt.Errorf("empty file"))
	}
	if err != nil {
		return nil, utils.NewErrBadInput(fmt.Errorf("can't read header: %w", err))
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range []string{colFilename, colText} {
		if _, ok := cols[c]; !ok {
			return nil, utils.NewErrBadInput(fmt.Errorf("no '%s' column", c))
		}
	}

	res := []persistence.ImportEntry{}
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, utils.NewErrBadInput(fmt.Errorf("can't parse csv: %w", err))
		}
		row++
		e := persistence.ImportEntry{Row: row,
			Filename: strings.TrimSpace(rec[cols[colFilename]]),
			Text:     strings.TrimSpace(rec[cols[colText]]),
		}
		if e.SegmentStartMs, err = parseMs(rec, cols, colSegStart, row); err != nil {
			return nil, err
		}
		if e.SegmentEndMs, err = parseMs(rec, cols, colSegEnd, row); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

func parseMs(rec []string, cols map[string]int, col string, row int) (sql.NullInt32, error) {
	i, ok := cols[col]
	if !ok {
		return sql.NullInt32{}, nil
	}
	s := strings.TrimSpace(rec[i])
	if s == "" {
		return sql.NullInt32{}, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return sql.NullInt32{}, utils.NewErrBadInput(fmt.Errorf("wrong '%s' value '%s' at row %d", col, s, row))
	}
	return utils.ToSQLInt32(int32(v)), nil
}
