package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"student-result-system/pkg/errors"

	"github.com/xuri/excelize/v2"
)

// table is a header row plus data rows with their 1-based line numbers.
type table struct {
	header []string
	rows   [][]string
	lines  []int
}

type tableReader func(data []byte) (*table, error)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCSV(data []byte) (*table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	t := &table{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidFileFormat, err)
		}
		line, _ := r.FieldPos(0)
		if t.header == nil {
			t.header = record
			continue
		}
		if blank(record) {
			continue
		}
		t.rows = append(t.rows, record)
		t.lines = append(t.lines, line)
	}

	if t.header == nil {
		return nil, errors.ErrInvalidFileFormat
	}
	return t, nil
}

func readXLSX(data []byte) (*table, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", errors.ErrInvalidFileFormat, err)
	}
	defer file.Close()

	// Get the first worksheet
	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ErrInvalidFileFormat
	}

	rows, err := file.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	t := &table{}
	for i, row := range rows {
		if t.header == nil {
			if blank(row) {
				continue
			}
			t.header = row
			continue
		}
		if blank(row) {
			continue
		}
		t.rows = append(t.rows, row)
		t.lines = append(t.lines, i+1)
	}

	if t.header == nil {
		return nil, errors.ErrInvalidFileFormat
	}
	return t, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
