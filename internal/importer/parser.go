package importer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"student-result-system/internal/grade"
	"student-result-system/internal/model"
	"student-result-system/pkg/errors"
)

// RequiredColumns is the normalised header set every upload must carry.
var RequiredColumns = []string{
	"first_name", "last_name", "email", "class",
	"hw1", "participation", "q1", "final_khmer", "final_english",
	"total", "grade", "comments",
}

// Row is a parsed record together with its line in the source file.
type Row struct {
	Line   int
	Record model.StudentRecord
}

type Parser struct {
	read      tableReader
	required  []string
	validator *Validator
}

// NewParser returns a parser for format. Each typed record is also checked
// by v, so one pass reports every bad cell of the file.
func NewParser(format Format, v *Validator) *Parser {
	p := &Parser{required: RequiredColumns, validator: v}
	switch format {
	case FormatXLSX:
		p.read = readXLSX
	default:
		p.read = readCSV
	}
	return p
}

// NormalizeHeader lower-cases a header cell and joins its words with "_",
// so "Final Khmer" and "final-khmer" both become "final_khmer".
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, "-", " ")
	return strings.Join(strings.Fields(h), "_")
}

func (p *Parser) Parse(ctx context.Context, data []byte) ([]Row, error) {
	t, err := p.read(data)
	if err != nil {
		return nil, err
	}

	// Parse header to find column indices
	columnMap := make(map[string]int)
	for i, col := range t.header {
		name := NormalizeHeader(col)
		if _, dup := columnMap[name]; !dup {
			columnMap[name] = i
		}
	}

	var missing []string
	for _, col := range p.required {
		if _, exists := columnMap[col]; !exists {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.MissingColumnsError{Columns: missing}
	}

	if len(t.rows) == 0 {
		return nil, errors.ErrNoDataRows
	}

	var rowErrs errors.RowErrors
	rows := make([]Row, 0, len(t.rows))
	for i, raw := range t.rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, errs := p.parseRow(raw, columnMap, t.lines[i])
		fieldErrs, err := p.validator.checkRow(ctx, Row{Line: t.lines[i], Record: record})
		if err != nil {
			return nil, err
		}
		errs = append(errs, fieldErrs...)
		if len(errs) > 0 {
			rowErrs = append(rowErrs, errs...)
			continue
		}
		applyGradePolicy(&record)
		rows = append(rows, Row{Line: t.lines[i], Record: record})
	}

	if len(rowErrs) > 0 {
		return nil, rowErrs
	}
	return rows, nil
}

func (p *Parser) parseRow(row []string, columnMap map[string]int, line int) (model.StudentRecord, errors.RowErrors) {
	getValue := func(colName string) string {
		if idx, exists := columnMap[colName]; exists && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var errs errors.RowErrors
	getScore := func(colName string) *float64 {
		raw := getValue(colName)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, errors.ValidationError{
				Row:     line,
				Field:   colName,
				Value:   raw,
				Message: "must be a number",
			})
			return nil
		}
		return &v
	}

	record := model.StudentRecord{
		FirstName:     getValue("first_name"),
		LastName:      getValue("last_name"),
		Email:         getValue("email"),
		Class:         getValue("class"),
		HW1:           getScore("hw1"),
		Participation: getScore("participation"),
		Q1:            getScore("q1"),
		FinalKhmer:    getScore("final_khmer"),
		FinalEnglish:  getScore("final_english"),
		Total:         getScore("total"),
		Grade:         strings.ToUpper(getValue("grade")),
		Comments:      getValue("comments"),
	}
	return record, errs
}

// applyGradePolicy derives the stored grade from the total. A blank total
// is filled from the component scores when any are present; a record with
// no scores at all keeps the uploaded grade.
func applyGradePolicy(r *model.StudentRecord) {
	if r.Total == nil {
		var sum float64
		var found bool
		for _, s := range []*float64{r.HW1, r.Participation, r.Q1, r.FinalKhmer, r.FinalEnglish} {
			if s != nil {
				sum += *s
				found = true
			}
		}
		if !found {
			return
		}
		r.Total = &sum
	}
	r.Grade = grade.FromTotal(*r.Total).String()
}

func (r Row) String() string {
	return fmt.Sprintf("line %d: %s <%s>", r.Line, r.Record.FullName(), r.Record.Email)
}
