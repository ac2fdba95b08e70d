package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"student-result-system/internal/model"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Header is the column order of an exported dispatch log.
var Header = []string{"student_name", "student_email", "status", "sent_date", "error_message"}

const timeLayout = "2006-01-02 15:04:05"

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename is email_logs_YYYYMMDD_HHMMSS with the format's extension.
func Filename(now time.Time, f Format) string {
	return fmt.Sprintf("email_logs_%s.%s", now.Format("20060102_150405"), f)
}

// Write renders logs in the given format, keeping their order.
func Write(w io.Writer, f Format, logs []model.DispatchLog) error {
	if f == FormatXLSX {
		return WriteXLSX(w, logs)
	}
	return WriteCSV(w, logs)
}

func WriteCSV(w io.Writer, logs []model.DispatchLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range rows(logs) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, logs []model.DispatchLog) error {
	const sheet = "Email Logs"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for col, h := range Header {
		cell := fmt.Sprintf("%s1", colName(col+1))
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	end := colName(len(Header)) + "1"
	_ = f.SetCellStyle(sheet, "A1", end, bold)
	_ = f.AutoFilter(sheet, "A1:"+end, nil)

	data := rows(logs)
	for r, row := range data {
		for c, val := range row {
			cell := fmt.Sprintf("%s%d", colName(c+1), r+2)
			if err := f.SetCellStr(sheet, cell, val); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	for c := 1; c <= len(Header); c++ {
		widest := len(Header[c-1])
		for r := 0; r < min(50, len(data)); r++ {
			if l := len(data[r][c-1]); l > widest {
				widest = l
			}
		}
		width := float64(widest) * 0.9
		if width < 12 {
			width = 12
		}
		if width > 40 {
			width = 40
		}
		_ = f.SetColWidth(sheet, colName(c), colName(c), width)
	}

	_, err := f.WriteTo(w)
	return err
}

func rows(logs []model.DispatchLog) [][]string {
	out := make([][]string, 0, len(logs))
	for _, l := range logs {
		errMsg := ""
		if l.ErrorMessage != nil {
			errMsg = *l.ErrorMessage
		}
		out = append(out, []string{
			l.StudentName,
			l.StudentEmail,
			string(l.Status),
			l.SentAt.UTC().Format(timeLayout),
			errMsg,
		})
	}
	return out
}

func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}
