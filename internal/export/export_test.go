package export

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"testing"
	"time"

	"student-result-system/internal/model"

	"github.com/xuri/excelize/v2"
)

func sampleLogs() []model.DispatchLog {
	msg := "550 mailbox unavailable"
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return []model.DispatchLog{
		{StudentName: "Bob Jones", StudentEmail: "bob@x.com", Status: model.DispatchStatusFailed, SentAt: base.Add(time.Minute), ErrorMessage: &msg},
		{StudentName: "Alice Smith", StudentEmail: "alice@x.com", Status: model.DispatchStatusSuccess, SentAt: base},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleLogs()); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		Header,
		{"Bob Jones", "bob@x.com", "failed", "2024-05-01 09:01:00", "550 mailbox unavailable"},
		{"Alice Smith", "alice@x.com", "success", "2024-05-01 09:00:00", ""},
	}
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("csv = %v, want %v", records, want)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "student_name,student_email,status,sent_date,error_message\n" {
		t.Fatalf("empty export = %q", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXLSX, sampleLogs()); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows("Email Logs")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if !reflect.DeepEqual(rows[0], Header) {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "Bob Jones" || rows[2][0] != "Alice Smith" {
		t.Fatalf("order = %v, %v", rows[1], rows[2])
	}
}

func TestFilenameAndFormat(t *testing.T) {
	now := time.Date(2024, 5, 1, 14, 3, 9, 0, time.UTC)
	if got := Filename(now, FormatCSV); got != "email_logs_20240501_140309.csv" {
		t.Fatalf("Filename = %q", got)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatCSV {
		t.Fatalf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if f, err := ParseFormat("XLSX"); err != nil || f != FormatXLSX {
		t.Fatalf("ParseFormat(XLSX) = %q, %v", f, err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatal("expected error for pdf")
	}
}
