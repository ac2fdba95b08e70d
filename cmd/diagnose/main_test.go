package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"student-result-system/internal/config"
	"student-result-system/internal/model"
)

func TestPrintDiagnostics(t *testing.T) {
	errMsg := "550 mailbox unavailable"
	logs := []model.DispatchLog{{
		StudentName: "Bob Jones", StudentEmail: "bob@x.com", Status: model.DispatchStatusFailed,
		SentAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), ErrorMessage: &errMsg,
	}}
	students := []model.Student{{ID: 3, StudentRecord: model.StudentRecord{FirstName: "Bob", LastName: "Jones", Email: "bob@x.com", Class: "Web"}}}

	var buf bytes.Buffer
	printDiagnostics(&buf, logs, students, config.MailConfig{Host: "smtp.gmail.com", Port: 587, Username: "t@school.com", Password: "secret"})
	out := buf.String()

	for _, want := range []string{
		"RECENT EMAIL LOGS (Last 1)",
		"550 mailbox unavailable",
		"2024-05-01 09:00:00",
		"3. Bob Jones (bob@x.com) - Web",
		"MAIL_USERNAME: t@school.com",
		"MAIL_PASSWORD: ******",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "secret") {
		t.Fatal("password printed in clear")
	}
}

func TestPrintDiagnosticsEmpty(t *testing.T) {
	var buf bytes.Buffer
	printDiagnostics(&buf, nil, nil, config.MailConfig{})
	out := buf.String()
	for _, want := range []string{"No email logs found.", "No students found.", "MAIL_PASSWORD: NOT SET"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
