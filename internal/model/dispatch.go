package model

import "time"

type DispatchStatus string

const (
	DispatchStatusSuccess DispatchStatus = "success"
	DispatchStatusFailed  DispatchStatus = "failed"
)

// DispatchLog is an append-only record of one send attempt. Name and email
// are copied at send time; StudentID may outlive the student row.
type DispatchLog struct {
	ID           int64          `json:"id" db:"id"`
	StudentID    int64          `json:"student_id" db:"student_id"`
	StudentName  string         `json:"student_name" db:"student_name"`
	StudentEmail string         `json:"student_email" db:"student_email"`
	Status       DispatchStatus `json:"status" db:"status"`
	SentAt       time.Time      `json:"sent_date" db:"sent_at"`
	SentBy       int64          `json:"sent_by" db:"sent_by"`
	ErrorMessage *string        `json:"error_message,omitempty" db:"error_message"`
}

type DispatchResult struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Status DispatchStatus `json:"status"`
	Error  string         `json:"error,omitempty"`
}

type DispatchSummary struct {
	SuccessCount int              `json:"success_count"`
	FailedCount  int              `json:"failed_count"`
	Results      []DispatchResult `json:"results"`
}
