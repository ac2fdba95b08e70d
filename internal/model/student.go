package model

import "time"

// StudentRecord is one typed row of an upload, before it is stored.
type StudentRecord struct {
	FirstName     string   `json:"first_name" validate:"required,max=100"`
	LastName      string   `json:"last_name" validate:"required,max=100"`
	Email         string   `json:"email" validate:"required,email"`
	Class         string   `json:"class" validate:"max=100"`
	HW1           *float64 `json:"hw1" validate:"omitempty,gte=0"`
	Participation *float64 `json:"participation" validate:"omitempty,gte=0"`
	Q1            *float64 `json:"q1" validate:"omitempty,gte=0"`
	FinalKhmer    *float64 `json:"final_khmer" validate:"omitempty,gte=0"`
	FinalEnglish  *float64 `json:"final_english" validate:"omitempty,gte=0"`
	Total         *float64 `json:"total" validate:"omitempty,gte=0"`
	Grade         string   `json:"grade"`
	Comments      string   `json:"comments"`
}

func (r StudentRecord) FullName() string {
	return r.FirstName + " " + r.LastName
}

// Student is a stored record owned by the user that uploaded it.
type Student struct {
	ID int64 `json:"id" db:"id"`
	StudentRecord
	UploadDate time.Time `json:"upload_date" db:"upload_date"`
	UploadedBy int64     `json:"uploaded_by" db:"uploaded_by"`
}

type Stats struct {
	TotalStudents    int64   `json:"total_students"`
	TotalSent        int64   `json:"total_sent"`
	TotalFailed      int64   `json:"total_failed"`
	AvgHW1           float64 `json:"avg_hw1"`
	AvgParticipation float64 `json:"avg_participation"`
	AvgQ1            float64 `json:"avg_q1"`
	AvgFinalKhmer    float64 `json:"avg_final_khmer"`
	AvgFinalEnglish  float64 `json:"avg_final_english"`
	AvgTotal         float64 `json:"avg_total"`
}
