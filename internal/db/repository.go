package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"student-result-system/internal/model"
	"student-result-system/pkg/errors"
)

type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	ReplaceStudents(ctx context.Context, ownerID int64, records []model.StudentRecord) (int, error)
	ListStudents(ctx context.Context, ownerID int64) ([]model.Student, error)
	GetStudent(ctx context.Context, ownerID, id int64) (*model.Student, error)
	StudentStats(ctx context.Context, ownerID int64) (*model.Stats, error)
	SampleStudents(ctx context.Context, limit int) ([]model.Student, error)

	InsertDispatchLog(ctx context.Context, entry *model.DispatchLog) error
	ListDispatchLogs(ctx context.Context, ownerID int64, limit int) ([]model.DispatchLog, error)
	RecentDispatchLogs(ctx context.Context, limit int) ([]model.DispatchLog, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (username, password_hash, email, full_name, created_at) VALUES (?, ?, ?, ?, ?)`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, query, user.Username, user.PasswordHash, user.Email, user.FullName, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID, err = res.LastInsertId()
	return err
}

func (r *repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT id, username, password_hash, email, full_name, created_at FROM users WHERE username = ?`
	return r.getUser(ctx, query, username)
}

func (r *repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, username, password_hash, email, full_name, created_at FROM users WHERE id = ?`
	return r.getUser(ctx, query, id)
}

func (r *repository) getUser(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var user model.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.FullName, &user.CreatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ReplaceStudents deletes every record owned by ownerID and inserts records
// in one transaction. On error the previous batch is left untouched.
func (r *repository) ReplaceStudents(ctx context.Context, ownerID int64, records []model.StudentRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE uploaded_by = ?`, ownerID); err != nil {
		return 0, fmt.Errorf("delete previous batch: %w", err)
	}

	query := `INSERT INTO students (first_name, last_name, email, class, hw1, participation, q1,
			  final_khmer, final_english, total, grade, comments, upload_date, uploaded_by)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, rec := range records {
		_, err := stmt.ExecContext(ctx, rec.FirstName, rec.LastName, rec.Email, rec.Class,
			rec.HW1, rec.Participation, rec.Q1, rec.FinalKhmer, rec.FinalEnglish, rec.Total,
			rec.Grade, rec.Comments, now, ownerID)
		if err != nil {
			return 0, fmt.Errorf("insert record %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

const studentColumns = `id, first_name, last_name, email, class, hw1, participation, q1,
	final_khmer, final_english, total, grade, comments, upload_date, uploaded_by`

func (r *repository) ListStudents(ctx context.Context, ownerID int64) ([]model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE uploaded_by = ? ORDER BY id DESC`
	return r.queryStudents(ctx, query, ownerID)
}

func (r *repository) SampleStudents(ctx context.Context, limit int) ([]model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY id DESC LIMIT ?`
	return r.queryStudents(ctx, query, limit)
}

func (r *repository) GetStudent(ctx context.Context, ownerID, id int64) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = ? AND uploaded_by = ?`
	students, err := r.queryStudents(ctx, query, id, ownerID)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, errors.ErrNotFound
	}
	return &students[0], nil
}

func (r *repository) queryStudents(ctx context.Context, query string, args ...interface{}) ([]model.Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		var (
			s                                    model.Student
			hw1, part, q1, khmer, english, total sql.NullFloat64
		)
		err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.Class,
			&hw1, &part, &q1, &khmer, &english, &total,
			&s.Grade, &s.Comments, &s.UploadDate, &s.UploadedBy)
		if err != nil {
			return nil, err
		}
		s.HW1 = floatPtr(hw1)
		s.Participation = floatPtr(part)
		s.Q1 = floatPtr(q1)
		s.FinalKhmer = floatPtr(khmer)
		s.FinalEnglish = floatPtr(english)
		s.Total = floatPtr(total)
		students = append(students, s)
	}

	return students, rows.Err()
}

// StudentStats averages each score over the owner's current batch, ignoring
// NULLs, and counts the owner's dispatch outcomes.
func (r *repository) StudentStats(ctx context.Context, ownerID int64) (*model.Stats, error) {
	query := `SELECT
		COUNT(*),
		AVG(hw1), AVG(participation), AVG(q1),
		AVG(final_khmer), AVG(final_english), AVG(total)
	FROM students WHERE uploaded_by = ?`

	var (
		stats                                model.Stats
		hw1, part, q1, khmer, english, total sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(
		&stats.TotalStudents, &hw1, &part, &q1, &khmer, &english, &total,
	)
	if err != nil {
		return nil, err
	}
	stats.AvgHW1 = round2(hw1)
	stats.AvgParticipation = round2(part)
	stats.AvgQ1 = round2(q1)
	stats.AvgFinalKhmer = round2(khmer)
	stats.AvgFinalEnglish = round2(english)
	stats.AvgTotal = round2(total)

	logQuery := `SELECT
		COUNT(CASE WHEN status = 'success' THEN 1 END),
		COUNT(CASE WHEN status = 'failed' THEN 1 END)
	FROM email_logs WHERE sent_by = ?`

	if err := r.db.QueryRowContext(ctx, logQuery, ownerID).Scan(&stats.TotalSent, &stats.TotalFailed); err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *repository) InsertDispatchLog(ctx context.Context, entry *model.DispatchLog) error {
	query := `INSERT INTO email_logs (student_id, student_name, student_email, status, sent_at, sent_by, error_message)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, query, entry.StudentID, entry.StudentName, entry.StudentEmail,
		string(entry.Status), entry.SentAt, entry.SentBy, entry.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert dispatch log: %w", err)
	}
	entry.ID, err = res.LastInsertId()
	return err
}

const logColumns = `id, student_id, student_name, student_email, status, sent_at, sent_by, error_message`

// ListDispatchLogs returns the owner's log newest first. A limit <= 0 returns
// every entry.
func (r *repository) ListDispatchLogs(ctx context.Context, ownerID int64, limit int) ([]model.DispatchLog, error) {
	query := `SELECT ` + logColumns + ` FROM email_logs WHERE sent_by = ? ORDER BY sent_at DESC, id DESC`
	args := []interface{}{ownerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.queryLogs(ctx, query, args...)
}

func (r *repository) RecentDispatchLogs(ctx context.Context, limit int) ([]model.DispatchLog, error) {
	query := `SELECT ` + logColumns + ` FROM email_logs ORDER BY sent_at DESC, id DESC LIMIT ?`
	return r.queryLogs(ctx, query, limit)
}

func (r *repository) queryLogs(ctx context.Context, query string, args ...interface{}) ([]model.DispatchLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.DispatchLog{}
	for rows.Next() {
		var (
			entry  model.DispatchLog
			status string
		)
		err := rows.Scan(&entry.ID, &entry.StudentID, &entry.StudentName, &entry.StudentEmail,
			&status, &entry.SentAt, &entry.SentBy, &entry.ErrorMessage)
		if err != nil {
			return nil, err
		}
		entry.Status = model.DispatchStatus(status)
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func round2(n sql.NullFloat64) float64 {
	if !n.Valid {
		return 0
	}
	return math.Round(n.Float64*100) / 100
}
