package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"

	"student-result-system/internal/db"
	"student-result-system/internal/logger"
	"student-result-system/internal/mail"
	"student-result-system/internal/metrics"
	"student-result-system/internal/model"
	"student-result-system/internal/observability"
	"student-result-system/internal/report"
	"student-result-system/pkg/errors"

	"github.com/rs/zerolog"
)

// Service sends result emails one recipient at a time and logs every attempt.
type Service struct {
	repo     db.Repository
	renderer *report.Renderer
	senders  mail.SenderFactory
	log      zerolog.Logger
}

func NewService(repo db.Repository, renderer *report.Renderer, senders mail.SenderFactory) *Service {
	return &Service{
		repo:     repo,
		renderer: renderer,
		senders:  senders,
		log:      logger.For("dispatch"),
	}
}

// Dispatch emails each of the owner's students in ids, in order. Unknown ids
// are skipped. A failed recipient never stops the batch; cancelling ctx stops
// it before the next recipient and is the only error returned mid-batch.
func (s *Service) Dispatch(ctx context.Context, ownerID int64, ids []int64, creds mail.Credentials) (*model.DispatchSummary, error) {
	if len(ids) == 0 {
		return nil, errors.ErrNoStudentsSelected
	}
	if !creds.Configured() {
		return nil, errors.ErrMailNotConfigured
	}

	sender, err := s.senders(creds)
	if err != nil {
		return nil, fmt.Errorf("open mail transport: %w", err)
	}

	log := s.log.With().Int64("owner_id", ownerID).Int("requested", len(ids)).Logger()
	log.Info().Msg("Starting dispatch")

	summary := &model.DispatchSummary{Results: []model.DispatchResult{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("success", summary.SuccessCount).Int("failed", summary.FailedCount).Msg("Dispatch cancelled")
			return summary, err
		}

		var result model.DispatchResult
		student, err := s.repo.GetStudent(ctx, ownerID, id)
		switch {
		case stderrors.Is(err, errors.ErrNotFound):
			log.Debug().Int64("student_id", id).Msg("Student not found, skipping")
			continue
		case err != nil:
			result = s.lookupFailed(ctx, ownerID, id, err)
		default:
			result = s.sendOne(ctx, sender, ownerID, student)
		}

		summary.Results = append(summary.Results, result)
		if result.Status == model.DispatchStatusSuccess {
			summary.SuccessCount++
		} else {
			summary.FailedCount++
		}
	}

	log.Info().Int("success", summary.SuccessCount).Int("failed", summary.FailedCount).Msg("Dispatch finished")
	return summary, nil
}

// sendOne renders and sends one message and appends its log entry.
func (s *Service) sendOne(ctx context.Context, sender mail.Sender, ownerID int64, student *model.Student) model.DispatchResult {
	name := student.FullName()
	result := model.DispatchResult{ID: student.ID, Name: name, Status: model.DispatchStatusSuccess}

	msg, err := s.renderer.Render(student.StudentRecord, student.Email, false)
	if err != nil {
		err = fmt.Errorf("prepare message: %w", err)
	} else {
		err = sender.Send(ctx, msg)
	}

	entry := &model.DispatchLog{
		StudentID:    student.ID,
		StudentName:  name,
		StudentEmail: student.Email,
		Status:       model.DispatchStatusSuccess,
		SentBy:       ownerID,
	}
	if err != nil {
		errMsg := err.Error()
		entry.Status = model.DispatchStatusFailed
		entry.ErrorMessage = &errMsg
		result.Status = model.DispatchStatusFailed
		result.Error = errMsg
		s.log.Error().Err(err).Int64("student_id", student.ID).Str("email", student.Email).Msg("Failed to send result email")
	}

	s.record(ctx, entry)
	return result
}

// lookupFailed turns a store error for one id into a failed attempt.
func (s *Service) lookupFailed(ctx context.Context, ownerID, id int64, err error) model.DispatchResult {
	errMsg := fmt.Sprintf("load student: %v", err)
	s.log.Error().Err(err).Int64("student_id", id).Msg("Failed to load student")
	s.record(ctx, &model.DispatchLog{
		StudentID:    id,
		Status:       model.DispatchStatusFailed,
		SentBy:       ownerID,
		ErrorMessage: &errMsg,
	})
	return model.DispatchResult{ID: id, Status: model.DispatchStatusFailed, Error: errMsg}
}

// record appends entry to the dispatch log. A write failure is reported but
// does not stop the batch.
func (s *Service) record(ctx context.Context, entry *model.DispatchLog) {
	metrics.EmailsSent.WithLabelValues(string(entry.Status)).Inc()
	if err := s.repo.InsertDispatchLog(ctx, entry); err != nil {
		s.log.Error().Err(err).
			Int64("student_id", entry.StudentID).
			Str("status", string(entry.Status)).
			Msg("Failed to record dispatch log entry")
		observability.CaptureErr(fmt.Errorf("record dispatch of student %d: %w", entry.StudentID, err))
	}
}

// SendTest sends the sample report to the configured mailbox itself.
func (s *Service) SendTest(ctx context.Context, creds mail.Credentials) error {
	if !creds.Configured() {
		return errors.ErrMailNotConfigured
	}
	sender, err := s.senders(creds)
	if err != nil {
		return fmt.Errorf("open mail transport: %w", err)
	}
	msg, err := s.renderer.Render(report.SampleStudent(), creds.Username, true)
	if err != nil {
		return err
	}
	if err := sender.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Msg("Test email failed")
		return err
	}
	s.log.Info().Str("to", creds.Username).Msg("Test email sent")
	return nil
}
