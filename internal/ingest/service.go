package ingest

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"student-result-system/internal/db"
	"student-result-system/internal/importer"
	"student-result-system/internal/logger"
	"student-result-system/internal/metrics"
	"student-result-system/internal/model"
	"student-result-system/internal/storage"
	"student-result-system/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service stages an upload, parses it and replaces the owner's batch.
type Service struct {
	repo    db.Repository
	storage storage.Storage
	log     zerolog.Logger
}

func NewService(repo db.Repository, storage storage.Storage) *Service {
	return &Service{
		repo:    repo,
		storage: storage,
		log:     logger.For("ingest"),
	}
}

// Import stores every row of the uploaded file for ownerID, replacing what
// the owner had before. Nothing is stored unless the whole file is valid.
// The staged copy is always removed.
func (s *Service) Import(ctx context.Context, ownerID int64, filename string, r io.Reader) (int, error) {
	count, err := s.importFile(ctx, ownerID, filename, r)
	switch {
	case err == nil:
		metrics.Imports.WithLabelValues("success").Inc()
		metrics.ImportedRows.Add(float64(count))
	case errors.IsInputError(err):
		metrics.Imports.WithLabelValues("rejected").Inc()
	default:
		metrics.Imports.WithLabelValues("error").Inc()
	}
	return count, err
}

func (s *Service) importFile(ctx context.Context, ownerID int64, filename string, r io.Reader) (int, error) {
	strategy, err := importer.StrategyFor(filename)
	if err != nil {
		return 0, err
	}

	key := fmt.Sprintf("uploads/%d/%s%s", ownerID, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
	log := s.log.With().Int64("owner_id", ownerID).Str("file", filename).Str("key", key).Logger()

	log.Debug().Msg("Staging upload")
	if err := s.storage.Upload(ctx, key, r); err != nil {
		log.Error().Err(err).Msg("Failed to stage upload")
		return 0, fmt.Errorf("stage upload: %w", err)
	}
	defer func() {
		if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
			log.Warn().Err(err).Msg("Failed to remove staged upload")
		}
	}()

	reader, err := s.storage.Download(ctx, key)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read staged upload")
		return 0, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read file data")
		return 0, err
	}

	log.Debug().Msg("Parsing file")
	rows, err := strategy.Parse(ctx, data)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse file")
		return 0, err
	}

	log.Debug().Int("row_count", len(rows)).Msg("Validating rows")
	if err := strategy.Validate(ctx, rows); err != nil {
		log.Warn().Err(err).Msg("Row validation failed")
		return 0, err
	}

	records := make([]model.StudentRecord, len(rows))
	for i, row := range rows {
		records[i] = row.Record
	}

	n, err := s.repo.ReplaceStudents(ctx, ownerID, records)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store students")
		return 0, err
	}

	log.Info().Int("count", n).Msg("Import completed")
	return n, nil
}
