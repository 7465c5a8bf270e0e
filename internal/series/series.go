// Package series manages writers' series and the posts grouped under them.
package series

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"moonjin/internal/apperr"
	"moonjin/internal/category"
	"moonjin/internal/dto"
	"moonjin/internal/models"
	"moonjin/internal/pagination"
)

type UpsertSeries struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Cover       string     `json:"cover" validate:"omitempty,url"`
	Category    string     `json:"category" validate:"max=32"`
	Status      bool       `json:"status"`
	ReleasedAt  *time.Time `json:"releasedAt"`
}

type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

func (s *Service) releasedAt(data UpsertSeries) *time.Time {
	if data.ReleasedAt != nil {
		return data.ReleasedAt
	}
	if data.Status {
		now := s.now()
		return &now
	}
	return nil
}

// CreateSeries stores a series and bumps the writer's series counter.
func (s *Service) CreateSeries(ctx context.Context, writerID uint, data UpsertSeries) (dto.Series, error) {
	code, ok := category.Code(data.Category)
	if !ok {
		return dto.Series{}, apperr.InvalidCategory
	}
	row := models.Series{
		WriterID:    writerID,
		Title:       data.Title,
		Description: data.Description,
		Cover:       data.Cover,
		Category:    code,
		Status:      data.Status,
		ReleasedAt:  s.releasedAt(data),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.CreateSeries(tx, &row); err != nil {
			return err
		}
		return models.IncrementWriterCounter(tx, writerID, models.CounterSeries, 1)
	})
	if err != nil {
		s.log.WithError(err).WithField("writer_id", writerID).Error("create series")
		return dto.Series{}, apperr.CreateSeriesError
	}
	return dto.FromSeries(&row), nil
}

// UpdateSeries rewrites the series and applies its category to every post
// in it, in one transaction.
func (s *Service) UpdateSeries(ctx context.Context, seriesID, writerID uint, data UpsertSeries) (dto.Series, error) {
	current, err := s.AssertSeriesOwnedBy(ctx, seriesID, writerID)
	if err != nil {
		return dto.Series{}, err
	}
	code, ok := category.Code(data.Category)
	if !ok {
		return dto.Series{}, apperr.InvalidCategory
	}
	fields := map[string]any{
		"title":       data.Title,
		"description": data.Description,
		"cover":       data.Cover,
		"category":    code,
		"status":      data.Status,
	}
	if data.ReleasedAt != nil {
		fields["released_at"] = *data.ReleasedAt
	} else if data.Status && current.ReleasedAt == nil {
		fields["released_at"] = s.now()
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.UpdateSeries(tx, seriesID, fields); err != nil {
			return err
		}
		if code != current.Category {
			return models.SetCategoryForSeriesPosts(tx, seriesID, code)
		}
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithField("series_id", seriesID).Error("update series")
		return dto.Series{}, apperr.CreateSeriesError
	}
	updated, err := models.GetSeries(s.db.WithContext(ctx), seriesID)
	if err != nil {
		return dto.Series{}, err
	}
	return dto.FromSeries(updated), nil
}

func (s *Service) AssertSeriesExist(ctx context.Context, seriesID uint) (*models.Series, error) {
	row, err := models.GetSeries(s.db.WithContext(ctx), seriesID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.SeriesNotFound
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Service) AssertSeriesOwnedBy(ctx context.Context, seriesID, writerID uint) (*models.Series, error) {
	row, err := s.AssertSeriesExist(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if row.WriterID != writerID {
		return nil, apperr.ForbiddenForSeries
	}
	return row, nil
}

// UpdateNewsletterCount sets newsletter_count to the number of live posts in
// the series.
func (s *Service) UpdateNewsletterCount(ctx context.Context, seriesID uint) error {
	db := s.db.WithContext(ctx)
	n, err := models.CountPostsInSeries(db, seriesID)
	if err != nil {
		return err
	}
	return models.SetSeriesNewsletterCount(db, seriesID, n)
}

func (s *Service) ListByMoonjinID(ctx context.Context, moonjinID string, opts pagination.Options) ([]dto.Series, error) {
	list, err := models.ListSeriesByMoonjinID(s.db.WithContext(ctx), moonjinID, opts.Scope("series.id"))
	if err != nil {
		return nil, err
	}
	return dto.FromSeriesList(list), nil
}

// GetByMoonjinIDAndSeriesID returns the series only when it belongs to the
// writer with that moonjin id.
func (s *Service) GetByMoonjinIDAndSeriesID(ctx context.Context, moonjinID string, seriesID uint) (dto.Series, error) {
	row, err := s.AssertSeriesExist(ctx, seriesID)
	if err != nil {
		return dto.Series{}, err
	}
	w, err := models.GetWriterInfoByMoonjinID(s.db.WithContext(ctx), moonjinID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.Series{}, apperr.UserNotWriter
	}
	if err != nil {
		return dto.Series{}, err
	}
	if row.WriterID != w.UserID {
		return dto.Series{}, apperr.ForbiddenForSeries
	}
	return dto.FromSeries(row), nil
}

func (s *Service) ListByWriterID(ctx context.Context, writerID uint) ([]dto.Series, error) {
	list, err := models.ListSeriesByWriterID(s.db.WithContext(ctx), writerID)
	if err != nil {
		return nil, err
	}
	return dto.FromSeriesList(list), nil
}
