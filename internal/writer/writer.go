// Package writer serves public writer profiles and keeps the denormalized
// counters on writer_infos in step with the rows they count.
package writer

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"moonjin/internal/apperr"
	"moonjin/internal/dto"
	"moonjin/internal/models"
)

type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) GetPublicProfile(ctx context.Context, moonjinID string) (dto.WriterProfile, error) {
	w, err := models.GetWriterInfoByMoonjinID(s.db.WithContext(ctx), moonjinID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.WriterProfile{}, apperr.UserNotWriter
	}
	if err != nil {
		return dto.WriterProfile{}, err
	}
	return dto.FromWriterProfile(w), nil
}

// SynchronizeNewsletterCount recounts newsletters of the writer's live posts.
func (s *Service) SynchronizeNewsletterCount(ctx context.Context, writerID uint) error {
	db := s.db.WithContext(ctx)
	n, err := models.CountNewslettersByWriter(db, writerID)
	if err != nil {
		return err
	}
	return models.SetWriterCounter(db, writerID, models.CounterNewsletters, n)
}

func (s *Service) synchronizeSeriesCount(db *gorm.DB, writerID uint) error {
	var n int64
	if err := db.Model(&models.Series{}).Where("writer_id = ?", writerID).Count(&n).Error; err != nil {
		return err
	}
	return models.SetWriterCounter(db, writerID, models.CounterSeries, n)
}

func (s *Service) synchronizeFollowerCount(db *gorm.DB, writerID uint) error {
	var n int64
	if err := db.Model(&models.Follow{}).Where("writer_id = ?", writerID).Count(&n).Error; err != nil {
		return err
	}
	return models.SetWriterCounter(db, writerID, models.CounterFollowers, n)
}

// SynchronizeAll recounts every counter of every writer. A failing writer is
// logged and skipped; the first error is returned once all were tried.
func (s *Service) SynchronizeAll(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	ids, err := models.ListWriterIDs(db)
	if err != nil {
		return err
	}
	var first error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.SynchronizeNewsletterCount(ctx, id)
		if err == nil {
			err = s.synchronizeSeriesCount(db, id)
		}
		if err == nil {
			err = s.synchronizeFollowerCount(db, id)
		}
		if err != nil {
			s.log.WithError(err).WithField("writer_id", id).Error("counter sync failed")
			if first == nil {
				first = err
			}
		}
	}
	s.log.WithField("writers", len(ids)).Debug("counters synchronized")
	return first
}
