// Package subscribe tracks who receives a writer's newsletters: registered
// followers and external email subscribers.
package subscribe

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"moonjin/internal/apperr"
	"moonjin/internal/dto"
	"moonjin/internal/models"
)

type ExternalSubscriber struct {
	Email string `json:"email" validate:"required,email,max=191"`
	Name  string `json:"name" validate:"max=64"`
}

// Recipients of one dispatch. Emails are unique and ordered: external
// subscribers, then followers, then the writer.
type Recipients struct {
	ReceiverIDs []uint
	Emails      []string
}

type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) ResolveRecipients(ctx context.Context, writerID uint) (Recipients, error) {
	db := s.db.WithContext(ctx)
	writer, err := models.GetUserByID(db, writerID)
	if err != nil {
		return Recipients{}, err
	}
	external, err := models.ListExternalSubscribers(db, writerID)
	if err != nil {
		return Recipients{}, err
	}
	followers, err := models.ListFollowers(db, writerID)
	if err != nil {
		return Recipients{}, err
	}

	var r Recipients
	seenEmail := map[string]struct{}{}
	addEmail := func(email string) {
		if email == "" {
			return
		}
		if _, ok := seenEmail[email]; ok {
			return
		}
		seenEmail[email] = struct{}{}
		r.Emails = append(r.Emails, email)
	}
	seenID := map[uint]struct{}{}

	for _, e := range external {
		addEmail(e.SubscriberEmail)
	}
	for _, f := range followers {
		// deleted accounts preload as zero rows
		if f.Follower.ID == 0 {
			continue
		}
		addEmail(f.Follower.Email)
		if _, ok := seenID[f.Follower.ID]; !ok {
			seenID[f.Follower.ID] = struct{}{}
			r.ReceiverIDs = append(r.ReceiverIDs, f.Follower.ID)
		}
	}
	addEmail(writer.Email)
	return r, nil
}

func (s *Service) writerByMoonjinID(ctx context.Context, moonjinID string) (*models.WriterInfo, error) {
	w, err := models.GetWriterInfoByMoonjinID(s.db.WithContext(ctx), moonjinID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.UserNotWriter
	}
	return w, err
}

// Follow subscribes the user in-app and bumps the writer's follower count.
func (s *Service) Follow(ctx context.Context, followerID uint, moonjinID string) error {
	w, err := s.writerByMoonjinID(ctx, moonjinID)
	if err != nil {
		return err
	}
	if w.UserID == followerID {
		return apperr.FollowMyselfError
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.CreateFollow(tx, &models.Follow{FollowerID: followerID, WriterID: w.UserID}); err != nil {
			return err
		}
		return models.IncrementWriterCounter(tx, w.UserID, models.CounterFollowers, 1)
	})
	if errors.Is(err, models.ErrAlreadyFollowing) {
		return apperr.FollowAlreadyError
	}
	return err
}

func (s *Service) Unfollow(ctx context.Context, followerID uint, moonjinID string) error {
	w, err := s.writerByMoonjinID(ctx, moonjinID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, err := models.DeleteFollow(tx, followerID, w.UserID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.FollowerNotFound
		}
		return models.IncrementWriterCounter(tx, w.UserID, models.CounterFollowers, -1)
	})
}

// ListFollowing returns the writers the user follows, latest first.
func (s *Service) ListFollowing(ctx context.Context, userID uint) ([]dto.WriterProfile, error) {
	list, err := models.ListFollowing(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.WriterProfile, 0, len(list))
	for i := range list {
		out = append(out, dto.FromWriterProfile(&list[i]))
	}
	return out, nil
}

// AddExternalSubscriber registers an email without an account. Addresses
// that belong to an account are refused; those users follow instead.
func (s *Service) AddExternalSubscriber(ctx context.Context, moonjinID string, sub ExternalSubscriber) error {
	w, err := s.writerByMoonjinID(ctx, moonjinID)
	if err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	registered, err := models.UserExistsByEmail(db, sub.Email)
	if err != nil {
		return err
	}
	if registered {
		return apperr.EmailAlreadyExist
	}
	err = models.CreateExternalSubscriber(db, &models.ExternalSubscriber{
		WriterID:        w.UserID,
		SubscriberEmail: sub.Email,
		SubscriberName:  sub.Name,
	})
	if errors.Is(err, models.ErrAlreadySubscribed) {
		return apperr.SubscribeAlreadyError
	}
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"writer_id": w.UserID}).Info("external subscriber added")
	return nil
}
