// Package newsletter dispatches posts to their writer's subscribers and
// serves the sent and received newsletter lists.
package newsletter

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"moonjin/internal/apperr"
	"moonjin/internal/category"
	"moonjin/internal/content"
	"moonjin/internal/dto"
	"moonjin/internal/mail"
	"moonjin/internal/metrics"
	"moonjin/internal/models"
	"moonjin/internal/pagination"
	"moonjin/internal/subscribe"
)

type SendRequest struct {
	NewsletterTitle string `json:"newsletterTitle" validate:"max=200"`
}

type PostLoader interface {
	GetPostAndPostContentAndWriterByID(ctx context.Context, postID uint) (*models.Post, *models.PostContent, error)
}

type RecipientResolver interface {
	ResolveRecipients(ctx context.Context, writerID uint) (subscribe.Recipients, error)
}

type WriterCounter interface {
	SynchronizeNewsletterCount(ctx context.Context, writerID uint) error
}

type SeriesLookup interface {
	GetByMoonjinIDAndSeriesID(ctx context.Context, moonjinID string, seriesID uint) (dto.Series, error)
}

type Service struct {
	db         *gorm.DB
	posts      PostLoader
	recipients RecipientResolver
	writers    WriterCounter
	series     SeriesLookup
	mailer     mail.Sender
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewService(db *gorm.DB, posts PostLoader, recipients RecipientResolver, writers WriterCounter,
	series SeriesLookup, mailer mail.Sender, log logrus.FieldLogger) *Service {
	return &Service{
		db:         db,
		posts:      posts,
		recipients: recipients,
		writers:    writers,
		series:     series,
		mailer:     mailer,
		log:        log,
		now:        time.Now,
	}
}

// AssertNewsletterCanBeSent loads the post with its writer and current
// content, and checks userID wrote it and it carries the newsletter category.
func (s *Service) AssertNewsletterCanBeSent(ctx context.Context, userID, postID uint) (*models.Post, *models.PostContent, error) {
	p, c, err := s.posts.GetPostAndPostContentAndWriterByID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if p.WriterID != userID {
		return nil, nil, apperr.ForbiddenForPost
	}
	if p.Category != category.Newsletter {
		return nil, nil, apperr.NewsletterCategoryNotFound
	}
	return p, c, nil
}

// Send records the dispatch and mails it, returning the number of unique
// recipient emails. Records are committed before the mail provider is
// called and stay in place if that call fails.
func (s *Service) Send(ctx context.Context, postID, writerID uint, title string) (int, error) {
	p, c, err := s.AssertNewsletterCanBeSent(ctx, writerID, postID)
	if err != nil {
		metrics.RecordDispatch(metrics.DispatchRejected, 0)
		return 0, err
	}
	if title == "" {
		title = p.Title
	}
	log := s.log.WithFields(logrus.Fields{"post_id": postID, "writer_id": writerID})

	rec, err := s.recipients.ResolveRecipients(ctx, writerID)
	if err != nil {
		log.WithError(err).Error("resolve recipients")
		metrics.RecordDispatch(metrics.DispatchFailed, 0)
		return 0, apperr.SendNewsletterError
	}

	sentAt := s.now()
	n := models.Newsletter{
		PostID:        p.ID,
		PostContentID: c.ID,
		Title:         title,
		Cover:         p.Cover,
		SentAt:        sentAt,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		send := &models.NewsletterSend{Title: title, SentAt: sentAt}
		if err := models.CreateNewsletter(tx, &n, rec.ReceiverIDs, send, rec.Emails); err != nil {
			return err
		}
		return models.MarkPostReleased(tx, p.ID, sentAt)
	})
	if err != nil {
		log.WithError(err).Error("persist newsletter")
		metrics.RecordDispatch(metrics.DispatchFailed, 0)
		return 0, apperr.SendNewsletterError
	}
	log = log.WithField("newsletter_id", n.ID)
	if err := s.writers.SynchronizeNewsletterCount(ctx, writerID); err != nil {
		log.WithError(err).Warn("newsletter count sync")
	}

	html, err := content.Render(c.Content, content.Meta{
		Title:      title,
		WriterName: p.WriterInfo.User.Nickname,
		Cover:      p.Cover,
	})
	if err != nil {
		log.WithError(err).Error("render newsletter, records kept without mail")
		metrics.RecordDispatch(metrics.DispatchMailFailed, 0)
		return 0, apperr.SendNewsletterError
	}
	err = s.mailer.SendNewsletter(ctx, mail.Newsletter{
		ID:            n.ID,
		SenderName:    p.WriterInfo.User.Nickname,
		SenderAddress: p.WriterInfo.MoonjinID + "@" + s.mailer.Domain(),
		Subject:       title,
		HTML:          html,
		Recipients:    rec.Emails,
	})
	if err != nil {
		var batchErr *mail.BatchError
		if errors.As(err, &batchErr) {
			log = log.WithField("mail_accepted", batchErr.Accepted)
		}
		log.WithError(err).Error("mail newsletter, records kept without mail")
		metrics.RecordDispatch(metrics.DispatchMailFailed, 0)
		return 0, apperr.SendNewsletterError
	}

	metrics.RecordDispatch(metrics.DispatchSent, len(rec.Emails))
	log.WithField("recipients", len(rec.Emails)).Info("newsletter sent")
	return len(rec.Emails), nil
}

func (s *Service) ListSentByWriterID(ctx context.Context, writerID uint, opts pagination.Options) ([]dto.NewsletterCard, error) {
	list, err := models.ListNewslettersByWriterID(s.db.WithContext(ctx), writerID, opts.Scope("newsletters.id"))
	if err != nil {
		return nil, err
	}
	return dto.FromNewsletterCards(list), nil
}

// ListSentByMoonjinID lists a writer's newsletters; normalOnly leaves out
// posts that belong to a series.
func (s *Service) ListSentByMoonjinID(ctx context.Context, moonjinID string, normalOnly bool, opts pagination.Options) ([]dto.NewsletterCard, error) {
	list, err := models.ListNewslettersByMoonjinID(s.db.WithContext(ctx), moonjinID, normalOnly, opts.Scope("newsletters.id"))
	if err != nil {
		return nil, err
	}
	return dto.FromNewsletterCards(list), nil
}

func (s *Service) ListInSeries(ctx context.Context, moonjinID string, seriesID uint) ([]dto.NewsletterCard, error) {
	if _, err := s.series.GetByMoonjinIDAndSeriesID(ctx, moonjinID, seriesID); err != nil {
		return nil, err
	}
	list, err := models.ListNewslettersInSeries(s.db.WithContext(ctx), seriesID)
	if err != nil {
		return nil, err
	}
	return dto.FromNewsletterCards(list), nil
}

func (s *Service) ListReceived(ctx context.Context, userID uint, seriesOnly bool, opts pagination.Options) ([]dto.ReceivedNewsletter, error) {
	list, err := models.ListReceivedNewsletters(s.db.WithContext(ctx), userID, seriesOnly, opts.Scope("newsletters.id"))
	if err != nil {
		return nil, err
	}
	return dto.FromReceivedNewsletters(list), nil
}

func (s *Service) GetSummary(ctx context.Context, newsletterID uint) (dto.NewsletterSummary, error) {
	n, err := models.GetNewsletter(s.db.WithContext(ctx), newsletterID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.NewsletterSummary{}, apperr.NewsletterNotFound
	}
	if err != nil {
		return dto.NewsletterSummary{}, err
	}
	return dto.FromNewsletterSummary(n), nil
}
