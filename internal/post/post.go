// Package post manages writers' posts and their versioned content.
package post

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"moonjin/internal/apperr"
	"moonjin/internal/category"
	"moonjin/internal/dto"
	"moonjin/internal/models"
)

// UpsertPost is the body of create and update requests. A non-zero SeriesID
// makes the series' category win over Category.
type UpsertPost struct {
	Title    string          `json:"title" validate:"required,max=200"`
	Subtitle string          `json:"subtitle" validate:"max=200"`
	Cover    string          `json:"cover" validate:"omitempty,url"`
	Category string          `json:"category" validate:"max=32"`
	SeriesID uint            `json:"seriesId"`
	Content  json.RawMessage `json:"content"`
}

type UpdateContent struct {
	PostID  uint            `json:"postId" validate:"required"`
	Content json.RawMessage `json:"content" validate:"required"`
}

type SeriesService interface {
	AssertSeriesOwnedBy(ctx context.Context, seriesID, writerID uint) (*models.Series, error)
	UpdateNewsletterCount(ctx context.Context, seriesID uint) error
}

type WriterCounter interface {
	SynchronizeNewsletterCount(ctx context.Context, writerID uint) error
}

type Service struct {
	db      *gorm.DB
	series  SeriesService
	writers WriterCounter
	log     logrus.FieldLogger
}

func NewService(db *gorm.DB, series SeriesService, writers WriterCounter, log logrus.FieldLogger) *Service {
	return &Service{db: db, series: series, writers: writers, log: log}
}

func (s *Service) resolveCategory(ctx context.Context, writerID uint, data UpsertPost) (int, error) {
	if data.SeriesID > 0 {
		row, err := s.series.AssertSeriesOwnedBy(ctx, data.SeriesID, writerID)
		if err != nil {
			return 0, err
		}
		return row.Category, nil
	}
	code, ok := category.Code(data.Category)
	if !ok {
		return 0, apperr.InvalidCategory
	}
	return code, nil
}

func (s *Service) CreatePost(ctx context.Context, writerID uint, data UpsertPost) (dto.PostWithContent, error) {
	code, err := s.resolveCategory(ctx, writerID, data)
	if err != nil {
		return dto.PostWithContent{}, err
	}
	p := models.Post{
		WriterID: writerID,
		Title:    data.Title,
		Subtitle: data.Subtitle,
		Cover:    data.Cover,
		Category: code,
		SeriesID: data.SeriesID,
	}
	c := models.PostContent{Content: datatypes.JSON(emptyDocument(data.Content))}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.CreatePost(tx, &p); err != nil {
			return err
		}
		c.PostID = p.ID
		return models.CreatePostContent(tx, &c)
	})
	if err != nil {
		s.log.WithError(err).WithField("writer_id", writerID).Error("create post")
		return dto.PostWithContent{}, apperr.CreatePostError
	}
	s.refreshSeriesCount(ctx, p.SeriesID)
	return dto.FromPostWithContent(&p, &c), nil
}

func emptyDocument(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage(`{"blocks":[]}`)
	}
	return raw
}

// UpdatePost rewrites the post metadata and, when content is sent, saves a
// new content version alongside.
func (s *Service) UpdatePost(ctx context.Context, postID, writerID uint, data UpsertPost) (dto.PostWithContent, error) {
	current, err := s.AssertWriterOfPost(ctx, postID, writerID)
	if err != nil {
		return dto.PostWithContent{}, err
	}
	code, err := s.resolveCategory(ctx, writerID, data)
	if err != nil {
		return dto.PostWithContent{}, err
	}
	fields := map[string]any{
		"title":     data.Title,
		"subtitle":  data.Subtitle,
		"cover":     data.Cover,
		"category":  code,
		"series_id": data.SeriesID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.UpdatePost(tx, postID, fields); err != nil {
			return err
		}
		if len(data.Content) == 0 {
			return nil
		}
		return models.CreatePostContent(tx, &models.PostContent{PostID: postID, Content: datatypes.JSON(data.Content)})
	})
	if err != nil {
		s.log.WithError(err).WithField("post_id", postID).Error("update post")
		return dto.PostWithContent{}, apperr.CreatePostError
	}
	if current.SeriesID != data.SeriesID {
		s.refreshSeriesCount(ctx, current.SeriesID)
	}
	s.refreshSeriesCount(ctx, data.SeriesID)

	db := s.db.WithContext(ctx)
	p, err := models.GetPost(db, postID)
	if err != nil {
		return dto.PostWithContent{}, err
	}
	c, err := models.GetLatestPostContent(db, postID)
	if err != nil {
		return dto.PostWithContent{}, apperr.PostContentNotFound
	}
	return dto.FromPostWithContent(p, c), nil
}

func (s *Service) UpdatePostContent(ctx context.Context, writerID uint, data UpdateContent) (dto.PostContent, error) {
	if _, err := s.AssertWriterOfPost(ctx, data.PostID, writerID); err != nil {
		return dto.PostContent{}, err
	}
	c := models.PostContent{PostID: data.PostID, Content: datatypes.JSON(data.Content)}
	if err := models.CreatePostContent(s.db.WithContext(ctx), &c); err != nil {
		s.log.WithError(err).WithField("post_id", data.PostID).Error("save post content")
		return dto.PostContent{}, apperr.CreatePostError
	}
	return dto.FromPostContent(&c), nil
}

// DeletePost soft-deletes the post. Counters are recomputed afterwards and
// a failure there is only logged.
func (s *Service) DeletePost(ctx context.Context, postID, writerID uint) error {
	p, err := s.AssertWriterOfPost(ctx, postID, writerID)
	if err != nil {
		return err
	}
	if err := models.SoftDeletePost(s.db.WithContext(ctx), postID); err != nil {
		return err
	}
	if err := s.writers.SynchronizeNewsletterCount(ctx, writerID); err != nil {
		s.log.WithError(err).WithField("writer_id", writerID).Warn("newsletter count sync after delete")
	}
	s.refreshSeriesCount(ctx, p.SeriesID)
	return nil
}

func (s *Service) refreshSeriesCount(ctx context.Context, seriesID uint) {
	if seriesID == 0 {
		return
	}
	if err := s.series.UpdateNewsletterCount(ctx, seriesID); err != nil {
		s.log.WithError(err).WithField("series_id", seriesID).Warn("series count sync")
	}
}

func (s *Service) AssertWriterOfPost(ctx context.Context, postID, userID uint) (*models.Post, error) {
	p, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.WriterID != userID {
		return nil, apperr.ForbiddenForPost
	}
	return p, nil
}

func (s *Service) getPost(ctx context.Context, postID uint) (*models.Post, error) {
	p, err := models.GetPostWithSeries(s.db.WithContext(ctx), postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.PostNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) latestContent(ctx context.Context, postID uint) (*models.PostContent, error) {
	c, err := models.GetLatestPostContent(s.db.WithContext(ctx), postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.PostContentNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetPostWithContentAndSeries(ctx context.Context, postID uint) (dto.PostWithContentAndSeries, error) {
	p, err := s.getPost(ctx, postID)
	if err != nil {
		return dto.PostWithContentAndSeries{}, err
	}
	c, err := s.latestContent(ctx, postID)
	if err != nil {
		return dto.PostWithContentAndSeries{}, err
	}
	return dto.FromPostWithContentAndSeries(p, c), nil
}

func (s *Service) GetPostWithSeries(ctx context.Context, postID uint) (dto.PostWithSeries, error) {
	p, err := s.getPost(ctx, postID)
	if err != nil {
		return dto.PostWithSeries{}, err
	}
	return dto.FromPostWithSeries(p), nil
}

// ListWritingPosts returns the writer's unreleased posts, last edited first.
func (s *Service) ListWritingPosts(ctx context.Context, writerID uint) ([]dto.PostWithSeries, error) {
	list, err := models.ListWritingPosts(s.db.WithContext(ctx), writerID)
	if err != nil {
		return nil, err
	}
	return dto.FromPostsWithSeries(list), nil
}

// GetPostAndPostContentAndWriterByID loads the post with its writer and user
// rows and its current content version.
func (s *Service) GetPostAndPostContentAndWriterByID(ctx context.Context, postID uint) (*models.Post, *models.PostContent, error) {
	p, err := models.GetPostWithWriter(s.db.WithContext(ctx), postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperr.PostNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	c, err := s.latestContent(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	return p, c, nil
}
