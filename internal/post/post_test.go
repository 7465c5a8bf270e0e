package post

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"moonjin/internal/apperr"
	"moonjin/internal/db/dbtest"
	"moonjin/internal/models"
	"moonjin/internal/series"
	"moonjin/internal/writer"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	database := dbtest.Open(t)
	log := dbtest.Logger()
	return NewService(database, series.NewService(database, log), writer.NewService(database, log), log), database
}

var doc = json.RawMessage(`{"blocks":[{"type":"paragraph","data":{"text":"hi"}}]}`)

func TestCreatePostCategory(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")

	p, err := svc.CreatePost(ctx, w.ID, UpsertPost{Title: "t", Category: "novel", Content: doc})
	require.NoError(t, err)
	assert.Equal(t, "novel", p.Post.Category)
	assert.JSONEq(t, string(doc), string(p.PostContent.Content))

	p, err = svc.CreatePost(ctx, w.ID, UpsertPost{Title: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "newsletter", p.Post.Category)

	_, err = svc.CreatePost(ctx, w.ID, UpsertPost{Title: "t", Category: "opera"})
	assert.ErrorIs(t, err, apperr.InvalidCategory)
}

func TestCreatePostInSeriesTakesSeriesCategory(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")
	s := dbtest.CreateSeries(t, database, w.ID, "S", 5)

	p, err := svc.CreatePost(ctx, w.ID, UpsertPost{Title: "t", Category: "poem", SeriesID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, "review", p.Post.Category)

	row, err := models.GetSeries(database, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, row.NewsletterCount)

	_, err = svc.CreatePost(ctx, w.ID, UpsertPost{Title: "t", SeriesID: 999})
	assert.ErrorIs(t, err, apperr.SeriesNotFound)

	o := dbtest.CreateWriter(t, database, "o@moonjin.site", "other", "other1")
	_, err = svc.CreatePost(ctx, o.ID, UpsertPost{Title: "t", SeriesID: s.ID})
	assert.ErrorIs(t, err, apperr.ForbiddenForSeries)
}

func TestUpdatePostSeriesCategoryWins(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")
	s := dbtest.CreateSeries(t, database, w.ID, "S", 2)
	p := dbtest.CreatePost(t, database, w.ID, "t", 0, 0)

	for _, label := range []string{"", "poem", "essay"} {
		got, err := svc.UpdatePost(ctx, p.ID, w.ID, UpsertPost{Title: "t", Category: label, SeriesID: s.ID})
		require.NoError(t, err)
		assert.Equal(t, "novel", got.Post.Category, label)
	}

	got, err := svc.UpdatePost(ctx, p.ID, w.ID, UpsertPost{Title: "out", Category: "poem", Content: doc})
	require.NoError(t, err)
	assert.Equal(t, "poem", got.Post.Category)
	assert.Equal(t, uint(0), got.Post.SeriesID)
	assert.JSONEq(t, string(doc), string(got.PostContent.Content))

	row, err := models.GetSeries(database, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, row.NewsletterCount)
}

func TestUpdatePostByNonOwner(t *testing.T) {
	svc, database := newTestService(t)
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")
	o := dbtest.CreateWriter(t, database, "o@moonjin.site", "other", "other1")
	p := dbtest.CreatePost(t, database, w.ID, "original", 1, 0)

	_, err := svc.UpdatePost(context.Background(), p.ID, o.ID, UpsertPost{Title: "hijacked", Category: "essay"})
	assert.ErrorIs(t, err, apperr.ForbiddenForPost)

	row, err := models.GetPost(database, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", row.Title)
	assert.Equal(t, 1, row.Category)
	assert.Equal(t, p.UpdatedAt.Unix(), row.UpdatedAt.Unix())

	_, err = svc.UpdatePost(context.Background(), 999, w.ID, UpsertPost{Title: "x"})
	assert.ErrorIs(t, err, apperr.PostNotFound)
}

func TestUpdatePostContentVersions(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")
	p := dbtest.CreatePost(t, database, w.ID, "t", 0, 0)

	c, err := svc.UpdatePostContent(ctx, w.ID, UpdateContent{PostID: p.ID, Content: doc})
	require.NoError(t, err)

	got, err := svc.GetPostWithContentAndSeries(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.PostContent.ID)
	assert.Nil(t, got.Series)

	o := dbtest.CreateWriter(t, database, "o@moonjin.site", "other", "other1")
	_, err = svc.UpdatePostContent(ctx, o.ID, UpdateContent{PostID: p.ID, Content: doc})
	assert.ErrorIs(t, err, apperr.ForbiddenForPost)
}

func TestDeletePost(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")
	p := dbtest.CreatePost(t, database, w.ID, "t", 0, 0)
	require.NoError(t, models.SetWriterCounter(database, w.ID, models.CounterNewsletters, 3))

	require.NoError(t, svc.DeletePost(ctx, p.ID, w.ID))

	_, err := svc.GetPostWithSeries(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.PostNotFound)

	info, err := models.GetWriterInfoByUserID(database, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, info.NewsletterCount)
}

func TestListWritingPosts(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")
	draft := dbtest.CreatePost(t, database, w.ID, "draft", 0, 0)
	released := dbtest.CreatePost(t, database, w.ID, "released", 0, 0)
	require.NoError(t, models.MarkPostReleased(database, released.ID, released.CreatedAt))

	list, err := svc.ListWritingPosts(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, draft.ID, list[0].Post.ID)
}

func TestGetPostAndPostContentAndWriterByID(t *testing.T) {
	svc, database := newTestService(t)
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")
	p := dbtest.CreatePost(t, database, w.ID, "t", 0, 0)

	got, content, err := svc.GetPostAndPostContentAndWriterByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "writer1", got.WriterInfo.MoonjinID)
	assert.Equal(t, "w@moonjin.site", got.WriterInfo.User.Email)
	assert.Equal(t, p.ID, content.PostID)

	_, _, err = svc.GetPostAndPostContentAndWriterByID(context.Background(), 999)
	assert.ErrorIs(t, err, apperr.PostNotFound)
}
