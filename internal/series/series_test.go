package series

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moonjin/internal/apperr"
	"moonjin/internal/db/dbtest"
	"moonjin/internal/models"
	"moonjin/internal/pagination"
)

func TestCreateSeries(t *testing.T) {
	database := dbtest.Open(t)
	svc := NewService(database, dbtest.Logger())
	fixed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")

	s, err := svc.CreateSeries(context.Background(), w.ID, UpsertSeries{Title: "Poems", Category: "poem", Status: true})
	require.NoError(t, err)
	assert.Equal(t, "poem", s.Category)
	require.NotNil(t, s.ReleasedAt)
	assert.True(t, fixed.Equal(*s.ReleasedAt))

	draft, err := svc.CreateSeries(context.Background(), w.ID, UpsertSeries{Title: "Draft"})
	require.NoError(t, err)
	assert.Nil(t, draft.ReleasedAt)

	info, err := models.GetWriterInfoByUserID(database, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, info.SeriesCount)

	_, err = svc.CreateSeries(context.Background(), w.ID, UpsertSeries{Title: "x", Category: "opera"})
	assert.ErrorIs(t, err, apperr.InvalidCategory)
}

func TestUpdateSeriesPropagatesCategory(t *testing.T) {
	database := dbtest.Open(t)
	svc := NewService(database, dbtest.Logger())
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")
	s := dbtest.CreateSeries(t, database, w.ID, "S", 1)
	p1 := dbtest.CreatePost(t, database, w.ID, "one", 1, s.ID)
	p2 := dbtest.CreatePost(t, database, w.ID, "two", 1, s.ID)
	other := dbtest.CreatePost(t, database, w.ID, "other", 1, 0)

	updated, err := svc.UpdateSeries(context.Background(), s.ID, w.ID, UpsertSeries{Title: "S2", Category: "essay"})
	require.NoError(t, err)
	assert.Equal(t, "S2", updated.Title)
	assert.Equal(t, "essay", updated.Category)

	essay, _ := models.GetPost(database, p1.ID)
	assert.Equal(t, 4, essay.Category)
	essay, _ = models.GetPost(database, p2.ID)
	assert.Equal(t, 4, essay.Category)
	untouched, _ := models.GetPost(database, other.ID)
	assert.Equal(t, 1, untouched.Category)
}

func TestSeriesOwnership(t *testing.T) {
	database := dbtest.Open(t)
	svc := NewService(database, dbtest.Logger())
	ctx := context.Background()
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")
	o := dbtest.CreateWriter(t, database, "o@moonjin.site", "other", "other1")
	s := dbtest.CreateSeries(t, database, w.ID, "S", 1)

	_, err := svc.UpdateSeries(ctx, s.ID, o.ID, UpsertSeries{Title: "mine"})
	assert.ErrorIs(t, err, apperr.ForbiddenForSeries)

	_, err = svc.AssertSeriesExist(ctx, 404)
	assert.ErrorIs(t, err, apperr.SeriesNotFound)

	got, err := svc.GetByMoonjinIDAndSeriesID(ctx, "writer1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, "S", got.Title)

	_, err = svc.GetByMoonjinIDAndSeriesID(ctx, "other1", s.ID)
	assert.ErrorIs(t, err, apperr.ForbiddenForSeries)
}

func TestListAndNewsletterCount(t *testing.T) {
	database := dbtest.Open(t)
	svc := NewService(database, dbtest.Logger())
	ctx := context.Background()
	w := dbtest.CreateWriter(t, database, "w@moonjin.site", "writer", "writer1")
	first := dbtest.CreateSeries(t, database, w.ID, "first", 1)
	second := dbtest.CreateSeries(t, database, w.ID, "second", 1)
	dbtest.CreatePost(t, database, w.ID, "p", 1, first.ID)
	dbtest.CreatePost(t, database, w.ID, "q", 1, first.ID)

	require.NoError(t, svc.UpdateNewsletterCount(ctx, first.ID))
	row, err := models.GetSeries(database, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, row.NewsletterCount)

	list, err := svc.ListByMoonjinID(ctx, "writer1", pagination.Options{Take: 1, PageNo: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)

	list, err = svc.ListByMoonjinID(ctx, "writer1", pagination.Options{Take: 10, PageNo: 1, Cursor: second.ID, Skip: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	mine, err := svc.ListByWriterID(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
