package newsletter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"moonjin/internal/apperr"
	"moonjin/internal/db/dbtest"
	"moonjin/internal/mail"
	"moonjin/internal/models"
	"moonjin/internal/pagination"
	"moonjin/internal/post"
	"moonjin/internal/series"
	"moonjin/internal/subscribe"
	"moonjin/internal/writer"
)

type fakeMailer struct {
	sent []mail.Newsletter
	err  error
}

func (f *fakeMailer) Domain() string { return "moonjin.site" }

func (f *fakeMailer) SendNewsletter(_ context.Context, n mail.Newsletter) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

type fixture struct {
	svc    *Service
	subs   *subscribe.Service
	db     *gorm.DB
	mailer *fakeMailer
	writer *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := dbtest.Open(t)
	log := dbtest.Logger()
	seriesSvc := series.NewService(database, log)
	writerSvc := writer.NewService(database, log)
	postSvc := post.NewService(database, seriesSvc, writerSvc, log)
	subs := subscribe.NewService(database, log)
	mailer := &fakeMailer{}
	svc := NewService(database, postSvc, subs, writerSvc, seriesSvc, mailer, log)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	return &fixture{
		svc:    svc,
		subs:   subs,
		db:     database,
		mailer: mailer,
		writer: dbtest.CreateWriter(t, database, "w@moonjin.site", "Writer", "writer1"),
	}
}

func countNewsletters(t *testing.T, database *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, database.Model(&models.Newsletter{}).Count(&n).Error)
	return n
}

func TestSendScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := dbtest.CreateUser(t, f.db, "a@x.com", "a")
	b := dbtest.CreateUser(t, f.db, "b@x.com", "b")
	require.NoError(t, f.subs.Follow(ctx, a.ID, "writer1"))
	require.NoError(t, f.subs.Follow(ctx, b.ID, "writer1"))
	require.NoError(t, f.subs.AddExternalSubscriber(ctx, "writer1", subscribe.ExternalSubscriber{Email: "c@x.com"}))
	p := dbtest.CreatePost(t, f.db, f.writer.ID, "First issue", 0, 0)

	n, err := f.svc.Send(ctx, p.ID, f.writer.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.Len(t, f.mailer.sent, 1)
	sent := f.mailer.sent[0]
	assert.ElementsMatch(t, []string{"w@moonjin.site", "a@x.com", "b@x.com", "c@x.com"}, sent.Recipients)
	assert.Equal(t, "Writer <writer1@moonjin.site>", sent.From())
	assert.Equal(t, "First issue", sent.Subject)
	assert.Contains(t, sent.HTML, "<p>First issue</p>")

	mails, err := models.CountMailDeliveries(f.db, sent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, mails)

	var web int64
	require.NoError(t, f.db.Model(&models.WebNewsletter{}).Where("newsletter_id = ?", sent.ID).Count(&web).Error)
	assert.EqualValues(t, 2, web)

	released, err := models.GetPost(f.db, p.ID)
	require.NoError(t, err)
	assert.True(t, released.Status)
	require.NotNil(t, released.ReleasedAt)

	info, err := models.GetWriterInfoByUserID(f.db, f.writer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, info.NewsletterCount)

	received, err := f.svc.ListReceived(ctx, a.ID, false, pagination.Default())
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "First issue", received[0].Newsletter.Title)
	assert.False(t, received[0].IsRead)
}

func TestSendWithTitleAndOnlyWriter(t *testing.T) {
	f := newFixture(t)
	p := dbtest.CreatePost(t, f.db, f.writer.ID, "post title", 0, 0)

	n, err := f.svc.Send(context.Background(), p.ID, f.writer.ID, "Custom subject")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Custom subject", f.mailer.sent[0].Subject)

	summary, err := f.svc.GetSummary(context.Background(), f.mailer.sent[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Custom subject", summary.Title)
	assert.True(t, summary.SentAt.Equal(f.svc.now()))
}

func TestSendRejectsNonNewsletterCategory(t *testing.T) {
	f := newFixture(t)
	p := dbtest.CreatePost(t, f.db, f.writer.ID, "poem", 1, 0)

	_, err := f.svc.Send(context.Background(), p.ID, f.writer.ID, "")
	assert.ErrorIs(t, err, apperr.NewsletterCategoryNotFound)
	assert.Zero(t, countNewsletters(t, f.db))
	assert.Empty(t, f.mailer.sent)
}

func TestSendRejectsOtherWriter(t *testing.T) {
	f := newFixture(t)
	o := dbtest.CreateWriter(t, f.db, "o@moonjin.site", "other", "other1")
	p := dbtest.CreatePost(t, f.db, f.writer.ID, "t", 0, 0)

	_, err := f.svc.Send(context.Background(), p.ID, o.ID, "")
	assert.ErrorIs(t, err, apperr.ForbiddenForPost)

	_, err = f.svc.Send(context.Background(), 999, f.writer.ID, "")
	assert.ErrorIs(t, err, apperr.PostNotFound)
	assert.Zero(t, countNewsletters(t, f.db))
}

func TestSendMailFailureKeepsRecords(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("provider down")
	p := dbtest.CreatePost(t, f.db, f.writer.ID, "t", 0, 0)

	_, err := f.svc.Send(context.Background(), p.ID, f.writer.ID, "")
	assert.ErrorIs(t, err, apperr.SendNewsletterError)
	assert.EqualValues(t, 1, countNewsletters(t, f.db))
}

func TestSendTwiceCreatesTwoNewsletters(t *testing.T) {
	f := newFixture(t)
	p := dbtest.CreatePost(t, f.db, f.writer.ID, "t", 0, 0)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Send(context.Background(), p.ID, f.writer.ID, "")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, countNewsletters(t, f.db))

	cards, err := f.svc.ListSentByWriterID(context.Background(), f.writer.ID, pagination.Default())
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestListSentByMoonjinID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := dbtest.CreateSeries(t, f.db, f.writer.ID, "S", 0)
	normal := dbtest.CreatePost(t, f.db, f.writer.ID, "normal", 0, 0)
	inSeries := dbtest.CreatePost(t, f.db, f.writer.ID, "in series", 0, s.ID)
	for _, p := range []*models.Post{normal, inSeries} {
		_, err := f.svc.Send(ctx, p.ID, f.writer.ID, "")
		require.NoError(t, err)
	}

	all, err := f.svc.ListSentByMoonjinID(ctx, "writer1", false, pagination.Default())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, inSeries.ID, all[0].Post.ID)
	require.NotNil(t, all[0].Series)
	assert.Equal(t, "writer1", all[0].Writer.MoonjinID)

	onlyNormal, err := f.svc.ListSentByMoonjinID(ctx, "writer1", true, pagination.Default())
	require.NoError(t, err)
	require.Len(t, onlyNormal, 1)
	assert.Nil(t, onlyNormal[0].Series)

	inS, err := f.svc.ListInSeries(ctx, "writer1", s.ID)
	require.NoError(t, err)
	require.Len(t, inS, 1)
	assert.Equal(t, inSeries.ID, inS[0].Post.ID)

	_, err = f.svc.ListInSeries(ctx, "writer1", 999)
	assert.ErrorIs(t, err, apperr.SeriesNotFound)

	page, err := f.svc.ListSentByMoonjinID(ctx, "writer1", false, pagination.Options{Take: 1, PageNo: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	next, err := f.svc.ListSentByMoonjinID(ctx, "writer1", false,
		pagination.Options{Take: 1, PageNo: 2, Cursor: page[0].Newsletter.ID, Skip: 1})
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.NotEqual(t, page[0].Newsletter.ID, next[0].Newsletter.ID)
}

func TestGetSummaryNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetSummary(context.Background(), 404)
	assert.ErrorIs(t, err, apperr.NewsletterNotFound)
}
