package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moonjin/internal/models"
)

func TestFromNewsletterCardWithoutSeries(t *testing.T) {
	sent := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	n := &models.Newsletter{
		ID:     3,
		PostID: 9,
		Title:  "Issue",
		SentAt: sent,
		Post: models.Post{
			ID:       9,
			WriterID: 1,
			Title:    "Post",
			Category: 1,
			WriterInfo: models.WriterInfo{
				UserID:    1,
				MoonjinID: "writer1",
				User:      models.User{ID: 1, Nickname: "Writer", Image: "img.png", Email: "w@moonjin.site"},
			},
		},
	}

	card := FromNewsletterCard(n)
	assert.Nil(t, card.Series)
	assert.Equal(t, "poem", card.Post.Category)
	assert.Equal(t, WriterInCard{UserID: 1, MoonjinID: "writer1", Nickname: "Writer", ProfileImage: "img.png"}, card.Writer)

	raw, err := json.Marshal(card)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"series":null`)
	assert.NotContains(t, string(raw), "w@moonjin.site")
}

func TestFromOptionalSeriesZeroRow(t *testing.T) {
	assert.Nil(t, FromOptionalSeries(nil))
	assert.Nil(t, FromOptionalSeries(&models.Series{}))

	s := FromOptionalSeries(&models.Series{ID: 2, Title: "S", Category: 0})
	require.NotNil(t, s)
	assert.Equal(t, "newsletter", s.Category)
}

func TestFromReleasedPostFallsBackToSentAt(t *testing.T) {
	sent := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	p := &models.Post{ID: 1, Title: "t"}
	assert.Equal(t, sent, FromReleasedPost(p, sent).ReleasedAt)

	released := sent.Add(-time.Hour)
	p.ReleasedAt = &released
	assert.Equal(t, released, FromReleasedPost(p, sent).ReleasedAt)
}

func TestFromUserProfileOmitsEmail(t *testing.T) {
	hash := "x"
	u := &models.User{ID: 4, Email: "a@b.com", Nickname: "alice", Password: &hash}
	raw, err := json.Marshal(FromUserProfile(u))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"nickname":"alice","image":"","description":""}`, string(raw))
}

func TestFromPostContentKeepsJSON(t *testing.T) {
	c := &models.PostContent{ID: 1, PostID: 2, Content: []byte(`{"blocks":[]}`)}
	raw, err := json.Marshal(FromPostContent(c))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"content":{"blocks":[]}`)
}
