// Package dto projects stored models onto the JSON shapes the API returns.
// Mappers are pure: they drop soft-delete columns, flatten preloaded
// relations and turn category codes into labels.
package dto

import (
	"encoding/json"
	"time"

	"moonjin/internal/category"
	"moonjin/internal/models"
)

type User struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Nickname    string `json:"nickname"`
	Role        int    `json:"role"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

type UserProfile struct {
	ID          uint   `json:"id"`
	Nickname    string `json:"nickname"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

type WriterInfo struct {
	UserID          uint   `json:"userId"`
	MoonjinID       string `json:"moonjinId"`
	Description     string `json:"description"`
	NewsletterCount int    `json:"newsletterCount"`
	SeriesCount     int    `json:"seriesCount"`
	FollowerCount   int    `json:"followerCount"`
}

type WriterProfile struct {
	User       UserProfile `json:"user"`
	WriterInfo WriterInfo  `json:"writerInfo"`
}

// WriterInCard is the writer block shown on newsletter cards.
type WriterInCard struct {
	UserID       uint   `json:"userId"`
	MoonjinID    string `json:"moonjinId"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileImage"`
}

type Post struct {
	ID            uint       `json:"id"`
	WriterID      uint       `json:"writerId"`
	Title         string     `json:"title"`
	Subtitle      string     `json:"subtitle"`
	Cover         string     `json:"cover"`
	Category      string     `json:"category"`
	SeriesID      uint       `json:"seriesId"`
	Status        bool       `json:"status"`
	ReleasedAt    *time.Time `json:"releasedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastUpdatedAt time.Time  `json:"lastUpdatedAt"`
}

// ReleasedPost is a post as readers see it in a sent newsletter.
type ReleasedPost struct {
	ID         uint      `json:"id"`
	WriterID   uint      `json:"writerId"`
	Title      string    `json:"title"`
	Subtitle   string    `json:"subtitle"`
	Cover      string    `json:"cover"`
	Category   string    `json:"category"`
	SeriesID   uint      `json:"seriesId"`
	ReleasedAt time.Time `json:"releasedAt"`
}

type PostContent struct {
	ID        uint            `json:"id"`
	PostID    uint            `json:"postId"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Series struct {
	ID              uint       `json:"id"`
	WriterID        uint       `json:"writerId"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Cover           string     `json:"cover"`
	Category        string     `json:"category"`
	NewsletterCount int        `json:"newsletterCount"`
	Status          bool       `json:"status"`
	ReleasedAt      *time.Time `json:"releasedAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastUpdatedAt   time.Time  `json:"lastUpdatedAt"`
}

type Newsletter struct {
	ID            uint      `json:"id"`
	PostID        uint      `json:"postId"`
	PostContentID uint      `json:"postContentId"`
	Title         string    `json:"title"`
	Cover         string    `json:"cover"`
	SentAt        time.Time `json:"sentAt"`
}

type NewsletterSummary struct {
	ID     uint      `json:"id"`
	Title  string    `json:"title"`
	Cover  string    `json:"cover"`
	SentAt time.Time `json:"sentAt"`
}

// NewsletterCard lists a sent newsletter with its post, series and writer.
type NewsletterCard struct {
	Newsletter Newsletter   `json:"newsletter"`
	Post       Post         `json:"post"`
	Series     *Series      `json:"series"`
	Writer     WriterInCard `json:"writer"`
}

type ReceivedNewsletter struct {
	Newsletter NewsletterSummary `json:"newsletter"`
	Post       ReleasedPost      `json:"post"`
	Series     *Series           `json:"series"`
	Writer     UserProfile       `json:"writer"`
	IsRead     bool              `json:"isRead"`
}

type PostWithSeries struct {
	Post   Post    `json:"post"`
	Series *Series `json:"series"`
}

type PostWithContent struct {
	Post        Post        `json:"post"`
	PostContent PostContent `json:"postContent"`
}

type PostWithContentAndSeries struct {
	Post        Post        `json:"post"`
	PostContent PostContent `json:"postContent"`
	Series      *Series     `json:"series"`
}

// PostWithContentAndWriter is what the dispatcher loads before sending.
type PostWithContentAndWriter struct {
	Post        Post         `json:"post"`
	PostContent PostContent  `json:"postContent"`
	Series      *Series      `json:"series"`
	Writer      WriterInCard `json:"writer"`
}

func FromUser(u *models.User) User {
	return User{
		ID:          u.ID,
		Email:       u.Email,
		Nickname:    u.Nickname,
		Role:        int(u.Role),
		Image:       u.Image,
		Description: u.Description,
	}
}

func FromUserProfile(u *models.User) UserProfile {
	return UserProfile{ID: u.ID, Nickname: u.Nickname, Image: u.Image, Description: u.Description}
}

func FromWriterInfo(w *models.WriterInfo) WriterInfo {
	return WriterInfo{
		UserID:          w.UserID,
		MoonjinID:       w.MoonjinID,
		Description:     w.Description,
		NewsletterCount: w.NewsletterCount,
		SeriesCount:     w.SeriesCount,
		FollowerCount:   w.FollowerCount,
	}
}

// FromWriterProfile expects w.User to be preloaded.
func FromWriterProfile(w *models.WriterInfo) WriterProfile {
	return WriterProfile{User: FromUserProfile(&w.User), WriterInfo: FromWriterInfo(w)}
}

func FromWriterInCard(w *models.WriterInfo) WriterInCard {
	return WriterInCard{
		UserID:       w.UserID,
		MoonjinID:    w.MoonjinID,
		Nickname:     w.User.Nickname,
		ProfileImage: w.User.Image,
	}
}

func FromPost(p *models.Post) Post {
	return Post{
		ID:            p.ID,
		WriterID:      p.WriterID,
		Title:         p.Title,
		Subtitle:      p.Subtitle,
		Cover:         p.Cover,
		Category:      category.Label(p.Category),
		SeriesID:      p.SeriesID,
		Status:        p.Status,
		ReleasedAt:    p.ReleasedAt,
		CreatedAt:     p.CreatedAt,
		LastUpdatedAt: p.UpdatedAt,
	}
}

// FromReleasedPost uses sentAt when the post has no release time yet.
func FromReleasedPost(p *models.Post, sentAt time.Time) ReleasedPost {
	released := sentAt
	if p.ReleasedAt != nil {
		released = *p.ReleasedAt
	}
	return ReleasedPost{
		ID:         p.ID,
		WriterID:   p.WriterID,
		Title:      p.Title,
		Subtitle:   p.Subtitle,
		Cover:      p.Cover,
		Category:   category.Label(p.Category),
		SeriesID:   p.SeriesID,
		ReleasedAt: released,
	}
}

func FromPostContent(c *models.PostContent) PostContent {
	return PostContent{ID: c.ID, PostID: c.PostID, Content: json.RawMessage(c.Content), CreatedAt: c.CreatedAt}
}

func FromSeries(s *models.Series) Series {
	return Series{
		ID:              s.ID,
		WriterID:        s.WriterID,
		Title:           s.Title,
		Description:     s.Description,
		Cover:           s.Cover,
		Category:        category.Label(s.Category),
		NewsletterCount: s.NewsletterCount,
		Status:          s.Status,
		ReleasedAt:      s.ReleasedAt,
		CreatedAt:       s.CreatedAt,
		LastUpdatedAt:   s.UpdatedAt,
	}
}

// FromOptionalSeries maps nil, or a zero row left by a dangling id, to nil.
func FromOptionalSeries(s *models.Series) *Series {
	if s == nil || s.ID == 0 {
		return nil
	}
	out := FromSeries(s)
	return &out
}

func FromSeriesList(list []models.Series) []Series {
	out := make([]Series, 0, len(list))
	for i := range list {
		out = append(out, FromSeries(&list[i]))
	}
	return out
}

func FromNewsletter(n *models.Newsletter) Newsletter {
	return Newsletter{
		ID:            n.ID,
		PostID:        n.PostID,
		PostContentID: n.PostContentID,
		Title:         n.Title,
		Cover:         n.Cover,
		SentAt:        n.SentAt,
	}
}

func FromNewsletterSummary(n *models.Newsletter) NewsletterSummary {
	return NewsletterSummary{ID: n.ID, Title: n.Title, Cover: n.Cover, SentAt: n.SentAt}
}

// FromNewsletterCard expects Post.WriterInfo.User and Post.Series preloaded.
func FromNewsletterCard(n *models.Newsletter) NewsletterCard {
	return NewsletterCard{
		Newsletter: FromNewsletter(n),
		Post:       FromPost(&n.Post),
		Series:     FromOptionalSeries(n.Post.Series),
		Writer:     FromWriterInCard(&n.Post.WriterInfo),
	}
}

func FromNewsletterCards(list []models.Newsletter) []NewsletterCard {
	out := make([]NewsletterCard, 0, len(list))
	for i := range list {
		out = append(out, FromNewsletterCard(&list[i]))
	}
	return out
}

func FromReceivedNewsletter(w *models.WebNewsletter) ReceivedNewsletter {
	n := &w.Newsletter
	return ReceivedNewsletter{
		Newsletter: FromNewsletterSummary(n),
		Post:       FromReleasedPost(&n.Post, n.SentAt),
		Series:     FromOptionalSeries(n.Post.Series),
		Writer:     FromUserProfile(&n.Post.WriterInfo.User),
		IsRead:     w.IsRead,
	}
}

func FromReceivedNewsletters(list []models.WebNewsletter) []ReceivedNewsletter {
	out := make([]ReceivedNewsletter, 0, len(list))
	for i := range list {
		out = append(out, FromReceivedNewsletter(&list[i]))
	}
	return out
}

func FromPostWithSeries(p *models.Post) PostWithSeries {
	return PostWithSeries{Post: FromPost(p), Series: FromOptionalSeries(p.Series)}
}

func FromPostsWithSeries(list []models.Post) []PostWithSeries {
	out := make([]PostWithSeries, 0, len(list))
	for i := range list {
		out = append(out, FromPostWithSeries(&list[i]))
	}
	return out
}

func FromPostWithContent(p *models.Post, c *models.PostContent) PostWithContent {
	return PostWithContent{Post: FromPost(p), PostContent: FromPostContent(c)}
}

func FromPostWithContentAndSeries(p *models.Post, c *models.PostContent) PostWithContentAndSeries {
	return PostWithContentAndSeries{
		Post:        FromPost(p),
		PostContent: FromPostContent(c),
		Series:      FromOptionalSeries(p.Series),
	}
}

// FromPostWithContentAndWriter expects WriterInfo.User preloaded.
func FromPostWithContentAndWriter(p *models.Post, c *models.PostContent) PostWithContentAndWriter {
	return PostWithContentAndWriter{
		Post:        FromPost(p),
		PostContent: FromPostContent(c),
		Series:      FromOptionalSeries(p.Series),
		Writer:      FromWriterInCard(&p.WriterInfo),
	}
}
