package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role int

const (
	RoleUser   Role = 0
	RoleWriter Role = 1
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleWriter
}

type User struct {
	ID          uint   `gorm:"primaryKey"`
	Email       string `gorm:"size:191;uniqueIndex;not null"`
	Nickname    string `gorm:"size:64;uniqueIndex;not null"`
	Password    *string
	Role        Role `gorm:"not null;default:0"`
	Image       string
	Description string
	CreatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// OAuth links a social identity to a user that has no local password.
type OAuth struct {
	ID         uint   `gorm:"primaryKey"`
	Provider   string `gorm:"size:32;uniqueIndex:idx_oauth_identity;not null"`
	ProviderID string `gorm:"size:191;uniqueIndex:idx_oauth_identity;not null"`
	UserID     uint   `gorm:"index;not null"`
	CreatedAt  time.Time
}

func (OAuth) TableName() string { return "oauths" }

type WriterInfo struct {
	UserID          uint   `gorm:"primaryKey;autoIncrement:false"`
	MoonjinID       string `gorm:"size:64;uniqueIndex;not null"`
	Description     string
	NewsletterCount int `gorm:"not null;default:0"`
	SeriesCount     int `gorm:"not null;default:0"`
	FollowerCount   int `gorm:"not null;default:0"`
	CreatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`

	User User `gorm:"foreignKey:UserID"`
}

type Post struct {
	ID         uint   `gorm:"primaryKey"`
	WriterID   uint   `gorm:"index;not null"`
	Title      string `gorm:"not null"`
	Subtitle   string
	Cover      string
	Category   int  `gorm:"not null;default:0"`
	SeriesID   uint `gorm:"index;not null;default:0"`
	Status     bool `gorm:"not null;default:false"`
	ReleasedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`

	WriterInfo WriterInfo `gorm:"foreignKey:WriterID;references:UserID"`
	Series     *Series    `gorm:"foreignKey:SeriesID"`
}

// PostContent is one saved version of a post body. The newest row is current.
type PostContent struct {
	ID        uint           `gorm:"primaryKey"`
	PostID    uint           `gorm:"index;not null"`
	Content   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
}

type Series struct {
	ID              uint   `gorm:"primaryKey"`
	WriterID        uint   `gorm:"index;not null"`
	Title           string `gorm:"not null"`
	Description     string
	Cover           string
	Category        int  `gorm:"not null;default:0"`
	NewsletterCount int  `gorm:"not null;default:0"`
	Status          bool `gorm:"not null;default:false"`
	ReleasedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (Series) TableName() string { return "series" }

// Newsletter records one dispatch of a post. Rows are never updated.
type Newsletter struct {
	ID            uint `gorm:"primaryKey"`
	PostID        uint `gorm:"index;not null"`
	PostContentID uint `gorm:"not null"`
	Title         string
	Cover         string
	SentAt        time.Time `gorm:"index;not null"`

	Post Post `gorm:"foreignKey:PostID"`
}

type WebNewsletter struct {
	ID           uint `gorm:"primaryKey"`
	NewsletterID uint `gorm:"uniqueIndex:idx_web_newsletter_receiver;not null"`
	ReceiverID   uint `gorm:"uniqueIndex:idx_web_newsletter_receiver;not null"`
	IsRead       bool `gorm:"not null;default:false"`

	Newsletter Newsletter `gorm:"foreignKey:NewsletterID"`
}

type NewsletterSend struct {
	ID           uint `gorm:"primaryKey"`
	NewsletterID uint `gorm:"uniqueIndex;not null"`
	Title        string
	SentAt       time.Time
}

type MailNewsletter struct {
	ID               uint   `gorm:"primaryKey"`
	NewsletterSendID uint   `gorm:"uniqueIndex:idx_mail_newsletter_receiver;not null"`
	ReceiverEmail    string `gorm:"size:191;uniqueIndex:idx_mail_newsletter_receiver;not null"`
}

type Follow struct {
	ID         uint `gorm:"primaryKey"`
	FollowerID uint `gorm:"uniqueIndex:idx_follow_pair;not null"`
	WriterID   uint `gorm:"uniqueIndex:idx_follow_pair;index;not null"`
	CreatedAt  time.Time

	Follower User `gorm:"foreignKey:FollowerID"`
}

type ExternalSubscriber struct {
	ID              uint   `gorm:"primaryKey"`
	WriterID        uint   `gorm:"uniqueIndex:idx_external_subscriber;not null"`
	SubscriberEmail string `gorm:"size:191;uniqueIndex:idx_external_subscriber;not null"`
	SubscriberName  string
	CreatedAt       time.Time
}

// All lists every entity for auto-migration.
func All() []any {
	return []any{
		&User{},
		&OAuth{},
		&WriterInfo{},
		&Post{},
		&PostContent{},
		&Series{},
		&Newsletter{},
		&WebNewsletter{},
		&NewsletterSend{},
		&MailNewsletter{},
		&Follow{},
		&ExternalSubscriber{},
	}
}
