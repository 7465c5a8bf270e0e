package models

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrDuplicateNickname   = errors.New("nickname already exists")
	ErrDuplicateMoonjinID  = errors.New("moonjin id already exists")
	ErrDuplicateOAuth      = errors.New("social identity already linked")
	ErrAlreadyFollowing    = errors.New("already following")
	ErrAlreadySubscribed   = errors.New("email already subscribed")
	ErrDuplicateNewsletter = errors.New("newsletter send already recorded")
)

// uniqueViolation reports the "table.column" list SQLite names when a unique
// index rejects a write.
func uniqueViolation(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return "", false
	}
	if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique && sqliteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
		return "", false
	}
	msg := sqliteErr.Error()
	if i := strings.Index(msg, "constraint failed: "); i >= 0 {
		msg = msg[i+len("constraint failed: "):]
	}
	return msg, true
}

func translateUnique(err error) error {
	if err == nil {
		return nil
	}
	cols, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	switch {
	case strings.Contains(cols, "users.email"):
		return ErrDuplicateEmail
	case strings.Contains(cols, "users.nickname"):
		return ErrDuplicateNickname
	case strings.Contains(cols, "writer_infos.moonjin_id"), strings.Contains(cols, "writer_infos.user_id"):
		return ErrDuplicateMoonjinID
	case strings.Contains(cols, "oauths."):
		return ErrDuplicateOAuth
	case strings.Contains(cols, "follows."):
		return ErrAlreadyFollowing
	case strings.Contains(cols, "external_subscribers."):
		return ErrAlreadySubscribed
	case strings.Contains(cols, "newsletter_sends."):
		return ErrDuplicateNewsletter
	}
	return err
}

func CreateUser(db *gorm.DB, u *User) error {
	return translateUnique(db.Omit(clause.Associations).Create(u).Error)
}

func GetUserByEmail(db *gorm.DB, email string) (*User, error) {
	var u User
	if err := db.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByID(db *gorm.DB, id uint) (*User, error) {
	var u User
	if err := db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func UserExistsByEmail(db *gorm.DB, email string) (bool, error) {
	var n int64
	err := db.Model(&User{}).Where("email = ?", email).Count(&n).Error
	return n > 0, err
}

func UpdatePassword(db *gorm.DB, id uint, hash string) error {
	res := db.Model(&User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func CreateOAuth(db *gorm.DB, o *OAuth) error {
	return translateUnique(db.Create(o).Error)
}

func GetUserByOAuth(db *gorm.DB, provider, providerID string) (*User, error) {
	var u User
	err := db.Joins("JOIN oauths ON oauths.user_id = users.id").
		Where("oauths.provider = ? AND oauths.provider_id = ?", provider, providerID).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func CreateWriterInfo(db *gorm.DB, w *WriterInfo) error {
	return translateUnique(db.Omit(clause.Associations).Create(w).Error)
}

func GetWriterInfoByMoonjinID(db *gorm.DB, moonjinID string) (*WriterInfo, error) {
	var w WriterInfo
	if err := db.Preload("User").Where("moonjin_id = ?", moonjinID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func GetWriterInfoByUserID(db *gorm.DB, userID uint) (*WriterInfo, error) {
	var w WriterInfo
	if err := db.Preload("User").Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func ListWriterIDs(db *gorm.DB) ([]uint, error) {
	var ids []uint
	err := db.Model(&WriterInfo{}).Order("user_id").Pluck("user_id", &ids).Error
	return ids, err
}

// Counter columns on writer_infos that may be adjusted in place.
const (
	CounterNewsletters = "newsletter_count"
	CounterSeries      = "series_count"
	CounterFollowers   = "follower_count"
)

func IncrementWriterCounter(db *gorm.DB, writerID uint, column string, delta int) error {
	return db.Model(&WriterInfo{}).Where("user_id = ?", writerID).
		Update(column, gorm.Expr(column+" + ?", delta)).Error
}

func SetWriterCounter(db *gorm.DB, writerID uint, column string, value int64) error {
	return db.Model(&WriterInfo{}).Where("user_id = ?", writerID).Update(column, value).Error
}
