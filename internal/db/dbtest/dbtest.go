// Package dbtest opens throwaway databases and seeds fixtures for tests.
package dbtest

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"moonjin/internal/db"
	"moonjin/internal/models"
)

// Open returns a migrated database in a temp dir that is closed when t ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"), Logger())
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return database
}

// Logger discards output.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Password is the plain password every fixture user gets.
const Password = "secret-password"

func CreateUser(t testing.TB, database *gorm.DB, email, nickname string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h := string(hash)
	u := &models.User{Email: email, Nickname: nickname, Password: &h, Role: models.RoleUser}
	if err := models.CreateUser(database, u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func CreateWriter(t testing.TB, database *gorm.DB, email, nickname, moonjinID string) *models.User {
	t.Helper()
	u := CreateUser(t, database, email, nickname)
	if err := database.Model(u).Update("role", models.RoleWriter).Error; err != nil {
		t.Fatalf("promote %s: %v", email, err)
	}
	u.Role = models.RoleWriter
	if err := models.CreateWriterInfo(database, &models.WriterInfo{UserID: u.ID, MoonjinID: moonjinID}); err != nil {
		t.Fatalf("create writer %s: %v", moonjinID, err)
	}
	return u
}

func CreatePost(t testing.TB, database *gorm.DB, writerID uint, title string, category int, seriesID uint) *models.Post {
	t.Helper()
	p := &models.Post{WriterID: writerID, Title: title, Category: category, SeriesID: seriesID}
	if err := models.CreatePost(database, p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	content := &models.PostContent{PostID: p.ID, Content: []byte(`{"blocks":[{"type":"paragraph","data":{"text":"` + title + `"}}]}`)}
	if err := models.CreatePostContent(database, content); err != nil {
		t.Fatalf("create post content: %v", err)
	}
	return p
}

func CreateSeries(t testing.TB, database *gorm.DB, writerID uint, title string, category int) *models.Series {
	t.Helper()
	s := &models.Series{WriterID: writerID, Title: title, Category: category}
	if err := models.CreateSeries(database, s); err != nil {
		t.Fatalf("create series: %v", err)
	}
	return s
}
