package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func CreatePost(db *gorm.DB, p *Post) error {
	return db.Omit(clause.Associations).Create(p).Error
}

func CreatePostContent(db *gorm.DB, c *PostContent) error {
	return db.Create(c).Error
}

func GetPost(db *gorm.DB, id uint) (*Post, error) {
	var p Post
	if err := db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func GetPostWithSeries(db *gorm.DB, id uint) (*Post, error) {
	var p Post
	if err := db.Preload("Series").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func GetPostWithWriter(db *gorm.DB, id uint) (*Post, error) {
	var p Post
	if err := db.Preload("WriterInfo.User").Preload("Series").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func GetLatestPostContent(db *gorm.DB, postID uint) (*PostContent, error) {
	var c PostContent
	if err := db.Where("post_id = ?", postID).Order("id DESC").First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdatePost writes the given columns. A map is used so zero values such as
// series_id 0 are written too.
func UpdatePost(db *gorm.DB, id uint, fields map[string]any) error {
	return db.Model(&Post{}).Where("id = ?", id).Updates(fields).Error
}

func SoftDeletePost(db *gorm.DB, id uint) error {
	return db.Delete(&Post{}, id).Error
}

// MarkPostReleased flips status on the first dispatch only, so released_at
// keeps the original release time.
func MarkPostReleased(db *gorm.DB, id uint, at time.Time) error {
	return db.Model(&Post{}).Where("id = ? AND status = ?", id, false).
		Updates(map[string]any{"status": true, "released_at": at}).Error
}

func ListWritingPosts(db *gorm.DB, writerID uint) ([]Post, error) {
	var posts []Post
	err := db.Preload("Series").
		Where("writer_id = ? AND status = ?", writerID, false).
		Order("updated_at DESC").
		Find(&posts).Error
	return posts, err
}

func CountPostsInSeries(db *gorm.DB, seriesID uint) (int64, error) {
	var n int64
	err := db.Model(&Post{}).Where("series_id = ?", seriesID).Count(&n).Error
	return n, err
}

func SetCategoryForSeriesPosts(db *gorm.DB, seriesID uint, category int) error {
	return db.Model(&Post{}).Where("series_id = ?", seriesID).Update("category", category).Error
}
