package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func CreateFollow(db *gorm.DB, f *Follow) error {
	return translateUnique(db.Omit(clause.Associations).Create(f).Error)
}

// DeleteFollow reports whether a follow row was removed.
func DeleteFollow(db *gorm.DB, followerID, writerID uint) (bool, error) {
	res := db.Where("follower_id = ? AND writer_id = ?", followerID, writerID).Delete(&Follow{})
	return res.RowsAffected > 0, res.Error
}

func ListFollowers(db *gorm.DB, writerID uint) ([]Follow, error) {
	var list []Follow
	err := db.Preload("Follower").Where("writer_id = ?", writerID).Order("id").Find(&list).Error
	return list, err
}

func ListFollowing(db *gorm.DB, followerID uint) ([]WriterInfo, error) {
	var list []WriterInfo
	err := db.Preload("User").
		Joins("JOIN follows ON follows.writer_id = writer_infos.user_id").
		Where("follows.follower_id = ?", followerID).
		Order("follows.id DESC").
		Find(&list).Error
	return list, err
}

func CreateExternalSubscriber(db *gorm.DB, s *ExternalSubscriber) error {
	return translateUnique(db.Create(s).Error)
}

func ListExternalSubscribers(db *gorm.DB, writerID uint) ([]ExternalSubscriber, error) {
	var list []ExternalSubscriber
	err := db.Where("writer_id = ?", writerID).Order("id").Find(&list).Error
	return list, err
}
