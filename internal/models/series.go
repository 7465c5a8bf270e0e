package models

import (
	"gorm.io/gorm"
)

func CreateSeries(db *gorm.DB, s *Series) error {
	return db.Create(s).Error
}

func GetSeries(db *gorm.DB, id uint) (*Series, error) {
	var s Series
	if err := db.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func UpdateSeries(db *gorm.DB, id uint, fields map[string]any) error {
	return db.Model(&Series{}).Where("id = ?", id).Updates(fields).Error
}

func SetSeriesNewsletterCount(db *gorm.DB, id uint, n int64) error {
	return db.Model(&Series{}).Where("id = ?", id).Update("newsletter_count", n).Error
}

func ListSeriesByWriterID(db *gorm.DB, writerID uint) ([]Series, error) {
	var list []Series
	err := db.Where("writer_id = ?", writerID).Order("id DESC").Find(&list).Error
	return list, err
}

func ListSeriesByMoonjinID(db *gorm.DB, moonjinID string, scopes ...func(*gorm.DB) *gorm.DB) ([]Series, error) {
	var list []Series
	err := db.Joins("JOIN writer_infos ON writer_infos.user_id = series.writer_id").
		Where("writer_infos.moonjin_id = ?", moonjinID).
		Scopes(scopes...).
		Order("series.id DESC").
		Find(&list).Error
	return list, err
}

func GetSeriesByMoonjinID(db *gorm.DB, moonjinID string, seriesID uint) (*Series, error) {
	var s Series
	err := db.Joins("JOIN writer_infos ON writer_infos.user_id = series.writer_id").
		Where("writer_infos.moonjin_id = ? AND series.id = ?", moonjinID, seriesID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
