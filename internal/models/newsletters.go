package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const deliveryBatchSize = 500

// CreateNewsletter inserts the newsletter, its in-app delivery rows and its
// mail send record with per-address rows. Callers run it inside a transaction.
// Delivery rows that already exist are skipped.
func CreateNewsletter(db *gorm.DB, n *Newsletter, receiverIDs []uint, send *NewsletterSend, emails []string) error {
	if err := db.Omit(clause.Associations).Create(n).Error; err != nil {
		return err
	}
	if len(receiverIDs) > 0 {
		rows := make([]WebNewsletter, 0, len(receiverIDs))
		for _, id := range receiverIDs {
			rows = append(rows, WebNewsletter{NewsletterID: n.ID, ReceiverID: id})
		}
		err := db.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			CreateInBatches(&rows, deliveryBatchSize).Error
		if err != nil {
			return err
		}
	}

	send.NewsletterID = n.ID
	if err := translateUnique(db.Create(send).Error); err != nil {
		return err
	}
	if len(emails) > 0 {
		rows := make([]MailNewsletter, 0, len(emails))
		for _, email := range emails {
			rows = append(rows, MailNewsletter{NewsletterSendID: send.ID, ReceiverEmail: email})
		}
		err := db.Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(&rows, deliveryBatchSize).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func GetNewsletter(db *gorm.DB, id uint) (*Newsletter, error) {
	var n Newsletter
	if err := db.First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// CountNewslettersByWriter counts dispatches of the writer's live posts.
func CountNewslettersByWriter(db *gorm.DB, writerID uint) (int64, error) {
	var n int64
	err := db.Model(&Newsletter{}).
		Joins("JOIN posts ON posts.id = newsletters.post_id AND posts.deleted_at IS NULL").
		Where("posts.writer_id = ?", writerID).
		Count(&n).Error
	return n, err
}

func newsletterCards(db *gorm.DB) *gorm.DB {
	return db.Model(&Newsletter{}).
		Joins("JOIN posts ON posts.id = newsletters.post_id AND posts.deleted_at IS NULL").
		Preload("Post.WriterInfo.User").
		Preload("Post.Series")
}

func ListNewslettersByWriterID(db *gorm.DB, writerID uint, scopes ...func(*gorm.DB) *gorm.DB) ([]Newsletter, error) {
	var list []Newsletter
	err := newsletterCards(db).
		Where("posts.writer_id = ?", writerID).
		Scopes(scopes...).
		Order("newsletters.sent_at DESC, newsletters.id DESC").
		Find(&list).Error
	return list, err
}

// ListNewslettersByMoonjinID lists a writer's dispatches, newest first. With
// normalOnly set, posts that belong to a series are left out.
func ListNewslettersByMoonjinID(db *gorm.DB, moonjinID string, normalOnly bool, scopes ...func(*gorm.DB) *gorm.DB) ([]Newsletter, error) {
	q := newsletterCards(db).
		Joins("JOIN writer_infos ON writer_infos.user_id = posts.writer_id").
		Where("writer_infos.moonjin_id = ?", moonjinID)
	if normalOnly {
		q = q.Where("posts.series_id = ?", 0)
	}
	var list []Newsletter
	err := q.Scopes(scopes...).Order("newsletters.id DESC").Find(&list).Error
	return list, err
}

func ListNewslettersInSeries(db *gorm.DB, seriesID uint, scopes ...func(*gorm.DB) *gorm.DB) ([]Newsletter, error) {
	var list []Newsletter
	err := newsletterCards(db).
		Where("posts.series_id = ?", seriesID).
		Scopes(scopes...).
		Order("newsletters.sent_at DESC, newsletters.id DESC").
		Find(&list).Error
	return list, err
}

func ListReceivedNewsletters(db *gorm.DB, receiverID uint, seriesOnly bool, scopes ...func(*gorm.DB) *gorm.DB) ([]WebNewsletter, error) {
	q := db.Model(&WebNewsletter{}).
		Joins("JOIN newsletters ON newsletters.id = web_newsletters.newsletter_id").
		Joins("JOIN posts ON posts.id = newsletters.post_id AND posts.deleted_at IS NULL").
		Preload("Newsletter.Post.WriterInfo.User").
		Preload("Newsletter.Post.Series").
		Where("web_newsletters.receiver_id = ?", receiverID)
	if seriesOnly {
		q = q.Where("posts.series_id > ?", 0)
	}
	var list []WebNewsletter
	err := q.Scopes(scopes...).Order("newsletters.sent_at DESC, web_newsletters.id DESC").Find(&list).Error
	return list, err
}

func CountMailDeliveries(db *gorm.DB, newsletterID uint) (int64, error) {
	var n int64
	err := db.Model(&MailNewsletter{}).
		Joins("JOIN newsletter_sends ON newsletter_sends.id = mail_newsletters.newsletter_send_id").
		Where("newsletter_sends.newsletter_id = ?", newsletterID).
		Count(&n).Error
	return n, err
}
