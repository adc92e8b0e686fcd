package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/muhtarbag/fenomen-pet/internal/feed"
	"github.com/muhtarbag/fenomen-pet/internal/logs"
)

// GormStore is the row store over Postgres. Every error it returns is a
// tagged *Error. Successful submission writes are pushed to the change feed.
type GormStore struct {
	db        *gorm.DB
	publisher feed.Publisher
}

func NewGormStore(db *gorm.DB, publisher feed.Publisher) *GormStore {
	return &GormStore{db: db, publisher: publisher}
}

// FindLike reports whether userID has a like row on submissionID.
func (s *GormStore) FindLike(ctx context.Context, submissionID int64, userID string) (bool, error) {
	var like SubmissionLike
	err := s.db.WithContext(ctx).
		Where("submission_id = ? AND user_id = ?", submissionID, userID).
		First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, Classify("find like", err)
	}
	return true, nil
}

func (s *GormStore) InsertLike(ctx context.Context, submissionID int64, userID string) error {
	like := SubmissionLike{
		SubmissionID: submissionID,
		UserID:       userID,
		CreatedAt:    time.Now(),
	}
	return Classify("insert like", s.db.WithContext(ctx).Create(&like).Error)
}

func (s *GormStore) DeleteLike(ctx context.Context, submissionID int64, userID string) error {
	err := s.db.WithContext(ctx).
		Where("submission_id = ? AND user_id = ?", submissionID, userID).
		Delete(&SubmissionLike{}).Error
	return Classify("delete like", err)
}

// InsertAnonymousLike lets the database stamp created_at so the 24 hour
// window trigger compares against its own clock.
func (s *GormStore) InsertAnonymousLike(ctx context.Context, submissionID int64, ipAddress string) error {
	err := s.db.WithContext(ctx).
		Exec("INSERT INTO anonymous_likes (submission_id, ip_address) VALUES (?, ?)", submissionID, ipAddress).Error
	return Classify("insert anonymous like", err)
}

func (s *GormStore) GetSubmission(ctx context.Context, id int64) (Submission, error) {
	var sub Submission
	if err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return Submission{}, Classify("get submission", err)
	}
	return sub, nil
}

func (s *GormStore) ListSubmissions(ctx context.Context) ([]Submission, error) {
	var subs []Submission
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&subs).Error; err != nil {
		return nil, Classify("list submissions", err)
	}
	return subs, nil
}

// LatestByUsername returns the most recent submission made under username.
func (s *GormStore) LatestByUsername(ctx context.Context, username string) (Submission, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Submission{}, Validation("latest submission", "username required")
	}
	var sub Submission
	err := s.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return Submission{}, Classify("latest submission", err)
	}
	return sub, nil
}

func (s *GormStore) DeleteSubmissionLikes(ctx context.Context, submissionID int64) error {
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Delete(&SubmissionLike{}).Error
	return Classify("delete submission likes", err)
}

func (s *GormStore) DeleteAnonymousLikes(ctx context.Context, submissionID int64) error {
	err := s.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Delete(&AnonymousLike{}).Error
	return Classify("delete anonymous likes", err)
}

func (s *GormStore) DeleteRejectedSubmissions(ctx context.Context, submissionID int64) error {
	err := s.db.WithContext(ctx).
		Where("original_submission_id = ?", submissionID).
		Delete(&RejectedSubmission{}).Error
	return Classify("delete rejected submissions", err)
}

func (s *GormStore) DeleteSubmission(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&Submission{}, id)
	if res.Error != nil {
		return Classify("delete submission", res.Error)
	}
	if res.RowsAffected == 0 {
		return NotFound("delete submission")
	}
	s.publish(ctx, feed.Event{
		Type:  feed.EventDelete,
		Table: SubmissionsTable,
		Old:   &feed.Row{ID: id},
	})
	return nil
}

// SetStatus moves a submission to status. A rejection also archives the
// submission into rejected_submissions with reason.
func (s *GormStore) SetStatus(ctx context.Context, id int64, status SubmissionStatus, reason string) (Submission, error) {
	if !status.IsValid() {
		return Submission{}, Validation("set status", "invalid status")
	}
	if status == StatusRejected && strings.TrimSpace(reason) == "" {
		return Submission{}, Validation("set status", "rejection reason required")
	}

	var before, after Submission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&before, "id = ?", id).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"status":           status,
			"rejection_reason": nil,
			"updated_at":       time.Now(),
		}
		if status == StatusRejected {
			updates["rejection_reason"] = reason
		}
		if err := tx.Model(&Submission{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if status == StatusRejected {
			archive := RejectedSubmission{
				CreatedAt:            time.Now(),
				OriginalSubmissionID: &before.ID,
				Username:             before.Username,
				ImageURL:             before.ImageURL,
				ImageHash:            before.ImageHash,
				Comment:              before.Comment,
				Reason:               reason,
			}
			if err := tx.Create(&archive).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Submission{}, Classify("set status", err)
	}

	after = before
	after.Status = &status
	after.RejectionReason = nil
	if status == StatusRejected {
		after.RejectionReason = &reason
	}
	after.UpdatedAt = time.Now()

	s.publish(ctx, feed.Event{
		Type:  feed.EventUpdate,
		Table: SubmissionsTable,
		Old:   rowOf(before),
		New:   rowOf(after),
	})
	return after, nil
}

func (s *GormStore) publish(ctx context.Context, ev feed.Event) {
	if s.publisher == nil {
		return
	}
	ev.CommitTimestamp = time.Now().UTC()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logs.LogJSON("WARN", "Realtime publish failed", map[string]interface{}{
			"error": err,
			"table": ev.Table,
			"type":  ev.Type,
		})
	}
}

func rowOf(sub Submission) *feed.Row {
	row := &feed.Row{ID: sub.ID, Likes: sub.Likes}
	if sub.Status != nil {
		status := string(*sub.Status)
		row.Status = &status
	}
	return row
}
