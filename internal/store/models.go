package store

import "time"

const (
	SubmissionsTable         = "submissions"
	SubmissionLikesTable     = "submission_likes"
	AnonymousLikesTable      = "anonymous_likes"
	RejectedSubmissionsTable = "rejected_submissions"
)

// SubmissionStatus is the moderation state of a submission. A NULL column
// is read as pending.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

func (s SubmissionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

type Submission struct {
	ID              int64             `json:"id" gorm:"primaryKey"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Username        string            `json:"username" gorm:"index"`
	ImageURL        string            `json:"image_url"`
	ImageHash       *string           `json:"image_hash"`
	Comment         string            `json:"comment"`
	TransactionID   string            `json:"transaction_id"`
	Status          *SubmissionStatus `json:"status" gorm:"type:text"`
	Likes           *int64            `json:"likes" gorm:"default:0"`
	UserID          *string           `json:"user_id" gorm:"type:uuid"`
	RejectionReason *string           `json:"rejection_reason"`
}

func (Submission) TableName() string {
	return SubmissionsTable
}

// CurrentStatus maps a missing status to pending.
func (s Submission) CurrentStatus() SubmissionStatus {
	if s.Status == nil || *s.Status == "" {
		return StatusPending
	}
	return *s.Status
}

// LikeCount is the denormalized counter kept by the like triggers, never
// negative.
func (s Submission) LikeCount() int {
	if s.Likes == nil || *s.Likes < 0 {
		return 0
	}
	return int(*s.Likes)
}

type SubmissionLike struct {
	SubmissionID int64     `json:"submission_id" gorm:"primaryKey;autoIncrement:false"`
	UserID       string    `json:"user_id" gorm:"primaryKey;type:uuid"`
	CreatedAt    time.Time `json:"created_at"`
}

func (SubmissionLike) TableName() string {
	return SubmissionLikesTable
}

// AnonymousLike records one like per origin IP. Rows cascade with their
// submission.
type AnonymousLike struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	CreatedAt    time.Time `json:"created_at"`
	SubmissionID int64     `json:"submission_id" gorm:"index:idx_anonymous_likes_origin"`
	IPAddress    string    `json:"ip_address" gorm:"index:idx_anonymous_likes_origin"`
}

func (AnonymousLike) TableName() string {
	return AnonymousLikesTable
}

// RejectedSubmission archives a rejected submission. It points back to the
// original row and must be removed before it.
type RejectedSubmission struct {
	ID                   int64     `json:"id" gorm:"primaryKey"`
	CreatedAt            time.Time `json:"created_at"`
	OriginalSubmissionID *int64    `json:"original_submission_id" gorm:"index"`
	Username             string    `json:"username"`
	ImageURL             string    `json:"image_url"`
	ImageHash            *string   `json:"image_hash"`
	Comment              string    `json:"comment"`
	Reason               string    `json:"reason"`
}

func (RejectedSubmission) TableName() string {
	return RejectedSubmissionsTable
}
