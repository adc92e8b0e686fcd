package submission

import (
	"context"
	"fmt"

	"github.com/muhtarbag/fenomen-pet/internal/logs"
	"github.com/muhtarbag/fenomen-pet/internal/store"
)

type Repository interface {
	GetSubmission(ctx context.Context, id int64) (store.Submission, error)
	ListSubmissions(ctx context.Context) ([]store.Submission, error)
	LatestByUsername(ctx context.Context, username string) (store.Submission, error)
	DeleteSubmissionLikes(ctx context.Context, submissionID int64) error
	DeleteAnonymousLikes(ctx context.Context, submissionID int64) error
	DeleteRejectedSubmissions(ctx context.Context, submissionID int64) error
	DeleteSubmission(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, status store.SubmissionStatus, reason string) (store.Submission, error)
}

// ImageRemover deletes the stored photo behind a submission.
type ImageRemover interface {
	RemoveImage(ctx context.Context, imageURL string) error
}

type Step string

const (
	StepLookup     Step = "lookup"
	StepLikes      Step = "likes"
	StepAnonymous  Step = "anonymous_likes"
	StepRejected   Step = "rejected"
	StepSubmission Step = "submission"
)

// DeleteError reports which cascade step stopped a delete. Steps after it
// were not attempted.
type DeleteError struct {
	ID      int64
	Step    Step
	Message string
	Err     error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete submission %d: %s: %v", e.ID, e.Step, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

type BulkResult struct {
	Succeeded int     `json:"succeeded"`
	Failed    []int64 `json:"failed"`
}

type Grouped struct {
	Pending  []store.Submission
	Approved []store.Submission
	Rejected []store.Submission
}

type Service struct {
	repo   Repository
	cache  *Cache
	images ImageRemover
}

func NewService(repo Repository, cache *Cache, images ImageRemover) *Service {
	return &Service{repo: repo, cache: cache, images: images}
}

// Load is the cache loader for SubmissionsKey.
func (s *Service) Load(ctx context.Context, _ string) ([]store.Submission, error) {
	return s.repo.ListSubmissions(ctx)
}

// Delete removes a submission and the rows that reference it, children
// first. On success the id is dropped from the cache without waiting for
// the change feed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		msg := msgRetry
		if store.IsNotFound(err) {
			msg = msgNotFound
		}
		return &DeleteError{ID: id, Step: StepLookup, Message: msg, Err: err}
	}

	steps := []struct {
		step Step
		msg  string
		run  func(context.Context, int64) error
	}{
		{StepLikes, msgDeleteLikes, s.repo.DeleteSubmissionLikes},
		{StepAnonymous, msgDeleteAnonymous, s.repo.DeleteAnonymousLikes},
		{StepRejected, msgDeleteRejected, s.repo.DeleteRejectedSubmissions},
		{StepSubmission, msgDeleteSubmission, s.repo.DeleteSubmission},
	}
	for _, st := range steps {
		if err := st.run(ctx, id); err != nil {
			logs.LogJSON("ERROR", "Cascade delete step failed", map[string]interface{}{
				"error":        err,
				"step":         st.step,
				"submissionID": id,
			})
			return &DeleteError{ID: id, Step: st.step, Message: st.msg, Err: err}
		}
	}

	if s.cache != nil {
		s.cache.RemovePredicate(SubmissionsKey, byID(id))
	}
	s.removeImage(ctx, sub)

	logs.LogJSON("INFO", "Submission deleted", map[string]interface{}{
		"submissionID": id,
	})
	return nil
}

func (s *Service) removeImage(ctx context.Context, sub store.Submission) {
	if s.images == nil || sub.ImageURL == "" {
		return
	}
	if err := s.images.RemoveImage(ctx, sub.ImageURL); err != nil {
		logs.LogJSON("WARN", "Error removing submission image", map[string]interface{}{
			"error":        err,
			"submissionID": sub.ID,
		})
	}
}

// BulkDelete deletes ids one after another. A failing id does not stop the
// rest.
func (s *Service) BulkDelete(ctx context.Context, ids []int64) BulkResult {
	res := BulkResult{Failed: []int64{}}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			res.Failed = append(res.Failed, id)
			continue
		}
		res.Succeeded++
	}
	return res
}

func (s *Service) List(ctx context.Context) (Grouped, error) {
	subs, err := s.cache.Get(ctx, SubmissionsKey)
	if err != nil {
		return Grouped{}, err
	}
	g := Grouped{
		Pending:  []store.Submission{},
		Approved: []store.Submission{},
		Rejected: []store.Submission{},
	}
	for _, sub := range subs {
		switch sub.CurrentStatus() {
		case store.StatusApproved:
			g.Approved = append(g.Approved, sub)
		case store.StatusRejected:
			g.Rejected = append(g.Rejected, sub)
		default:
			g.Pending = append(g.Pending, sub)
		}
	}
	return g, nil
}

// Lookup returns the latest submission made under username.
func (s *Service) Lookup(ctx context.Context, username string) (store.Submission, error) {
	return s.repo.LatestByUsername(ctx, username)
}

func (s *Service) Approve(ctx context.Context, id int64) (store.Submission, error) {
	sub, err := s.repo.SetStatus(ctx, id, store.StatusApproved, "")
	if err != nil {
		return store.Submission{}, err
	}
	s.invalidate()
	return sub, nil
}

func (s *Service) Reject(ctx context.Context, id int64, reason RejectionReason) (store.Submission, error) {
	if !reason.IsValid() {
		return store.Submission{}, store.Validation("reject submission", "unknown rejection reason")
	}
	sub, err := s.repo.SetStatus(ctx, id, store.StatusRejected, string(reason))
	if err != nil {
		return store.Submission{}, err
	}
	s.invalidate()
	return sub, nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate(SubmissionsKey)
	}
}
