package submission

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/muhtarbag/fenomen-pet/internal/feed"
	"github.com/muhtarbag/fenomen-pet/internal/store"
)

type likeRow struct {
	submissionID int64
	userID       string
}

type anonymousRow struct {
	submissionID int64
	ip           string
}

type rejectedRow struct {
	originalID int64
	reason     string
}

// memoryRepo mimics the row store with the foreign key behaviour of the
// real tables: a submission with children cannot be deleted.
type memoryRepo struct {
	mu          sync.Mutex
	submissions map[int64]store.Submission
	likes       []likeRow
	anonymous   []anonymousRow
	rejected    []rejectedRow
	calls       []string
	failOn      map[string]error
	listCalls   int
}

func newMemoryRepo(subs ...store.Submission) *memoryRepo {
	r := &memoryRepo{submissions: make(map[int64]store.Submission), failOn: make(map[string]error)}
	for _, sub := range subs {
		r.submissions[sub.ID] = sub
	}
	return r
}

func (r *memoryRepo) record(op string) error {
	r.calls = append(r.calls, op)
	return r.failOn[op]
}

func (r *memoryRepo) GetSubmission(_ context.Context, id int64) (store.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("get"); err != nil {
		return store.Submission{}, err
	}
	sub, ok := r.submissions[id]
	if !ok {
		return store.Submission{}, store.NotFound("get submission")
	}
	return sub, nil
}

func (r *memoryRepo) ListSubmissions(context.Context) ([]store.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if err := r.record("list"); err != nil {
		return nil, err
	}
	out := make([]store.Submission, 0, len(r.submissions))
	for _, sub := range r.submissions {
		out = append(out, sub)
	}
	return out, nil
}

func (r *memoryRepo) LatestByUsername(_ context.Context, username string) (store.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if strings.TrimSpace(username) == "" {
		return store.Submission{}, store.Validation("latest submission", "username required")
	}
	var latest *store.Submission
	for _, sub := range r.submissions {
		if sub.Username != username {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			s := sub
			latest = &s
		}
	}
	if latest == nil {
		return store.Submission{}, store.NotFound("latest submission")
	}
	return *latest, nil
}

func (r *memoryRepo) DeleteSubmissionLikes(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("likes"); err != nil {
		return err
	}
	kept := r.likes[:0]
	for _, l := range r.likes {
		if l.submissionID != id {
			kept = append(kept, l)
		}
	}
	r.likes = kept
	return nil
}

func (r *memoryRepo) DeleteAnonymousLikes(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("anonymous"); err != nil {
		return err
	}
	kept := r.anonymous[:0]
	for _, a := range r.anonymous {
		if a.submissionID != id {
			kept = append(kept, a)
		}
	}
	r.anonymous = kept
	return nil
}

func (r *memoryRepo) DeleteRejectedSubmissions(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("rejected"); err != nil {
		return err
	}
	kept := r.rejected[:0]
	for _, rj := range r.rejected {
		if rj.originalID != id {
			kept = append(kept, rj)
		}
	}
	r.rejected = kept
	return nil
}

func (r *memoryRepo) DeleteSubmission(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("submission"); err != nil {
		return err
	}
	for _, l := range r.likes {
		if l.submissionID == id {
			return &store.Error{Kind: store.KindTransport, Op: "delete submission", Err: errors.New("foreign key violation")}
		}
	}
	if _, ok := r.submissions[id]; !ok {
		return store.NotFound("delete submission")
	}
	delete(r.submissions, id)
	return nil
}

func (r *memoryRepo) SetStatus(_ context.Context, id int64, status store.SubmissionStatus, reason string) (store.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("status"); err != nil {
		return store.Submission{}, err
	}
	sub, ok := r.submissions[id]
	if !ok {
		return store.Submission{}, store.NotFound("set status")
	}
	sub.Status = &status
	sub.RejectionReason = nil
	if status == store.StatusRejected {
		sub.RejectionReason = &reason
		r.rejected = append(r.rejected, rejectedRow{originalID: id, reason: reason})
	}
	r.submissions[id] = sub
	return sub, nil
}

func (r *memoryRepo) countLikes(id int64) int {
	n := 0
	for _, l := range r.likes {
		if l.submissionID == id {
			n++
		}
	}
	return n
}

func (r *memoryRepo) countAnonymous(id int64) int {
	n := 0
	for _, a := range r.anonymous {
		if a.submissionID == id {
			n++
		}
	}
	return n
}

func (r *memoryRepo) countRejected(id int64) int {
	n := 0
	for _, rj := range r.rejected {
		if rj.originalID == id {
			n++
		}
	}
	return n
}

type chanStream struct {
	events chan feed.Event
	once   sync.Once
	closed chan struct{}
}

func (s *chanStream) Events() <-chan feed.Event { return s.events }

func (s *chanStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type fakeFeed struct {
	stream *chanStream
	err    error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{stream: &chanStream{events: make(chan feed.Event, 8), closed: make(chan struct{})}}
}

func (f *fakeFeed) Subscribe(context.Context, string, ...feed.EventType) (feed.Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type recordingImages struct {
	removed []string
	err     error
}

func (r *recordingImages) RemoveImage(_ context.Context, url string) error {
	r.removed = append(r.removed, url)
	return r.err
}

func makeSubmission(id int64, status store.SubmissionStatus) store.Submission {
	s := status
	return store.Submission{
		ID:       id,
		Username: "pati",
		ImageURL: "https://bucket.s3.eu-central-1.amazonaws.com/submissions/" + strconv.FormatInt(id, 10) + ".jpg",
		Status:   &s,
	}
}
