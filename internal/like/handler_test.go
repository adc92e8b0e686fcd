package like

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhtarbag/fenomen-pet/internal/events"
	"github.com/muhtarbag/fenomen-pet/internal/store"
)

type fakeSubmissions map[int64]store.Submission

func (f fakeSubmissions) GetSubmission(_ context.Context, id int64) (store.Submission, error) {
	sub, ok := f[id]
	if !ok {
		return store.Submission{}, store.NotFound("get submission")
	}
	return sub, nil
}

type recordingEvents struct {
	published []events.LikeToggled
}

func (r *recordingEvents) PublishLikeToggled(_ context.Context, ev events.LikeToggled) error {
	r.published = append(r.published, ev)
	return nil
}

func newTestRouter(t *testing.T, h *Handler, userID, viewerID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Set("viewer_id", viewerID)
		c.Next()
	})
	r.GET("/api/submissions/:id/like", h.GetStatus)
	r.POST("/api/submissions/:id/like", h.Toggle)
	return r
}

func perform(r *gin.Engine, method, path string) (*httptest.ResponseRecorder, Outcome) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	var out Outcome
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func submissionWithLikes(id int64, likes int64) store.Submission {
	return store.Submission{ID: id, Username: "pati", Likes: &likes}
}

func TestHandlerToggle(t *testing.T) {
	tests := []struct {
		name         string
		userID       string
		path         string
		seedLike     bool
		expectedCode int
		expectedCat  Category
		expectedLike int
	}{
		{
			name:         "Authenticated like",
			userID:       "user-1",
			path:         "/api/submissions/42/like",
			expectedCode: http.StatusOK,
			expectedCat:  CategorySuccess,
			expectedLike: 4,
		},
		{
			name:         "Authenticated unlike",
			userID:       "user-1",
			path:         "/api/submissions/42/like",
			seedLike:     true,
			expectedCode: http.StatusOK,
			expectedCat:  CategorySuccess,
			expectedLike: 2,
		},
		{
			name:         "Anonymous like",
			path:         "/api/submissions/42/like",
			expectedCode: http.StatusOK,
			expectedCat:  CategorySuccess,
			expectedLike: 4,
		},
		{
			name:         "Unknown submission",
			userID:       "user-1",
			path:         "/api/submissions/99/like",
			expectedCode: http.StatusNotFound,
			expectedCat:  CategoryNotFound,
		},
		{
			name:         "Placeholder submission",
			userID:       "user-1",
			path:         "/api/submissions/-3/like",
			expectedCode: http.StatusBadRequest,
			expectedCat:  CategoryPlaceholder,
		},
		{
			name:         "Invalid id",
			path:         "/api/submissions/abc/like",
			expectedCode: http.StatusBadRequest,
			expectedCat:  CategoryValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			if tt.seedLike {
				st.likes[likeKey(42, tt.userID)] = true
			}
			markers, _ := newTestMarkers(t)
			ev := &recordingEvents{}
			h := &Handler{
				Store:       st,
				Submissions: fakeSubmissions{42: submissionWithLikes(42, 3)},
				Markers:     markers,
				Registry:    NewRegistry(),
				Events:      ev,
			}
			r := newTestRouter(t, h, tt.userID, "anon-1")

			w, out := perform(r, http.MethodPost, tt.path)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, tt.expectedCat, out.Category)
			if tt.expectedCat == CategorySuccess {
				assert.Equal(t, tt.expectedLike, out.State.LikeCount)
				require.Len(t, ev.published, 1)
				assert.Equal(t, int64(42), ev.published[0].SubmissionID)
			} else {
				assert.Empty(t, ev.published)
			}
		})
	}
}

func TestHandlerAnonymousSecondToggleIsAlreadyLiked(t *testing.T) {
	markers, _ := newTestMarkers(t)
	h := &Handler{
		Store:       newFakeStore(),
		Submissions: fakeSubmissions{42: submissionWithLikes(42, 3)},
		Markers:     markers,
		Registry:    NewRegistry(),
	}
	r := newTestRouter(t, h, "", "anon-1")

	w, _ := perform(r, http.MethodPost, "/api/submissions/42/like")
	require.Equal(t, http.StatusOK, w.Code)

	w, out := perform(r, http.MethodPost, "/api/submissions/42/like")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CategoryAlreadyLiked, out.Category)
}

func TestHandlerToggleInFlightIsIgnored(t *testing.T) {
	registry := NewRegistry()
	require.True(t, registry.Acquire(42, "user-1"))
	st := newFakeStore()
	h := &Handler{
		Store:       st,
		Submissions: fakeSubmissions{42: submissionWithLikes(42, 3)},
		Registry:    registry,
	}
	r := newTestRouter(t, h, "user-1", "anon-1")

	w, out := perform(r, http.MethodPost, "/api/submissions/42/like")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CategoryIgnored, out.Category)
	assert.Equal(t, 0, st.callCount())
}

func TestHandlerGetStatus(t *testing.T) {
	st := newFakeStore()
	st.likes[likeKey(42, "user-1")] = true
	h := &Handler{
		Store:       st,
		Submissions: fakeSubmissions{42: submissionWithLikes(42, 3)},
		Registry:    NewRegistry(),
	}
	r := newTestRouter(t, h, "user-1", "anon-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/submissions/42/like", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var s State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, State{LikeCount: 3, IsLiked: true}, s)
}

// counterRows keeps the likes column in step with the like tables the way
// the database triggers do.
type counterRows struct {
	*fakeStore
	counts map[int64]int64
}

func newCounterRows(counts map[int64]int64) *counterRows {
	return &counterRows{fakeStore: newFakeStore(), counts: counts}
}

func (r *counterRows) GetSubmission(_ context.Context, id int64) (store.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.counts[id]
	if !ok {
		return store.Submission{}, store.NotFound("get submission")
	}
	return submissionWithLikes(id, n), nil
}

func (r *counterRows) InsertLike(ctx context.Context, id int64, user string) error {
	if err := r.fakeStore.InsertLike(ctx, id, user); err != nil {
		return err
	}
	r.mu.Lock()
	r.counts[id]++
	r.mu.Unlock()
	return nil
}

func (r *counterRows) DeleteLike(ctx context.Context, id int64, user string) error {
	r.mu.Lock()
	existed := r.likes[likeKey(id, user)]
	r.mu.Unlock()
	if err := r.fakeStore.DeleteLike(ctx, id, user); err != nil {
		return err
	}
	r.mu.Lock()
	if existed && r.counts[id] > 0 {
		r.counts[id]--
	}
	r.mu.Unlock()
	return nil
}

func (r *counterRows) InsertAnonymousLike(ctx context.Context, id int64, ip string) error {
	if err := r.fakeStore.InsertAnonymousLike(ctx, id, ip); err != nil {
		return err
	}
	r.mu.Lock()
	r.counts[id]++
	r.mu.Unlock()
	return nil
}

func TestHandlerLikeThenUnlikeRestoresCount(t *testing.T) {
	rows := newCounterRows(map[int64]int64{42: 3})
	h := &Handler{
		Store:       rows,
		Submissions: rows,
		Registry:    NewRegistry(),
	}
	r := newTestRouter(t, h, "user-1", "anon-1")

	w, out := perform(r, http.MethodPost, "/api/submissions/42/like")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, State{LikeCount: 4, IsLiked: true}, out.State)

	w, out = perform(r, http.MethodGet, "/api/submissions/42/like")
	require.Equal(t, http.StatusOK, w.Code)
	var s State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, State{LikeCount: 4, IsLiked: true}, s)

	w, out = perform(r, http.MethodPost, "/api/submissions/42/like")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CategorySuccess, out.Category)
	assert.Equal(t, State{LikeCount: 3, IsLiked: false}, out.State)
	assert.Equal(t, int64(3), rows.counts[42])
}

func TestHandlerAnonymousOriginIsRemoteAddr(t *testing.T) {
	rows := newCounterRows(map[int64]int64{42: 0})
	h := &Handler{
		Store:       rows,
		Submissions: rows,
		Registry:    NewRegistry(),
	}
	r := newTestRouter(t, h, "", "")
	require.NoError(t, r.SetTrustedProxies(nil))

	for i, forged := range []string{"203.0.113.1", "203.0.113.2"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/submissions/42/like", nil)
		req.RemoteAddr = "198.51.100.9:40000"
		req.Header.Set("X-Forwarded-For", forged)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}

	assert.Equal(t, []string{"198.51.100.9", "198.51.100.9"}, rows.anonymousIPs)
}
