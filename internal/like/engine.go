package like

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/muhtarbag/fenomen-pet/internal/logs"
	"github.com/muhtarbag/fenomen-pet/internal/store"
)

// LikedPostsKey holds the JSON list of submission ids an anonymous viewer
// has liked.
const LikedPostsKey = "likedPosts"

type Identity struct {
	ID    string
	Email string
}

// IdentityAccessor returns the signed-in viewer, or nil for anonymous.
type IdentityAccessor interface {
	CurrentIdentity(ctx context.Context) (*Identity, error)
}

type Store interface {
	FindLike(ctx context.Context, submissionID int64, userID string) (bool, error)
	InsertLike(ctx context.Context, submissionID int64, userID string) error
	DeleteLike(ctx context.Context, submissionID int64, userID string) error
	InsertAnonymousLike(ctx context.Context, submissionID int64, ipAddress string) error
}

// MarkerStore is the viewer's durable key/value scratchpad. It is advisory:
// the store constraints decide, the markers only short-circuit.
type MarkerStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type OriginResolver interface {
	Resolve(ctx context.Context) (string, error)
}

type Config struct {
	SubmissionID int64
	InitialLikes int
	Placeholder  bool

	Identity IdentityAccessor
	Store    Store
	Markers  MarkerStore
	Origin   OriginResolver
}

// Engine owns the like state of one submission for one viewer. At most one
// toggle runs at a time.
type Engine struct {
	submissionID int64
	placeholder  bool

	identity IdentityAccessor
	store    Store
	markers  MarkerStore
	origin   OriginResolver

	mu    sync.Mutex
	state State
}

func NewEngine(cfg Config) *Engine {
	return &Engine{
		submissionID: cfg.SubmissionID,
		placeholder:  cfg.Placeholder,
		identity:     cfg.Identity,
		store:        cfg.Store,
		markers:      cfg.Markers,
		origin:       cfg.Origin,
		state:        Apply(State{}, Event{Kind: EventSeeded, Count: cfg.InitialLikes}),
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) apply(ev Event) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Apply(e.state, ev)
	return e.state
}

// Reconcile loads whether the viewer already likes the submission. It is
// best effort: failures are logged and read as not liked.
func (e *Engine) Reconcile(ctx context.Context) State {
	if e.placeholder {
		return e.State()
	}
	liked, err := e.lookupLiked(ctx)
	if err != nil {
		logs.LogJSON("WARN", "Error checking like status", map[string]interface{}{
			"error":        err,
			"submissionID": e.submissionID,
		})
		liked = false
	}
	return e.apply(Event{Kind: EventReconciled, Liked: liked})
}

func (e *Engine) lookupLiked(ctx context.Context) (bool, error) {
	ident := e.currentIdentity(ctx)
	if ident == nil {
		ids, err := e.likedIDs(ctx)
		if err != nil {
			return false, err
		}
		return slices.Contains(ids, e.submissionID), nil
	}
	return e.store.FindLike(ctx, e.submissionID, ident.ID)
}

// Toggle likes or unlikes for the current viewer. A toggle issued while
// another is in flight is ignored without touching the store.
func (e *Engine) Toggle(ctx context.Context) (out Outcome) {
	if e.placeholder {
		return Outcome{Category: CategoryPlaceholder, Message: msgPlaceholder, State: e.State()}
	}
	if !e.begin() {
		return Outcome{Category: CategoryIgnored, State: e.State()}
	}
	defer func() {
		out.State = e.apply(Event{Kind: EventProcessingFinished})
	}()
	return e.toggle(ctx)
}

func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.IsProcessing {
		return false
	}
	e.state = Apply(e.state, Event{Kind: EventProcessingStarted})
	return true
}

func (e *Engine) toggle(ctx context.Context) Outcome {
	snapshot := e.State()
	ident := e.currentIdentity(ctx)
	if ident == nil {
		return e.toggleAnonymous(ctx, snapshot)
	}

	if snapshot.IsLiked {
		if err := e.store.DeleteLike(ctx, e.submissionID, ident.ID); err != nil {
			return e.fail(snapshot, "Error removing like", err)
		}
		e.apply(Event{Kind: EventUnliked})
		return Outcome{Category: CategorySuccess, Message: msgUnliked}
	}

	if err := e.store.InsertLike(ctx, e.submissionID, ident.ID); err != nil {
		if store.IsDuplicate(err) {
			e.apply(Event{Kind: EventAlreadyLiked})
			return Outcome{Category: CategoryAlreadyLiked, Message: msgAlreadyLiked}
		}
		return e.fail(snapshot, "Error inserting like", err)
	}
	e.apply(Event{Kind: EventLiked})
	return Outcome{Category: CategorySuccess, Message: msgLiked}
}

func (e *Engine) toggleAnonymous(ctx context.Context, snapshot State) Outcome {
	ids, err := e.likedIDs(ctx)
	if err != nil {
		return e.fail(snapshot, "Error reading like markers", err)
	}
	if slices.Contains(ids, e.submissionID) {
		return Outcome{Category: CategoryAlreadyLiked, Message: msgAlreadyLiked}
	}

	ip, err := e.origin.Resolve(ctx)
	if err != nil {
		return e.fail(snapshot, "Error resolving client origin", err)
	}
	if err := e.store.InsertAnonymousLike(ctx, e.submissionID, ip); err != nil {
		if store.IsCooldown(err) {
			return Outcome{Category: CategoryCooldown, Message: msgCooldown}
		}
		return e.fail(snapshot, "Error inserting anonymous like", err)
	}

	// The like is recorded from here on, a marker failure must not hide it.
	if err := e.saveLikedIDs(ctx, append(ids, e.submissionID)); err != nil {
		logs.LogJSON("WARN", "Error saving like marker", map[string]interface{}{
			"error":        err,
			"submissionID": e.submissionID,
		})
	}
	e.apply(Event{Kind: EventLiked})
	return Outcome{Category: CategorySuccess, Message: msgLiked}
}

func (e *Engine) fail(snapshot State, message string, err error) Outcome {
	logs.LogJSON("ERROR", message, map[string]interface{}{
		"error":        err,
		"submissionID": e.submissionID,
	})
	e.apply(Event{Kind: EventRolledBack, Snapshot: snapshot})
	return Outcome{Category: CategoryRetry, Message: msgRetry}
}

func (e *Engine) currentIdentity(ctx context.Context) *Identity {
	if e.identity == nil {
		return nil
	}
	ident, err := e.identity.CurrentIdentity(ctx)
	if err != nil {
		logs.LogJSON("WARN", "Identity lookup failed, treating viewer as anonymous", map[string]interface{}{
			"error": err,
		})
		return nil
	}
	if ident == nil || ident.ID == "" {
		return nil
	}
	return ident
}

// likedIDs reads the marker list. A corrupt list is logged and read as
// empty so it cannot lock the viewer out for good.
func (e *Engine) likedIDs(ctx context.Context) ([]int64, error) {
	if e.markers == nil {
		return nil, nil
	}
	raw, ok, err := e.markers.Get(ctx, LikedPostsKey)
	if err != nil || !ok {
		return nil, err
	}
	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		logs.LogJSON("WARN", "Ignoring corrupt like markers", map[string]interface{}{
			"error": err,
		})
		return nil, nil
	}
	return ids, nil
}

func (e *Engine) saveLikedIDs(ctx context.Context, ids []int64) error {
	if e.markers == nil {
		return nil
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return e.markers.Set(ctx, LikedPostsKey, string(payload))
}
