package like

// State is what one viewer sees of one submission's like control.
type State struct {
	LikeCount    int  `json:"like_count"`
	IsLiked      bool `json:"is_liked"`
	IsProcessing bool `json:"is_processing"`
}

type EventKind int

const (
	EventSeeded EventKind = iota
	EventReconciled
	EventLiked
	EventUnliked
	EventAlreadyLiked
	EventRolledBack
	EventProcessingStarted
	EventProcessingFinished
)

type Event struct {
	Kind     EventKind
	Count    int   // EventSeeded
	Liked    bool  // EventReconciled
	Snapshot State // EventRolledBack
}

// Apply is the only place State changes. LikeCount never drops below zero.
func Apply(s State, ev Event) State {
	switch ev.Kind {
	case EventSeeded:
		s.LikeCount = ev.Count
	case EventReconciled:
		s.IsLiked = ev.Liked
	case EventLiked:
		s.IsLiked = true
		s.LikeCount++
	case EventUnliked:
		s.IsLiked = false
		s.LikeCount--
	case EventAlreadyLiked:
		s.IsLiked = true
	case EventRolledBack:
		s.LikeCount = ev.Snapshot.LikeCount
		s.IsLiked = ev.Snapshot.IsLiked
	case EventProcessingStarted:
		s.IsProcessing = true
	case EventProcessingFinished:
		s.IsProcessing = false
	}
	if s.LikeCount < 0 {
		s.LikeCount = 0
	}
	return s
}
