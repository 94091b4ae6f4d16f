package domain

import "time"

// Comment is embedded in a showcase's comments list. It has no identity of
// its own and is only ever appended.
type Comment struct {
	Timestamp   time.Time `json:"timestamp"`
	ActorID     string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	Text        string    `json:"text"`
}

// Like is one row of the like ledger. At most one row per (showcase, actor)
// is intended, but duplicates from concurrent inserts are tolerated.
type Like struct {
	CreatedAt  time.Time `json:"createdAt"`
	ID         string    `json:"-"`
	ShowcaseID string    `json:"showcaseId"`
	ActorID    string    `json:"actorId"`
}

// ActionType classifies rows of the action ledger.
type ActionType string

const (
	ActionComment ActionType = "comment"
	ActionLike    ActionType = "like"
	ActionMessage ActionType = "message"
	ActionShare   ActionType = "share"
)

// Valid checks if the action type is valid.
func (a ActionType) Valid() bool {
	switch a {
	case ActionComment, ActionLike, ActionMessage, ActionShare:
		return true
	default:
		return false
	}
}

// UserAction is one append-only row of the action ledger used for rate limiting.
type UserAction struct {
	Timestamp  time.Time  `json:"timestamp"`
	ID         string     `json:"-"`
	UserID     string     `json:"userId"`
	ActionType ActionType `json:"actionType"`
	TargetID   string     `json:"targetId"`
}
