package domain

import "strings"

// AnonymousPrefix marks actor ids handed out to clients without an account.
const AnonymousPrefix = "anon-"

// Actor is whoever performs a social action.
type Actor struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	Anonymous   bool   `json:"anonymous"`
}

// IsAnonymousID reports whether id has the anonymous actor form.
func IsAnonymousID(id string) bool {
	return strings.HasPrefix(id, AnonymousPrefix) && len(id) > len(AnonymousPrefix)
}

// Name returns the display name, or a generic label when none is known.
func (a Actor) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	if a.Anonymous {
		return "Anonymous"
	}
	return "Collector"
}
