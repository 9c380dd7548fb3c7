package entity

import (
	"net/http"
	"strings"
	"time"

	"telewatch/lib/validate"
)

// WatchUser is a Telegram username the tenant wants monitored, optionally
// scoped to a subset of groups and matched against keywords. Username is
// normalized to lowercase and is unique within a tenant.
type WatchUser struct {
	ID                     string    `json:"id" bson:"_id,omitempty"`
	TenantID               string    `json:"tenant_id" bson:"tenant_id"`
	Username               string    `json:"username" bson:"username" validate:"required"`
	UserID                 int64     `json:"user_id,omitempty" bson:"user_id,omitempty"`
	FullName               string    `json:"full_name,omitempty" bson:"full_name,omitempty"`
	GroupIDs               []string  `json:"group_ids" bson:"group_ids"`
	Keywords               []string  `json:"keywords" bson:"keywords"`
	ForwardingDestinations []string  `json:"forwarding_destination_ids" bson:"forwarding_destination_ids"`
	IsActive               bool      `json:"is_active" bson:"is_active"`
	CreatedAt              time.Time `json:"created_at" bson:"created_at"`
}

func (w *WatchUser) Bind(_ *http.Request) error {
	w.Username = strings.ToLower(strings.TrimSpace(w.Username))
	return validate.Struct(w)
}

// MatchesGroup reports whether a message from groupID is in this watch
// user's scope. An empty GroupIDs means every tenant group is in scope.
func (w *WatchUser) MatchesGroup(groupID string) bool {
	if len(w.GroupIDs) == 0 {
		return true
	}
	for _, g := range w.GroupIDs {
		if g == groupID {
			return true
		}
	}
	return false
}

// MatchKeywords returns the case-insensitive keywords occurring in text. An
// empty Keywords set matches unconditionally (returns a non-nil empty slice).
func (w *WatchUser) MatchKeywords(text string) []string {
	if len(w.Keywords) == 0 {
		return []string{}
	}
	lower := strings.ToLower(text)
	matched := make([]string, 0, len(w.Keywords))
	for _, kw := range w.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

type WatchUserInput struct {
	Username                string   `json:"username" validate:"required"`
	UserID                  int64    `json:"user_id,omitempty"`
	FullName                string   `json:"full_name,omitempty"`
	GroupIDs                []string `json:"group_ids,omitempty"`
	Keywords                []string `json:"keywords,omitempty"`
	ForwardingDestinations  []string `json:"forwarding_destination_ids,omitempty"`
}

func (w *WatchUserInput) Bind(_ *http.Request) error {
	w.Username = strings.ToLower(strings.TrimSpace(w.Username))
	return validate.Struct(w)
}
