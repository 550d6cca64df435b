package models

import "time"

// MatchContent is the full quiz structure of one match. It lives as a JSON
// descriptor on the owning data node; the hub only ever holds it in memory.
type MatchContent struct {
	MatchID    string                 `json:"matchID"`
	Code       string                 `json:"code"`
	Name       string                 `json:"name"`
	CreateTime time.Time              `json:"createTime"`
	Sections   map[string][]*Question `json:"sections"`
}

type Question struct {
	Order           int      `json:"order"`
	PlayerIndex     *int     `json:"playerIndex,omitempty"`
	Type            string   `json:"type"`
	Question        string   `json:"question,omitempty"`
	MediaFile       string   `json:"mediaFile,omitempty"`
	MediaURL        string   `json:"mediaURL,omitempty"`
	MediaSize       int64    `json:"mediaSize,omitempty"`
	Answer          string   `json:"answer"`
	AcceptedAnswers []string `json:"acceptedAnswers,omitempty"`
	Points          int      `json:"points"`
	TimeLimit       *int     `json:"timeLimit,omitempty"`
}

// SameScope reports whether q addresses the same (playerIndex, order) slot as
// the given coordinates. A nil player index matches only nil.
func (q *Question) SameScope(playerIndex *int, order int) bool {
	if q.Order != order {
		return false
	}
	return samePlayer(q.PlayerIndex, playerIndex)
}

func samePlayer(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// InScope reports whether q belongs to the (section, player) counting scope
// identified by playerIndex.
func (q *Question) InScope(playerIndex *int) bool {
	return samePlayer(q.PlayerIndex, playerIndex)
}
