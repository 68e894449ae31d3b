package model

import "time"

// GameType identifies one of the two race variants.
type GameType string

const (
	GameSprint    GameType = "100m" // fixed distance, ranked by time
	GameEndurance GameType = "10s"  // fixed time, ranked by distance
)

// GameStatus is the lifecycle value of a launched game.
type GameStatus string

const GameStarted GameStatus = "started"

// MaxSlots bounds concurrent racers, one per available input key.
const MaxSlots = 30

// GamePhase is the current race state of a session. A nil GamePhase on the
// session means no game is configured.
type GamePhase struct {
	Type   GameType   `json:"type" bson:"type"`
	Status GameStatus `json:"status" bson:"status"`
}

// Broadcast is the latest coordinator announcement.
type Broadcast struct {
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Result is a terminal race outcome. Once written for a (participant, game
// type) pair it is never overwritten for the remainder of the session.
type Result struct {
	Time     float64 `json:"time" bson:"time"`         // seconds
	Distance float64 `json:"distance" bson:"distance"` // meters
}

// Speed derives meters per second for display. Never stored.
func (r Result) Speed() float64 {
	if r.Time == 0 {
		return 0
	}
	return r.Distance / r.Time
}

// Participant is one student joined to a session.
type Participant struct {
	ID          string              `json:"id" bson:"id"`
	Name        string              `json:"name" bson:"name"`
	Position    *int                `json:"position" bson:"position"` // track slot in [0, MaxSlots), nil if unset
	ConnectedAt time.Time           `json:"connectedAt" bson:"connectedAt"`
	LastUpdate  time.Time           `json:"lastUpdate" bson:"lastUpdate"`
	Results     map[GameType]Result `json:"results,omitempty" bson:"results,omitempty"`
}

// HasResult reports whether a terminal result exists for the game type.
func (p *Participant) HasResult(game GameType) bool {
	_, ok := p.Results[game]
	return ok
}

// Session is the shared aggregate identifying one exercise instance. Insertion
// order of Students is preserved; ranking tie-breaks depend on it.
type Session struct {
	Code       string        `json:"code" bson:"code"`
	CreatedAt  time.Time     `json:"createdAt" bson:"createdAt"`
	LastUpdate time.Time     `json:"lastUpdate" bson:"lastUpdate"`
	Students   []Participant `json:"students" bson:"students"`
	GameState  *GamePhase    `json:"gameState" bson:"gameState"`
	Broadcast  *Broadcast    `json:"broadcastMessage,omitempty" bson:"broadcastMessage,omitempty"`
}

// Participant returns the roster entry with the given id, or nil.
func (s *Session) Participant(id string) *Participant {
	for i := range s.Students {
		if s.Students[i].ID == id {
			return &s.Students[i]
		}
	}
	return nil
}
