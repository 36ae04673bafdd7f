package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Server -> Client
	TypeStandingsSnapshot = "standings_snapshot"
	TypeStandingsUpdate   = "standings_update"
	TypeTournamentFinish  = "tournament_finish"
	TypeError             = "error"
	TypePong              = "pong"

	// Client -> Server
	TypePing = "ping"
)

// Message wraps all WebSocket payloads with a type tag.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StandingEntry is one ranked row of a tournament scoreboard.
type StandingEntry struct {
	Place     int    `json:"place"`
	UserID    int64  `json:"user_id"`
	Score     int    `json:"score"`
	TriesLeft int    `json:"tries_left"`
	Prize     string `json:"prize,omitempty"`
}

// StandingsUpdatePayload carries the full scoreboard after any change.
type StandingsUpdatePayload struct {
	TournamentID int64           `json:"tournament_id"`
	Standings    []StandingEntry `json:"standings"`
	Finished     bool            `json:"finished"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
