package game

import "github.com/raylou15/context-clues/internal/stats"

// Outbound event payloads. Every event carries the protocol version and a
// type tag, mirroring the inbound envelope.

// EntryUser identifies who produced a guess entry. Hints use the synthetic
// hint user.
type EntryUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// GuessEntry is one row of the round's guess log.
type GuessEntry struct {
	ID         string    `json:"id"`
	User       EntryUser `json:"user"`
	Word       string    `json:"word"`
	Rank       int       `json:"rank"`
	Similarity float64   `json:"similarity"`
	Approx     bool      `json:"approx"`
	Mode       string    `json:"mode"`
	ColorBand  string    `json:"colorBand"`
	TS         int64     `json:"ts"`

	canonical string // dedup key, not sent to clients
}

// Totals pairs the room-wide guess counter with the recipient's own count.
type Totals struct {
	TotalGuesses int `json:"totalGuesses"`
	YourGuesses  int `json:"yourGuesses"`
}

// PlayerInfo is the roster view of one player.
type PlayerInfo struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	GuessCount int    `json:"guessCount"`
	Connected  bool   `json:"connected"`
}

// SnapshotState is the full room state scoped to one player.
type SnapshotState struct {
	RoomID          string       `json:"roomId"`
	RoundID         int          `json:"roundId"`
	SemanticEnabled bool         `json:"semanticEnabled"`
	Players         []PlayerInfo `json:"players"`
	Guesses         []GuessEntry `json:"guesses"`
	Totals          Totals       `json:"totals"`
}

type SnapshotEvent struct {
	V     int           `json:"v"`
	T     string        `json:"t"`
	State SnapshotState `json:"state"`
}

type RoomStateEvent struct {
	V       int          `json:"v"`
	T       string       `json:"t"`
	RoundID int          `json:"roundId"`
	Players []PlayerInfo `json:"players"`
}

type GuessResultEvent struct {
	V      int        `json:"v"`
	T      string     `json:"t"`
	Entry  GuessEntry `json:"entry"`
	Totals Totals     `json:"totals"`
}

type RoundWonEvent struct {
	V             int       `json:"v"`
	T             string    `json:"t"`
	Winner        EntryUser `json:"winner"`
	Word          string    `json:"word"`
	Points        int       `json:"points"`
	NextRoundInMs int64     `json:"nextRoundInMs"`
}

type NewRoundEvent struct {
	V       int    `json:"v"`
	T       string `json:"t"`
	RoundID int    `json:"roundId"`
}

type HintResponseEvent struct {
	V     int        `json:"v"`
	T     string     `json:"t"`
	Entry GuessEntry `json:"entry"`
}

type StatsResultEvent struct {
	V           int                    `json:"v"`
	T           string                 `json:"t"`
	Stats       stats.UserStats        `json:"stats"`
	Leaderboard []stats.LeaderboardRow `json:"leaderboard"`
}

type ErrorEvent struct {
	V       int    `json:"v"`
	T       string `json:"t"`
	Message string `json:"message"`
}

// NewErrorEvent wraps a user-facing message in the error envelope.
func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{V: ProtocolVersion, T: "error", Message: message}
}
