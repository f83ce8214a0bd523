// Package stats keeps the durable per-player ledger: games played, wins,
// points, streaks, and per-room aggregates. Rooms report completed rounds
// here and read player summaries back out.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// ErrUnknownUser is returned when a stats lookup targets a player the ledger
// has never seen.
var ErrUnknownUser = errors.New("unknown user")

// Participant is one player's share of a completed round.
type Participant struct {
	ID         string
	Username   string
	AvatarURL  string
	GuessCount int
}

// RoundOutcome is what a room reports when a round is won.
type RoundOutcome struct {
	RoomID           string
	Participants     []Participant
	WinnerID         string
	WinnerGuessCount int
	ClosestRanks     map[string]int // participant id -> best (lowest) rank this round
}

// UserStats is the ledger's view of one player, overall and scoped to the
// room that asked.
type UserStats struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	AvatarURL      string    `json:"avatarUrl,omitempty"`
	GamesPlayed    int       `json:"gamesPlayed"`
	Wins           int       `json:"wins"`
	TotalGuesses   int       `json:"totalGuesses"`
	BestWinGuesses int       `json:"bestWinGuesses,omitempty"`
	ClosestRank    int       `json:"closestRank,omitempty"`
	Points         int       `json:"points"`
	Streak         int       `json:"streak"`
	Room           RoomStats `json:"room"`
}

// RoomStats is the per-room slice of a player's ledger.
type RoomStats struct {
	GamesPlayed  int `json:"gamesPlayed"`
	Wins         int `json:"wins"`
	TotalGuesses int `json:"totalGuesses"`
	Points       int `json:"points"`
	ClosestRank  int `json:"closestRank,omitempty"`
}

// LeaderboardRow is one entry of a room leaderboard.
type LeaderboardRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	Points   int    `json:"points"`
}

// Store is a SQLite-backed ledger. Safe for concurrent use; all methods take
// a context so callers control deadlines.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id               TEXT PRIMARY KEY,
	username         TEXT NOT NULL,
	avatar_url       TEXT NOT NULL DEFAULT '',
	games_played     INTEGER NOT NULL DEFAULT 0,
	wins             INTEGER NOT NULL DEFAULT 0,
	total_guesses    INTEGER NOT NULL DEFAULT 0,
	best_win_guesses INTEGER,
	closest_rank     INTEGER,
	points           INTEGER NOT NULL DEFAULT 0,
	streak           INTEGER NOT NULL DEFAULT 0,
	last_played      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS room_stats (
	user_id       TEXT NOT NULL REFERENCES users(id),
	room_id       TEXT NOT NULL,
	games_played  INTEGER NOT NULL DEFAULT 0,
	wins          INTEGER NOT NULL DEFAULT 0,
	total_guesses INTEGER NOT NULL DEFAULT 0,
	points        INTEGER NOT NULL DEFAULT 0,
	closest_rank  INTEGER,
	PRIMARY KEY (user_id, room_id)
);
`

// Open opens (creating if missing) the ledger database with WAL journaling
// and a busy timeout, then applies the schema idempotently.
func Open(dsn string, logger zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, log: logger.With().Str("component", "stats").Logger()}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// CompleteRound records a finished round for every participant and returns
// the points awarded to the winner: max(0, 200 - winnerGuessCount).
func (s *Store) CompleteRound(ctx context.Context, outcome RoundOutcome) (int, error) {
	points := 0
	if outcome.WinnerID != "" {
		points = 200 - outcome.WinnerGuessCount
		if points < 0 {
			points = 0
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, p := range outcome.Participants {
		if err := s.recordParticipant(ctx, tx, outcome, p, points, now); err != nil {
			return 0, fmt.Errorf("record %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.log.Debug().Str("room", outcome.RoomID).Str("winner", outcome.WinnerID).Int("points", points).Msg("round recorded")
	return points, nil
}

func (s *Store) recordParticipant(ctx context.Context, tx *sql.Tx, outcome RoundOutcome, p Participant, points int, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, username, avatar_url, last_played) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, avatar_url = excluded.avatar_url`,
		p.ID, p.Username, p.AvatarURL, now,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO room_stats (user_id, room_id) VALUES (?, ?)`,
		p.ID, outcome.RoomID,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET games_played = games_played + 1, total_guesses = total_guesses + ?, last_played = ?
		WHERE id = ?`,
		p.GuessCount, now, p.ID,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE room_stats SET games_played = games_played + 1, total_guesses = total_guesses + ?
		WHERE user_id = ? AND room_id = ?`,
		p.GuessCount, p.ID, outcome.RoomID,
	); err != nil {
		return err
	}

	if closest, ok := outcome.ClosestRanks[p.ID]; ok && closest > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET closest_rank = MIN(COALESCE(closest_rank, ?), ?) WHERE id = ?`,
			closest, closest, p.ID,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE room_stats SET closest_rank = MIN(COALESCE(closest_rank, ?), ?)
			WHERE user_id = ? AND room_id = ?`,
			closest, closest, p.ID, outcome.RoomID,
		); err != nil {
			return err
		}
	}

	if p.ID == outcome.WinnerID {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET wins = wins + 1, streak = streak + 1, points = points + ?,
				best_win_guesses = MIN(COALESCE(best_win_guesses, ?), ?)
			WHERE id = ?`,
			points, outcome.WinnerGuessCount, outcome.WinnerGuessCount, p.ID,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE room_stats SET wins = wins + 1, points = points + ?
			WHERE user_id = ? AND room_id = ?`,
			points, p.ID, outcome.RoomID,
		)
		return err
	}

	_, err := tx.ExecContext(ctx, `UPDATE users SET streak = 0 WHERE id = ?`, p.ID)
	return err
}

// ForUser returns a player's ledger entry scoped to one room.
func (s *Store) ForUser(ctx context.Context, userID, roomID string) (UserStats, error) {
	var (
		out            UserStats
		bestWinGuesses sql.NullInt64
		closestRank    sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, avatar_url, games_played, wins, total_guesses,
			best_win_guesses, closest_rank, points, streak
		FROM users WHERE id = ?`, userID,
	).Scan(&out.ID, &out.Username, &out.AvatarURL, &out.GamesPlayed, &out.Wins,
		&out.TotalGuesses, &bestWinGuesses, &closestRank, &out.Points, &out.Streak)
	if errors.Is(err, sql.ErrNoRows) {
		return UserStats{}, ErrUnknownUser
	}
	if err != nil {
		return UserStats{}, err
	}
	out.BestWinGuesses = int(bestWinGuesses.Int64)
	out.ClosestRank = int(closestRank.Int64)

	var roomClosest sql.NullInt64
	err = s.db.QueryRowContext(ctx, `
		SELECT games_played, wins, total_guesses, points, closest_rank
		FROM room_stats WHERE user_id = ? AND room_id = ?`, userID, roomID,
	).Scan(&out.Room.GamesPlayed, &out.Room.Wins, &out.Room.TotalGuesses, &out.Room.Points, &roomClosest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return UserStats{}, err
	}
	out.Room.ClosestRank = int(roomClosest.Int64)

	return out, nil
}

// Leaderboard lists the room's top players by wins, then points.
func (s *Store) Leaderboard(ctx context.Context, roomID string, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, r.wins, r.points
		FROM room_stats r JOIN users u ON u.id = r.user_id
		WHERE r.room_id = ? AND (r.wins > 0 OR r.points > 0)
		ORDER BY r.wins DESC, r.points DESC, u.username ASC
		LIMIT ?`, roomID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderboardRow, 0, limit)
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.ID, &row.Username, &row.Wins, &row.Points); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
