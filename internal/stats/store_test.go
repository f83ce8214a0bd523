package stats

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "stats.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func outcome(winnerID string, winnerGuesses int) RoundOutcome {
	return RoundOutcome{
		RoomID: "guild:channel",
		Participants: []Participant{
			{ID: "p1", Username: "ada", GuessCount: winnerGuesses},
			{ID: "p2", Username: "grace", GuessCount: 9},
		},
		WinnerID:         winnerID,
		WinnerGuessCount: winnerGuesses,
		ClosestRanks:     map[string]int{"p1": 1, "p2": 14},
	}
}

func TestCompleteRoundAwardsPoints(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	points, err := store.CompleteRound(ctx, outcome("p1", 4))
	require.NoError(t, err)
	assert.Equal(t, 196, points)

	winner, err := store.ForUser(ctx, "p1", "guild:channel")
	require.NoError(t, err)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, 1, winner.Streak)
	assert.Equal(t, 196, winner.Points)
	assert.Equal(t, 4, winner.BestWinGuesses)
	assert.Equal(t, 1, winner.ClosestRank)
	assert.Equal(t, 1, winner.Room.Wins)
	assert.Equal(t, 196, winner.Room.Points)

	loser, err := store.ForUser(ctx, "p2", "guild:channel")
	require.NoError(t, err)
	assert.Equal(t, 0, loser.Wins)
	assert.Equal(t, 1, loser.GamesPlayed)
	assert.Equal(t, 9, loser.TotalGuesses)
	assert.Equal(t, 14, loser.ClosestRank)
}

func TestCompleteRoundNeverAwardsNegativePoints(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	points, err := store.CompleteRound(context.Background(), outcome("p1", 250))
	require.NoError(t, err)
	assert.Equal(t, 0, points)
}

func TestStreakResetsOnLoss(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CompleteRound(ctx, outcome("p1", 3))
	require.NoError(t, err)
	_, err = store.CompleteRound(ctx, outcome("p1", 5))
	require.NoError(t, err)
	_, err = store.CompleteRound(ctx, outcome("p2", 7))
	require.NoError(t, err)

	p1, err := store.ForUser(ctx, "p1", "guild:channel")
	require.NoError(t, err)
	assert.Equal(t, 2, p1.Wins)
	assert.Equal(t, 0, p1.Streak)
	assert.Equal(t, 3, p1.BestWinGuesses)

	p2, err := store.ForUser(ctx, "p2", "guild:channel")
	require.NoError(t, err)
	assert.Equal(t, 1, p2.Streak)
}

func TestClosestRankOnlyImproves(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	first := outcome("p1", 4)
	first.ClosestRanks = map[string]int{"p1": 1, "p2": 8}
	_, err := store.CompleteRound(ctx, first)
	require.NoError(t, err)

	second := outcome("p1", 6)
	second.ClosestRanks = map[string]int{"p1": 1, "p2": 40}
	_, err = store.CompleteRound(ctx, second)
	require.NoError(t, err)

	p2, err := store.ForUser(ctx, "p2", "guild:channel")
	require.NoError(t, err)
	assert.Equal(t, 8, p2.ClosestRank)
	assert.Equal(t, 8, p2.Room.ClosestRank)
}

func TestLeaderboardOrdering(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CompleteRound(ctx, outcome("p1", 4))
	require.NoError(t, err)
	_, err = store.CompleteRound(ctx, outcome("p2", 8))
	require.NoError(t, err)
	_, err = store.CompleteRound(ctx, outcome("p2", 12))
	require.NoError(t, err)

	rows, err := store.Leaderboard(ctx, "guild:channel", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "p2", rows[0].ID)
	assert.Equal(t, 2, rows[0].Wins)
	assert.Equal(t, "p1", rows[1].ID)

	// A different room has its own board.
	rows, err = store.Leaderboard(ctx, "elsewhere", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestForUserUnknown(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.ForUser(context.Background(), "ghost", "guild:channel")
	assert.ErrorIs(t, err, ErrUnknownUser)
}
