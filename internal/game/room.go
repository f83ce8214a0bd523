package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/raylou15/context-clues/internal/similarity"
	"github.com/raylou15/context-clues/internal/stats"
	"github.com/raylou15/context-clues/internal/words"
)

// StatsRecorder is the slice of the stats ledger a room needs.
type StatsRecorder interface {
	CompleteRound(ctx context.Context, outcome stats.RoundOutcome) (int, error)
	ForUser(ctx context.Context, userID, roomID string) (stats.UserStats, error)
	Leaderboard(ctx context.Context, roomID string, limit int) ([]stats.LeaderboardRow, error)
}

// Settings are the room tunables. Zero values are replaced by defaults.
type Settings struct {
	RoundDelay      time.Duration // pause between a win and the next round
	HintCooldown    time.Duration // per-player wait between hints
	RoomTTL         time.Duration // idle time before a room is swept
	SweepInterval   time.Duration // how often the manager checks for idle rooms
	MaxEntries      int           // guess log cap per round
	HintMaxRank     int           // hints come from ranks [2, HintMaxRank]
	HintPoolSize    int           // candidates collected before picking one
	LeaderboardSize int
}

func DefaultSettings() Settings {
	return Settings{
		RoundDelay:      5 * time.Second,
		HintCooldown:    20 * time.Second,
		RoomTTL:         10 * time.Minute,
		SweepInterval:   time.Minute,
		MaxEntries:      200,
		HintMaxRank:     300,
		HintPoolSize:    40,
		LeaderboardSize: 10,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.RoundDelay <= 0 {
		s.RoundDelay = def.RoundDelay
	}
	if s.HintCooldown <= 0 {
		s.HintCooldown = def.HintCooldown
	}
	if s.RoomTTL <= 0 {
		s.RoomTTL = def.RoomTTL
	}
	if s.SweepInterval <= 0 {
		s.SweepInterval = def.SweepInterval
	}
	if s.MaxEntries <= 0 {
		s.MaxEntries = def.MaxEntries
	}
	if s.HintMaxRank < 2 {
		s.HintMaxRank = def.HintMaxRank
	}
	if s.HintPoolSize <= 0 {
		s.HintPoolSize = def.HintPoolSize
	}
	if s.LeaderboardSize <= 0 {
		s.LeaderboardSize = def.LeaderboardSize
	}
	return s
}

// hintUser is the synthetic player that hint entries are attributed to.
var hintUser = EntryUser{ID: "hint", Username: "Hint"}

// Room is one game session. All state behind mu; guess evaluation happens
// outside the lock with an in-flight reservation holding the guessed word's
// slot, so two players racing the same word still produce exactly one entry.
type Room struct {
	ID string

	svc      *similarity.Service
	recorder StatsRecorder
	settings Settings
	log      zerolog.Logger
	now      func() time.Time

	mu           sync.Mutex
	players      map[string]*Player
	conns        map[Conn]*Player
	roundID      int
	round        *similarity.Round
	roundWon     bool
	entries      []GuessEntry
	used         map[string]string // resolved word -> username that landed it
	inflight     map[string]string // resolved word -> username evaluating it
	totalGuesses int
	closestRanks map[string]int // player id -> best rank this round
	hintUsed     map[string]struct{}
	lastHintAt   map[string]time.Time
	roundTimer   *time.Timer
	lastActive   time.Time
	closed       bool
}

func NewRoom(id string, svc *similarity.Service, recorder StatsRecorder, settings Settings, logger zerolog.Logger) *Room {
	r := &Room{
		ID:         id,
		svc:        svc,
		recorder:   recorder,
		settings:   settings.withDefaults(),
		log:        logger.With().Str("room", id).Logger(),
		now:        time.Now,
		players:    make(map[string]*Player),
		conns:      make(map[Conn]*Player),
		lastHintAt: make(map[string]time.Time),
	}
	r.lastActive = r.now()
	r.startRoundLocked()
	return r
}

// startRoundLocked picks a fresh target and resets all per-round state.
func (r *Room) startRoundLocked() {
	r.roundID++
	r.round = r.svc.BuildRound(r.svc.PickTarget())
	r.roundWon = false
	r.entries = nil
	r.used = make(map[string]string)
	r.inflight = make(map[string]string)
	r.totalGuesses = 0
	r.closestRanks = make(map[string]int)
	r.hintUsed = make(map[string]struct{})
	for _, p := range r.players {
		p.GuessCount = 0
	}
	r.log.Info().Int("round", r.roundID).Bool("semantic", r.round.Semantic).Msg("round started")
}

// Join registers a connection under the given identity and replies with a
// full snapshot. Rejoining with a known id reattaches to the existing player.
func (r *Room) Join(conn Conn, user JoinUser) {
	id := CleanText(user.ID, 64)
	username := CleanText(user.Username, 50)
	avatar := CleanText(user.AvatarURL, 500)
	if id == "" {
		conn.Enqueue(NewErrorEvent("join requires a user id"))
		return
	}
	if username == "" {
		username = "Player"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		conn.Close()
		return
	}
	r.lastActive = r.now()

	player, ok := r.players[id]
	if !ok {
		player = newPlayer(id, username, avatar)
		r.players[id] = player
	} else {
		player.Username = username
		if avatar != "" {
			player.AvatarURL = avatar
		}
	}
	player.attach(conn)
	r.conns[conn] = player

	conn.Enqueue(SnapshotEvent{V: ProtocolVersion, T: "snapshot", State: r.snapshotLocked(player)})
	r.broadcastLocked(r.roomStateLocked())
}

// RemoveConn detaches a connection. The player stays in the roster so their
// guess count and stats survive a reconnect.
func (r *Room) RemoveConn(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.conns[conn]
	if !ok {
		return
	}
	delete(r.conns, conn)
	player.detach(conn)
	r.lastActive = r.now()
	r.broadcastLocked(r.roomStateLocked())
}

// HandleGuess evaluates one guess. The word's slot is reserved before the
// (possibly slow) evaluation and committed after, so duplicates are rejected
// even while the first submission is still in flight.
func (r *Room) HandleGuess(ctx context.Context, conn Conn, rawWord string) {
	display, canonical := words.Normalize(rawWord)

	r.mu.Lock()
	player, ok := r.conns[conn]
	if !ok {
		r.mu.Unlock()
		conn.Enqueue(NewErrorEvent("join a room before guessing"))
		return
	}
	r.lastActive = r.now()

	if canonical == "" {
		r.mu.Unlock()
		conn.Enqueue(NewErrorEvent("enter a word to guess"))
		return
	}

	key := r.svc.ResolveAlias(canonical)
	if key == "" {
		key = canonical
	}
	if by, taken := r.used[key]; taken {
		r.mu.Unlock()
		conn.Enqueue(NewErrorEvent(fmt.Sprintf("%q was already guessed by %s", display, by)))
		return
	}
	if by, racing := r.inflight[key]; racing {
		r.mu.Unlock()
		conn.Enqueue(NewErrorEvent(fmt.Sprintf("%q was already guessed by %s", display, by)))
		return
	}

	r.inflight[key] = player.Username
	round := r.round
	submittedRound := r.roundID
	r.mu.Unlock()

	result, err := round.Evaluate(ctx, rawWord)

	r.mu.Lock()
	defer r.mu.Unlock()
	// A new round resets the reservation map, so the key may now be held by a
	// fresh submission that is not ours.
	if r.roundID == submittedRound {
		delete(r.inflight, key)
	}
	if err != nil {
		conn.Enqueue(NewErrorEvent(guessErrorMessage(err)))
		return
	}

	entry := GuessEntry{
		ID:         uuid.NewString(),
		User:       player.entryUser(),
		Word:       result.ResolvedWord,
		Rank:       result.Rank,
		Similarity: result.Similarity,
		Approx:     result.Approx,
		Mode:       string(result.Mode),
		ColorBand:  result.ColorBand,
		TS:         r.now().UnixMilli(),
		canonical:  result.ResolvedWord,
	}

	// The round advanced while this guess was in flight. Its log is gone, so
	// the guesser gets their result privately and the fresh round is left
	// untouched. Guesses during the post-win pause still land on the old
	// round's log below.
	if r.roundID != submittedRound {
		conn.Enqueue(GuessResultEvent{
			V: ProtocolVersion, T: "guess_result",
			Entry:  entry,
			Totals: Totals{TotalGuesses: r.totalGuesses, YourGuesses: player.GuessCount},
		})
		return
	}
	if by, taken := r.used[entry.canonical]; taken {
		conn.Enqueue(NewErrorEvent(fmt.Sprintf("%q was already guessed by %s", entry.Word, by)))
		return
	}

	r.commitGuessLocked(player, entry, result)
}

func (r *Room) commitGuessLocked(player *Player, entry GuessEntry, result similarity.Result) {
	r.used[entry.canonical] = player.Username
	player.GuessCount++
	r.totalGuesses++
	if best, ok := r.closestRanks[player.ID]; !ok || entry.Rank < best {
		r.closestRanks[player.ID] = entry.Rank
	}
	r.appendEntryLocked(entry)

	var slow []Conn
	for conn, p := range r.conns {
		ok := conn.Enqueue(GuessResultEvent{
			V: ProtocolVersion, T: "guess_result",
			Entry:  entry,
			Totals: Totals{TotalGuesses: r.totalGuesses, YourGuesses: p.GuessCount},
		})
		if !ok {
			slow = append(slow, conn)
		}
	}
	r.dropSlowLocked(slow)

	if result.Rank == 1 && !r.roundWon {
		r.finishRoundLocked(player)
	}
}

func (r *Room) appendEntryLocked(entry GuessEntry) {
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.settings.MaxEntries {
		r.entries = r.entries[len(r.entries)-r.settings.MaxEntries:]
	}
}

// finishRoundLocked marks the round won, records the outcome, and schedules
// the next round. The ledger write happens off the lock; if it fails the
// winner still gets locally computed points.
func (r *Room) finishRoundLocked(winner *Player) {
	r.roundWon = true
	if r.roundTimer != nil {
		r.roundTimer.Stop()
	}

	outcome := stats.RoundOutcome{
		RoomID:           r.ID,
		WinnerID:         winner.ID,
		WinnerGuessCount: winner.GuessCount,
		ClosestRanks:     make(map[string]int, len(r.closestRanks)),
	}
	for id, rank := range r.closestRanks {
		outcome.ClosestRanks[id] = rank
	}
	for _, p := range r.players {
		if p.GuessCount > 0 {
			outcome.Participants = append(outcome.Participants, stats.Participant{
				ID: p.ID, Username: p.Username, AvatarURL: p.AvatarURL, GuessCount: p.GuessCount,
			})
		}
	}

	winnerUser := winner.entryUser()
	target := r.round.Target
	wonRound := r.roundID
	delay := r.settings.RoundDelay

	go func() {
		points := 200 - outcome.WinnerGuessCount
		if points < 0 {
			points = 0
		}
		if r.recorder != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if recorded, err := r.recorder.CompleteRound(ctx, outcome); err != nil {
				r.log.Error().Err(err).Msg("recording round outcome failed")
			} else {
				points = recorded
			}
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || r.roundID != wonRound {
			return
		}
		r.broadcastLocked(RoundWonEvent{
			V: ProtocolVersion, T: "round_won",
			Winner:        winnerUser,
			Word:          target,
			Points:        points,
			NextRoundInMs: delay.Milliseconds(),
		})
		r.roundTimer = time.AfterFunc(delay, func() { r.advanceRound(wonRound) })
	}()
}

func (r *Room) advanceRound(prevRoundID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.roundID != prevRoundID {
		return
	}
	r.startRoundLocked()
	r.broadcastLocked(NewRoundEvent{V: ProtocolVersion, T: "new_round", RoundID: r.roundID})
	r.broadcastLocked(r.roomStateLocked())
}

// HandleHint hands out one target-adjacent word, attributed to the synthetic
// hint player. One hint per player per round, with a cooldown between hints,
// and the revealed word counts as guessed.
func (r *Room) HandleHint(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.conns[conn]
	if !ok {
		conn.Enqueue(NewErrorEvent("join a room before requesting a hint"))
		return
	}
	r.lastActive = r.now()

	if r.roundWon {
		conn.Enqueue(NewErrorEvent("the round is already over"))
		return
	}
	if _, usedHint := r.hintUsed[player.ID]; usedHint {
		conn.Enqueue(NewErrorEvent("you already used your hint this round"))
		return
	}
	if last, ok := r.lastHintAt[player.ID]; ok {
		if wait := r.settings.HintCooldown - r.now().Sub(last); wait > 0 {
			conn.Enqueue(NewErrorEvent(fmt.Sprintf("hint available in %ds", int(wait.Seconds())+1)))
			return
		}
	}

	// Candidates come out of the rank table as surface forms, but uniqueness
	// is keyed on the alias representative, the same key guesses commit under.
	// Inflections of the target rank below 1 yet would spoil the round, so
	// they are skipped too.
	exclude := func(word string) bool {
		key := r.hintKey(word)
		if key == r.round.Target {
			return true
		}
		if _, taken := r.used[key]; taken {
			return true
		}
		_, racing := r.inflight[key]
		return racing
	}
	candidates := r.round.HintCandidates(r.settings.HintMaxRank, r.settings.HintPoolSize, exclude)
	if len(candidates) == 0 {
		conn.Enqueue(NewErrorEvent("no hint available right now"))
		return
	}

	word := candidates[rand.Intn(len(candidates))]
	key := r.hintKey(word)
	rank, sim := r.round.ScoreLocal(word)
	entry := GuessEntry{
		ID:         uuid.NewString(),
		User:       hintUser,
		Word:       word,
		Rank:       rank,
		Similarity: sim,
		Approx:     !r.round.Semantic && rank > 1,
		Mode:       string(similarity.ModeHint),
		ColorBand:  similarity.ColorBandForRank(rank),
		TS:         r.now().UnixMilli(),
		canonical:  key,
	}

	r.used[key] = hintUser.Username
	r.hintUsed[player.ID] = struct{}{}
	r.lastHintAt[player.ID] = r.now()
	r.appendEntryLocked(entry)

	r.broadcastLocked(HintResponseEvent{V: ProtocolVersion, T: "hint_response", Entry: entry})
}

// hintKey maps a rank-table surface form to its uniqueness key.
func (r *Room) hintKey(word string) string {
	if key := r.svc.ResolveAlias(word); key != "" {
		return key
	}
	return word
}

// HandleStats replies with the requester's ledger entry and the room
// leaderboard. Players the ledger has never seen get a zeroed sheet.
func (r *Room) HandleStats(ctx context.Context, conn Conn) {
	r.mu.Lock()
	player, ok := r.conns[conn]
	if !ok {
		r.mu.Unlock()
		conn.Enqueue(NewErrorEvent("join a room before requesting stats"))
		return
	}
	r.lastActive = r.now()
	userID, username, avatar := player.ID, player.Username, player.AvatarURL
	r.mu.Unlock()

	if r.recorder == nil {
		conn.Enqueue(NewErrorEvent("stats are not enabled"))
		return
	}

	userStats, err := r.recorder.ForUser(ctx, userID, r.ID)
	if errors.Is(err, stats.ErrUnknownUser) {
		userStats = stats.UserStats{ID: userID, Username: username, AvatarURL: avatar}
	} else if err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("stats lookup failed")
		conn.Enqueue(NewErrorEvent("stats are unavailable right now"))
		return
	}

	board, err := r.recorder.Leaderboard(ctx, r.ID, r.settings.LeaderboardSize)
	if err != nil {
		r.log.Error().Err(err).Msg("leaderboard lookup failed")
		board = nil
	}

	conn.Enqueue(StatsResultEvent{V: ProtocolVersion, T: "stats_result", Stats: userStats, Leaderboard: board})
}

// snapshotLocked renders the room as one player sees it: shared guess log and
// roster, but their own per-round guess count.
func (r *Room) snapshotLocked(viewer *Player) SnapshotState {
	yours := 0
	if viewer != nil {
		yours = viewer.GuessCount
	}

	guesses := make([]GuessEntry, len(r.entries))
	copy(guesses, r.entries)
	// Best guesses first; among equal ranks the newest wins.
	sort.SliceStable(guesses, func(i, j int) bool {
		if guesses[i].Rank != guesses[j].Rank {
			return guesses[i].Rank < guesses[j].Rank
		}
		return guesses[i].TS > guesses[j].TS
	})

	return SnapshotState{
		RoomID:          r.ID,
		RoundID:         r.roundID,
		SemanticEnabled: r.round.Semantic,
		Players:         r.rosterLocked(),
		Guesses:         guesses,
		Totals:          Totals{TotalGuesses: r.totalGuesses, YourGuesses: yours},
	}
}

func (r *Room) roomStateLocked() RoomStateEvent {
	return RoomStateEvent{
		V: ProtocolVersion, T: "room_state",
		RoundID: r.roundID,
		Players: r.rosterLocked(),
	}
}

func (r *Room) rosterLocked() []PlayerInfo {
	roster := make([]PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		roster = append(roster, p.info())
	}
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].Username != roster[j].Username {
			return roster[i].Username < roster[j].Username
		}
		return roster[i].ID < roster[j].ID
	})
	return roster
}

// broadcastLocked fans an event out to every connection, dropping peers whose
// send queue is full.
func (r *Room) broadcastLocked(event any) {
	var slow []Conn
	for conn := range r.conns {
		if !conn.Enqueue(event) {
			slow = append(slow, conn)
		}
	}
	r.dropSlowLocked(slow)
}

func (r *Room) dropSlowLocked(slow []Conn) {
	for _, conn := range slow {
		player := r.conns[conn]
		delete(r.conns, conn)
		if player != nil {
			player.detach(conn)
		}
		conn.Close()
		r.log.Warn().Msg("dropped slow consumer")
	}
}

// ConnCount reports live connections.
func (r *Room) ConnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// ShouldExpire reports whether the room has sat idle with no connections for
// longer than its TTL.
func (r *Room) ShouldExpire(at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns) == 0 && at.Sub(r.lastActive) > r.settings.RoomTTL
}

// Close stops the round timer and closes every connection. The room must not
// be used afterwards.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.roundTimer != nil {
		r.roundTimer.Stop()
	}
	for conn := range r.conns {
		conn.Close()
	}
	r.conns = make(map[Conn]*Player)
}

func guessErrorMessage(err error) string {
	var unknown similarity.UnknownWordError
	switch {
	case errors.Is(err, similarity.ErrEmptyGuess):
		return "enter a word to guess"
	case errors.As(err, &unknown):
		return fmt.Sprintf("%q isn't in the word list", unknown.Word)
	default:
		return "could not evaluate that guess"
	}
}
