package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/jacoblam121/tournament-arc/rankings"
	"github.com/jacoblam121/tournament-arc/repositories"
	"github.com/jacoblam121/tournament-arc/scoring"
)

// In-memory repositories mirroring the postgres error contracts, so the
// service logic runs against the same sentinels it sees in production.
// Most test flows are single-goroutine; the confirmation repo guards
// its compare-and-swap with a mutex so the race can also be driven by
// concurrent goroutines.

type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(tx repositories.SQLExecutor) error) error {
	return fn(nil)
}

type memMatchRepo struct {
	nextID  int
	matches map[int]*models.Match
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{matches: make(map[int]*models.Match)}
}

func (r *memMatchRepo) Create(ctx context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	if match.ChallengeID != nil {
		for _, m := range r.matches {
			if m.ChallengeID != nil && *m.ChallengeID == *match.ChallengeID {
				return repositories.ErrChallengeBridged
			}
		}
	}
	r.nextID++
	match.ID = r.nextID
	match.CreatedAt = time.Now()
	stored := *match
	r.matches[match.ID] = &stored
	return nil
}

func (r *memMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copy := *m
	return &copy, nil
}

func (r *memMatchRepo) GetByChallengeID(ctx context.Context, challengeID int64) (*models.Match, error) {
	for _, m := range r.matches {
		if m.ChallengeID != nil && *m.ChallengeID == challengeID {
			copy := *m
			return &copy, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *memMatchRepo) UpdateStatus(ctx context.Context, _ repositories.SQLExecutor, id int, from []models.MatchStatus, to models.MatchStatus) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchWrongStatus
	}
	allowed := false
	for _, s := range from {
		if m.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return repositories.ErrMatchWrongStatus
	}
	m.Status = to
	now := time.Now()
	if to == models.MatchStatusActive && m.StartedAt == nil {
		m.StartedAt = &now
	}
	if to == models.MatchStatusCompleted {
		m.CompletedAt = &now
	}
	return nil
}

func (r *memMatchRepo) SetAdminNote(ctx context.Context, _ repositories.SQLExecutor, id int, note string) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.AdminNote = &note
	return nil
}

func (r *memMatchRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

func (r *memMatchRepo) DeleteBatchByStatus(ctx context.Context, statuses []models.MatchStatus, limit int) (int64, error) {
	var deleted int64
	for id, m := range r.matches {
		if deleted >= int64(limit) {
			break
		}
		for _, s := range statuses {
			if m.Status == s {
				delete(r.matches, id)
				deleted++
				break
			}
		}
	}
	return deleted, nil
}

type memParticipantRepo struct {
	nextID int
	rows   map[int][]*models.MatchParticipant
}

func newMemParticipantRepo() *memParticipantRepo {
	return &memParticipantRepo{rows: make(map[int][]*models.MatchParticipant)}
}

func (r *memParticipantRepo) CreateBatch(ctx context.Context, _ repositories.SQLExecutor, participants []*models.MatchParticipant) error {
	for _, p := range participants {
		r.nextID++
		p.ID = r.nextID
		stored := *p
		r.rows[p.MatchID] = append(r.rows[p.MatchID], &stored)
	}
	return nil
}

func (r *memParticipantRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchParticipant, error) {
	out := make([]*models.MatchParticipant, 0, len(r.rows[matchID]))
	for _, p := range r.rows[matchID] {
		copy := *p
		out = append(out, &copy)
	}
	return out, nil
}

func (r *memParticipantRepo) UpdateResult(ctx context.Context, _ repositories.SQLExecutor, p *models.MatchParticipant) error {
	for _, stored := range r.rows[p.MatchID] {
		if stored.PlayerID == p.PlayerID {
			*stored = *p
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

type memEventRepo struct {
	events map[int]*models.Event
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{events: make(map[int]*models.Event)}
}

func (r *memEventRepo) Create(ctx context.Context, _ repositories.SQLExecutor, event *models.Event) error {
	event.ID = len(r.events) + 1
	event.CreatedAt = time.Now()
	stored := *event
	r.events[event.ID] = &stored
	return nil
}

func (r *memEventRepo) GetByID(ctx context.Context, id int) (*models.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	copy := *e
	return &copy, nil
}

func (r *memEventRepo) ListByCluster(ctx context.Context, clusterID int) ([]*models.Event, error) {
	out := make([]*models.Event, 0)
	for _, e := range r.events {
		if e.ClusterID == clusterID {
			copy := *e
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *memEventRepo) List(ctx context.Context) ([]*models.Event, error) {
	out := make([]*models.Event, 0, len(r.events))
	for _, e := range r.events {
		copy := *e
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memEventRepo) GetForUpdate(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Event, error) {
	return r.GetByID(ctx, id)
}

func (r *memEventRepo) UpdateScoreStats(ctx context.Context, _ repositories.SQLExecutor, id int, count int64, mean, m2 float64) error {
	e, ok := r.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	e.ScoreCount, e.ScoreMean, e.ScoreM2 = count, mean, m2
	return nil
}

func (r *memEventRepo) ResetScoreStats(ctx context.Context, _ repositories.SQLExecutor, eventID *int) error {
	if eventID != nil {
		e, ok := r.events[*eventID]
		if !ok {
			return repositories.ErrEventNotFound
		}
		e.ScoreCount, e.ScoreMean, e.ScoreM2 = 0, 0, 0
		return nil
	}
	for _, e := range r.events {
		e.ScoreCount, e.ScoreMean, e.ScoreM2 = 0, 0, 0
	}
	return nil
}

type memClusterRepo struct {
	clusters map[int]*models.Cluster
}

func newMemClusterRepo() *memClusterRepo {
	return &memClusterRepo{clusters: make(map[int]*models.Cluster)}
}

func (r *memClusterRepo) Create(ctx context.Context, _ repositories.SQLExecutor, cluster *models.Cluster) error {
	cluster.ID = len(r.clusters) + 1
	cluster.CreatedAt = time.Now()
	stored := *cluster
	r.clusters[cluster.ID] = &stored
	return nil
}

func (r *memClusterRepo) GetByID(ctx context.Context, id int) (*models.Cluster, error) {
	c, ok := r.clusters[id]
	if !ok {
		return nil, repositories.ErrClusterNotFound
	}
	copy := *c
	return &copy, nil
}

func (r *memClusterRepo) List(ctx context.Context) ([]*models.Cluster, error) {
	out := make([]*models.Cluster, 0, len(r.clusters))
	for _, c := range r.clusters {
		copy := *c
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type statsKey struct{ playerID, eventID int }

type memStatsRepo struct {
	nextID int
	rows   map[statsKey]*models.PlayerEventStats
	events *memEventRepo // for cluster ids on joined reads
}

func newMemStatsRepo(events *memEventRepo) *memStatsRepo {
	return &memStatsRepo{rows: make(map[statsKey]*models.PlayerEventStats), events: events}
}

func (r *memStatsRepo) GetOrCreate(ctx context.Context, _ repositories.SQLExecutor, playerID, eventID, startingElo int) (*models.PlayerEventStats, error) {
	key := statsKey{playerID, eventID}
	if row, ok := r.rows[key]; ok {
		copy := *row
		return &copy, nil
	}
	r.nextID++
	row := &models.PlayerEventStats{
		ID:         r.nextID,
		PlayerID:   playerID,
		EventID:    eventID,
		RawElo:     startingElo,
		ScoringElo: startingElo,
		UpdatedAt:  time.Now(),
	}
	r.rows[key] = row
	copy := *row
	return &copy, nil
}

func (r *memStatsRepo) Get(ctx context.Context, _ repositories.SQLExecutor, playerID, eventID int) (*models.PlayerEventStats, error) {
	row, ok := r.rows[statsKey{playerID, eventID}]
	if !ok {
		return nil, repositories.ErrStatsNotFound
	}
	copy := *row
	return &copy, nil
}

func (r *memStatsRepo) ListByPlayer(ctx context.Context, _ repositories.SQLExecutor, playerID int) ([]*models.PlayerEventStats, error) {
	out := make([]*models.PlayerEventStats, 0)
	for _, row := range r.rows {
		if row.PlayerID != playerID {
			continue
		}
		copy := *row
		if event, ok := r.events.events[row.EventID]; ok {
			copy.ClusterID = event.ClusterID
		}
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out, nil
}

func (r *memStatsRepo) ListByEvent(ctx context.Context, _ repositories.SQLExecutor, eventID int) ([]*models.PlayerEventStats, error) {
	out := make([]*models.PlayerEventStats, 0)
	for _, row := range r.rows {
		if row.EventID == eventID {
			copy := *row
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScoringElo != out[j].ScoringElo {
			return out[i].ScoringElo > out[j].ScoringElo
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out, nil
}

func (r *memStatsRepo) ApplyMatchResult(ctx context.Context, _ repositories.SQLExecutor, playerID, eventID, rawElo, scoringElo, points, wins, losses, draws int) error {
	row, ok := r.rows[statsKey{playerID, eventID}]
	if !ok {
		return repositories.ErrStatsNotFound
	}
	row.RawElo = rawElo
	row.ScoringElo = scoringElo
	row.Points += points
	row.MatchesPlayed++
	row.Wins += wins
	row.Losses += losses
	row.Draws += draws
	return nil
}

func (r *memStatsRepo) SetElo(ctx context.Context, _ repositories.SQLExecutor, playerID, eventID, rawElo, scoringElo int) error {
	row, ok := r.rows[statsKey{playerID, eventID}]
	if !ok {
		return repositories.ErrStatsNotFound
	}
	row.RawElo = rawElo
	row.ScoringElo = scoringElo
	return nil
}

func (r *memStatsRepo) AdjustPoints(ctx context.Context, _ repositories.SQLExecutor, playerID, eventID, delta int) error {
	row, ok := r.rows[statsKey{playerID, eventID}]
	if !ok {
		return repositories.ErrStatsNotFound
	}
	row.Points += delta
	return nil
}

func (r *memStatsRepo) UpdatePersonalBest(ctx context.Context, _ repositories.SQLExecutor, playerID, eventID int, best float64, rawElo, scoringElo int) error {
	row, ok := r.rows[statsKey{playerID, eventID}]
	if !ok {
		return repositories.ErrStatsNotFound
	}
	b := best
	row.PersonalBest = &b
	row.RawElo = rawElo
	row.ScoringElo = scoringElo
	return nil
}

func (r *memStatsRepo) reset(row *models.PlayerEventStats, startingElo int) {
	row.RawElo = startingElo
	row.ScoringElo = startingElo
	row.MatchesPlayed = 0
	row.Wins, row.Losses, row.Draws = 0, 0, 0
	row.Points = 0
	row.PersonalBest = nil
}

func (r *memStatsRepo) ResetByEvent(ctx context.Context, _ repositories.SQLExecutor, eventID, startingElo int) error {
	for _, row := range r.rows {
		if row.EventID == eventID {
			r.reset(row, startingElo)
		}
	}
	return nil
}

func (r *memStatsRepo) ResetByPlayer(ctx context.Context, _ repositories.SQLExecutor, playerID int, eventID *int, startingElo int) error {
	for _, row := range r.rows {
		if row.PlayerID == playerID && (eventID == nil || row.EventID == *eventID) {
			r.reset(row, startingElo)
		}
	}
	return nil
}

func (r *memStatsRepo) ResetAll(ctx context.Context, _ repositories.SQLExecutor, startingElo int) error {
	for _, row := range r.rows {
		r.reset(row, startingElo)
	}
	return nil
}

type memPlayerRepo struct {
	nextID  int
	players map[int]*models.Player
}

func newMemPlayerRepo() *memPlayerRepo {
	return &memPlayerRepo{players: make(map[int]*models.Player)}
}

func (r *memPlayerRepo) Create(ctx context.Context, _ repositories.SQLExecutor, player *models.Player) error {
	for _, p := range r.players {
		if p.ExternalID == player.ExternalID {
			return repositories.ErrPlayerExternalIDUsed
		}
	}
	r.nextID++
	player.ID = r.nextID
	player.CreatedAt = time.Now()
	stored := *player
	r.players[player.ID] = &stored
	return nil
}

func (r *memPlayerRepo) GetByID(ctx context.Context, id int) (*models.Player, error) {
	p, ok := r.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	copy := *p
	return &copy, nil
}

func (r *memPlayerRepo) GetByExternalID(ctx context.Context, externalID string) (*models.Player, error) {
	for _, p := range r.players {
		if p.ExternalID == externalID {
			copy := *p
			return &copy, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *memPlayerRepo) ListIDs(ctx context.Context) ([]int, error) {
	ids := make([]int, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *memPlayerRepo) UpdateAggregates(ctx context.Context, _ repositories.SQLExecutor, playerID, overallRaw, overallScoring, finalScore int) error {
	p, ok := r.players[playerID]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.OverallRawElo = overallRaw
	p.OverallScoringElo = overallScoring
	p.FinalScore = finalScore
	return nil
}

func (r *memPlayerRepo) AddRecord(ctx context.Context, _ repositories.SQLExecutor, playerID, wins, losses, draws int) error {
	p, ok := r.players[playerID]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	p.Wins += wins
	p.Losses += losses
	p.Draws += draws
	return nil
}

type memHistoryRepo struct {
	nextID  int64
	entries []*models.EloHistory
	undos   map[int]*models.MatchUndo
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{undos: make(map[int]*models.MatchUndo)}
}

func (r *memHistoryRepo) Insert(ctx context.Context, _ repositories.SQLExecutor, h *models.EloHistory) error {
	r.nextID++
	h.ID = r.nextID
	h.CreatedAt = time.Now()
	stored := *h
	r.entries = append(r.entries, &stored)
	return nil
}

func (r *memHistoryRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.EloHistory, error) {
	out := make([]*models.EloHistory, 0)
	for _, h := range r.entries {
		if h.MatchID != nil && *h.MatchID == matchID {
			copy := *h
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *memHistoryRepo) ListByPlayer(ctx context.Context, playerID, limit int) ([]*models.EloHistory, error) {
	out := make([]*models.EloHistory, 0)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].PlayerID == playerID {
			copy := *r.entries[i]
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *memHistoryRepo) CreateUndo(ctx context.Context, _ repositories.SQLExecutor, undo *models.MatchUndo) error {
	if _, ok := r.undos[undo.MatchID]; ok {
		return repositories.ErrMatchAlreadyUndone
	}
	r.nextID++
	undo.ID = r.nextID
	undo.CreatedAt = time.Now()
	stored := *undo
	r.undos[undo.MatchID] = &stored
	return nil
}

func (r *memHistoryRepo) GetUndoByMatch(ctx context.Context, matchID int) (*models.MatchUndo, error) {
	undo, ok := r.undos[matchID]
	if !ok {
		return nil, repositories.ErrUndoNotFound
	}
	copy := *undo
	return &copy, nil
}

type memProposalRepo struct {
	nextID    int64
	proposals []*models.MatchResultProposal
}

func newMemProposalRepo() *memProposalRepo { return &memProposalRepo{} }

func (r *memProposalRepo) Create(ctx context.Context, _ repositories.SQLExecutor, proposal *models.MatchResultProposal) error {
	for _, p := range r.proposals {
		if p.MatchID == proposal.MatchID && p.Active {
			return repositories.ErrActiveProposalExists
		}
	}
	r.nextID++
	proposal.ID = r.nextID
	proposal.CreatedAt = time.Now()
	stored := *proposal
	r.proposals = append(r.proposals, &stored)
	return nil
}

func (r *memProposalRepo) GetActiveByMatch(ctx context.Context, matchID int) (*models.MatchResultProposal, error) {
	for _, p := range r.proposals {
		if p.MatchID == matchID && p.Active {
			copy := *p
			return &copy, nil
		}
	}
	return nil, repositories.ErrProposalNotFound
}

func (r *memProposalRepo) Deactivate(ctx context.Context, _ repositories.SQLExecutor, id int64) error {
	for _, p := range r.proposals {
		if p.ID == id {
			p.Active = false
			return nil
		}
	}
	return repositories.ErrProposalNotFound
}

func (r *memProposalRepo) DeleteByMatch(ctx context.Context, _ repositories.SQLExecutor, matchID int) error {
	kept := r.proposals[:0]
	for _, p := range r.proposals {
		if p.MatchID != matchID {
			kept = append(kept, p)
		}
	}
	r.proposals = kept
	return nil
}

func (r *memProposalRepo) ListExpiredMatchIDs(ctx context.Context, cutoff time.Time, limit int) ([]int, error) {
	out := make([]int, 0)
	for _, p := range r.proposals {
		if len(out) >= limit {
			break
		}
		if p.Active && p.ExpiresAt.Before(cutoff) {
			out = append(out, p.MatchID)
		}
	}
	return out, nil
}

type memConfirmationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.MatchConfirmation
}

func newMemConfirmationRepo() *memConfirmationRepo { return &memConfirmationRepo{} }

func (r *memConfirmationRepo) CreateBatch(ctx context.Context, _ repositories.SQLExecutor, confirmations []*models.MatchConfirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range confirmations {
		r.nextID++
		c.ID = r.nextID
		c.CreatedAt = time.Now()
		stored := *c
		r.rows = append(r.rows, &stored)
	}
	return nil
}

func (r *memConfirmationRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchConfirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.MatchConfirmation, 0)
	for _, c := range r.rows {
		if c.MatchID == matchID {
			copy := *c
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *memConfirmationRepo) UpdateStatusIfPending(ctx context.Context, _ repositories.SQLExecutor, matchID, playerID int, to models.ConfirmationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.MatchID == matchID && c.PlayerID == playerID {
			if c.Status != models.ConfirmationPending {
				return repositories.ErrConfirmationNotPending
			}
			now := time.Now()
			c.Status = to
			c.RespondedAt = &now
			return nil
		}
	}
	return repositories.ErrConfirmationNotPending
}

func (r *memConfirmationRepo) DeleteByMatch(ctx context.Context, _ repositories.SQLExecutor, matchID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, c := range r.rows {
		if c.MatchID != matchID {
			kept = append(kept, c)
		}
	}
	r.rows = kept
	return nil
}

type fakeLocker struct {
	deny map[string]bool
}

func (l *fakeLocker) TryLockScope(ctx context.Context, _ repositories.SQLExecutor, scope string) (bool, error) {
	return !l.deny[scope], nil
}

type recordedBroadcast struct {
	EventID int
	Message interface{}
}

type recNotifier struct {
	broadcasts []recordedBroadcast
}

func (n *recNotifier) BroadcastToEvent(eventID int, message interface{}) {
	n.broadcasts = append(n.broadcasts, recordedBroadcast{EventID: eventID, Message: message})
}

func (n *recNotifier) types() []string {
	out := make([]string, 0, len(n.broadcasts))
	for _, b := range n.broadcasts {
		if m, ok := b.Message.(map[string]interface{}); ok {
			if t, ok := m["type"].(string); ok {
				out = append(out, t)
			}
		}
	}
	return out
}

// testEnv wires every service over the in-memory repositories with the
// default rating parameters.
type testEnv struct {
	matches       *memMatchRepo
	participants  *memParticipantRepo
	events        *memEventRepo
	clusters      *memClusterRepo
	stats         *memStatsRepo
	players       *memPlayerRepo
	history       *memHistoryRepo
	proposals     *memProposalRepo
	confirmations *memConfirmationRepo
	locker        *fakeLocker
	notifier      *recNotifier

	ratingService       *RatingService
	matchService        *MatchService
	confirmationService *ConfirmationService
	undoService         *UndoService
	leaderboardService  *LeaderboardService
	playerService       *PlayerService
	eventService        *EventService
}

const testStartingElo = 1000

func newTestEnv() *testEnv {
	env := &testEnv{
		matches:       newMemMatchRepo(),
		participants:  newMemParticipantRepo(),
		events:        newMemEventRepo(),
		clusters:      newMemClusterRepo(),
		players:       newMemPlayerRepo(),
		history:       newMemHistoryRepo(),
		proposals:     newMemProposalRepo(),
		confirmations: newMemConfirmationRepo(),
		locker:        &fakeLocker{deny: make(map[string]bool)},
		notifier:      &recNotifier{},
	}
	env.stats = newMemStatsRepo(env.events)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := fakeTxRunner{}
	scfg := scoring.Config{
		ProvisionalK:          40,
		StandardK:             20,
		ProvisionalThreshold:  5,
		LeaderboardBasePoints: 100,
	}
	rcfg := rankings.Config{
		FloorRating:           testStartingElo,
		PrestigeWeights:       []float64{4, 2.5, 1.5},
		DefaultPrestigeWeight: 1.0,
		TierBuckets: []rankings.TierBucket{
			{Size: 10, Weight: 0.60},
			{Size: 5, Weight: 0.25},
			{Size: 5, Weight: 0.15},
		},
	}
	cache := rankings.NewCache(time.Minute, 128)

	env.ratingService = NewRatingService(runner, env.players, env.stats, env.locker, rcfg, testStartingElo, cache, logger)
	env.matchService = NewMatchService(runner, env.matches, env.participants, env.events, env.stats, env.players, env.history, env.ratingService, scfg, testStartingElo, env.notifier, logger)
	env.confirmationService = NewConfirmationService(runner, env.matches, env.participants, env.proposals, env.confirmations, env.matchService, time.Hour, logger)
	env.undoService = NewUndoService(runner, env.matches, env.participants, env.stats, env.history, env.ratingService, env.notifier, logger)
	env.leaderboardService = NewLeaderboardService(runner, env.events, env.stats, env.ratingService, env.locker, nil, testStartingElo, 3, env.notifier, logger)
	env.playerService = NewPlayerService(runner, env.players, env.stats, env.history, env.ratingService, logger)
	env.eventService = NewEventService(runner, env.clusters, env.events, logger)
	return env
}

// addEvent seeds an event directly, bypassing the event service.
func (env *testEnv) addEvent(id, clusterID int, minPlayers, maxPlayers int, formats ...string) *models.Event {
	event := &models.Event{
		ID:               id,
		ClusterID:        clusterID,
		Name:             "test event",
		SupportedFormats: formats,
		MinPlayers:       minPlayers,
		MaxPlayers:       maxPlayers,
		ScoreDirection:   models.ScoreDirectionHigh,
		CreatedAt:        time.Now(),
	}
	env.events.events[id] = event
	return event
}

// addPlayer seeds a registered player with the next free id.
func (env *testEnv) addPlayer(externalID string) *models.Player {
	player := &models.Player{ExternalID: externalID, DisplayName: externalID}
	_ = env.players.Create(context.Background(), nil, player)
	return player
}

// statsOf reads the stored stats row directly, bypassing copies.
func (env *testEnv) statsOf(playerID, eventID int) *models.PlayerEventStats {
	return env.stats.rows[statsKey{playerID, eventID}]
}
