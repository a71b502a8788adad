package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/jacoblam121/tournament-arc/repositories"
	"github.com/jacoblam121/tournament-arc/scoring"
)

// clearBatchSize bounds each destructive delete so a bulk clear never
// holds row locks on the whole table at once.
const clearBatchSize = 200

// Notifier pushes live updates to spectators subscribed to an event.
// The websocket hub implements it; services treat a nil notifier as a
// no-op so they stay testable without a running hub.
type Notifier interface {
	BroadcastToEvent(eventID int, message interface{})
}

// ChallengeRef identifies an external head-to-head challenge being
// bridged into a ranked match.
type ChallengeRef struct {
	ChallengeID  int64
	EventID      int
	ChallengerID int
	OpponentID   int
}

type participantSpec struct {
	PlayerID int
	TeamID   *string
}

// MatchService owns the match lifecycle: creation, activation,
// cancellation, and the rating application that happens at completion.
type MatchService struct {
	runner          TxRunner
	matchRepo       repositories.MatchRepository
	participantRepo repositories.ParticipantRepository
	eventRepo       repositories.EventRepository
	statsRepo       repositories.StatsRepository
	playerRepo      repositories.PlayerRepository
	historyRepo     repositories.HistoryRepository
	ratings         *RatingService
	scfg            scoring.Config
	startingElo     int
	notifier        Notifier
	logger          *slog.Logger
}

func NewMatchService(
	runner TxRunner,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.ParticipantRepository,
	eventRepo repositories.EventRepository,
	statsRepo repositories.StatsRepository,
	playerRepo repositories.PlayerRepository,
	historyRepo repositories.HistoryRepository,
	ratings *RatingService,
	scfg scoring.Config,
	startingElo int,
	notifier Notifier,
	logger *slog.Logger,
) *MatchService {
	return &MatchService{
		runner:          runner,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		eventRepo:       eventRepo,
		statsRepo:       statsRepo,
		playerRepo:      playerRepo,
		historyRepo:     historyRepo,
		ratings:         ratings,
		scfg:            scfg,
		startingElo:     startingElo,
		notifier:        notifier,
		logger:          logger,
	}
}

func (s *MatchService) notifyEvent(eventID int, message interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToEvent(eventID, message)
}

// GetMatch returns a match with its participants.
func (s *MatchService) GetMatch(ctx context.Context, matchID int) (*models.Match, []*models.MatchParticipant, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	participants, err := s.participantRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	return match, participants, nil
}

// CreateMatch creates a pending match for the 1v1, free-for-all or
// leaderboard formats. Team matches carry team assignments and go
// through CreateTeamMatch instead.
func (s *MatchService) CreateMatch(ctx context.Context, eventID int, format models.MatchFormat, playerIDs []int) (*models.Match, error) {
	if format == models.FormatTeam {
		return nil, fmt.Errorf("%w: team matches need team assignments", ErrValidationFailed)
	}
	specs := make([]participantSpec, len(playerIDs))
	for i, id := range playerIDs {
		specs[i] = participantSpec{PlayerID: id}
	}
	return s.createMatch(ctx, eventID, format, nil, specs)
}

// CreateTeamMatch creates a pending team match. Keys of teams are
// opaque team labels; values are the member player ids.
func (s *MatchService) CreateTeamMatch(ctx context.Context, eventID int, teams map[string][]int) (*models.Match, error) {
	if len(teams) < 2 {
		return nil, fmt.Errorf("%w: a team match needs at least two teams", ErrPlayerCountOutOfBounds)
	}
	specs := make([]participantSpec, 0)
	for teamID, members := range teams {
		if len(members) == 0 {
			return nil, fmt.Errorf("%w: team %q has no members", ErrValidationFailed, teamID)
		}
		for _, playerID := range members {
			specs = append(specs, participantSpec{PlayerID: playerID, TeamID: strPtr(teamID)})
		}
	}
	return s.createMatch(ctx, eventID, models.FormatTeam, nil, specs)
}

// CreateMatchFromChallenge bridges an accepted external challenge into
// a 1v1 match. The bridge is idempotent on the challenge id: replays
// return the already created match instead of a duplicate.
func (s *MatchService) CreateMatchFromChallenge(ctx context.Context, ref ChallengeRef) (*models.Match, bool, error) {
	existing, err := s.matchRepo.GetByChallengeID(ctx, ref.ChallengeID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repositories.ErrMatchNotFound) {
		return nil, false, err
	}

	specs := []participantSpec{
		{PlayerID: ref.ChallengerID},
		{PlayerID: ref.OpponentID},
	}
	match, err := s.createMatch(ctx, ref.EventID, models.FormatOneVsOne, &ref.ChallengeID, specs)
	if err != nil {
		// Lost the race to a concurrent bridge of the same challenge;
		// the unique index on challenge_id guarantees a single winner.
		if errors.Is(err, repositories.ErrChallengeBridged) {
			existing, lookupErr := s.matchRepo.GetByChallengeID(ctx, ref.ChallengeID)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return match, true, nil
}

func (s *MatchService) createMatch(ctx context.Context, eventID int, format models.MatchFormat, challengeID *int64, specs []participantSpec) (*models.Match, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !event.SupportsFormat(format) {
		return nil, ErrFormatNotSupported
	}
	if err := validateParticipantCount(format, len(specs), event.MinPlayers, event.MaxPlayers); err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(specs))
	for _, spec := range specs {
		if seen[spec.PlayerID] {
			return nil, fmt.Errorf("%w: player %d", ErrDuplicateParticipant, spec.PlayerID)
		}
		seen[spec.PlayerID] = true
		if _, err := s.playerRepo.GetByID(ctx, spec.PlayerID); err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return nil, fmt.Errorf("%w: player %d", ErrNotFound, spec.PlayerID)
			}
			return nil, err
		}
	}

	match := &models.Match{
		EventID:     eventID,
		Format:      format,
		Status:      models.MatchStatusPending,
		ChallengeID: challengeID,
	}
	err = s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return err
		}
		participants := make([]*models.MatchParticipant, len(specs))
		for i, spec := range specs {
			participants[i] = &models.MatchParticipant{
				MatchID:  match.ID,
				PlayerID: spec.PlayerID,
				TeamID:   spec.TeamID,
			}
		}
		return s.participantRepo.CreateBatch(ctx, tx, participants)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match created",
		slog.Int("match_id", match.ID),
		slog.Int("event_id", eventID),
		slog.String("format", string(format)),
		slog.Int("participants", len(specs)),
	)
	s.notifyEvent(eventID, map[string]interface{}{
		"type":     "MATCH_CREATED",
		"match_id": match.ID,
		"format":   format,
	})
	return match, nil
}

func validateParticipantCount(format models.MatchFormat, count, min, max int) error {
	switch format {
	case models.FormatOneVsOne:
		if count != 2 {
			return fmt.Errorf("%w: 1v1 needs exactly two players, got %d", ErrPlayerCountOutOfBounds, count)
		}
	case models.FormatFFA:
		if count < 3 {
			return fmt.Errorf("%w: free-for-all needs at least three players, got %d", ErrPlayerCountOutOfBounds, count)
		}
	case models.FormatTeam, models.FormatLeaderboard:
		if count < 2 {
			return fmt.Errorf("%w: need at least two players, got %d", ErrPlayerCountOutOfBounds, count)
		}
	default:
		return ErrFormatNotSupported
	}
	if count < min || (max > 0 && count > max) {
		return fmt.Errorf("%w: event allows %d-%d players, got %d", ErrPlayerCountOutOfBounds, min, max, count)
	}
	return nil
}

// ActivateMatch moves a pending match into play.
func (s *MatchService) ActivateMatch(ctx context.Context, matchID int) error {
	err := s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		return s.matchRepo.UpdateStatus(ctx, tx, matchID,
			[]models.MatchStatus{models.MatchStatusPending}, models.MatchStatusActive)
	})
	return s.mapStatusErr(ctx, matchID, err)
}

// CancelMatch cancels a match that has not entered confirmation. No
// ratings are touched; cancellation is terminal.
func (s *MatchService) CancelMatch(ctx context.Context, matchID int, note string) error {
	err := s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.matchRepo.UpdateStatus(ctx, tx, matchID,
			[]models.MatchStatus{models.MatchStatusPending, models.MatchStatusActive},
			models.MatchStatusCancelled); err != nil {
			return err
		}
		if note != "" {
			return s.matchRepo.SetAdminNote(ctx, tx, matchID, note)
		}
		return nil
	})
	if err != nil {
		return s.mapStatusErr(ctx, matchID, err)
	}
	s.logger.Info("match cancelled", slog.Int("match_id", matchID))
	return nil
}

// mapStatusErr turns the repository's flat wrong-status error into the
// precise state sentinel for the match's actual status.
func (s *MatchService) mapStatusErr(ctx context.Context, matchID int, err error) error {
	if err == nil || !errors.Is(err, repositories.ErrMatchWrongStatus) {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrNotFound
		}
		return err
	}
	match, lookupErr := s.matchRepo.GetByID(ctx, matchID)
	if lookupErr != nil {
		if errors.Is(lookupErr, repositories.ErrMatchNotFound) {
			return ErrNotFound
		}
		return lookupErr
	}
	switch {
	case match.Status.IsTerminal():
		return ErrMatchTerminal
	case match.Status == models.MatchStatusAwaitingConfirmation:
		return ErrMatchNotPending
	default:
		return err
	}
}

// DeleteMatch removes a match and, through cascades, its participants,
// proposals and confirmations. Rating history rows are kept.
func (s *MatchService) DeleteMatch(ctx context.Context, matchID int) error {
	if err := s.matchRepo.Delete(ctx, matchID); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info("match deleted", slog.Int("match_id", matchID))
	return nil
}

// ClearMatches deletes every match in the given statuses in bounded
// batches and reports the total removed.
func (s *MatchService) ClearMatches(ctx context.Context, statuses []models.MatchStatus) (int64, error) {
	var total int64
	for {
		deleted, err := s.matchRepo.DeleteBatchByStatus(ctx, statuses, clearBatchSize)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted < clearBatchSize {
			break
		}
	}
	s.logger.Info("matches cleared", slog.Int64("deleted", total))
	return total, nil
}

// CompleteMatchWithResults records results directly, skipping the peer
// confirmation round. Intended for administrative entry.
func (s *MatchService) CompleteMatchWithResults(ctx context.Context, matchID int, placements map[int]int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrNotFound
		}
		return err
	}

	err = s.runner.RunInTx(ctx, func(tx repositories.SQLExecutor) error {
		if err := s.matchRepo.UpdateStatus(ctx, tx, matchID,
			[]models.MatchStatus{models.MatchStatusPending, models.MatchStatusActive},
			models.MatchStatusCompleted); err != nil {
			return err
		}
		return s.applyResults(ctx, tx, match, placements)
	})
	if err != nil {
		return s.mapStatusErr(ctx, matchID, err)
	}

	s.logger.Info("match completed directly",
		slog.Int("match_id", matchID),
		slog.Int("event_id", match.EventID),
	)
	s.notifyEvent(match.EventID, map[string]interface{}{
		"type":     "MATCH_COMPLETED",
		"match_id": matchID,
	})
	s.notifyEvent(match.EventID, map[string]interface{}{
		"type":     "RATINGS_UPDATED",
		"event_id": match.EventID,
	})
	return nil
}

// applyResults is the single place ratings change from a match. It
// dispatches to the format's strategy, clamps scoring ratings at the
// floor, snapshots before/after values on each participant, appends
// history rows and recomputes aggregates. Callers must have already
// transitioned the match to completed inside the same transaction, so
// a lost status race never double-applies.
func (s *MatchService) applyResults(ctx context.Context, tx repositories.SQLExecutor, match *models.Match, placements map[int]int) error {
	participants, err := s.participantRepo.ListByMatch(ctx, match.ID)
	if err != nil {
		return err
	}
	if err := ValidatePlacements(placements, participants, match.Format); err != nil {
		return err
	}

	event, err := s.eventRepo.GetByID(ctx, match.EventID)
	if err != nil {
		return err
	}

	inputs := make([]scoring.Participant, len(participants))
	for i, p := range participants {
		stats, err := s.statsRepo.GetOrCreate(ctx, tx, p.PlayerID, match.EventID, s.startingElo)
		if err != nil {
			return err
		}
		teamID := ""
		if p.TeamID != nil {
			teamID = *p.TeamID
		}
		inputs[i] = scoring.Participant{
			PlayerID:      p.PlayerID,
			Rating:        stats.ScoringElo,
			MatchesPlayed: stats.MatchesPlayed,
			Placement:     placements[p.PlayerID],
			TeamID:        teamID,
		}
	}

	strategy, err := scoring.ForFormat(match.Format, s.scfg)
	if err != nil {
		return err
	}
	results, err := strategy.Calculate(inputs)
	if err != nil {
		return err
	}
	resultsByPlayer := make(map[int]scoring.Result, len(results))
	for _, r := range results {
		resultsByPlayer[r.PlayerID] = r
	}

	maxPlacement, allTied := placementSpread(placements)
	ratingFormat := match.Format != models.FormatLeaderboard

	for i, p := range participants {
		result, ok := resultsByPlayer[p.PlayerID]
		if !ok {
			return fmt.Errorf("strategy returned no result for player %d", p.PlayerID)
		}
		input := inputs[i]

		before, err := s.ratings.Snapshot(ctx, tx, p.PlayerID)
		if err != nil {
			return err
		}
		clusterBefore := clusterRatingOrFloor(before, event.ClusterID, s.ratings.rcfg.FloorRating)

		// The scoring rating never drops below the floor; the raw rating
		// takes the full delta.
		oldScoring := input.Rating
		newScoring := oldScoring + result.RatingDelta
		if newScoring < s.ratings.rcfg.FloorRating {
			newScoring = s.ratings.rcfg.FloorRating
		}
		stats, err := s.statsRepo.Get(ctx, tx, p.PlayerID, match.EventID)
		if err != nil {
			return err
		}
		newRaw := stats.RawElo + result.RatingDelta

		wins, losses, draws := 0, 0, 0
		if ratingFormat {
			wins, losses, draws = outcomeRecord(placements[p.PlayerID], maxPlacement, allTied)
		}
		if err := s.statsRepo.ApplyMatchResult(ctx, tx,
			p.PlayerID, match.EventID, newRaw, newScoring, result.PointsDelta,
			wins, losses, draws); err != nil {
			return err
		}
		if wins+losses+draws > 0 {
			if err := s.playerRepo.AddRecord(ctx, tx, p.PlayerID, wins, losses, draws); err != nil {
				return err
			}
		}

		after, err := s.ratings.RecomputePlayer(ctx, tx, p.PlayerID)
		if err != nil {
			return err
		}
		clusterAfter := clusterRatingOrFloor(after, event.ClusterID, s.ratings.rcfg.FloorRating)

		p.Placement = intPtr(placements[p.PlayerID])
		p.EloBefore = intPtr(oldScoring)
		p.EloAfter = intPtr(newScoring)
		p.EloChange = intPtr(result.RatingDelta)
		p.PointsAwarded = intPtr(result.PointsDelta)
		p.ClusterEloBefore = intPtr(clusterBefore)
		p.ClusterEloAfter = intPtr(clusterAfter)
		if err := s.participantRepo.UpdateResult(ctx, tx, p); err != nil {
			return err
		}

		if ratingFormat {
			history := &models.EloHistory{
				PlayerID:   p.PlayerID,
				EventID:    intPtr(match.EventID),
				MatchID:    intPtr(match.ID),
				OpponentID: opponentOf(p.PlayerID, participants),
				OldElo:     oldScoring,
				NewElo:     newScoring,
				Change:     result.RatingDelta,
				KFactor:    result.KFactor,
			}
			if err := s.historyRepo.Insert(ctx, tx, history); err != nil {
				return err
			}
		}
	}
	return nil
}

// placementSpread returns the worst placement and whether every
// participant tied on the same placement.
func placementSpread(placements map[int]int) (int, bool) {
	max := 0
	first := 0
	allTied := true
	for _, placement := range placements {
		if first == 0 {
			first = placement
		} else if placement != first {
			allTied = false
		}
		if placement > max {
			max = placement
		}
	}
	return max, allTied
}

// outcomeRecord maps a placement to the win/loss/draw increment: first
// place wins, last place loses, a full tie is a draw for everyone, and
// mid-field finishes leave the record untouched.
func outcomeRecord(placement, maxPlacement int, allTied bool) (wins, losses, draws int) {
	switch {
	case allTied:
		return 0, 0, 1
	case placement == 1:
		return 1, 0, 0
	case placement == maxPlacement:
		return 0, 1, 0
	default:
		return 0, 0, 0
	}
}

// opponentOf returns the other player's id for two-sided matches, nil
// otherwise.
func opponentOf(playerID int, participants []*models.MatchParticipant) *int {
	if len(participants) != 2 {
		return nil
	}
	for _, p := range participants {
		if p.PlayerID != playerID {
			return intPtr(p.PlayerID)
		}
	}
	return nil
}

func clusterRatingOrFloor(snapshot *AggregateSnapshot, clusterID, floor int) int {
	if rating, ok := snapshot.ClusterScoring[clusterID]; ok {
		return rating
	}
	return floor
}
