package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/futsalhub/platform/internal/domain"
	"github.com/futsalhub/platform/internal/repository"
)

// AdminService manages the fixtures the live core runs on: teams, players,
// matches, lineups and operator assignments.
type AdminService struct {
	db          repository.DBTX
	tx          repository.Transactor
	matches     repository.MatchRepository
	teams       repository.TeamRepository
	lineups     repository.LineupRepository
	assignments repository.AssignmentRepository
	users       repository.UserRepository
	logger      *slog.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(
	db repository.DBTX,
	tx repository.Transactor,
	matches repository.MatchRepository,
	teams repository.TeamRepository,
	lineups repository.LineupRepository,
	assignments repository.AssignmentRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		db:          db,
		tx:          tx,
		matches:     matches,
		teams:       teams,
		lineups:     lineups,
		assignments: assignments,
		users:       users,
		logger:      logger,
	}
}

// CreateTeamInput holds the fields for a new team.
type CreateTeamInput struct {
	Name      string  `json:"name" validate:"required,max=100"`
	ShortName string  `json:"short_name" validate:"required,max=10"`
	LogoURL   *string `json:"logo_url,omitempty" validate:"omitempty,url"`
}

// CreatePlayerInput holds the fields for a new player.
type CreatePlayerInput struct {
	TeamID   uuid.UUID `json:"team_id" validate:"required"`
	Name     string    `json:"name" validate:"required,max=100"`
	Number   int       `json:"number" validate:"min=1,max=99"`
	Position string    `json:"position,omitempty" validate:"omitempty,oneof=goalkeeper defender winger pivot"`
}

// CreateMatchInput holds the fields for a new fixture.
type CreateMatchInput struct {
	HomeTeamID uuid.UUID `json:"home_team_id" validate:"required"`
	AwayTeamID uuid.UUID `json:"away_team_id" validate:"required"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	Venue      *string   `json:"venue,omitempty" validate:"omitempty,max=200"`
}

// LineupSlot is one player in a submitted lineup.
type LineupSlot struct {
	PlayerID  uuid.UUID `json:"player_id" validate:"required"`
	IsStarter bool      `json:"is_starter"`
}

// SetLineupInput is one team's lineup for a match.
type SetLineupInput struct {
	TeamID  uuid.UUID    `json:"team_id" validate:"required"`
	Players []LineupSlot `json:"players" validate:"required,min=1,max=20,dive"`
}

func requireAdmin(caller domain.Caller) error {
	if !caller.IsAdmin() {
		return domain.ErrForbidden("admin role required")
	}
	return nil
}

// CreateTeam inserts a team.
func (s *AdminService) CreateTeam(ctx context.Context, caller domain.Caller, in CreateTeamInput) (*domain.Team, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	t := &domain.Team{ID: uuid.New(), Name: in.Name, ShortName: in.ShortName, LogoURL: in.LogoURL, CreatedAt: time.Now()}
	if err := s.teams.Create(ctx, s.db, t); err != nil {
		return nil, domain.ErrInternal("create team", err)
	}
	return t, nil
}

// CreatePlayer inserts a player into an existing team.
func (s *AdminService) CreatePlayer(ctx context.Context, caller domain.Caller, in CreatePlayerInput) (*domain.Player, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if _, err := s.findTeam(ctx, in.TeamID); err != nil {
		return nil, err
	}
	p := &domain.Player{ID: uuid.New(), TeamID: in.TeamID, Name: in.Name, Number: in.Number, Position: in.Position}
	if err := s.teams.CreatePlayer(ctx, s.db, p); err != nil {
		return nil, domain.ErrInternal("create player", err)
	}
	return p, nil
}

// CreateMatch schedules a fixture between two existing teams.
func (s *AdminService) CreateMatch(ctx context.Context, caller domain.Caller, in CreateMatchInput) (*domain.Match, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if in.HomeTeamID == in.AwayTeamID {
		return nil, domain.ErrValidation("home and away team must differ")
	}
	for _, id := range []uuid.UUID{in.HomeTeamID, in.AwayTeamID} {
		if _, err := s.findTeam(ctx, id); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	m := &domain.Match{
		ID:            uuid.New(),
		HomeTeamID:    in.HomeTeamID,
		AwayTeamID:    in.AwayTeamID,
		Status:        domain.MatchScheduled,
		CurrentMinute: 0,
		StartTime:     in.StartTime,
		Venue:         in.Venue,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.matches.Create(ctx, s.db, m); err != nil {
		return nil, domain.ErrInternal("create match", err)
	}
	s.logger.Info("match scheduled", "match_id", m.ID, "start_time", m.StartTime)
	return m, nil
}

// SetLineup writes one team's lineup before kick-off. Starters begin on the pitch.
func (s *AdminService) SetLineup(ctx context.Context, caller domain.Caller, matchID uuid.UUID, in SetLineupInput) ([]domain.LineupEntry, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	var entries []domain.LineupEntry
	err := s.tx.WithTx(ctx, func(tx repository.DBTX) error {
		m, err := s.matches.LockForUpdate(ctx, tx, matchID)
		if err != nil {
			return domain.ErrInternal("lock match", err)
		}
		if m == nil {
			return domain.ErrNotFound("match", matchID.String())
		}
		if m.Status != domain.MatchScheduled {
			return domain.ErrConflict("lineups can only be set before kick-off")
		}
		if m.SideOf(in.TeamID) == domain.SideNone {
			return domain.ErrValidation("team is not playing in this match")
		}

		for _, slot := range in.Players {
			p, err := s.teams.FindPlayer(ctx, tx, slot.PlayerID)
			if err != nil {
				return domain.ErrInternal("find player", err)
			}
			if p == nil || p.TeamID != in.TeamID {
				return domain.ErrValidation("player " + slot.PlayerID.String() + " is not in this team")
			}
			e := domain.LineupEntry{
				MatchID:   matchID,
				TeamID:    in.TeamID,
				PlayerID:  slot.PlayerID,
				IsStarter: slot.IsStarter,
				OnPitch:   slot.IsStarter,
			}
			if err := s.lineups.Upsert(ctx, tx, &e); err != nil {
				return domain.ErrInternal("upsert lineup", err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, mapError("set lineup", err)
	}
	return entries, nil
}

// AssignOperator lets an existing user edit a match.
func (s *AdminService) AssignOperator(ctx context.Context, caller domain.Caller, matchID, userID uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.requireMatch(ctx, matchID); err != nil {
		return err
	}
	u, err := s.users.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.ErrInternal("find user", err)
	}
	if u == nil {
		return domain.ErrNotFound("user", userID.String())
	}
	if err := s.assignments.Assign(ctx, s.db, matchID, userID); err != nil {
		return domain.ErrInternal("assign operator", err)
	}
	s.logger.Info("operator assigned", "match_id", matchID, "user_id", userID, "by", caller.ID)
	return nil
}

// UnassignOperator revokes an operator's access to a match.
func (s *AdminService) UnassignOperator(ctx context.Context, caller domain.Caller, matchID, userID uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.assignments.Unassign(ctx, s.db, matchID, userID); err != nil {
		return domain.ErrInternal("unassign operator", err)
	}
	s.logger.Info("operator unassigned", "match_id", matchID, "user_id", userID, "by", caller.ID)
	return nil
}

func (s *AdminService) findTeam(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	t, err := s.teams.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, domain.ErrInternal("find team", err)
	}
	if t == nil {
		return nil, domain.ErrNotFound("team", id.String())
	}
	return t, nil
}

func (s *AdminService) requireMatch(ctx context.Context, id uuid.UUID) error {
	m, err := s.matches.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.ErrInternal("find match", err)
	}
	if m == nil {
		return domain.ErrNotFound("match", id.String())
	}
	return nil
}
