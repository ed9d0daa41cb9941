package league

import (
	"context"
	"errors"
	"time"

	"github.com/ZJUSCT/DailyBoard/internal/config"
	"github.com/ZJUSCT/DailyBoard/internal/database"
	"github.com/ZJUSCT/DailyBoard/internal/leaderboard"
	"github.com/ZJUSCT/DailyBoard/internal/scoring"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	Resolver       scoring.Resolver
	Mode           leaderboard.Mode
	RefreshTimeout time.Duration
	Concurrency    int
	Now            func() time.Time
}

// Service implements result submission, admin corrections and leaderboard
// reads on top of the stores and the refresh controller.
type Service struct {
	db       *gorm.DB
	resolver scoring.Resolver
	now      func() time.Time
	boards   *leaderboard.Controller
}

func NewService(db *gorm.DB, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Service{
		db:       db,
		resolver: opts.Resolver,
		now:      opts.Now,
	}
	s.boards = leaderboard.NewController(s, leaderboard.Options{
		Mode:        opts.Mode,
		Resolver:    opts.Resolver,
		Timeout:     opts.RefreshTimeout,
		Concurrency: opts.Concurrency,
		Now:         opts.Now,
	})
	return s
}

func NewServiceFromConfig(db *gorm.DB, cfg *config.Config) (*Service, error) {
	policy, err := scoring.ParsePolicy(cfg.Scoring.DayKeyPolicy)
	if err != nil {
		return nil, err
	}
	resolver, err := scoring.NewResolver(policy)
	if err != nil {
		return nil, err
	}
	mode, err := leaderboard.ParseMode(cfg.Refresh.Mode)
	if err != nil {
		return nil, err
	}
	return NewService(db, Options{
		Resolver:       resolver,
		Mode:           mode,
		RefreshTimeout: cfg.Refresh.Timeout(),
		Concurrency:    cfg.Refresh.Concurrency,
	}), nil
}

func (s *Service) Boards() *leaderboard.Controller {
	return s.boards
}

func (s *Service) Resolver() scoring.Resolver {
	return s.resolver
}

// LoadGroupState implements leaderboard.Source.
func (s *Service) LoadGroupState(ctx context.Context, groupID string) (*leaderboard.GroupState, error) {
	raw, err := database.LoadGroupState(s.db.WithContext(ctx), groupID)
	if err != nil {
		return nil, err
	}

	state := &leaderboard.GroupState{
		Plays:       make([]scoring.Play, 0, len(raw.Results)),
		Corrections: make([]scoring.Correction, 0, len(raw.Adjustments)),
		Members:     make([]scoring.Member, 0, len(raw.Members)),
	}
	for _, r := range raw.Results {
		state.Plays = append(state.Plays, scoring.Play{
			UserID:     r.UserID,
			DayKey:     r.DayKey,
			GuessCount: r.GuessCount,
			Solved:     r.Solved,
		})
	}
	for _, a := range raw.Adjustments {
		state.Corrections = append(state.Corrections, scoring.Correction{UserID: a.UserID, Delta: a.Delta})
	}
	for _, m := range raw.Members {
		state.Members = append(state.Members, scoring.Member{
			UserID:   m.UserID,
			Username: m.User.Username,
			Nickname: m.User.Nickname,
		})
	}
	return state, nil
}

// refresh runs after every mutating event. Failures are logged and show up
// only as staleness; the controller retries on the next trigger.
func (s *Service) refresh(ctx context.Context, groupID string) {
	if err := s.boards.Refresh(ctx, groupID); err != nil {
		zap.S().Warnf("leaderboard of group %s not refreshed: %v", groupID, err)
	}
}

// WarmUp builds snapshots of every group.
func (s *Service) WarmUp(ctx context.Context) error {
	ids, err := database.GetAllGroupIDs(s.db.WithContext(ctx))
	if err != nil {
		return err
	}
	return s.boards.RefreshAll(ctx, ids)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnknownGroupOrUser
	}
	return err
}
