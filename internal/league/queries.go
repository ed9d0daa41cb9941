package league

import (
	"context"

	"github.com/ZJUSCT/DailyBoard/internal/database"
	"github.com/ZJUSCT/DailyBoard/internal/leaderboard"
	"github.com/ZJUSCT/DailyBoard/internal/scoring"
)

// GetLeaderboard returns the ranked snapshot of a group. Refresh problems
// never surface here unless the group has no snapshot at all.
func (s *Service) GetLeaderboard(ctx context.Context, groupID string) (*leaderboard.Snapshot, error) {
	if _, err := database.GetGroup(s.db.WithContext(ctx), groupID); err != nil {
		return nil, notFound(err)
	}
	return s.boards.Leaderboard(ctx, groupID)
}

// GetDayHistory returns the winner sets of every finalized day, newest first.
func (s *Service) GetDayHistory(ctx context.Context, groupID string) ([]scoring.DayWinnerSet, error) {
	snap, err := s.GetLeaderboard(ctx, groupID)
	if err != nil {
		return nil, err
	}
	days := make([]scoring.DayWinnerSet, 0, len(snap.Days))
	for i := len(snap.Days) - 1; i >= 0; i-- {
		days = append(days, snap.Days[i])
	}
	return days, nil
}

// GetPendingStatus reports whether a day is still hidden from readers.
func (s *Service) GetPendingStatus(dayKey string) (scoring.DayStatus, error) {
	return s.resolver.Status(dayKey, s.now())
}

// ForceRefresh rebuilds a group's snapshot on operator request and reports
// the error instead of absorbing it.
func (s *Service) ForceRefresh(ctx context.Context, groupID string) error {
	if _, err := database.GetGroup(s.db.WithContext(ctx), groupID); err != nil {
		return notFound(err)
	}
	return s.boards.Refresh(ctx, groupID)
}

func (s *Service) RefreshStatus() []leaderboard.BoardStatus {
	return s.boards.Status()
}
