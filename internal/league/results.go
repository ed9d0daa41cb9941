package league

import (
	"context"
	"fmt"

	"github.com/ZJUSCT/DailyBoard/internal/database"
	"github.com/ZJUSCT/DailyBoard/internal/database/models"
	"github.com/ZJUSCT/DailyBoard/internal/scoring"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxGuesses = 6

// SubmitRequest is a finished game reported by the game client.
// A nil or empty GroupID is a personal play that is never ranked.
type SubmitRequest struct {
	UserID     string
	GroupID    *string
	GuessCount int
	Solved     bool
	DayKey     scoring.DayKeyInputs
}

func (s *Service) SubmitResult(ctx context.Context, req SubmitRequest) (*models.Result, error) {
	if req.GuessCount < 1 || req.GuessCount > maxGuesses {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidGuessCount, req.GuessCount)
	}

	db := s.db.WithContext(ctx)
	if _, err := database.GetUserByID(db, req.UserID); err != nil {
		return nil, notFound(err)
	}

	var groupID *string
	if req.GroupID != nil && *req.GroupID != "" {
		id := *req.GroupID
		groupID = &id
		if _, err := database.GetGroup(db, id); err != nil {
			return nil, notFound(err)
		}
		if _, err := database.GetMembership(db, id, req.UserID); err != nil {
			return nil, notFound(err)
		}
	}

	in := req.DayKey
	if in.SubmittedAt.IsZero() {
		in.SubmittedAt = s.now()
	}
	localDate, err := in.LocalDate()
	if err != nil {
		return nil, err
	}
	in.RawLocalDate = localDate
	dayKey, err := s.resolver.DayKey(in)
	if err != nil {
		return nil, err
	}

	result := &models.Result{
		ID:                    uuid.NewString(),
		UserID:                req.UserID,
		GroupID:               groupID,
		DayKey:                dayKey,
		DayKeyPolicy:          string(s.resolver.Policy()),
		GuessCount:            req.GuessCount,
		Solved:                req.Solved,
		SubmittedAt:           in.SubmittedAt.UTC(),
		RawLocalDate:          localDate,
		TimezoneOffsetMinutes: in.TimezoneOffsetMinutes,
	}
	if err := database.CreateResult(db, result); err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrDuplicateSubmission
		}
		return nil, err
	}

	if groupID == nil {
		zap.S().Infof("user %s recorded personal result for %s", req.UserID, localDate)
		return result, nil
	}

	zap.S().Infof("user %s submitted result for group %s day %s (solved=%v, guesses=%d)", req.UserID, *groupID, dayKey, req.Solved, req.GuessCount)
	s.refresh(ctx, *groupID)
	return result, nil
}

func (s *Service) UserResults(ctx context.Context, userID string) ([]models.Result, error) {
	return database.GetResultsForUser(s.db.WithContext(ctx), userID)
}
