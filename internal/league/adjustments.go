package league

import (
	"context"
	"errors"
	"strings"

	"github.com/ZJUSCT/DailyBoard/internal/database"
	"github.com/ZJUSCT/DailyBoard/internal/database/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// requireAdmin checks that userID holds admin capability in groupID.
func requireAdmin(db *gorm.DB, groupID, userID string) error {
	if _, err := database.GetGroup(db, groupID); err != nil {
		return notFound(err)
	}
	m, err := database.GetMembership(db, groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPermissionDenied
		}
		return err
	}
	if !m.IsAdmin {
		return ErrPermissionDenied
	}
	return nil
}

func (s *Service) RecordAdjustment(ctx context.Context, adminID, groupID, targetUserID string, delta int, reason string) (*models.Adjustment, error) {
	db := s.db.WithContext(ctx)
	if err := requireAdmin(db, groupID, adminID); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, ErrInvalidAdjustment
	}
	if _, err := database.GetMembership(db, groupID, targetUserID); err != nil {
		return nil, notFound(err)
	}

	adj := &models.Adjustment{
		ID:       uuid.NewString(),
		UserID:   targetUserID,
		GroupID:  groupID,
		Delta:    delta,
		Reason:   strings.TrimSpace(reason),
		IssuedBy: adminID,
	}
	if err := database.CreateAdjustment(db, adj); err != nil {
		return nil, err
	}

	zap.S().Infof("admin %s adjusted user %s in group %s by %+d (%s)", adminID, targetUserID, groupID, delta, adj.Reason)
	s.refresh(ctx, groupID)
	return adj, nil
}

func (s *Service) ListAdjustments(ctx context.Context, adminID, groupID string) ([]models.Adjustment, error) {
	db := s.db.WithContext(ctx)
	if err := requireAdmin(db, groupID, adminID); err != nil {
		return nil, err
	}
	return database.GetAdjustmentsForGroup(db, groupID)
}

// ResetGroup deletes every result and adjustment of a group, then rebuilds
// its snapshot once so readers see the empty state.
func (s *Service) ResetGroup(ctx context.Context, adminID, groupID string) error {
	db := s.db.WithContext(ctx)
	if err := requireAdmin(db, groupID, adminID); err != nil {
		return err
	}

	results, adjustments, err := database.ResetGroup(db, groupID)
	if err != nil {
		return err
	}
	zap.S().Infof("admin %s reset group %s: deleted %d results and %d adjustments", adminID, groupID, results, adjustments)
	s.refresh(ctx, groupID)
	return nil
}
