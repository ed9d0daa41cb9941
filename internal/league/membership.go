package league

import (
	"context"
	"strings"

	"github.com/ZJUSCT/DailyBoard/internal/database"
	"github.com/ZJUSCT/DailyBoard/internal/database/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) CreateUser(ctx context.Context, username, nickname string) (*models.User, error) {
	user := &models.User{
		ID:       uuid.NewString(),
		Username: strings.TrimSpace(username),
		Nickname: nickname,
	}
	if err := database.CreateUser(s.db.WithContext(ctx), user); err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) CreateGroup(ctx context.Context, name string) (*models.Group, error) {
	group := &models.Group{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	if err := database.CreateGroup(s.db.WithContext(ctx), group); err != nil {
		return nil, err
	}
	zap.S().Infof("created group %s (%s)", group.ID, group.Name)
	return group, nil
}

// AddMember adds a user to a group. A rejoining user's earlier results and
// adjustments count again from the next refresh.
func (s *Service) AddMember(ctx context.Context, groupID, userID string, isAdmin bool) (*models.Membership, error) {
	db := s.db.WithContext(ctx)
	if _, err := database.GetGroup(db, groupID); err != nil {
		return nil, notFound(err)
	}
	if _, err := database.GetUserByID(db, userID); err != nil {
		return nil, notFound(err)
	}

	m := &models.Membership{
		GroupID:  groupID,
		UserID:   userID,
		JoinedAt: s.now().UTC(),
		IsAdmin:  isAdmin,
	}
	if err := database.AddMember(db, m); err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}
	zap.S().Infof("user %s joined group %s (admin=%v)", userID, groupID, isAdmin)
	s.refresh(ctx, groupID)
	return m, nil
}

// RemoveMember drops a user from the leaderboard. Their stored results and
// adjustments are kept.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID string) error {
	if err := database.RemoveMember(s.db.WithContext(ctx), groupID, userID); err != nil {
		return notFound(err)
	}
	zap.S().Infof("user %s left group %s", userID, groupID)
	s.refresh(ctx, groupID)
	return nil
}

func (s *Service) SetMemberAdmin(ctx context.Context, groupID, userID string, isAdmin bool) error {
	if err := database.SetMemberAdmin(s.db.WithContext(ctx), groupID, userID, isAdmin); err != nil {
		return notFound(err)
	}
	zap.S().Infof("user %s admin capability in group %s set to %v", userID, groupID, isAdmin)
	return nil
}

func (s *Service) Members(ctx context.Context, groupID string) ([]models.Membership, error) {
	db := s.db.WithContext(ctx)
	if _, err := database.GetGroup(db, groupID); err != nil {
		return nil, notFound(err)
	}
	return database.GetMembers(db, groupID)
}

func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return database.GetAllUsers(s.db.WithContext(ctx))
}

func (s *Service) User(ctx context.Context, userID string) (*models.User, error) {
	user, err := database.GetUserByID(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *Service) Groups(ctx context.Context) ([]models.Group, error) {
	return database.GetAllGroups(s.db.WithContext(ctx))
}
