package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/ZJUSCT/DailyBoard/internal/database/models"
	"gorm.io/gorm"
)

// User CRUD
func CreateUser(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}

func GetUserByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetAllUsers(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	if err := db.Order("username asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Group CRUD
func CreateGroup(db *gorm.DB, group *models.Group) error {
	return db.Create(group).Error
}

func GetGroup(db *gorm.DB, id string) (*models.Group, error) {
	var group models.Group
	if err := db.Where("id = ?", id).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func GetAllGroups(db *gorm.DB) ([]models.Group, error) {
	var groups []models.Group
	if err := db.Order("created_at asc").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func GetAllGroupIDs(db *gorm.DB) ([]string, error) {
	var ids []string
	if err := db.Model(&models.Group{}).Order("created_at asc").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Membership CRUD
func AddMember(db *gorm.DB, m *models.Membership) error {
	return db.Create(m).Error
}

// RemoveMember deletes the membership row only; the user's results and
// adjustments stay and count again if they rejoin.
func RemoveMember(db *gorm.DB, groupID, userID string) error {
	result := db.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.Membership{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func SetMemberAdmin(db *gorm.DB, groupID, userID string, isAdmin bool) error {
	result := db.Model(&models.Membership{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("is_admin", isAdmin)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func GetMembership(db *gorm.DB, groupID, userID string) (*models.Membership, error) {
	var m models.Membership
	if err := db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func GetMembers(db *gorm.DB, groupID string) ([]models.Membership, error) {
	var members []models.Membership
	if err := db.Preload("User").
		Where("group_id = ?", groupID).
		Order("joined_at asc").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// Result CRUD
func CreateResult(db *gorm.DB, result *models.Result) error {
	return db.Create(result).Error
}

func GetResult(db *gorm.DB, id string) (*models.Result, error) {
	var result models.Result
	if err := db.Where("id = ?", id).First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func GetResultsForGroup(db *gorm.DB, groupID string) ([]models.Result, error) {
	var results []models.Result
	if err := db.Where("group_id = ?", groupID).
		Order("day_key asc, submitted_at asc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetResultsForUser(db *gorm.DB, userID string) ([]models.Result, error) {
	var results []models.Result
	if err := db.Where("user_id = ?", userID).
		Order("submitted_at desc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Adjustment CRUD
func CreateAdjustment(db *gorm.DB, adj *models.Adjustment) error {
	return db.Create(adj).Error
}

func GetAdjustmentsForGroup(db *gorm.DB, groupID string) ([]models.Adjustment, error) {
	var adjustments []models.Adjustment
	if err := db.Where("group_id = ?", groupID).
		Order("created_at asc").
		Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// ResetGroup deletes every result and adjustment of a group in one transaction.
func ResetGroup(db *gorm.DB, groupID string) (resultsDeleted, adjustmentsDeleted int64, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("group_id = ?", groupID).Delete(&models.Result{})
		if res.Error != nil {
			return res.Error
		}
		resultsDeleted = res.RowsAffected

		adj := tx.Where("group_id = ?", groupID).Delete(&models.Adjustment{})
		if adj.Error != nil {
			return adj.Error
		}
		adjustmentsDeleted = adj.RowsAffected
		return nil
	})
	return resultsDeleted, adjustmentsDeleted, err
}

// GroupState is every stored input of a group's leaderboard, read together.
type GroupState struct {
	Results     []models.Result
	Adjustments []models.Adjustment
	Members     []models.Membership
}

// stateTxOptions returns the isolation LoadGroupState needs on a dialect.
// Postgres defaults to READ COMMITTED, where each SELECT sees its own
// snapshot, so the reads are pinned to one REPEATABLE READ snapshot there.
// A sqlite transaction already reads from a single snapshot.
func stateTxOptions(dialect string) []*sql.TxOptions {
	if dialect == "postgres" {
		return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
	}
	return nil
}

// LoadGroupState reads members, results and adjustments from one database
// snapshot so a recompute never mixes two different points in time.
func LoadGroupState(db *gorm.DB, groupID string) (*GroupState, error) {
	state := &GroupState{}
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if state.Members, err = GetMembers(tx, groupID); err != nil {
			return err
		}
		if state.Results, err = GetResultsForGroup(tx, groupID); err != nil {
			return err
		}
		state.Adjustments, err = GetAdjustmentsForGroup(tx, groupID)
		return err
	}, stateTxOptions(db.Dialector.Name())...)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// IsDuplicate reports whether err is a unique-index violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
