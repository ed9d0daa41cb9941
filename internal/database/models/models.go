package models

import (
	"time"

	"gorm.io/gorm"
)

// PersonalScope marks results played outside any group.
const PersonalScope = "personal"

type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Username string `gorm:"uniqueIndex" json:"username"`
	Nickname string `json:"nickname"`
}

type Group struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name string `json:"name"`
}

type Membership struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	GroupID  string    `gorm:"uniqueIndex:idx_group_user" json:"group_id"`
	UserID   string    `gorm:"uniqueIndex:idx_group_user" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID" json:"user"`
	JoinedAt time.Time `json:"joined_at"`
	IsAdmin  bool      `json:"is_admin"`
}

// Result is one user's finished game for a competition day. Scope and Slot
// carry the uniqueness rule: (user, group, day key) for grouped plays and
// (user, raw local date) for personal plays.
type Result struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time

	UserID  string  `gorm:"index;uniqueIndex:idx_result_once" json:"user_id"`
	GroupID *string `gorm:"index" json:"group_id"`
	Scope   string  `gorm:"uniqueIndex:idx_result_once" json:"-"`
	Slot    string  `gorm:"uniqueIndex:idx_result_once" json:"-"`

	DayKey                string    `gorm:"index" json:"day_key"`
	DayKeyPolicy          string    `json:"day_key_policy"`
	GuessCount            int       `json:"guess_count"`
	Solved                bool      `json:"solved"`
	SubmittedAt           time.Time `json:"submitted_at"`
	RawLocalDate          string    `json:"raw_local_date"`
	TimezoneOffsetMinutes int       `json:"timezone_offset_minutes"`
}

// BeforeCreate derives the dedup columns so every insert path honours them.
func (r *Result) BeforeCreate(tx *gorm.DB) error {
	if r.GroupID == nil || *r.GroupID == "" {
		r.GroupID = nil
		r.Scope = PersonalScope
		r.Slot = r.RawLocalDate
		return nil
	}
	r.Scope = *r.GroupID
	r.Slot = r.DayKey
	return nil
}

func (r *Result) Personal() bool {
	return r.GroupID == nil
}

type Adjustment struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID   string `gorm:"index" json:"user_id"`
	GroupID  string `gorm:"index" json:"group_id"`
	Delta    int    `json:"delta"`
	Reason   string `json:"reason"`
	IssuedBy string `json:"issued_by"`
}
