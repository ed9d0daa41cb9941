package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ZJUSCT/DailyBoard/internal/config"
	"github.com/ZJUSCT/DailyBoard/internal/database/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Init(config.Storage{
		Driver:   "sqlite",
		Database: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, u := range []string{"alice", "bob"} {
		if err := CreateUser(db, &models.User{ID: u, Username: u}); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	if err := CreateGroup(db, &models.Group{ID: "g1", Name: "office"}); err != nil {
		t.Fatalf("create group: %v", err)
	}
	for i, u := range []string{"alice", "bob"} {
		m := &models.Membership{GroupID: "g1", UserID: u, JoinedAt: time.Unix(int64(i), 0), IsAdmin: u == "alice"}
		if err := AddMember(db, m); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
}

func strPtr(s string) *string { return &s }

func TestCreateResultUniqueness(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	first := &models.Result{ID: "r1", UserID: "alice", GroupID: strPtr("g1"), DayKey: "2024-03-10", RawLocalDate: "2024-03-10", GuessCount: 3, Solved: true}
	if err := CreateResult(db, first); err != nil {
		t.Fatalf("create result: %v", err)
	}

	dup := &models.Result{ID: "r2", UserID: "alice", GroupID: strPtr("g1"), DayKey: "2024-03-10", RawLocalDate: "2024-03-10", GuessCount: 1, Solved: true}
	err := CreateResult(db, dup)
	if !IsDuplicate(err) {
		t.Fatalf("duplicate insert error = %v, want unique violation", err)
	}

	stored, err := GetResult(db, "r1")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if stored.GuessCount != 3 {
		t.Errorf("original result changed: %+v", stored)
	}

	// Personal plays are keyed by local date and do not collide with grouped ones.
	personal := &models.Result{ID: "r3", UserID: "alice", DayKey: "2024-03-10", RawLocalDate: "2024-03-10", GuessCount: 4, Solved: true}
	if err := CreateResult(db, personal); err != nil {
		t.Fatalf("personal result: %v", err)
	}
	if !personal.Personal() || personal.Scope != models.PersonalScope {
		t.Errorf("personal result scope = %q", personal.Scope)
	}
	again := &models.Result{ID: "r4", UserID: "alice", GroupID: strPtr(""), DayKey: "2024-03-11", RawLocalDate: "2024-03-10", GuessCount: 2, Solved: true}
	if err := CreateResult(db, again); !IsDuplicate(err) {
		t.Errorf("second personal play on same local date: %v", err)
	}
}

func TestResetGroupAndLoadState(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	if err := CreateGroup(db, &models.Group{ID: "g2"}); err != nil {
		t.Fatal(err)
	}

	for i, g := range []string{"g1", "g1", "g2"} {
		r := &models.Result{ID: fmt.Sprintf("r%d", i), UserID: "bob", GroupID: strPtr(g), DayKey: fmt.Sprintf("2024-03-1%d", i), GuessCount: 4, Solved: true}
		if err := CreateResult(db, r); err != nil {
			t.Fatalf("create result: %v", err)
		}
	}
	if err := CreateAdjustment(db, &models.Adjustment{ID: "a1", UserID: "bob", GroupID: "g1", Delta: 2, IssuedBy: "alice"}); err != nil {
		t.Fatal(err)
	}

	state, err := LoadGroupState(db, "g1")
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if len(state.Results) != 2 || len(state.Adjustments) != 1 || len(state.Members) != 2 {
		t.Fatalf("state = %d results, %d adjustments, %d members", len(state.Results), len(state.Adjustments), len(state.Members))
	}
	if state.Members[0].User.Username != "alice" {
		t.Errorf("members not preloaded in join order: %+v", state.Members[0])
	}

	results, adjustments, err := ResetGroup(db, "g1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if results != 2 || adjustments != 1 {
		t.Errorf("reset deleted %d results, %d adjustments", results, adjustments)
	}

	state, err = LoadGroupState(db, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Results) != 0 || len(state.Adjustments) != 0 || len(state.Members) != 2 {
		t.Errorf("after reset: %+v", state)
	}
	other, _ := GetResultsForGroup(db, "g2")
	if len(other) != 1 {
		t.Errorf("reset touched another group: %d results left", len(other))
	}
}

func TestMembershipChanges(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	if err := AddMember(db, &models.Membership{GroupID: "g1", UserID: "bob"}); !IsDuplicate(err) {
		t.Errorf("double join: %v", err)
	}
	if err := SetMemberAdmin(db, "g1", "bob", true); err != nil {
		t.Fatal(err)
	}
	m, err := GetMembership(db, "g1", "bob")
	if err != nil || !m.IsAdmin {
		t.Fatalf("membership = %+v, %v", m, err)
	}
	if err := RemoveMember(db, "g1", "bob"); err != nil {
		t.Fatal(err)
	}
	if err := RemoveMember(db, "g1", "bob"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("second removal: %v", err)
	}
	if err := SetMemberAdmin(db, "g1", "nobody", true); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("admin toggle for non-member: %v", err)
	}
}

func TestLoadGroupStateIsolation(t *testing.T) {
	pg := postgres.New(postgres.Config{DSN: "host=localhost dbname=dailyboard"})
	opts := stateTxOptions(pg.Name())
	if len(opts) != 1 {
		t.Fatalf("postgres options = %v, want one", opts)
	}
	if opts[0].Isolation != sql.LevelRepeatableRead || !opts[0].ReadOnly {
		t.Errorf("postgres options = %+v, want read-only repeatable read", opts[0])
	}

	db := openTestDB(t)
	if opts := stateTxOptions(db.Dialector.Name()); opts != nil {
		t.Errorf("sqlite options = %+v, want driver default", opts)
	}
}
