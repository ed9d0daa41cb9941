package leaderboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ZJUSCT/DailyBoard/internal/scoring"
)

// GroupState is the raw scoring input of one group at one point in time.
type GroupState struct {
	Plays       []scoring.Play
	Corrections []scoring.Correction
	Members     []scoring.Member
}

// Source loads the current stored state of a group.
type Source interface {
	LoadGroupState(ctx context.Context, groupID string) (*GroupState, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, groupID string) (*GroupState, error)

func (f SourceFunc) LoadGroupState(ctx context.Context, groupID string) (*GroupState, error) {
	return f(ctx, groupID)
}

// Snapshot is a complete, immutable ranking of one group.
type Snapshot struct {
	GroupID     string                     `json:"group_id"`
	Generation  uint64                     `json:"generation"`
	ComputedAt  time.Time                  `json:"computed_at"`
	Policy      scoring.Policy             `json:"policy"`
	Hash        string                     `json:"hash"`
	Stale       bool                       `json:"stale"`
	PendingDays []string                   `json:"pending_days"`
	Entries     []scoring.LeaderboardEntry `json:"entries"`
	Days        []scoring.DayWinnerSet     `json:"-"`
}

// withStale returns a shallow copy flagged stale. The stored snapshot is
// shared between readers and is never mutated.
func (s *Snapshot) withStale(stale bool) *Snapshot {
	if s == nil || s.Stale == stale {
		return s
	}
	cp := *s
	cp.Stale = stale
	return &cp
}

// Compute is the full, deterministic recompute of a group's ranking.
// Days that are still pending under the resolver's policy are left out of
// winner selection entirely.
func Compute(groupID string, state *GroupState, resolver scoring.Resolver, now time.Time) *Snapshot {
	final := make([]scoring.Play, 0, len(state.Plays))
	pending := make(map[string]struct{})
	for _, p := range state.Plays {
		if resolver.Final(p.DayKey, now) {
			final = append(final, p)
		} else {
			pending[p.DayKey] = struct{}{}
		}
	}

	days := scoring.SelectWinners(final)
	entries := scoring.Aggregate(days, state.Corrections, state.Members)

	pendingDays := make([]string, 0, len(pending))
	for d := range pending {
		pendingDays = append(pendingDays, d)
	}
	sort.Strings(pendingDays)

	return &Snapshot{
		GroupID:     groupID,
		ComputedAt:  now,
		Policy:      resolver.Policy(),
		Hash:        hashEntries(entries, pendingDays),
		PendingDays: pendingDays,
		Entries:     entries,
		Days:        days,
	}
}

func hashEntries(entries []scoring.LeaderboardEntry, pendingDays []string) string {
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s:%s:%d:%d:%d:%d;", e.UserID, e.Username, e.Rank, e.TotalScore, e.GamesWon, e.AdjustmentTotal)
	}
	sb.WriteString("|")
	sb.WriteString(strings.Join(pendingDays, ","))
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
