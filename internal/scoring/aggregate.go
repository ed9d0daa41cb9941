package scoring

import "sort"

// Member is a current member of a group. Membership decides who is ranked.
type Member struct {
	UserID   string
	Username string
	Nickname string
}

// Correction is the scoring view of an admin adjustment.
type Correction struct {
	UserID string
	Delta  int
}

type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	UserID          string `json:"user_id"`
	Username        string `json:"username"`
	Nickname        string `json:"nickname"`
	TotalScore      int    `json:"total_score"`
	GamesWon        int    `json:"games_won"`
	AdjustmentTotal int    `json:"adjustment_total"`
}

// Aggregate folds day wins and adjustments into one entry per member.
// Members without activity get zeros; wins and adjustments of non-members
// are dropped. Entries are ranked by total score, ties share a rank.
func Aggregate(days []DayWinnerSet, corrections []Correction, members []Member) []LeaderboardEntry {
	entries := make(map[string]*LeaderboardEntry, len(members))
	for _, m := range members {
		if _, dup := entries[m.UserID]; dup {
			continue
		}
		entries[m.UserID] = &LeaderboardEntry{
			UserID:   m.UserID,
			Username: m.Username,
			Nickname: m.Nickname,
		}
	}

	for _, day := range days {
		for _, userID := range uniqueStrings(day.Winners) {
			if e, ok := entries[userID]; ok {
				e.GamesWon++
			}
		}
	}
	for _, c := range corrections {
		if e, ok := entries[c.UserID]; ok {
			e.AdjustmentTotal += c.Delta
		}
	}

	result := make([]LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		e.TotalScore = e.GamesWon + e.AdjustmentTotal
		result = append(result, *e)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalScore != result[j].TotalScore {
			return result[i].TotalScore > result[j].TotalScore
		}
		if result[i].Username != result[j].Username {
			return result[i].Username < result[j].Username
		}
		return result[i].UserID < result[j].UserID
	})

	for i := range result {
		if i > 0 && result[i].TotalScore == result[i-1].TotalScore {
			result[i].Rank = result[i-1].Rank
		} else {
			result[i].Rank = i + 1
		}
	}
	return result
}

func uniqueStrings(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
