package scoring

import "sort"

// Play is one grouped result as seen by the winner selector.
type Play struct {
	UserID     string
	DayKey     string
	GuessCount int
	Solved     bool
}

// DayWinnerSet holds the users tied at the minimum solved guess count for one day.
// MinGuesses is 0 and Winners is empty when nobody solved.
type DayWinnerSet struct {
	DayKey     string   `json:"day_key"`
	MinGuesses int      `json:"min_guesses"`
	Winners    []string `json:"winners"`
}

// SelectWinners groups plays by day key and picks every solved play at the
// day's minimum guess count. Unsolved plays never win and never block a win.
// The result is ordered by day key ascending; winners by user id.
func SelectWinners(plays []Play) []DayWinnerSet {
	byDay := make(map[string]*DayWinnerSet)
	seen := make(map[string]map[string]bool)

	for _, p := range plays {
		set, ok := byDay[p.DayKey]
		if !ok {
			set = &DayWinnerSet{DayKey: p.DayKey, Winners: []string{}}
			byDay[p.DayKey] = set
			seen[p.DayKey] = make(map[string]bool)
		}
		if !p.Solved {
			continue
		}
		switch {
		case set.MinGuesses == 0 || p.GuessCount < set.MinGuesses:
			set.MinGuesses = p.GuessCount
			set.Winners = []string{p.UserID}
			seen[p.DayKey] = map[string]bool{p.UserID: true}
		case p.GuessCount == set.MinGuesses && !seen[p.DayKey][p.UserID]:
			set.Winners = append(set.Winners, p.UserID)
			seen[p.DayKey][p.UserID] = true
		}
	}

	result := make([]DayWinnerSet, 0, len(byDay))
	for _, set := range byDay {
		sort.Strings(set.Winners)
		result = append(result, *set)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DayKey < result[j].DayKey
	})
	return result
}
