package leaderboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ZJUSCT/DailyBoard/internal/scoring"
)

type fakeSource struct {
	mu      sync.Mutex
	state   *GroupState
	err     error
	loads   int
	entered chan struct{}
	release chan struct{}
}

func (f *fakeSource) LoadGroupState(ctx context.Context, groupID string) (*GroupState, error) {
	f.mu.Lock()
	f.loads++
	first := f.loads == 1
	state, err := f.state, f.err
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if first && release != nil {
		entered <- struct{}{}
		<-release
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (f *fakeSource) set(state *GroupState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state, f.err = state, err
}

func (f *fakeSource) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func threeMembers() []scoring.Member {
	return []scoring.Member{
		{UserID: "A", Username: "alice"},
		{UserID: "B", Username: "bob"},
		{UserID: "C", Username: "carol"},
	}
}

func stateWithWins(winners ...string) *GroupState {
	st := &GroupState{Members: threeMembers()}
	for i, w := range winners {
		st.Plays = append(st.Plays, scoring.Play{UserID: w, DayKey: time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC).Format(scoring.DayLayout), GuessCount: 3, Solved: true})
	}
	return st
}

func entryFor(t *testing.T, snap *Snapshot, userID string) scoring.LeaderboardEntry {
	t.Helper()
	for _, e := range snap.Entries {
		if e.UserID == userID {
			return e
		}
	}
	t.Fatalf("no entry for %s in %+v", userID, snap.Entries)
	return scoring.LeaderboardEntry{}
}

func TestCachedReadServesSnapshot(t *testing.T) {
	src := &fakeSource{state: stateWithWins("A")}
	c := NewController(src, Options{Mode: ModeCached})
	ctx := context.Background()

	first, err := c.Leaderboard(ctx, "g")
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	second, err := c.Leaderboard(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	if first != second || src.loadCount() != 1 {
		t.Fatalf("cached read recomputed: loads=%d", src.loadCount())
	}
	if first.Generation != 1 || len(first.Entries) != 3 {
		t.Fatalf("snapshot = %+v", first)
	}

	src.set(stateWithWins("A", "B"), nil)
	if err := c.Refresh(ctx, "g"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	third, _ := c.Leaderboard(ctx, "g")
	if third.Generation != 2 {
		t.Errorf("generation = %d, want 2", third.Generation)
	}
	if got := entryFor(t, third, "B").GamesWon; got != 1 {
		t.Errorf("B games won = %d, want 1", got)
	}
	if got := entryFor(t, first, "B").GamesWon; got != 0 {
		t.Errorf("published snapshot mutated: B games won = %d", got)
	}
}

func TestRefreshFailureKeepsLastGoodSnapshot(t *testing.T) {
	src := &fakeSource{state: stateWithWins("A")}
	c := NewController(src, Options{})
	ctx := context.Background()

	if err := c.Refresh(ctx, "g"); err != nil {
		t.Fatal(err)
	}

	src.set(stateWithWins("A", "B"), errors.New("database is locked"))
	err := c.Refresh(ctx, "g")
	if !errors.Is(err, ErrRefreshFailure) {
		t.Fatalf("Refresh error = %v, want ErrRefreshFailure", err)
	}

	snap, err := c.Leaderboard(ctx, "g")
	if err != nil {
		t.Fatalf("read during failure: %v", err)
	}
	if !snap.Stale || snap.Generation != 1 {
		t.Errorf("snapshot = gen %d stale %v, want last good flagged stale", snap.Generation, snap.Stale)
	}
	if st := c.Status(); len(st) != 1 || !st[0].Stale || st[0].LastError == "" {
		t.Errorf("status = %+v", st)
	}

	src.set(stateWithWins("A", "B"), nil)
	if err := c.RetryStale(ctx); err != nil {
		t.Fatalf("RetryStale: %v", err)
	}
	snap, _ = c.Leaderboard(ctx, "g")
	if snap.Stale || entryFor(t, snap, "B").GamesWon != 1 {
		t.Errorf("after retry snapshot = %+v", snap)
	}
	if st := c.Status(); st[0].Stale || st[0].LastError != "" {
		t.Errorf("status after retry = %+v", st)
	}
}

func TestColdReadFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("no such table")}
	c := NewController(src, Options{})
	if _, err := c.Leaderboard(context.Background(), "g"); !errors.Is(err, ErrRefreshFailure) {
		t.Fatalf("cold read error = %v", err)
	}
}

func TestTriggersCoalesceWhileRunning(t *testing.T) {
	src := &fakeSource{
		state:   stateWithWins("A"),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewController(src, Options{})
	b := c.board("g")

	firstDone := c.enqueue(b)
	<-src.entered

	// Writes land while the first recompute is in flight.
	src.set(stateWithWins("A", "C", "C"), nil)
	var waiters []<-chan error
	for i := 0; i < 5; i++ {
		waiters = append(waiters, c.enqueue(b))
	}
	close(src.release)

	if err := <-firstDone; err != nil {
		t.Fatal(err)
	}
	for _, w := range waiters {
		if err := <-w; err != nil {
			t.Fatal(err)
		}
	}

	if got := src.loadCount(); got != 2 {
		t.Errorf("loads = %d, want 2 (one in flight, one coalesced)", got)
	}
	snap, _ := c.Leaderboard(context.Background(), "g")
	if snap.Generation != 2 || entryFor(t, snap, "C").GamesWon != 2 {
		t.Errorf("final snapshot = %+v", snap)
	}
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	src := &fakeSource{state: stateWithWins("A")}
	c := NewController(src, Options{})
	ctx := context.Background()
	if err := c.Refresh(ctx, "g"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastGen uint64
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap, err := c.Leaderboard(ctx, "g")
				if err != nil {
					t.Error(err)
					return
				}
				if len(snap.Entries) != 3 {
					t.Errorf("torn snapshot: %d entries", len(snap.Entries))
					return
				}
				sum := 0
				for _, e := range snap.Entries {
					sum += e.GamesWon
				}
				// Generation n was built from n days with one winner each.
				if sum != int(snap.Generation) {
					t.Errorf("generation %d has %d wins", snap.Generation, sum)
					return
				}
				if snap.Generation < lastGen {
					t.Errorf("generation went backwards: %d after %d", snap.Generation, lastGen)
					return
				}
				lastGen = snap.Generation
			}
		}()
	}

	winners := []string{"A"}
	for i := 0; i < 20; i++ {
		winners = append(winners, "B")
		src.set(stateWithWins(winners...), nil)
		if err := c.Refresh(ctx, "g"); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestEagerModeRecomputesEveryRead(t *testing.T) {
	src := &fakeSource{state: stateWithWins("A")}
	c := NewController(src, Options{Mode: ModeEager})
	ctx := context.Background()

	if err := c.Refresh(ctx, "g"); err != nil {
		t.Fatal(err)
	}
	if src.loadCount() != 0 {
		t.Fatal("eager refresh should not load")
	}
	c.Leaderboard(ctx, "g")
	src.set(stateWithWins("B"), nil)
	snap, err := c.Leaderboard(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	if src.loadCount() != 2 || entryFor(t, snap, "B").GamesWon != 1 {
		t.Errorf("eager read not fresh: loads=%d snap=%+v", src.loadCount(), snap.Entries)
	}

	src.set(nil, errors.New("down"))
	if _, err := c.Leaderboard(ctx, "g"); !errors.Is(err, ErrRefreshFailure) {
		t.Errorf("eager failure = %v", err)
	}
}

func TestListenersOnlySeeChanges(t *testing.T) {
	src := &fakeSource{state: stateWithWins("A")}
	c := NewController(src, Options{})
	ctx := context.Background()

	var mu sync.Mutex
	var published []uint64
	c.AddListener(func(s *Snapshot) {
		mu.Lock()
		published = append(published, s.Generation)
		mu.Unlock()
	})

	// Listeners run asynchronously and only see the latest snapshot, so wait
	// for each delivery before publishing the next one.
	waitFor := func(want int) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			mu.Lock()
			n := len(published)
			mu.Unlock()
			if n >= want {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("only %d snapshots delivered, want %d", n, want)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	c.Refresh(ctx, "g")
	waitFor(1)
	c.Refresh(ctx, "g")
	src.set(stateWithWins("A", "B"), nil)
	c.Refresh(ctx, "g")
	waitFor(2)

	mu.Lock()
	defer mu.Unlock()
	if len(published) != 2 || published[0] != 1 || published[1] != 3 {
		t.Errorf("published generations = %v, want [1 3]", published)
	}
}

func TestComputeExcludesPendingDays(t *testing.T) {
	resolver, _ := scoring.NewResolver(scoring.PolicyUTC12Finalized)
	state := &GroupState{
		Members: threeMembers(),
		Plays: []scoring.Play{
			{UserID: "A", DayKey: "2024-03-09", GuessCount: 4, Solved: true},
			{UserID: "B", DayKey: "2024-03-10", GuessCount: 2, Solved: true},
		},
	}

	now := time.Date(2024, 3, 11, 11, 59, 0, 0, time.UTC)
	snap := Compute("g", state, resolver, now)
	if len(snap.PendingDays) != 1 || snap.PendingDays[0] != "2024-03-10" {
		t.Fatalf("pending days = %v", snap.PendingDays)
	}
	if entryFor(t, snap, "B").GamesWon != 0 || entryFor(t, snap, "A").GamesWon != 1 {
		t.Errorf("pending day counted: %+v", snap.Entries)
	}

	later := Compute("g", state, resolver, now.Add(time.Minute))
	if len(later.PendingDays) != 0 || entryFor(t, later, "B").GamesWon != 1 {
		t.Errorf("finalized day missing: %+v", later)
	}
	if later.Hash == snap.Hash {
		t.Error("hash did not change with content")
	}
	if again := Compute("g", state, resolver, now.Add(time.Hour)); again.Hash != later.Hash {
		t.Error("hash depends on compute time")
	}
}

func TestSlowListenerDoesNotDelayRefresh(t *testing.T) {
	src := &fakeSource{state: stateWithWins("A")}
	c := NewController(src, Options{})
	ctx := context.Background()

	entered := make(chan uint64, 4)
	release := make(chan struct{})
	defer close(release)
	c.AddListener(func(s *Snapshot) {
		entered <- s.Generation
		<-release
	})

	if err := c.Refresh(ctx, "g"); err != nil {
		t.Fatal(err)
	}
	select {
	case gen := <-entered:
		if gen != 1 {
			t.Fatalf("first delivery generation = %d", gen)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener never called")
	}

	// The listener is now stuck. Further writes must still refresh promptly.
	for _, winners := range [][]string{{"A", "B"}, {"A", "B", "C"}} {
		src.set(stateWithWins(winners...), nil)
		start := time.Now()
		refreshCtx, cancel := context.WithTimeout(ctx, time.Second)
		err := c.Refresh(refreshCtx, "g")
		cancel()
		if err != nil {
			t.Fatalf("refresh blocked behind listener: %v", err)
		}
		if d := time.Since(start); d > 500*time.Millisecond {
			t.Errorf("refresh took %v with a blocked listener", d)
		}
	}

	snap, err := c.Leaderboard(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Generation != 3 || entryFor(t, snap, "C").GamesWon != 1 {
		t.Errorf("snapshot = gen %d %+v, want gen 3", snap.Generation, snap.Entries)
	}

	select {
	case gen := <-entered:
		t.Errorf("generation %d delivered while listener blocked", gen)
	default:
	}
}
