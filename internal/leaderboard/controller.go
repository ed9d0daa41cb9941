package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZJUSCT/DailyBoard/internal/scoring"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	// ModeCached serves a materialized snapshot rebuilt after every write.
	ModeCached Mode = "cached"
	// ModeEager recomputes from stored state on every read.
	ModeEager Mode = "eager"
)

var ErrRefreshFailure = errors.New("leaderboard refresh failed")

// Listener is called with every newly published snapshot whose content
// differs from the previous one of the same group.
type Listener func(*Snapshot)

type Options struct {
	Mode        Mode
	Resolver    scoring.Resolver
	Timeout     time.Duration
	Concurrency int
	Now         func() time.Time
}

// Controller owns the per-group snapshot cache and decides when it is rebuilt.
type Controller struct {
	mode        Mode
	source      Source
	resolver    scoring.Resolver
	timeout     time.Duration
	concurrency int
	now         func() time.Time

	mu     sync.Mutex
	boards map[string]*board

	listenersMu sync.RWMutex
	listeners   []Listener
}

type board struct {
	groupID    string
	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64
	failing    atomic.Bool

	mu       sync.Mutex
	running  bool
	waiters  []chan error
	lastErr  error
	lastHash string

	// latest snapshot not yet handed to listeners
	unsent    *Snapshot
	notifying bool
}

// BoardStatus is the operator view of one cached group.
type BoardStatus struct {
	GroupID    string    `json:"group_id"`
	Generation uint64    `json:"generation"`
	ComputedAt time.Time `json:"computed_at"`
	Stale      bool      `json:"stale"`
	LastError  string    `json:"last_error,omitempty"`
}

func NewController(source Source, opts Options) *Controller {
	if opts.Mode == "" {
		opts.Mode = ModeCached
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		mode:        opts.Mode,
		source:      source,
		resolver:    opts.Resolver,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		now:         opts.Now,
		boards:      make(map[string]*board),
	}
}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeCached, ModeEager:
		return m, nil
	case "":
		return ModeCached, nil
	default:
		return "", fmt.Errorf("unknown refresh mode %q", s)
	}
}

func (c *Controller) Mode() Mode {
	return c.mode
}

func (c *Controller) Resolver() scoring.Resolver {
	return c.resolver
}

// AddListener registers l for published snapshots. Listeners run on a
// per-group notifier goroutine, one snapshot at a time, in generation order.
// A slow listener never delays the next recompute; snapshots superseded while
// it runs are skipped and only the latest one is delivered.
func (c *Controller) AddListener(l Listener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Controller) board(groupID string) *board {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.boards[groupID]
	if !ok {
		b = &board{groupID: groupID}
		c.boards[groupID] = b
	}
	return b
}

// Leaderboard returns the ranking of a group. In cached mode it serves the
// last completed snapshot, flagged stale when the latest refresh failed, and
// only blocks when no snapshot exists yet.
func (c *Controller) Leaderboard(ctx context.Context, groupID string) (*Snapshot, error) {
	b := c.board(groupID)

	if c.mode == ModeEager {
		snap, err := c.compute(ctx, b)
		if err != nil {
			return nil, err
		}
		snap.Generation = b.generation.Add(1)
		return snap, nil
	}

	snap := b.current.Load()
	if snap == nil {
		err := c.Refresh(ctx, groupID)
		snap = b.current.Load()
		if snap == nil {
			if err == nil {
				err = fmt.Errorf("%w: group %s has no snapshot", ErrRefreshFailure, groupID)
			}
			return nil, err
		}
	}

	if b.failing.Load() {
		// Retry in the background; the reader keeps the last good snapshot.
		c.enqueue(b)
		return snap.withStale(true), nil
	}
	return snap, nil
}

// Refresh schedules a full recompute of a group and waits until a recompute
// that started after this call has finished. Triggers that arrive while a
// recompute is running are coalesced into the next one. In eager mode there
// is nothing to rebuild and Refresh returns immediately.
func (c *Controller) Refresh(ctx context.Context, groupID string) error {
	if c.mode == ModeEager {
		return nil
	}
	done := c.enqueue(c.board(groupID))
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) enqueue(b *board) <-chan error {
	done := make(chan error, 1)

	b.mu.Lock()
	b.waiters = append(b.waiters, done)
	start := !b.running
	b.running = true
	b.mu.Unlock()

	if start {
		go c.drain(b)
	} else {
		zap.S().Debugf("refresh for group %s coalesced into the next run", b.groupID)
	}
	return done
}

// drain is the single refresh loop of a board. Every waiter registered
// before a recompute starts is answered by that recompute.
func (c *Controller) drain(b *board) {
	for {
		b.mu.Lock()
		if len(b.waiters) == 0 {
			b.running = false
			b.mu.Unlock()
			return
		}
		batch := b.waiters
		b.waiters = nil
		b.mu.Unlock()

		snap, err := c.rebuild(b)
		for _, w := range batch {
			w <- err
		}
		if snap != nil {
			c.publish(b, snap)
		}
	}
}

// rebuild recomputes and atomically swaps the snapshot. On failure the
// previous snapshot stays in place. It returns the snapshot only when its
// content changed.
func (c *Controller) rebuild(b *board) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	snap, err := c.compute(ctx, b)
	if err != nil {
		b.mu.Lock()
		b.lastErr = err
		b.mu.Unlock()
		b.failing.Store(true)
		zap.S().Errorf("refresh of group %s failed, serving generation %d: %v", b.groupID, b.generation.Load(), err)
		return nil, err
	}

	snap.Generation = b.generation.Add(1)
	b.current.Store(snap)
	b.failing.Store(false)

	b.mu.Lock()
	b.lastErr = nil
	changed := snap.Hash != b.lastHash
	b.lastHash = snap.Hash
	b.mu.Unlock()

	zap.S().Debugf("group %s leaderboard at generation %d (%d entries)", b.groupID, snap.Generation, len(snap.Entries))
	if !changed {
		return nil, nil
	}
	return snap, nil
}

func (c *Controller) compute(ctx context.Context, b *board) (*Snapshot, error) {
	state, err := c.source.LoadGroupState(ctx, b.groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: group %s: %v", ErrRefreshFailure, b.groupID, err)
	}
	return Compute(b.groupID, state, c.resolver, c.now()), nil
}

// publish queues snap for the listeners of b, replacing any snapshot still
// waiting, and starts the notifier if it is idle.
func (c *Controller) publish(b *board, snap *Snapshot) {
	b.mu.Lock()
	b.unsent = snap
	start := !b.notifying
	b.notifying = true
	b.mu.Unlock()

	if start {
		go c.deliver(b)
	}
}

func (c *Controller) deliver(b *board) {
	for {
		b.mu.Lock()
		snap := b.unsent
		b.unsent = nil
		if snap == nil {
			b.notifying = false
			b.mu.Unlock()
			return
		}
		b.mu.Unlock()

		c.notify(snap)
	}
}

func (c *Controller) notify(snap *Snapshot) {
	c.listenersMu.RLock()
	listeners := c.listeners
	c.listenersMu.RUnlock()
	for _, l := range listeners {
		l(snap)
	}
}

// RefreshAll rebuilds the given groups with bounded parallelism and returns
// the first failure. A failing group does not stop the others.
func (c *Controller) RefreshAll(ctx context.Context, groupIDs []string) error {
	if c.mode == ModeEager {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, id := range groupIDs {
		id := id
		g.Go(func() error {
			return c.Refresh(ctx, id)
		})
	}
	return g.Wait()
}

// RetryStale re-runs refresh for every group whose last refresh failed.
func (c *Controller) RetryStale(ctx context.Context) error {
	var ids []string
	c.mu.Lock()
	for id, b := range c.boards {
		if b.failing.Load() {
			ids = append(ids, id)
		}
	}
	c.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}
	zap.S().Infof("retrying refresh for %d stale groups", len(ids))
	return c.RefreshAll(ctx, ids)
}

// Status lists every group the controller has seen, ordered by group id.
func (c *Controller) Status() []BoardStatus {
	c.mu.Lock()
	boards := make([]*board, 0, len(c.boards))
	for _, b := range c.boards {
		boards = append(boards, b)
	}
	c.mu.Unlock()

	out := make([]BoardStatus, 0, len(boards))
	for _, b := range boards {
		st := BoardStatus{
			GroupID:    b.groupID,
			Generation: b.generation.Load(),
			Stale:      b.failing.Load(),
		}
		if snap := b.current.Load(); snap != nil {
			st.ComputedAt = snap.ComputedAt
		}
		b.mu.Lock()
		if b.lastErr != nil {
			st.LastError = b.lastErr.Error()
		}
		b.mu.Unlock()
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out
}
