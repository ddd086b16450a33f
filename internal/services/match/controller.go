package match

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/room"
	"github.com/mcoot/typerace/internal/storage"
)

// Config holds match timing rules
type Config struct {
	// StartTime is the survival time every player begins with, in seconds
	StartTime int
	// TickInterval is the survival countdown period
	TickInterval time.Duration
	// StreakThreshold is the number of consecutive words that triggers an input lock
	StreakThreshold int
	// LockDuration is how long the other players' input stays locked
	LockDuration time.Duration
	// PersistTimeout bounds writing results to the score log
	PersistTimeout time.Duration
}

// DefaultConfig returns the default match configuration
func DefaultConfig() Config {
	return Config{
		StartTime:       10,
		TickInterval:    time.Second,
		StreakThreshold: 5,
		LockDuration:    3 * time.Second,
		PersistTimeout:  5 * time.Second,
	}
}

// errStale aborts a scheduled callback whose match is no longer running
var errStale = errors.New("match is no longer running")

// run tracks the scheduled work of one running match
type run struct {
	gen          uint64
	timer        clock.Timer
	participants int
}

// Controller starts matches, drives the survival countdown and settles results
type Controller struct {
	cfg       Config
	rooms     *room.Store
	scores    storage.ScoreLog
	publisher events.Publisher
	clock     clock.Clock
	logger    *slog.Logger

	mu   sync.Mutex
	runs map[model.RoomID]*run
	gen  uint64

	persisting sync.WaitGroup
}

// NewController creates a Controller. Scheduled work for a room stops when
// the room is deleted.
func NewController(
	cfg Config,
	rooms *room.Store,
	scores storage.ScoreLog,
	publisher events.Publisher,
	clock clock.Clock,
	logger *slog.Logger,
) *Controller {
	c := &Controller{
		cfg:       cfg,
		rooms:     rooms,
		scores:    scores,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With(slog.String("component", "match")),
		runs:      make(map[model.RoomID]*run),
	}
	rooms.OnDelete(c.Cancel)
	return c
}

// RequestStart starts a match on the host's behalf once every player is ready
func (c *Controller) RequestStart(ctx context.Context, roomID model.RoomID, requester model.ConnectionID) (*model.Room, error) {
	return c.start(ctx, roomID, func(r *model.Room) error {
		if err := r.Authorize(requester); err != nil {
			return err
		}
		if !r.AllReady() {
			return model.ErrNotAllReady
		}
		return nil
	})
}

// Start begins a match. Readiness is the caller's concern.
func (c *Controller) Start(ctx context.Context, roomID model.RoomID) (*model.Room, error) {
	return c.start(ctx, roomID, nil)
}

func (c *Controller) start(ctx context.Context, roomID model.RoomID, check func(r *model.Room) error) (*model.Room, error) {
	now := c.clock.Now()
	r, _, err := c.rooms.Update(roomID, func(r *model.Room) error {
		if check != nil {
			if err := check(r); err != nil {
				return err
			}
		}
		if r.IsPlaying {
			return model.ErrMatchInProgress
		}
		r.IsPlaying = true
		r.StartedAt = &now
		r.Eliminated = nil
		for i := range r.Players {
			r.Players[i].Score = 0
			r.Players[i].Match = &model.MatchState{TimeRemaining: c.cfg.StartTime}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.schedule(r)
	c.logger.Info("match started",
		slog.String("room_id", string(roomID)),
		slog.String("mode", string(r.Mode)),
		slog.Int("players", len(r.Players)),
	)
	c.publish(ctx, model.EventRoomStateChanged, roomID, "", nil)
	c.publish(ctx, model.EventMembershipChanged, roomID, "", nil)
	return r, nil
}

// schedule arms the survival tick or the classic deadline for a fresh match
func (c *Controller) schedule(r *model.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.runs[r.ID]; ok {
		prev.timer.Stop()
	}
	c.gen++
	rn := &run{gen: c.gen, participants: len(r.Players)}
	roomID, gen := r.ID, c.gen
	if r.Mode == model.GameModeSuddenDeath {
		rn.timer = c.clock.AfterFunc(c.cfg.TickInterval, func() { c.tick(roomID, gen) })
	} else {
		d := time.Duration(r.DurationSeconds) * time.Second
		rn.timer = c.clock.AfterFunc(d, func() { c.deadline(roomID, gen) })
	}
	c.runs[r.ID] = rn
}

// Cancel stops any scheduled work for the room
func (c *Controller) Cancel(roomID model.RoomID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rn, ok := c.runs[roomID]; ok {
		rn.timer.Stop()
		delete(c.runs, roomID)
	}
}

// Running reports whether scheduled work exists for the room
func (c *Controller) Running(roomID model.RoomID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.runs[roomID]
	return ok
}

// current returns the run for roomID if it is still generation gen
func (c *Controller) current(roomID model.RoomID, gen uint64) (*run, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rn, ok := c.runs[roomID]
	if !ok || rn.gen != gen {
		return nil, false
	}
	return rn, true
}

func (c *Controller) release(roomID model.RoomID, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rn, ok := c.runs[roomID]; ok && rn.gen == gen {
		delete(c.runs, roomID)
	}
}

// tick counts every surviving player down by one second
func (c *Controller) tick(roomID model.RoomID, gen uint64) {
	rn, ok := c.current(roomID, gen)
	if !ok {
		return
	}

	var eliminated []model.RoomPlayer
	var results, unrecorded []model.MatchResult
	r, _, err := c.rooms.Update(roomID, func(r *model.Room) error {
		if !r.IsPlaying || r.Mode != model.GameModeSuddenDeath {
			return errStale
		}
		for i := range r.Players {
			p := &r.Players[i]
			if p.Match == nil || p.Match.IsEliminated {
				continue
			}
			p.Match.TimeRemaining--
			if p.Match.TimeRemaining <= 0 {
				p.Match.TimeRemaining = 0
				p.Match.IsEliminated = true
				r.MarkEliminated(p.DisplayName)
				eliminated = append(eliminated, *p)
			}
		}
		results = c.settleSurvival(r, rn.participants)
		unrecorded = claimResults(r, results)
		return nil
	})
	if err != nil {
		// Room deleted or match reset; stop ticking
		c.release(roomID, gen)
		return
	}

	ctx := context.Background()
	c.announceEliminations(ctx, roomID, eliminated)
	c.publish(ctx, model.EventMembershipChanged, roomID, "", nil)

	if results != nil {
		c.release(roomID, gen)
		c.finish(ctx, r, results, unrecorded)
		return
	}

	c.mu.Lock()
	if cur, ok := c.runs[roomID]; ok && cur.gen == gen {
		cur.timer = c.clock.AfterFunc(c.cfg.TickInterval, func() { c.tick(roomID, gen) })
	}
	c.mu.Unlock()
}

// deadline ends a classic match once its duration has passed
func (c *Controller) deadline(roomID model.RoomID, gen uint64) {
	if _, ok := c.current(roomID, gen); !ok {
		return
	}
	c.release(roomID, gen)

	var results, unrecorded []model.MatchResult
	r, _, err := c.rooms.Update(roomID, func(r *model.Room) error {
		if !r.IsPlaying || r.Mode == model.GameModeSuddenDeath {
			return errStale
		}
		r.IsPlaying = false
		results = make([]model.MatchResult, 0, len(r.Players))
		for _, p := range r.Players {
			results = append(results, model.MatchResult{DisplayName: p.DisplayName, Connection: p.Connection, Score: p.Score})
		}
		unrecorded = claimResults(r, results)
		return nil
	})
	if err != nil {
		return
	}
	c.finish(context.Background(), r, results, unrecorded)
}

// settleSurvival ends the match when it is decided: nobody survives, or at
// most one survives a match that started with several players. It returns
// nil while the match goes on.
func (c *Controller) settleSurvival(r *model.Room, participants int) []model.MatchResult {
	active := 0
	for _, p := range r.Players {
		if p.Match != nil && !p.Match.IsEliminated {
			active++
		}
	}
	if active > 1 || (active == 1 && participants <= 1) {
		return nil
	}

	r.IsPlaying = false
	results := make([]model.MatchResult, 0, len(r.Players))
	for i := range r.Players {
		p := &r.Players[i]
		score := 0
		if p.Match != nil && !p.Match.IsEliminated {
			score = p.Match.TimeRemaining
		}
		p.Score = score
		results = append(results, model.MatchResult{DisplayName: p.DisplayName, Connection: p.Connection, Score: score})
	}
	return results
}

// WordCompleted awards survival bonus time for a correctly typed word.
// Every StreakThreshold consecutive words lock the input of every other
// surviving player. Words from eliminated or locked players are ignored.
func (c *Controller) WordCompleted(ctx context.Context, roomID model.RoomID, conn model.ConnectionID, difficulty model.Difficulty) (*model.Room, error) {
	now := c.clock.Now()
	var ignored bool
	var locked []model.ConnectionID
	r, _, err := c.rooms.Update(roomID, func(r *model.Room) error {
		if !r.IsPlaying || r.Mode != model.GameModeSuddenDeath {
			return model.ErrNoActiveMatch
		}
		p := r.PlayerByConnection(conn)
		if p == nil {
			return model.ErrPlayerNotFound
		}
		if p.Match == nil || p.Match.IsEliminated || p.Match.IsLocked(now) {
			ignored = true
			return nil
		}

		p.Match.TimeRemaining += difficulty.BonusSeconds()
		p.Match.Streak++
		if p.Match.Streak < c.cfg.StreakThreshold {
			return nil
		}
		p.Match.Streak = 0
		for i := range r.Players {
			other := &r.Players[i]
			if other.Connection == conn || other.Match == nil || other.Match.IsEliminated {
				continue
			}
			other.Match.LockedUntil = now.Add(c.cfg.LockDuration)
			locked = append(locked, other.Connection)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ignored {
		return r, nil
	}

	c.publish(ctx, model.EventMembershipChanged, roomID, "", nil)
	for _, target := range locked {
		c.publish(ctx, model.EventInputLocked, roomID, target, model.InputLockedPayload{
			Source:   conn,
			Targets:  locked,
			Duration: c.cfg.LockDuration,
		})
	}
	if len(locked) > 0 {
		c.logger.Debug("input locked", slog.String("room_id", string(roomID)), slog.Int("targets", len(locked)))
	}
	return r, nil
}

// UpdateScore records a player's live score in standard modes
func (c *Controller) UpdateScore(ctx context.Context, roomID model.RoomID, displayName string, score int) (*model.Room, error) {
	r, _, err := c.rooms.Update(roomID, func(r *model.Room) error {
		p := r.PlayerByName(displayName)
		if p == nil {
			return model.ErrPlayerNotFound
		}
		p.Score = score
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.publish(ctx, model.EventMembershipChanged, roomID, "", nil)
	return r, nil
}

// SubmitResult stores a client's finished run on its room player. It reports
// whether the run still needs appending to the score log, which is false once
// the player's result for the current match has been recorded. A player who
// has not played a match in the room always reports true.
func (c *Controller) SubmitResult(ctx context.Context, roomID model.RoomID, displayName string, score, wpm int) (*model.Room, bool, error) {
	var claimed bool
	r, _, err := c.rooms.Update(roomID, func(r *model.Room) error {
		p := r.PlayerByName(displayName)
		if p == nil {
			return model.ErrPlayerNotFound
		}
		p.Score = score
		claimed = true
		if p.Match != nil {
			p.Match.WPM = wpm
			claimed = !p.Match.Recorded
			p.Match.Recorded = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	c.publish(ctx, model.EventMembershipChanged, roomID, "", nil)
	return r, claimed, nil
}

// Eliminate marks a survival player as out on the client's report
func (c *Controller) Eliminate(ctx context.Context, roomID model.RoomID, displayName string) (*model.Room, error) {
	participants := 0
	c.mu.Lock()
	rn, ok := c.runs[roomID]
	if ok {
		participants = rn.participants
	}
	c.mu.Unlock()
	if !ok {
		return nil, model.ErrNoActiveMatch
	}

	var eliminated []model.RoomPlayer
	var results, unrecorded []model.MatchResult
	r, _, err := c.rooms.Update(roomID, func(r *model.Room) error {
		if !r.IsPlaying || r.Mode != model.GameModeSuddenDeath {
			return model.ErrNoActiveMatch
		}
		p := r.PlayerByName(displayName)
		if p == nil {
			return model.ErrPlayerNotFound
		}
		if p.Match == nil || p.Match.IsEliminated {
			return nil
		}
		p.Match.IsEliminated = true
		p.Match.TimeRemaining = 0
		r.MarkEliminated(p.DisplayName)
		eliminated = append(eliminated, *p)
		results = c.settleSurvival(r, participants)
		unrecorded = claimResults(r, results)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.announceEliminations(ctx, roomID, eliminated)
	if len(eliminated) > 0 {
		c.publish(ctx, model.EventMembershipChanged, roomID, "", nil)
	}
	if results != nil {
		c.Cancel(roomID)
		c.finish(ctx, r, results, unrecorded)
	}
	return r, nil
}

func (c *Controller) announceEliminations(ctx context.Context, roomID model.RoomID, eliminated []model.RoomPlayer) {
	for _, p := range eliminated {
		c.publish(ctx, model.EventPlayerEliminated, roomID, p.Connection, model.PlayerEliminatedPayload{DisplayName: p.DisplayName})
	}
}

// finish announces the results of an ended match and persists them in the background
func (c *Controller) finish(ctx context.Context, r *model.Room, results, unrecorded []model.MatchResult) {
	c.logger.Info("match ended", slog.String("room_id", string(r.ID)), slog.Int("players", len(results)))
	c.publish(ctx, model.EventMatchEnded, r.ID, "", model.MatchEndedPayload{Results: results})
	c.publish(ctx, model.EventRoomStateChanged, r.ID, "", nil)

	if c.scores == nil || len(unrecorded) == 0 {
		return
	}
	date := c.clock.Now()
	c.persisting.Add(1)
	go func() {
		defer c.persisting.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
		defer cancel()
		for _, res := range unrecorded {
			entry := &model.ScoreEntry{
				PlayerName: res.DisplayName,
				RoomID:     r.ID,
				Score:      res.Score,
				WPM:        res.WPM,
				Date:       date,
			}
			if err := c.scores.AppendScore(ctx, entry); err != nil {
				c.logger.Warn("failed to persist match result",
					slog.String("room_id", string(r.ID)),
					slog.String("display_name", res.DisplayName),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
}

// claimResults marks every participant's result as recorded and returns the
// results no finished-run submission has written yet. It must run inside the
// room update that ends the match.
func claimResults(r *model.Room, results []model.MatchResult) []model.MatchResult {
	if results == nil {
		return nil
	}
	var unrecorded []model.MatchResult
	for _, res := range results {
		p := r.PlayerByName(res.DisplayName)
		if p == nil || p.Match == nil || p.Match.Recorded {
			continue
		}
		p.Match.Recorded = true
		res.WPM = p.Match.WPM
		unrecorded = append(unrecorded, res)
	}
	return unrecorded
}

// Wait blocks until every background result write has finished
func (c *Controller) Wait() {
	c.persisting.Wait()
}

func (c *Controller) publish(ctx context.Context, t model.EventType, roomID model.RoomID, conn model.ConnectionID, payload any) {
	c.publisher.Publish(ctx, model.Event{
		Type:       t,
		Timestamp:  c.clock.Now(),
		RoomID:     roomID,
		Connection: conn,
		Payload:    payload,
	})
}
