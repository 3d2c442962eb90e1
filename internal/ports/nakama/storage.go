package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/coder/quartz"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/config"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/ports"
)

// storageAPI is the slice of runtime.NakamaModule the store adapter needs.
// Narrowed so tests can fake storage without the rest of the module surface.
type storageAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
	StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error)
}

// StoreAdapter implements ports.StorePort on Nakama storage. Game state
// writes ride the storage version predicate; the event history and the
// timer index are written in the same batch so they commit atomically
// with the state row.
type StoreAdapter struct {
	nk     storageAPI
	logger runtime.Logger
	clock  quartz.Clock
	cfg    *config.GameConfig
}

// NewStoreAdapter builds the adapter. A nil clock falls back to the real
// clock, a nil cfg to defaults.
func NewStoreAdapter(nk storageAPI, logger runtime.Logger, clock quartz.Clock, cfg *config.GameConfig) *StoreAdapter {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &StoreAdapter{nk: nk, logger: logger, clock: clock, cfg: cfg}
}

var _ ports.StorePort = (*StoreAdapter)(nil)

// leaseRow is the stored shape of a coordinator lease.
type leaseRow struct {
	OwnerID     string `json:"owner_id"`
	ExpiresAtMs int64  `json:"expires_at_ms"`
}

// timerIndexRow mirrors whether a room's state carries an armed auto-pass
// timer, so the sweeper lists due rooms without scanning every state row.
type timerIndexRow struct {
	Armed       bool  `json:"armed"`
	ExpiresAtMs int64 `json:"expires_at_ms,omitempty"`
}

// storedEvent is one history entry. Payloads round-trip as raw JSON; the
// consumer re-emits them to clients verbatim.
type storedEvent struct {
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	Recipients []string        `json:"recipients,omitempty"`
}

type storedEventBatch struct {
	Revision int64         `json:"revision"`
	Events   []storedEvent `json:"events"`
}

// withRetry runs fn under the standardized store policy: a timeout per
// attempt, a fixed backoff between attempts, and no retries for outcomes
// a repeat cannot change (conflicts, not-found).
func (a *StoreAdapter) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= a.cfg.StoreRetries; attempt++ {
		if attempt > 0 {
			timer := a.clock.NewTimer(a.cfg.StoreBackoff())
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.StoreAttemptTimeout())
		err = fn(attemptCtx)
		cancel()
		if err == nil || !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.logger.Warn("store %s attempt %d failed: %v", op, attempt+1, err)
	}
	return fmt.Errorf("%w: %s: %v", ports.ErrUnavailable, op, err)
}

// errSeatMismatch rejects score mirrors that do not cover the roster.
var errSeatMismatch = errors.New("scores do not cover the roster")

func retryable(err error) bool {
	switch {
	case errors.Is(err, ports.ErrRoomNotFound),
		errors.Is(err, ports.ErrStateMissing),
		errors.Is(err, ports.ErrVersionConflict),
		errors.Is(err, ports.ErrLeaseHeld),
		errors.Is(err, errRoomFull),
		errors.Is(err, errSeatMismatch),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// readOne fetches a single server-owned object.
func (a *StoreAdapter) readOne(ctx context.Context, collection, key string) (*api.StorageObject, bool, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: collection,
		Key:        key,
	}})
	if err != nil {
		return nil, false, err
	}
	if len(objects) == 0 {
		return nil, false, nil
	}
	return objects[0], true, nil
}

func serverWrite(collection, key, value, version string) *runtime.StorageWrite {
	return &runtime.StorageWrite{
		Collection:      collection,
		Key:             key,
		Value:           value,
		Version:         version,
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}
}

// LoadRoom resolves the room row for a code.
func (a *StoreAdapter) LoadRoom(ctx context.Context, code string) (*domain.Room, error) {
	var room *domain.Room
	err := a.withRetry(ctx, "load room", func(ctx context.Context) error {
		obj, found, err := a.readOne(ctx, collectionRooms, code)
		if err != nil {
			return err
		}
		if !found {
			return ports.ErrRoomNotFound
		}
		r := &domain.Room{}
		if err := json.Unmarshal([]byte(obj.Value), r); err != nil {
			return fmt.Errorf("room row corrupt: %w", err)
		}
		room = r
		return nil
	})
	return room, err
}

// CreateRoom writes a fresh room row. A taken code fails with
// ports.ErrVersionConflict so callers can regenerate and retry.
func (a *StoreAdapter) CreateRoom(ctx context.Context, room *domain.Room) error {
	value, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	return a.withRetry(ctx, "create room", func(ctx context.Context) error {
		_, err := a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
			serverWrite(collectionRooms, room.Code, string(value), "*"),
		})
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return ports.ErrVersionConflict
		}
		return err
	})
}

// LoadGameState returns the state row and its storage version.
func (a *StoreAdapter) LoadGameState(ctx context.Context, code string) (*domain.GameState, string, error) {
	var (
		st      *domain.GameState
		version string
	)
	err := a.withRetry(ctx, "load state", func(ctx context.Context) error {
		obj, found, err := a.readOne(ctx, collectionGameStates, code)
		if err != nil {
			return err
		}
		if !found {
			return ports.ErrStateMissing
		}
		s := &domain.GameState{}
		if err := json.Unmarshal([]byte(obj.Value), s); err != nil {
			return fmt.Errorf("state row corrupt: %w", err)
		}
		st, version = s, obj.Version
		return nil
	})
	return st, version, err
}

// SaveGameState commits the state row conditioned on expectedVersion and
// appends the commit's events and timer index flag in the same atomic
// batch. An empty expectedVersion demands a fresh row.
func (a *StoreAdapter) SaveGameState(ctx context.Context, code string, state *domain.GameState, expectedVersion string, events []ports.Event) (string, error) {
	stateValue, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	version := expectedVersion
	if version == "" {
		version = "*"
	}
	writes := []*runtime.StorageWrite{
		serverWrite(collectionGameStates, code, string(stateValue), version),
	}

	if len(events) > 0 {
		batchValue, err := marshalEventBatch(state.Revision, events)
		if err != nil {
			return "", err
		}
		// Create-only: replayed commits lose the state predicate first,
		// so a revision row is never overwritten.
		writes = append(writes, serverWrite(collectionGameEvents, eventsKey(code, state.Revision), batchValue, "*"))
	}

	index := timerIndexRow{Armed: state.Timer != nil}
	if state.Timer != nil {
		index.ExpiresAtMs = state.Timer.ExpiresAtMs
	}
	indexValue, err := json.Marshal(index)
	if err != nil {
		return "", fmt.Errorf("marshal timer index: %w", err)
	}
	writes = append(writes, serverWrite(collectionTimerIndex, code, string(indexValue), ""))

	var newVersion string
	err = a.withRetry(ctx, "save state", func(ctx context.Context) error {
		acks, err := a.nk.StorageWrite(ctx, writes)
		if err != nil {
			if errors.Is(err, runtime.ErrStorageRejectedVersion) {
				return ports.ErrVersionConflict
			}
			return err
		}
		if len(acks) == 0 {
			return fmt.Errorf("state write returned no ack")
		}
		newVersion = acks[0].Version
		return nil
	})
	return newVersion, err
}

func marshalEventBatch(revision int64, events []ports.Event) (string, error) {
	batch := storedEventBatch{Revision: revision, Events: make([]storedEvent, 0, len(events))}
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return "", fmt.Errorf("marshal %s payload: %w", ev.Kind, err)
		}
		batch.Events = append(batch.Events, storedEvent{
			Kind:       string(ev.Kind),
			Payload:    payload,
			Recipients: ev.Recipients,
		})
	}
	value, err := json.Marshal(batch)
	if err != nil {
		return "", fmt.Errorf("marshal event batch: %w", err)
	}
	return string(value), nil
}

func eventsKey(code string, revision int64) string {
	return fmt.Sprintf("%s:%010d", code, revision)
}

// LoadEvents returns the committed history from a revision onward in
// commit order. Revisions without events are simply absent.
func (a *StoreAdapter) LoadEvents(ctx context.Context, code string, fromRevision int64) ([]ports.Event, error) {
	st, _, err := a.LoadGameState(ctx, code)
	if err != nil {
		return nil, err
	}
	if fromRevision < 1 {
		fromRevision = 1
	}
	if fromRevision > st.Revision {
		return nil, nil
	}

	var batches []storedEventBatch
	err = a.withRetry(ctx, "load events", func(ctx context.Context) error {
		batches = batches[:0]
		for lo := fromRevision; lo <= st.Revision; lo += 100 {
			hi := lo + 100
			if hi > st.Revision+1 {
				hi = st.Revision + 1
			}
			reads := make([]*runtime.StorageRead, 0, hi-lo)
			for rev := lo; rev < hi; rev++ {
				reads = append(reads, &runtime.StorageRead{
					Collection: collectionGameEvents,
					Key:        eventsKey(code, rev),
				})
			}
			objects, err := a.nk.StorageRead(ctx, reads)
			if err != nil {
				return err
			}
			for _, obj := range objects {
				var batch storedEventBatch
				if err := json.Unmarshal([]byte(obj.Value), &batch); err != nil {
					return fmt.Errorf("event row corrupt: %w", err)
				}
				batches = append(batches, batch)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(batches, func(i, j int) bool { return batches[i].Revision < batches[j].Revision })
	var out []ports.Event
	for _, batch := range batches {
		for _, ev := range batch.Events {
			out = append(out, ports.Event{
				Kind:       ports.EventKind(ev.Kind),
				Payload:    ev.Payload,
				Recipients: ev.Recipients,
			})
		}
	}
	return out, nil
}

// errRoomUnchanged lets a mutateRoom callback skip the write entirely.
var errRoomUnchanged = errors.New("room unchanged")

// mutateRoom applies an edit to the room row under its storage version.
// Lost races re-read and re-apply; the edits here are all idempotent over
// a fresh read, so a few attempts settle any realistic contention.
func (a *StoreAdapter) mutateRoom(ctx context.Context, code string, edit func(*domain.Room) error) (*domain.Room, error) {
	var out *domain.Room
	err := a.withRetry(ctx, "mutate room", func(ctx context.Context) error {
		for attempt := 0; attempt < 3; attempt++ {
			obj, found, err := a.readOne(ctx, collectionRooms, code)
			if err != nil {
				return err
			}
			if !found {
				return ports.ErrRoomNotFound
			}
			room := &domain.Room{}
			if err := json.Unmarshal([]byte(obj.Value), room); err != nil {
				return fmt.Errorf("room row corrupt: %w", err)
			}
			if err := edit(room); err != nil {
				if errors.Is(err, errRoomUnchanged) {
					out = room
					return nil
				}
				return err
			}
			value, err := json.Marshal(room)
			if err != nil {
				return fmt.Errorf("marshal room: %w", err)
			}
			_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
				serverWrite(collectionRooms, code, string(value), obj.Version),
			})
			if errors.Is(err, runtime.ErrStorageRejectedVersion) {
				continue
			}
			if err != nil {
				return err
			}
			out = room
			return nil
		}
		return ports.ErrVersionConflict
	})
	return out, err
}

// UpdateSeatScores mirrors cumulative totals onto the room row. Scores are
// absolute, so a lost race is settled by re-reading and rewriting.
func (a *StoreAdapter) UpdateSeatScores(ctx context.Context, code string, scores []int) error {
	_, err := a.mutateRoom(ctx, code, func(room *domain.Room) error {
		if len(scores) != len(room.Seats) {
			return fmt.Errorf("%w: %d scores for %d seats", errSeatMismatch, len(scores), len(room.Seats))
		}
		for i := range room.Seats {
			room.Seats[i].Score = scores[i]
		}
		return nil
	})
	return err
}

// TryAcquireBotLease claims the room's coordinator lease when it is
// absent, expired, or already held by ownerID. The holder's re-acquire
// extends the TTL.
func (a *StoreAdapter) TryAcquireBotLease(ctx context.Context, code, ownerID string, ttl time.Duration) (bool, error) {
	var held bool
	err := a.withRetry(ctx, "acquire bot lease", func(ctx context.Context) error {
		held = false
		obj, found, err := a.readOne(ctx, collectionBotLeases, code)
		if err != nil {
			return err
		}
		now := a.clock.Now().UnixMilli()
		version := "*"
		if found {
			var row leaseRow
			if err := json.Unmarshal([]byte(obj.Value), &row); err != nil {
				return fmt.Errorf("lease row corrupt: %w", err)
			}
			if row.OwnerID != ownerID && row.ExpiresAtMs > now {
				return nil
			}
			version = obj.Version
		}
		value, err := json.Marshal(leaseRow{OwnerID: ownerID, ExpiresAtMs: now + ttl.Milliseconds()})
		if err != nil {
			return fmt.Errorf("marshal lease: %w", err)
		}
		_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
			serverWrite(collectionBotLeases, code, string(value), version),
		})
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			// Another coordinator won the race since the read.
			return nil
		}
		if err != nil {
			return err
		}
		held = true
		return nil
	})
	return held, err
}

// ReleaseBotLease deletes the lease only while ownerID still holds it.
func (a *StoreAdapter) ReleaseBotLease(ctx context.Context, code, ownerID string) error {
	return a.withRetry(ctx, "release bot lease", func(ctx context.Context) error {
		obj, found, err := a.readOne(ctx, collectionBotLeases, code)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		var row leaseRow
		if err := json.Unmarshal([]byte(obj.Value), &row); err != nil {
			return fmt.Errorf("lease row corrupt: %w", err)
		}
		if row.OwnerID != ownerID {
			return nil
		}
		err = a.nk.StorageDelete(ctx, []*runtime.StorageDelete{{
			Collection: collectionBotLeases,
			Key:        code,
			Version:    obj.Version,
		}})
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			// Re-upped or stolen since the read; leave it alone.
			return nil
		}
		return err
	})
}

// ListActiveTimers returns the codes of rooms whose indexed auto-pass
// deadline has arrived.
func (a *StoreAdapter) ListActiveTimers(ctx context.Context) ([]string, error) {
	var due []string
	err := a.withRetry(ctx, "list active timers", func(ctx context.Context) error {
		due = due[:0]
		now := a.clock.Now().UnixMilli()
		cursor := ""
		for {
			objects, next, err := a.nk.StorageList(ctx, "", "", collectionTimerIndex, 100, cursor)
			if err != nil {
				return err
			}
			for _, obj := range objects {
				var row timerIndexRow
				if err := json.Unmarshal([]byte(obj.Value), &row); err != nil {
					a.logger.Warn("timer index row %s corrupt: %v", obj.Key, err)
					continue
				}
				if row.Armed && row.ExpiresAtMs <= now {
					due = append(due, obj.Key)
				}
			}
			if next == "" {
				break
			}
			cursor = next
		}
		return nil
	})
	return due, err
}
