package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/config"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/ports"
)

const testRoomCode = "ROOM1"

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return map[string]interface{}{}
}

type revisionedEvent struct {
	revision int64
	event    ports.Event
}

// fakeStore is an in-memory StorePort with version predicates. States
// round-trip through JSON on every save and load so aliasing between the
// service and the store cannot mask bugs.
type fakeStore struct {
	mu       sync.Mutex
	room     *domain.Room
	state    *domain.GameState
	version  int
	history  []revisionedEvent
	scores   []int
	saveErrs []error
	saves    int
}

func newFakeStore(room *domain.Room) *fakeStore {
	return &fakeStore{room: room}
}

func (f *fakeStore) LoadRoom(ctx context.Context, code string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.room == nil || f.room.Code != code {
		return nil, ports.ErrRoomNotFound
	}
	return f.room, nil
}

func (f *fakeStore) LoadGameState(ctx context.Context, code string) (*domain.GameState, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil {
		return nil, "", ports.ErrStateMissing
	}
	return cloneState(f.state), strconv.Itoa(f.version), nil
}

func (f *fakeStore) SaveGameState(ctx context.Context, code string, st *domain.GameState, expectedVersion string, events []ports.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if len(f.saveErrs) > 0 {
		err := f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
		if err != nil {
			return "", err
		}
	}
	if expectedVersion == "" {
		if f.state != nil {
			return "", ports.ErrVersionConflict
		}
	} else if f.state == nil || expectedVersion != strconv.Itoa(f.version) {
		return "", ports.ErrVersionConflict
	}
	f.state = cloneState(st)
	f.version++
	for _, ev := range events {
		f.history = append(f.history, revisionedEvent{revision: st.Revision, event: ev})
	}
	return strconv.Itoa(f.version), nil
}

func (f *fakeStore) LoadEvents(ctx context.Context, code string, fromRevision int64) ([]ports.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ports.Event
	for _, re := range f.history {
		if re.revision >= fromRevision {
			out = append(out, re.event)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateSeatScores(ctx context.Context, code string, scores []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = append([]int(nil), scores...)
	return nil
}

func (f *fakeStore) TryAcquireBotLease(ctx context.Context, code, ownerID string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeStore) ReleaseBotLease(ctx context.Context, code, ownerID string) error {
	return nil
}

func (f *fakeStore) ListActiveTimers(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != nil && f.state.Timer != nil {
		return []string{testRoomCode}, nil
	}
	return nil, nil
}

// failNextSave queues errors returned by upcoming saves, one per call;
// nil entries let that save through.
func (f *fakeStore) failNextSave(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErrs = append(f.saveErrs, errs...)
}

func (f *fakeStore) currentState(t *testing.T) *domain.GameState {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil {
		t.Fatal("no state stored")
	}
	return cloneState(f.state)
}

func cloneState(st *domain.GameState) *domain.GameState {
	raw, err := json.Marshal(st)
	if err != nil {
		panic(err)
	}
	out := &domain.GameState{}
	if err := json.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}

// fakeBus records published batches.
type fakeBus struct {
	mu      sync.Mutex
	batches [][]ports.Event
	err     error
}

func (b *fakeBus) Publish(ctx context.Context, code string, events []ports.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.batches = append(b.batches, events)
	return nil
}

func (b *fakeBus) kinds() []EventKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []EventKind
	for _, batch := range b.batches {
		for _, ev := range batch {
			out = append(out, ev.Kind)
		}
	}
	return out
}

func (b *fakeBus) lastBatch() []ports.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.batches) == 0 {
		return nil
	}
	return b.batches[len(b.batches)-1]
}

type harness struct {
	svc   *Service
	store *fakeStore
	bus   *fakeBus
	clock *quartz.Mock
	room  *domain.Room
	cfg   *config.GameConfig
}

func newHarness(t *testing.T, room *domain.Room) *harness {
	t.Helper()
	mClock := quartz.NewMock(t)
	store := newFakeStore(room)
	bus := &fakeBus{}
	cfg := config.Default()
	svc := NewService(store, bus, mClock, noopLogger{}, cfg, rand.New(rand.NewSource(7)))
	return &harness{svc: svc, store: store, bus: bus, clock: mClock, room: room, cfg: cfg}
}

// seed installs a state directly, bypassing StartGame.
func (h *harness) seed(t *testing.T, st *domain.GameState) {
	t.Helper()
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.state = cloneState(st)
	h.store.version = 1
}

func testRoom(n int, botSeats ...int) *domain.Room {
	seats := make([]domain.Seat, n)
	for i := range seats {
		seats[i] = domain.Seat{Index: i, Identity: fmt.Sprintf("p%d", i)}
	}
	for _, b := range botSeats {
		seats[b].IsBot = true
		seats[b].Identity = fmt.Sprintf("bot%d", b)
	}
	return &domain.Room{ID: "room-1", Code: testRoomCode, Seats: seats}
}

func hand(t *testing.T, spec string) []domain.Card {
	t.Helper()
	if spec == "" {
		return []domain.Card{}
	}
	parts := strings.Fields(spec)
	cards := make([]domain.Card, len(parts))
	for i, p := range parts {
		c, err := domain.ParseCard(p)
		if err != nil {
			t.Fatalf("parse card %q: %v", p, err)
		}
		cards[i] = c
	}
	return cards
}

// stateFromHands builds a consistent mid-match state: every dealt card
// not sitting in a hand is treated as already played. Seats beyond the
// given hands do not exist, so the deal is truncated for small games.
func stateFromHands(t *testing.T, hands ...[]domain.Card) *domain.GameState {
	t.Helper()
	n := len(hands)
	inHand := make(map[domain.Card]bool)
	total := 0
	for _, h := range hands {
		for _, c := range h {
			if inHand[c] {
				t.Fatalf("card %s appears twice across hands", c)
			}
			inHand[c] = true
		}
		total += len(h)
	}
	dealt := n * domain.HandSize
	if total > dealt {
		t.Fatalf("hands hold %d cards, beyond the %d dealt", total, dealt)
	}
	played := make([]domain.Card, 0, dealt-total)
	for _, c := range domain.NewDeck() {
		if len(played) == dealt-total {
			break
		}
		if !inHand[c] {
			played = append(played, c)
		}
	}
	st := &domain.GameState{
		Phase:           domain.PhasePlaying,
		MatchNumber:     1,
		CurrentTurn:     0,
		Hands:           make([][]domain.Card, n),
		PlayedCards:     played,
		Scores:          make([]int, n),
		LastMatchWinner: -1,
		FinalWinner:     -1,
		Revision:        1,
	}
	for i, h := range hands {
		st.Hands[i] = append([]domain.Card{}, h...)
	}
	return st
}

// lastPlayOf stamps a standing play onto the state for follow scenarios.
func lastPlayOf(t *testing.T, st *domain.GameState, seat int, spec string) {
	t.Helper()
	cards := hand(t, spec)
	combo := domain.Classify(cards)
	if combo.Kind == domain.Invalid {
		t.Fatalf("last play %q does not classify", spec)
	}
	st.LastPlay = &domain.LastPlay{Combo: combo, Seat: seat}
}
