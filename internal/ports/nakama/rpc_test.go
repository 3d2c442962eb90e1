package nakama

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/stretchr/testify/require"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/app"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/config"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/ports"
)

type recordingBus struct {
	mu      sync.Mutex
	batches [][]ports.Event
}

func (b *recordingBus) Publish(ctx context.Context, code string, events []ports.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, events)
	return nil
}

func (b *recordingBus) kinds() []ports.EventKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []ports.EventKind
	for _, batch := range b.batches {
		for _, ev := range batch {
			out = append(out, ev.Kind)
		}
	}
	return out
}

type recordingDispatcher struct {
	mu    sync.Mutex
	codes []string
}

func (d *recordingDispatcher) Trigger(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes = append(d.codes, code)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.codes)
}

type fakeStreams struct {
	mu     sync.Mutex
	labels []string
}

func (f *fakeStreams) StreamUserJoin(mode uint8, subject, subcontext, label, userID, sessionID string, hidden, persistence bool, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels = append(f.labels, label)
	return true, nil
}

type rpcHarness struct {
	t          *testing.T
	handlers   *Handlers
	store      *StoreAdapter
	svc        *app.Service
	tokens     *app.ServiceTokenService
	bus        *recordingBus
	dispatcher *recordingDispatcher
	streams    *fakeStreams
	clock      *quartz.Mock
	cfg        *config.GameConfig
}

func newRPCHarness(t *testing.T) *rpcHarness {
	t.Helper()
	fake := newFakeStorage()
	clock := quartz.NewMock(t)
	cfg := config.Default()
	store := NewStoreAdapter(fake, noopLogger{}, clock, cfg)
	bus := &recordingBus{}
	svc := app.NewService(store, bus, clock, noopLogger{}, cfg, rand.New(rand.NewSource(7)))
	// Token expiry is validated against the wall clock during parsing, so
	// the token service stays on the real one.
	tokens := app.NewServiceTokenService("test-secret", nil)
	streams := &fakeStreams{}
	handlers := NewHandlers(svc, store, tokens, streams, noopLogger{})
	dispatcher := &recordingDispatcher{}
	handlers.SetDispatcher(dispatcher)
	return &rpcHarness{
		t:          t,
		handlers:   handlers,
		store:      store,
		svc:        svc,
		tokens:     tokens,
		bus:        bus,
		dispatcher: dispatcher,
		streams:    streams,
		clock:      clock,
		cfg:        cfg,
	}
}

// sessionCtx mimics the context Nakama hands an RPC invoked over a socket.
func sessionCtx(identity string) context.Context {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, identity)
	return context.WithValue(ctx, runtime.RUNTIME_CTX_SESSION_ID, "session-"+identity)
}

func (h *rpcHarness) call(ctx context.Context, fn func(context.Context, string) (string, error), req any) string {
	h.t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(h.t, err)
	out, err := fn(ctx, string(payload))
	require.NoError(h.t, err)
	return out
}

func (h *rpcHarness) createRoom(identity string, seats, bots int) *domain.Room {
	h.t.Helper()
	out := h.call(sessionCtx(identity), h.handlers.CreateRoom, createRoomRequest{
		ActorIdentity: identity,
		SeatCount:     seats,
		BotCount:      &bots,
	})
	var resp createRoomResponse
	require.NoError(h.t, json.Unmarshal([]byte(out), &resp))
	require.True(h.t, resp.Success)
	require.NotNil(h.t, resp.Room)
	return resp.Room
}

func (h *rpcHarness) craftRoom(code string, seats []domain.Seat) *domain.Room {
	h.t.Helper()
	room := &domain.Room{ID: "room-" + code, Code: code, Seats: seats}
	require.NoError(h.t, h.store.CreateRoom(context.Background(), room))
	return room
}

func (h *rpcHarness) craftState(code string, st *domain.GameState) {
	h.t.Helper()
	_, err := h.store.SaveGameState(context.Background(), code, st, "", nil)
	require.NoError(h.t, err)
}

func (h *rpcHarness) loadState(code string) *domain.GameState {
	h.t.Helper()
	st, _, err := h.store.LoadGameState(context.Background(), code)
	require.NoError(h.t, err)
	return st
}

func requireErrorKind(t *testing.T, raw, kind string) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	require.False(t, resp.Success)
	require.Equal(t, kind, resp.Error)
	return resp
}

func card(rank domain.Rank, suit domain.Suit) domain.Card {
	return domain.Card{Rank: rank, Suit: suit}
}

// playingState builds a mid-match state from explicit hands. The played
// pile takes the top of the undealt complement so the card accounting
// matches a real deal of len(hands) seats.
func playingState(hands [][]domain.Card, turn int) *domain.GameState {
	var all []domain.Card
	for _, h := range hands {
		all = append(all, h...)
	}
	pool := domain.RemoveCards(domain.NewDeck(), all)
	need := len(hands)*domain.HandSize - len(all)
	return &domain.GameState{
		Phase:           domain.PhasePlaying,
		MatchNumber:     1,
		CurrentTurn:     turn,
		Hands:           hands,
		PlayedCards:     pool[len(pool)-need:],
		Scores:          make([]int, len(hands)),
		LastMatchWinner: -1,
		FinalWinner:     -1,
		Revision:        1,
	}
}

func TestRPCCreateRoom(t *testing.T) {
	h := newRPCHarness(t)

	out := h.call(sessionCtx("alice"), h.handlers.CreateRoom, createRoomRequest{ActorIdentity: "alice"})
	var resp createRoomResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Room.Seats, 4)
	require.Len(t, resp.Room.Code, 6)

	require.Equal(t, "alice", resp.Room.Seats[0].Identity)
	require.False(t, resp.Room.Seats[0].IsBot)
	seen := map[string]bool{"alice": true}
	for _, seat := range resp.Room.Seats[1:] {
		require.True(t, seat.IsBot)
		require.NotEmpty(t, seat.Identity)
		require.False(t, seen[seat.Identity], "bot identities must not collide")
		seen[seat.Identity] = true
		require.Equal(t, "medium", seat.Difficulty)
	}

	require.Contains(t, h.streams.labels, RoomStreamLabel(resp.Room.Code))
	require.Contains(t, h.streams.labels, PrivateStreamLabel(resp.Room.Code, "alice"))
}

func TestRPCCreateRoomValidation(t *testing.T) {
	h := newRPCHarness(t)

	out := h.call(sessionCtx("mallory"), h.handlers.CreateRoom, createRoomRequest{ActorIdentity: "alice"})
	requireErrorKind(t, out, kindUnauthorized)

	out = h.call(sessionCtx("alice"), h.handlers.CreateRoom, createRoomRequest{ActorIdentity: "alice", SeatCount: 1})
	requireErrorKind(t, out, kindBadRequest)

	five := 5
	out = h.call(sessionCtx("alice"), h.handlers.CreateRoom, createRoomRequest{ActorIdentity: "alice", BotCount: &five})
	requireErrorKind(t, out, kindBadRequest)

	out = h.call(sessionCtx("alice"), h.handlers.CreateRoom, createRoomRequest{ActorIdentity: "alice", BotDifficulty: "nightmare"})
	requireErrorKind(t, out, kindBadRequest)

	out = h.call(sessionCtx("alice"), h.handlers.CreateRoom, createRoomRequest{})
	requireErrorKind(t, out, kindBadRequest)

	_, err := h.handlers.CreateRoom(sessionCtx("alice"), "{not json")
	require.Error(t, err)
}

func TestRPCJoinRoom(t *testing.T) {
	h := newRPCHarness(t)
	room := h.createRoom("alice", 2, 0)

	out := h.call(sessionCtx("bob"), h.handlers.JoinRoom, joinRoomRequest{RoomCode: room.Code, ActorIdentity: "bob"})
	var resp joinRoomResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 1, resp.SeatIndex)
	require.Equal(t, "bob", resp.Room.Seats[1].Identity)
	require.Nil(t, resp.State, "no snapshot before the deal")
	require.Contains(t, h.streams.labels, PrivateStreamLabel(room.Code, "bob"))

	// Rejoining is idempotent and lands on the same seat.
	out = h.call(sessionCtx("bob"), h.handlers.JoinRoom, joinRoomRequest{RoomCode: room.Code, ActorIdentity: "bob"})
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 1, resp.SeatIndex)

	out = h.call(sessionCtx("carol"), h.handlers.JoinRoom, joinRoomRequest{RoomCode: room.Code, ActorIdentity: "carol"})
	requireErrorKind(t, out, kindRoomFull)

	out = h.call(sessionCtx("dave"), h.handlers.JoinRoom, joinRoomRequest{RoomCode: "ZZZZZZ", ActorIdentity: "dave"})
	requireErrorKind(t, out, kindRoomNotFound)
}

func TestRPCJoinRoomSnapshotAndReplay(t *testing.T) {
	h := newRPCHarness(t)
	room := h.createRoom("alice", 2, 0)
	h.call(sessionCtx("bob"), h.handlers.JoinRoom, joinRoomRequest{RoomCode: room.Code, ActorIdentity: "bob"})
	h.call(sessionCtx("alice"), h.handlers.StartGame, startGameRequest{RoomCode: room.Code, ActorIdentity: "alice"})

	out := h.call(sessionCtx("bob"), h.handlers.JoinRoom, joinRoomRequest{RoomCode: room.Code, ActorIdentity: "bob", FromRevision: 1})
	var resp joinRoomResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.State)
	require.Equal(t, domain.PhaseFirstPlay, resp.State.Phase)
	require.Equal(t, []int{13, 13}, resp.State.HandCounts)
	require.Len(t, resp.State.Hand, 13, "the viewer sees their own hand")
	require.Equal(t, int64(1), resp.State.Revision)

	st := h.loadState(room.Code)
	require.Equal(t, st.Hands[1], resp.State.Hand)

	// Replay keeps bob's private deal and the broadcast, drops alice's deal.
	require.Len(t, resp.Events, 2)
	require.Equal(t, string(app.EventHandDealt), resp.Events[0].Kind)
	require.Equal(t, string(app.EventMatchStarted), resp.Events[1].Kind)
	var dealt app.HandDealtPayload
	require.NoError(t, json.Unmarshal(resp.Events[0].Payload, &dealt))
	require.Equal(t, 1, dealt.SeatIndex)
}

func TestRPCStartGame(t *testing.T) {
	h := newRPCHarness(t)
	room := h.createRoom("alice", 3, 0)
	h.call(sessionCtx("bob"), h.handlers.JoinRoom, joinRoomRequest{RoomCode: room.Code, ActorIdentity: "bob"})

	out := h.call(sessionCtx("zed"), h.handlers.StartGame, startGameRequest{RoomCode: room.Code, ActorIdentity: "zed"})
	requireErrorKind(t, out, kindNotAMember)

	out = h.call(sessionCtx("alice"), h.handlers.StartGame, startGameRequest{RoomCode: room.Code, ActorIdentity: "alice"})
	var resp startGameResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 1, resp.MatchNumber)
	require.Equal(t, domain.PhaseFirstPlay, resp.Phase)

	// The unclaimed seat was backfilled before the deal.
	loaded, err := h.store.LoadRoom(context.Background(), room.Code)
	require.NoError(t, err)
	require.True(t, loaded.Seats[2].IsBot)
	require.NotEmpty(t, loaded.Seats[2].Identity)

	kinds := h.bus.kinds()
	require.Equal(t, []ports.EventKind{
		app.EventHandDealt, app.EventHandDealt, app.EventHandDealt, app.EventMatchStarted,
	}, kinds)

	out = h.call(sessionCtx("alice"), h.handlers.StartGame, startGameRequest{RoomCode: room.Code, ActorIdentity: "alice"})
	requireErrorKind(t, out, kindAlreadyStarted)
}

func TestRPCPlayAndPassFlow(t *testing.T) {
	h := newRPCHarness(t)
	room := h.createRoom("alice", 2, 0)
	h.call(sessionCtx("bob"), h.handlers.JoinRoom, joinRoomRequest{RoomCode: room.Code, ActorIdentity: "bob"})
	h.call(sessionCtx("alice"), h.handlers.StartGame, startGameRequest{RoomCode: room.Code, ActorIdentity: "alice"})

	roster, err := h.store.LoadRoom(context.Background(), room.Code)
	require.NoError(t, err)
	st := h.loadState(room.Code)
	leadSeat := st.CurrentTurn
	followSeat := 1 - leadSeat
	lead := roster.Seats[leadSeat].Identity
	follow := roster.Seats[followSeat].Identity
	opening := st.OpeningCard()

	out := h.call(sessionCtx(follow), h.handlers.PlayCards, playCardsRequest{
		RoomCode: room.Code, ActorIdentity: follow, Cards: []domain.Card{st.Hands[followSeat][0]},
	})
	requireErrorKind(t, out, kindNotYourTurn)

	highest := st.Hands[leadSeat][len(st.Hands[leadSeat])-1]
	out = h.call(sessionCtx(lead), h.handlers.PlayCards, playCardsRequest{
		RoomCode: room.Code, ActorIdentity: lead, Cards: []domain.Card{highest},
	})
	requireErrorKind(t, out, kindMustLeadLowest)

	out = h.call(sessionCtx(lead), h.handlers.PlayCards, playCardsRequest{
		RoomCode: room.Code, ActorIdentity: lead, Cards: []domain.Card{opening},
	})
	var play playCardsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &play))
	require.True(t, play.Success)
	require.Equal(t, domain.Single, play.ComboType)
	require.Equal(t, 12, play.CardsRemaining)
	require.Equal(t, followSeat, play.NextTurn)
	require.False(t, play.MatchEnded)
	require.Nil(t, play.AutoPassTimer)

	// One pass clears a heads-up trick and the lead comes back.
	out = h.call(sessionCtx(follow), h.handlers.PlayerPass, passRequest{RoomCode: room.Code, ActorIdentity: follow})
	var pass passResponse
	require.NoError(t, json.Unmarshal([]byte(out), &pass))
	require.True(t, pass.Success)
	require.True(t, pass.TrickCleared)
	require.Equal(t, leadSeat, pass.NextTurn)
	require.Zero(t, pass.Passes)

	// Passing while leading an empty trick is a quiet no-op.
	out = h.call(sessionCtx(lead), h.handlers.PlayerPass, passRequest{RoomCode: room.Code, ActorIdentity: lead})
	require.NoError(t, json.Unmarshal([]byte(out), &pass))
	require.True(t, pass.Success)
	require.False(t, pass.TrickCleared)
	require.Equal(t, leadSeat, pass.NextTurn)

	st = h.loadState(room.Code)
	out = h.call(sessionCtx(lead), h.handlers.PlayCards, playCardsRequest{
		RoomCode: room.Code, ActorIdentity: lead, Cards: []domain.Card{st.Hands[followSeat][0]},
	})
	requireErrorKind(t, out, kindCardNotInHand)

	mixed := []domain.Card{}
	for _, c := range st.Hands[leadSeat] {
		if len(mixed) == 0 || mixed[0].Rank != c.Rank {
			mixed = append(mixed, c)
		}
		if len(mixed) == 2 {
			break
		}
	}
	require.Len(t, mixed, 2)
	out = h.call(sessionCtx(lead), h.handlers.PlayCards, playCardsRequest{
		RoomCode: room.Code, ActorIdentity: lead, Cards: mixed,
	})
	requireErrorKind(t, out, kindInvalidCombo)

	out = h.call(sessionCtx(lead), h.handlers.PlayCards, playCardsRequest{RoomCode: room.Code, ActorIdentity: lead})
	requireErrorKind(t, out, kindBadRequest)

	kinds := h.bus.kinds()
	require.Contains(t, kinds, app.EventCardsPlayed)
	require.Contains(t, kinds, app.EventPlayerPassed)
	require.Contains(t, kinds, app.EventTrickCleared)
}

func TestRPCBeatRules(t *testing.T) {
	h := newRPCHarness(t)
	code := "BEAT01"
	h.craftRoom(code, []domain.Seat{
		{Index: 0, Identity: "alice"},
		{Index: 1, Identity: "bob"},
	})
	h.craftState(code, playingState([][]domain.Card{
		{card(domain.Five, domain.Hearts), card(domain.Seven, domain.Hearts)},
		{card(domain.Four, domain.Hearts), card(domain.Six, domain.Hearts), card(domain.Eight, domain.Hearts)},
	}, 0))

	out := h.call(sessionCtx("alice"), h.handlers.PlayCards, playCardsRequest{
		RoomCode: code, ActorIdentity: "alice", Cards: []domain.Card{card(domain.Five, domain.Hearts)},
	})
	var play playCardsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &play))
	require.True(t, play.Success)
	require.Equal(t, 1, play.CardsRemaining)

	out = h.call(sessionCtx("bob"), h.handlers.PlayCards, playCardsRequest{
		RoomCode: code, ActorIdentity: "bob", Cards: []domain.Card{card(domain.Four, domain.Hearts)},
	})
	requireErrorKind(t, out, kindCannotBeat)

	// Alice is down to one card, so bob must spend his strongest single.
	out = h.call(sessionCtx("bob"), h.handlers.PlayCards, playCardsRequest{
		RoomCode: code, ActorIdentity: "bob", Cards: []domain.Card{card(domain.Six, domain.Hearts)},
	})
	resp := requireErrorKind(t, out, kindMustPlayHighest)
	require.Equal(t, "8H", resp.Details)

	out = h.call(sessionCtx("bob"), h.handlers.PlayerPass, passRequest{RoomCode: code, ActorIdentity: "bob"})
	requireErrorKind(t, out, kindMustPlayHighest)

	out = h.call(sessionCtx("bob"), h.handlers.PlayCards, playCardsRequest{
		RoomCode: code, ActorIdentity: "bob", Cards: []domain.Card{card(domain.Eight, domain.Hearts)},
	})
	require.NoError(t, json.Unmarshal([]byte(out), &play))
	require.True(t, play.Success)
	require.Equal(t, 0, play.NextTurn)
}

func TestRPCAutoPassTimerFlow(t *testing.T) {
	h := newRPCHarness(t)
	code := "TIMER2"
	h.craftRoom(code, []domain.Seat{
		{Index: 0, Identity: "alice"},
		{Index: 1, Identity: "bob"},
	})
	h.craftState(code, playingState([][]domain.Card{
		{card(domain.Two, domain.Spades), card(domain.Three, domain.Hearts)},
		{card(domain.Four, domain.Hearts), card(domain.Five, domain.Hearts)},
	}, 0))

	// The 2S single is unbeatable, so the countdown arms with alice exempt.
	out := h.call(sessionCtx("alice"), h.handlers.PlayCards, playCardsRequest{
		RoomCode: code, ActorIdentity: "alice", Cards: []domain.Card{card(domain.Two, domain.Spades)},
	})
	var play playCardsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &play))
	require.True(t, play.Success)
	require.NotNil(t, play.AutoPassTimer)
	require.Equal(t, int64(1), play.AutoPassTimer.SequenceID)
	require.Equal(t, 0, play.AutoPassTimer.ExemptSeat)
	require.Equal(t, h.cfg.AutoPassDurationMs, play.AutoPassTimer.DurationMs)

	// The clearing pass routes the lead back to the exempt seat.
	out = h.call(sessionCtx("bob"), h.handlers.PlayerPass, passRequest{RoomCode: code, ActorIdentity: "bob"})
	var pass passResponse
	require.NoError(t, json.Unmarshal([]byte(out), &pass))
	require.True(t, pass.Success)
	require.True(t, pass.TrickCleared)
	require.Equal(t, 0, pass.NextTurn)
	require.Nil(t, pass.AutoPassTimer)

	st := h.loadState(code)
	require.Nil(t, st.Timer)

	kinds := h.bus.kinds()
	require.Contains(t, kinds, app.EventTimerStarted)
}

func TestRPCInternalTokenSkipsBotTrigger(t *testing.T) {
	h := newRPCHarness(t)
	code := "TRIG01"
	h.craftRoom(code, []domain.Seat{
		{Index: 0, Identity: "alice"},
		{Index: 1, Identity: "bot-ben", IsBot: true, Difficulty: "medium"},
		{Index: 2, Identity: "bot-cal", IsBot: true, Difficulty: "medium"},
	})
	h.craftState(code, playingState([][]domain.Card{
		{card(domain.Three, domain.Diamonds), card(domain.Seven, domain.Hearts), card(domain.Eight, domain.Hearts)},
		{card(domain.Four, domain.Diamonds), card(domain.Nine, domain.Hearts), card(domain.Ten, domain.Hearts)},
		{card(domain.Five, domain.Diamonds), card(domain.Jack, domain.Hearts), card(domain.Queen, domain.Hearts)},
	}, 0))

	// A session play that hands the turn to a bot triggers the coordinator.
	out := h.call(sessionCtx("alice"), h.handlers.PlayCards, playCardsRequest{
		RoomCode: code, ActorIdentity: "alice", Cards: []domain.Card{card(domain.Three, domain.Diamonds)},
	})
	var play playCardsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &play))
	require.True(t, play.Success)
	require.Equal(t, 1, play.NextTurn)
	require.Equal(t, []string{code}, h.dispatcher.codes)

	// The coordinator's own move is authorized by token, not session, and
	// must not re-trigger even though another bot is up next.
	invoker := newServiceInvoker(h.handlers, h.tokens)
	err := invoker.PlayCards(context.Background(), code, "bot-ben", []domain.Card{card(domain.Four, domain.Diamonds)})
	require.NoError(t, err)
	require.Equal(t, 1, h.dispatcher.count())

	st := h.loadState(code)
	require.Equal(t, 2, st.CurrentTurn)

	// Sentinels survive the envelope round trip for the coordinator's
	// race handling.
	err = invoker.PlayCards(context.Background(), code, "bot-ben", []domain.Card{card(domain.Nine, domain.Hearts)})
	require.ErrorIs(t, err, app.ErrNotYourTurn)

	out = h.call(context.Background(), h.handlers.PlayCards, playCardsRequest{
		RoomCode: code, ActorIdentity: "bot-cal", Cards: []domain.Card{card(domain.Five, domain.Diamonds)}, ServiceToken: "garbage",
	})
	requireErrorKind(t, out, kindUnauthorized)
}

func TestRPCBeginNextMatch(t *testing.T) {
	h := newRPCHarness(t)
	code := "NEXT01"
	h.craftRoom(code, []domain.Seat{
		{Index: 0, Identity: "alice"},
		{Index: 1, Identity: "bot-ben", IsBot: true, Difficulty: "medium"},
	})
	h.craftState(code, &domain.GameState{
		Phase:           domain.PhaseMatchFinished,
		MatchNumber:     1,
		CurrentTurn:     1,
		Hands:           [][]domain.Card{{card(domain.King, domain.Hearts), card(domain.King, domain.Spades)}, {}},
		PlayedCards:     []domain.Card{},
		Scores:          []int{5, 0},
		LastMatchScores: []int{5, 0},
		LastMatchWinner: 1,
		FinalWinner:     -1,
		Revision:        3,
	})

	out := h.call(sessionCtx("zed"), h.handlers.BeginNextMatch, startGameRequest{RoomCode: code, ActorIdentity: "zed"})
	requireErrorKind(t, out, kindNotAMember)

	out = h.call(sessionCtx("alice"), h.handlers.BeginNextMatch, startGameRequest{RoomCode: code, ActorIdentity: "alice"})
	var resp startGameResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 2, resp.MatchNumber)
	require.Equal(t, domain.PhasePlaying, resp.Phase)
	require.Equal(t, 1, resp.CurrentTurn, "the previous winner leads")
	require.Equal(t, 1, h.dispatcher.count(), "a bot on lead triggers the coordinator")

	st := h.loadState(code)
	require.Len(t, st.Hands[0], 13)
	require.Len(t, st.Hands[1], 13)
	require.Equal(t, []int{5, 0}, st.Scores, "cumulative totals carry over")

	out = h.call(sessionCtx("alice"), h.handlers.BeginNextMatch, startGameRequest{RoomCode: code, ActorIdentity: "alice"})
	requireErrorKind(t, out, kindMatchNotFinished)
}

func TestRPCBeginNextMatchInternal(t *testing.T) {
	h := newRPCHarness(t)
	code := "NEXT02"
	h.craftRoom(code, []domain.Seat{
		{Index: 0, Identity: "alice"},
		{Index: 1, Identity: "bot-ben", IsBot: true, Difficulty: "medium"},
	})
	h.craftState(code, &domain.GameState{
		Phase:           domain.PhaseMatchFinished,
		MatchNumber:     1,
		CurrentTurn:     1,
		Hands:           [][]domain.Card{{card(domain.Queen, domain.Clubs)}, {}},
		PlayedCards:     []domain.Card{},
		Scores:          []int{1, 0},
		LastMatchScores: []int{1, 0},
		LastMatchWinner: 1,
		FinalWinner:     -1,
		Revision:        2,
	})

	// The coordinator rolls matches over itself; no session, no membership,
	// no re-trigger.
	invoker := newServiceInvoker(h.handlers, h.tokens)
	require.NoError(t, invoker.BeginNextMatch(context.Background(), code))
	require.Zero(t, h.dispatcher.count())

	st := h.loadState(code)
	require.Equal(t, 2, st.MatchNumber)
	require.Equal(t, domain.PhasePlaying, st.Phase)

	err := invoker.BeginNextMatch(context.Background(), code)
	require.ErrorIs(t, err, app.ErrMatchNotFinished)
}

func TestRPCErrorKinds(t *testing.T) {
	h := newRPCHarness(t)

	out := h.call(sessionCtx("alice"), h.handlers.PlayCards, playCardsRequest{
		RoomCode: "ZZZZZZ", ActorIdentity: "alice", Cards: []domain.Card{card(domain.Three, domain.Diamonds)},
	})
	requireErrorKind(t, out, kindRoomNotFound)

	room := h.createRoom("alice", 2, 0)
	out = h.call(sessionCtx("alice"), h.handlers.PlayCards, playCardsRequest{
		RoomCode: room.Code, ActorIdentity: "alice", Cards: []domain.Card{card(domain.Three, domain.Diamonds)},
	})
	requireErrorKind(t, out, kindStateMissing)

	// No session and no token is rejected before any store access.
	out = h.call(context.Background(), h.handlers.PlayerPass, passRequest{RoomCode: room.Code, ActorIdentity: "alice"})
	requireErrorKind(t, out, kindUnauthorized)

	_, err := h.handlers.PlayCards(sessionCtx("alice"), "{not json")
	require.Error(t, err)
}

func TestSweeperEnforcesDeadline(t *testing.T) {
	h := newRPCHarness(t)
	code := "SWEEP1"
	h.craftRoom(code, []domain.Seat{
		{Index: 0, Identity: "alice"},
		{Index: 1, Identity: "bot-ben", IsBot: true, Difficulty: "medium"},
	})
	now := h.clock.Now().UnixMilli()
	played := card(domain.Two, domain.Spades)
	st := playingState([][]domain.Card{
		{card(domain.Three, domain.Diamonds), card(domain.Seven, domain.Hearts)},
		{card(domain.Nine, domain.Hearts)},
	}, 0)
	st.LastPlay = &domain.LastPlay{Combo: domain.Classify([]domain.Card{played}), Seat: 1}
	st.Timer = &domain.AutoPassTimer{
		SequenceID:  1,
		ExemptSeat:  1,
		StartedAtMs: now - 11_000,
		ExpiresAtMs: now - 1_000,
		DurationMs:  10_000,
	}
	st.TimerSeq = 1
	st.Revision = 2
	h.craftState(code, st)

	due, err := h.store.ListActiveTimers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{code}, due)

	sweeper := NewSweeper(h.store, h.svc, h.dispatcher, h.clock, noopLogger{}, h.cfg)
	sweeper.sweep(context.Background())

	after := h.loadState(code)
	require.Nil(t, after.Timer)
	require.Nil(t, after.LastPlay)
	require.Equal(t, 1, after.CurrentTurn, "the lead returns to the exempt seat")
	require.Equal(t, 1, h.dispatcher.count(), "a bot taking the lead starts a run")

	kinds := h.bus.kinds()
	require.Contains(t, kinds, app.EventTimerExpired)
	require.Contains(t, kinds, app.EventTrickCleared)

	// The expiry commit disarmed the index, so the next sweep is a no-op.
	sweeper.sweep(context.Background())
	require.Equal(t, 1, h.dispatcher.count())
}

func TestSweeperRunStopsWithContext(t *testing.T) {
	h := newRPCHarness(t)
	sweeper := NewSweeper(h.store, h.svc, h.dispatcher, h.clock, noopLogger{}, h.cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
