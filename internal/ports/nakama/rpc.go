package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/app"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/bot"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/ports"
)

// maxSeatCount is fixed by the deal: the deck splits into 13-card hands
// four ways.
const maxSeatCount = 4

// sessionStreamAPI is the slice of runtime.NakamaModule the join flow
// needs to subscribe sessions to room streams.
type sessionStreamAPI interface {
	StreamUserJoin(mode uint8, subject, subcontext, label, userID, sessionID string, hidden, persistence bool, status string) (bool, error)
}

// Dispatcher triggers bot coordination after commits that hand the turn
// to a bot seat.
type Dispatcher interface {
	Trigger(code string)
}

// Handlers is the RPC surface of the engine. One instance serves every
// room; all game state lives in the store.
type Handlers struct {
	svc        *app.Service
	store      *StoreAdapter
	tokens     *app.ServiceTokenService
	streams    sessionStreamAPI
	dispatcher Dispatcher
	logger     runtime.Logger
}

// NewHandlers builds the RPC surface. The dispatcher is attached once the
// coordinator exists; until then commits simply do not trigger bot runs.
func NewHandlers(svc *app.Service, store *StoreAdapter, tokens *app.ServiceTokenService, streams sessionStreamAPI, logger runtime.Logger) *Handlers {
	return &Handlers{svc: svc, store: store, tokens: tokens, streams: streams, logger: logger}
}

// SetDispatcher attaches the post-commit bot trigger.
func (h *Handlers) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

// Register wires every RPC id to its handler.
func (h *Handlers) Register(initializer runtime.Initializer) error {
	rpcs := map[string]func(context.Context, string) (string, error){
		RpcCreateRoom:     h.CreateRoom,
		RpcJoinRoom:       h.JoinRoom,
		RpcStartGame:      h.StartGame,
		RpcPlayCards:      h.PlayCards,
		RpcPlayerPass:     h.PlayerPass,
		RpcBeginNextMatch: h.BeginNextMatch,
	}
	for id, fn := range rpcs {
		fn := fn
		wrapped := func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
			return fn(ctx, payload)
		}
		if err := initializer.RegisterRpc(id, wrapped); err != nil {
			return err
		}
	}
	return nil
}

func sessionUserID(ctx context.Context) string {
	id, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	return id
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(runtime.RUNTIME_CTX_SESSION_ID).(string)
	return id
}

// authorize checks the caller may act as identity inside the room. It
// reports internal mode when a service token carried the authorization;
// internal commits never re-trigger the coordinator that made them.
func (h *Handlers) authorize(ctx context.Context, token, identity, code string) (bool, error) {
	if identity != "" && sessionUserID(ctx) == identity {
		return false, nil
	}
	if token == "" {
		return false, errUnauthorized
	}
	if err := h.tokens.Verify(token, identity, code); err != nil {
		h.logger.Warn("service token rejected: room=%s actor=%s error=%v", code, identity, err)
		return false, errUnauthorized
	}
	return true, nil
}

func marshalResponse(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("internal error", 13)
	}
	return string(data), nil
}

// fail renders an engine error as the structured error envelope. Internal
// faults are logged loudly and surface as an opaque kind.
func (h *Handlers) fail(op, code string, err error) (string, error) {
	kind, details := errorKind(err)
	if kind == kindInternal {
		h.logger.Error("%s failed: room=%s error=%v", op, code, err)
	} else {
		h.logger.Debug("%s rejected: room=%s kind=%s", op, code, kind)
	}
	return marshalResponse(errorResponse{Error: kind, Details: details})
}

func badRequest(details string) (string, error) {
	return marshalResponse(errorResponse{Error: kindBadRequest, Details: details})
}

// newRoomCode derives a short join code from a fresh uuid.
func newRoomCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

// botSeat fills a seat from the identity pool. An explicit difficulty
// overrides the profile's own.
func botSeat(index int, difficulty string) domain.Seat {
	ident := bot.GetBotIdentity(index - 1)
	identity := ident.UserID
	if identity == "" {
		identity = fmt.Sprintf("bot-%d", index)
	}
	if difficulty == "" {
		difficulty = ident.Difficulty
	}
	if difficulty == "" {
		difficulty = bot.DifficultyMedium
	}
	return domain.Seat{Index: index, Identity: identity, IsBot: true, Difficulty: difficulty}
}

// CreateRoom provisions a room row: the creator on seat 0, the requested
// number of bots behind, any remaining seats left open for humans to join.
func (h *Handlers) CreateRoom(ctx context.Context, payload string) (string, error) {
	var req createRoomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	if req.ActorIdentity == "" {
		return badRequest("actor_identity is required")
	}
	// Sessionless calls are server-to-server and trusted; a session must
	// create for itself.
	if caller := sessionUserID(ctx); caller != "" && caller != req.ActorIdentity {
		return h.fail("create_room", "", errUnauthorized)
	}

	seats := req.SeatCount
	if seats == 0 {
		seats = maxSeatCount
	}
	if seats < app.MinPlayersToStartGame || seats > maxSeatCount {
		return badRequest(fmt.Sprintf("seat_count must be between %d and %d", app.MinPlayersToStartGame, maxSeatCount))
	}
	bots := seats - 1
	if req.BotCount != nil {
		bots = *req.BotCount
	}
	if bots < 0 || bots > seats-1 {
		return badRequest("bot_count must leave seat 0 for the creator")
	}
	switch req.BotDifficulty {
	case "", bot.DifficultyEasy, bot.DifficultyMedium, bot.DifficultyHard:
	default:
		return badRequest("unknown bot_difficulty")
	}

	room := &domain.Room{ID: uuid.NewString(), Seats: make([]domain.Seat, seats)}
	room.Seats[0] = domain.Seat{Index: 0, Identity: req.ActorIdentity}
	used := map[string]bool{req.ActorIdentity: true}
	for i := 1; i <= bots; i++ {
		seat := botSeat(i, req.BotDifficulty)
		if used[seat.Identity] {
			seat.Identity = fmt.Sprintf("bot-%d", i)
		}
		used[seat.Identity] = true
		room.Seats[i] = seat
	}
	for i := bots + 1; i < seats; i++ {
		room.Seats[i] = domain.Seat{Index: i}
	}

	for attempt := 0; ; attempt++ {
		room.Code = newRoomCode()
		err := h.store.CreateRoom(ctx, room)
		if err == nil {
			break
		}
		if errors.Is(err, ports.ErrVersionConflict) && attempt < 4 {
			continue
		}
		return h.fail("create_room", room.Code, err)
	}
	h.joinStreams(ctx, room.Code, req.ActorIdentity)

	h.logger.Info("room created: code=%s seats=%d bots=%d", room.Code, seats, bots)
	return marshalResponse(createRoomResponse{Success: true, Room: room})
}

// JoinRoom seats the actor, subscribes their session to the room streams
// and returns the roster plus a redacted state snapshot. Rejoining an
// already-held seat is idempotent; from_revision replays missed history.
func (h *Handlers) JoinRoom(ctx context.Context, payload string) (string, error) {
	var req joinRoomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	if req.RoomCode == "" || req.ActorIdentity == "" {
		return badRequest("room_code and actor_identity are required")
	}
	if _, err := h.authorize(ctx, req.ServiceToken, req.ActorIdentity, req.RoomCode); err != nil {
		return h.fail("join_room", req.RoomCode, err)
	}

	seatIndex := -1
	room, err := h.store.mutateRoom(ctx, req.RoomCode, func(room *domain.Room) error {
		if idx, ok := room.SeatOf(req.ActorIdentity); ok {
			seatIndex = idx
			return errRoomUnchanged
		}
		for i := range room.Seats {
			if room.Seats[i].Identity == "" && !room.Seats[i].IsBot {
				room.Seats[i].Identity = req.ActorIdentity
				seatIndex = i
				return nil
			}
		}
		return errRoomFull
	})
	if err != nil {
		return h.fail("join_room", req.RoomCode, err)
	}
	h.joinStreams(ctx, req.RoomCode, req.ActorIdentity)

	resp := joinRoomResponse{Success: true, Room: room, SeatIndex: seatIndex}
	st, _, err := h.store.LoadGameState(ctx, req.RoomCode)
	switch {
	case err == nil:
		resp.State = buildSnapshot(st, seatIndex)
		if req.FromRevision > 0 {
			events, err := h.store.LoadEvents(ctx, req.RoomCode, req.FromRevision)
			if err != nil {
				h.logger.Warn("join_room: room=%s history load failed: %v", req.RoomCode, err)
			} else {
				resp.Events = filterEvents(events, req.ActorIdentity)
			}
		}
	case errors.Is(err, ports.ErrStateMissing):
		// Still in the lobby; the roster is the whole story.
	default:
		return h.fail("join_room", req.RoomCode, err)
	}
	return marshalResponse(resp)
}

// joinStreams subscribes the calling session to the room broadcast and
// the actor's private stream. Sessionless callers skip this and rely on
// the response snapshot instead.
func (h *Handlers) joinStreams(ctx context.Context, code, identity string) {
	if h.streams == nil {
		return
	}
	userID, sid := sessionUserID(ctx), sessionID(ctx)
	if userID == "" || sid == "" || userID != identity {
		return
	}
	for _, label := range []string{RoomStreamLabel(code), PrivateStreamLabel(code, identity)} {
		if _, err := h.streams.StreamUserJoin(streamModeGame, "", "", label, userID, sid, false, true, ""); err != nil {
			h.logger.Warn("stream join failed: room=%s label=%s error=%v", code, label, err)
		}
	}
}

// filterEvents drops private events addressed to other identities and
// re-wraps the rest for the join response.
func filterEvents(events []ports.Event, identity string) []eventEnvelope {
	var out []eventEnvelope
	for _, ev := range events {
		if len(ev.Recipients) > 0 && !containsString(ev.Recipients, identity) {
			continue
		}
		payload, ok := ev.Payload.(json.RawMessage)
		if !ok {
			raw, err := json.Marshal(ev.Payload)
			if err != nil {
				continue
			}
			payload = raw
		}
		out = append(out, eventEnvelope{Kind: string(ev.Kind), Payload: payload})
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// requireMember rejects non-internal callers who hold no seat in the room.
func (h *Handlers) requireMember(ctx context.Context, code, identity string) error {
	room, err := h.store.LoadRoom(ctx, code)
	if err != nil {
		return err
	}
	if _, ok := room.SeatOf(identity); !ok {
		return app.ErrNotAMember
	}
	return nil
}

// backfillOpenSeats turns unclaimed seats into bots so the room can start
// the moment its members want to. Whoever the roster names at start is
// who plays the whole game.
func (h *Handlers) backfillOpenSeats(ctx context.Context, code string) error {
	_, err := h.store.mutateRoom(ctx, code, func(room *domain.Room) error {
		used := make(map[string]bool, len(room.Seats))
		for _, seat := range room.Seats {
			used[seat.Identity] = true
		}
		changed := false
		for i := range room.Seats {
			if room.Seats[i].Identity != "" {
				continue
			}
			seat := botSeat(i, "")
			if used[seat.Identity] {
				seat.Identity = fmt.Sprintf("bot-%d", i)
			}
			used[seat.Identity] = true
			room.Seats[i] = seat
			changed = true
		}
		if !changed {
			return errRoomUnchanged
		}
		return nil
	})
	return err
}

// StartGame deals match 1 for the room.
func (h *Handlers) StartGame(ctx context.Context, payload string) (string, error) {
	var req startGameRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	if req.RoomCode == "" || req.ActorIdentity == "" {
		return badRequest("room_code and actor_identity are required")
	}
	internal, err := h.authorize(ctx, req.ServiceToken, req.ActorIdentity, req.RoomCode)
	if err != nil {
		return h.fail("start_game", req.RoomCode, err)
	}
	if !internal {
		if err := h.requireMember(ctx, req.RoomCode, req.ActorIdentity); err != nil {
			return h.fail("start_game", req.RoomCode, err)
		}
	}
	if err := h.backfillOpenSeats(ctx, req.RoomCode); err != nil {
		return h.fail("start_game", req.RoomCode, err)
	}

	res, err := h.svc.StartGame(ctx, req.RoomCode)
	if err != nil {
		return h.fail("start_game", req.RoomCode, err)
	}
	if res.NextIsBot && !internal {
		h.trigger(req.RoomCode)
	}
	return marshalResponse(startGameResponse{
		Success:     true,
		MatchNumber: res.MatchNumber,
		Phase:       res.Phase,
		CurrentTurn: res.CurrentTurn,
	})
}

// PlayCards submits a combination for the actor's seat.
func (h *Handlers) PlayCards(ctx context.Context, payload string) (string, error) {
	var req playCardsRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	if req.RoomCode == "" || req.ActorIdentity == "" {
		return badRequest("room_code and actor_identity are required")
	}
	if len(req.Cards) == 0 {
		return badRequest("cards must not be empty")
	}
	internal, err := h.authorize(ctx, req.ServiceToken, req.ActorIdentity, req.RoomCode)
	if err != nil {
		return h.fail("play_cards", req.RoomCode, err)
	}

	res, err := h.svc.PlayCards(ctx, req.RoomCode, req.ActorIdentity, req.Cards)
	if err != nil {
		return h.fail("play_cards", req.RoomCode, err)
	}
	if res.NextIsBot && !internal {
		h.trigger(req.RoomCode)
	}
	return marshalResponse(buildPlayResponse(res))
}

// PlayerPass submits a pass for the actor's seat.
func (h *Handlers) PlayerPass(ctx context.Context, payload string) (string, error) {
	var req passRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	if req.RoomCode == "" || req.ActorIdentity == "" {
		return badRequest("room_code and actor_identity are required")
	}
	internal, err := h.authorize(ctx, req.ServiceToken, req.ActorIdentity, req.RoomCode)
	if err != nil {
		return h.fail("player_pass", req.RoomCode, err)
	}

	res, err := h.svc.PlayerPass(ctx, req.RoomCode, req.ActorIdentity)
	if err != nil {
		return h.fail("player_pass", req.RoomCode, err)
	}
	if res.NextIsBot && !internal {
		h.trigger(req.RoomCode)
	}
	return marshalResponse(buildPassResponse(res))
}

// BeginNextMatch deals the following match once the current one finished.
func (h *Handlers) BeginNextMatch(ctx context.Context, payload string) (string, error) {
	var req startGameRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}
	if req.RoomCode == "" || req.ActorIdentity == "" {
		return badRequest("room_code and actor_identity are required")
	}
	internal, err := h.authorize(ctx, req.ServiceToken, req.ActorIdentity, req.RoomCode)
	if err != nil {
		return h.fail("begin_next_match", req.RoomCode, err)
	}
	if !internal {
		if err := h.requireMember(ctx, req.RoomCode, req.ActorIdentity); err != nil {
			return h.fail("begin_next_match", req.RoomCode, err)
		}
	}

	res, err := h.svc.BeginNextMatch(ctx, req.RoomCode)
	if err != nil {
		return h.fail("begin_next_match", req.RoomCode, err)
	}
	if res.NextIsBot && !internal {
		h.trigger(req.RoomCode)
	}
	return marshalResponse(startGameResponse{
		Success:     true,
		MatchNumber: res.MatchNumber,
		Phase:       res.Phase,
		CurrentTurn: res.CurrentTurn,
	})
}

func (h *Handlers) trigger(code string) {
	if h.dispatcher != nil {
		h.dispatcher.Trigger(code)
	}
}
