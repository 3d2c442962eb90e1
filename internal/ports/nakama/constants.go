package nakama

// RPC ids registered with the Nakama runtime.
const (
	// RpcCreateRoom builds a room row with the caller seated and bots
	// filling the remaining seats.
	RpcCreateRoom = "create_room"

	// RpcJoinRoom subscribes the session to the room's event streams and
	// returns a snapshot for reconciliation.
	RpcJoinRoom = "join_room"

	// RpcStartGame deals the first match of a room's game.
	RpcStartGame = "start_game"

	// RpcPlayCards submits a combination for the actor's seat.
	RpcPlayCards = "play_cards"

	// RpcPlayerPass passes the actor's turn.
	RpcPlayerPass = "player_pass"

	// RpcBeginNextMatch deals the following match after one finishes.
	RpcBeginNextMatch = "begin_next_match"
)

// Storage collections. All rows are server-owned and keyed by room code
// except game_events, which keys one row per committed revision.
const (
	collectionRooms      = "rooms"
	collectionGameStates = "game_states"
	collectionGameEvents = "game_events"
	collectionBotLeases  = "bot_leases"
	collectionTimerIndex = "timer_index"
)

// Stream identity for room topics. Subject and subcontext stay empty;
// the label carries the room scope.
const (
	streamModeGame uint8 = 110

	roomStreamPrefix = "bigtwo:room:"
)

// internalActor is the token subject the coordinator uses for room-scoped
// internal calls that act for no particular seat.
const internalActor = "bot-coordinator"
