package nakama

const (
	// RpcCreateRoom creates a new authoritative room and returns its id.
	RpcCreateRoom = "create_room"
	// RpcListRooms returns the public listing of joinable rooms.
	RpcListRooms = "list_rooms"
	// RpcSetPlayerName attaches a display name to the calling session.
	RpcSetPlayerName = "set_player_name"

	// MatchNameCardClash is the authoritative match handler name
	// registered with Nakama.
	MatchNameCardClash = "cardclash_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpSelectCard     int64 = 1
	OpMarkForDiscard int64 = 2
	OpDiscardCards   int64 = 3
	OpPlayHand       int64 = 4
	OpBuildArmor     int64 = 5
	OpMakePrediction int64 = 6
	OpRequestRematch int64 = 7
	OpAcceptRematch  int64 = 8
	OpDeclineRematch int64 = 9

	// Server -> Client events
	OpPlayerJoined          int64 = 101
	OpPlayerLeft            int64 = 102
	OpGameStarted           int64 = 103
	OpHandDealt             int64 = 104 // sent privately
	OpCardSelected          int64 = 105
	OpCardMarkedForDiscard  int64 = 106
	OpCardsDiscarded        int64 = 107
	OpHandPlayed            int64 = 108
	OpArmorBuilt            int64 = 109
	OpPredictionMade        int64 = 110
	OpInvalidHand           int64 = 111 // sent privately
	OpGameEnded             int64 = 112
	OpRematchRequested      int64 = 113
	OpRematchAccepted       int64 = 114
	OpRematchDeclined       int64 = 115
	OpGameError             int64 = 120 // sent privately
)
