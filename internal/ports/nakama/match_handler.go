package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"cardclash/internal/app"
	"cardclash/internal/config"
	"cardclash/internal/domain"
	"cardclash/internal/registry"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchState holds the authoritative runtime state for one room.
type MatchState struct {
	Room      *domain.Room                `json:"-"`
	Presences map[string]runtime.Presence `json:"-"` // session id -> presence for targeted messaging
	App       *app.Service                `json:"-"`
	Registry  *registry.Service           `json:"-"`

	Tick int64 `json:"tick"`
	// StartAtTick is the tick at which a full waiting room starts its
	// game; zero means no start is scheduled. The delay is plain tick
	// arithmetic so the loop never blocks.
	StartAtTick    int64 `json:"start_at_tick"`
	TickRate       int   `json:"tick_rate"`
	AutoStartDelay int   `json:"auto_start_delay"`
}

// matchLabel is the advertised label for room discovery queries.
type matchLabel struct {
	Open  int    `json:"open"`
	Game  string `json:"game"`
	Mode  string `json:"gameMode"`
	State string `json:"state"`
}

type matchHandler struct {
	registry *registry.Service
}

// newMatchHandler builds a handler bound to the shared registry.
func newMatchHandler(reg *registry.Service) *matchHandler {
	return &matchHandler{registry: reg}
}

// MatchInit is called when the room's match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	if err := config.LoadEngineConfig("data/engine_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load engine config: %v", err)
	}

	roomID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	roomName, _ := params["room_name"].(string)
	if roomName == "" {
		roomName = "Room"
	}
	modeParam, _ := params["game_mode"].(string)
	mode := domain.ParseMode(modeParam)

	state := &MatchState{
		Room:           domain.NewRoom(roomID, roomName, mode),
		Presences:      make(map[string]runtime.Presence),
		App:            app.NewService(nil),
		Registry:       mh.registry,
		TickRate:       config.TickRate(),
		AutoStartDelay: config.AutoStartDelaySeconds(),
	}

	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if val, ok := env["cardclash_autostart_delay_sec"]; ok {
			if i, err := strconv.Atoi(val); err == nil && i > 0 {
				state.AutoStartDelay = i
			}
		}
	}

	state.Registry.RegisterRoom(registry.RoomInfo{
		ID:       roomID,
		Name:     roomName,
		Mode:     mode,
		Players:  0,
		Capacity: domain.RoomCapacity,
		State:    domain.StateWaiting,
	})

	logger.Info("MatchInit: Room %s (%s, mode=%s) created.", roomID, roomName, mode)
	return state, state.TickRate, marshalLabel(state.Room)
}

// MatchJoinAttempt rejects full rooms and duplicate joins with
// user-facing reasons; these are correctable mistakes, not races.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if matchState.Room.PlayerIndex(presence.GetUserId()) >= 0 {
		return state, false, "already in this room"
	}
	if matchState.Room.IsFull() {
		return state, false, "room is full"
	}
	// A free seat in a non-waiting room means a game is still being
	// resolved; never seat a newcomer into it.
	if matchState.Room.State != domain.StateWaiting {
		return state, false, "game in progress"
	}
	return state, true, ""
}

// MatchJoin seats joining presences and schedules the deferred start
// once the room is full.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	room := matchState.Room

	for _, p := range presences {
		sessionID := p.GetUserId()
		matchState.Presences[sessionID] = p

		name := matchState.Registry.PlayerName(sessionID)
		if name == "" {
			name = p.GetUsername()
		}

		player := &domain.Player{SessionID: sessionID, Name: name}
		player.ResetTransient()
		if !room.AddPlayer(player) {
			logger.Warn("MatchJoin: Room %s full, no seat for %s.", room.ID, sessionID)
			continue
		}
		matchState.Registry.BindRoom(sessionID, room.ID)

		payload, _ := json.Marshal(struct {
			SessionID string       `json:"id"`
			Name      string       `json:"name"`
			Room      roomSnapshot `json:"room"`
		}{sessionID, name, toRoomSnapshot(room, false)})
		if err := dispatcher.BroadcastMessage(OpPlayerJoined, payload, nil, nil, true); err != nil {
			logger.Error("MatchJoin: Broadcast failed: %v", err)
		}
		logger.Info("MatchJoin: %s (%s) joined room %s (%d/%d).", sessionID, name, room.ID, len(room.Players), domain.RoomCapacity)
	}

	if room.IsFull() && room.State == domain.StateWaiting && matchState.StartAtTick == 0 {
		matchState.StartAtTick = tick + int64(matchState.AutoStartDelay*matchState.TickRate)
		logger.Debug("MatchJoin: Room %s full, start scheduled for tick %d.", room.ID, matchState.StartAtTick)
	}

	mh.syncRegistry(matchState, logger)
	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave unseats leaving presences; an empty room terminates the
// match and drops out of the listing.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	room := matchState.Room

	for _, p := range presences {
		sessionID := p.GetUserId()
		delete(matchState.Presences, sessionID)

		if room.RemovePlayer(sessionID) {
			matchState.Registry.UnbindRoom(sessionID)
			payload, _ := json.Marshal(struct {
				SessionID string `json:"id"`
			}{sessionID})
			if err := dispatcher.BroadcastMessage(OpPlayerLeft, payload, nil, nil, true); err != nil {
				logger.Error("MatchLeave: Broadcast failed: %v", err)
			}
			logger.Info("MatchLeave: %s left room %s.", sessionID, room.ID)
		}
	}

	if len(room.Players) < domain.RoomCapacity {
		matchState.StartAtTick = 0
	}
	forfeitEvents, _ := matchState.App.ForfeitGame(room)
	if len(forfeitEvents) > 0 {
		logger.Info("MatchLeave: Room %s forfeited, %s wins.", room.ID, room.Players[0].SessionID)
		for _, ev := range forfeitEvents {
			mh.broadcastEvent(matchState, dispatcher, logger, ev)
		}
	}
	if len(room.Players) == 0 {
		logger.Info("MatchLeave: Room %s empty, terminating.", room.ID)
		matchState.Registry.DeleteRoom(room.ID)
		return nil
	}

	mh.syncRegistry(matchState, logger)
	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLoop processes inbound actions in arrival order and fires the
// deferred start when its tick comes up.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpSelectCard:
			mh.handleCardToggle(matchState, dispatcher, logger, msg, true)
		case OpMarkForDiscard:
			mh.handleCardToggle(matchState, dispatcher, logger, msg, false)
		case OpDiscardCards:
			mh.dispatchAction(matchState, dispatcher, logger, msg, matchState.App.DiscardCards)
		case OpPlayHand:
			mh.dispatchAction(matchState, dispatcher, logger, msg, matchState.App.PlayHand)
		case OpBuildArmor:
			mh.dispatchAction(matchState, dispatcher, logger, msg, matchState.App.BuildArmor)
		case OpMakePrediction:
			mh.handleMakePrediction(matchState, dispatcher, logger, msg)
		case OpRequestRematch:
			mh.dispatchAction(matchState, dispatcher, logger, msg, matchState.App.RequestRematch)
		case OpAcceptRematch:
			mh.dispatchAction(matchState, dispatcher, logger, msg, matchState.App.AcceptRematch)
		case OpDeclineRematch:
			mh.dispatchAction(matchState, dispatcher, logger, msg, matchState.App.DeclineRematch)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.StartAtTick > 0 && tick >= matchState.StartAtTick {
		matchState.StartAtTick = 0
		mh.startGame(matchState, dispatcher, logger)
	}

	return matchState
}

func (mh *matchHandler) startGame(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	room := state.Room
	if room.State == domain.StatePlaying || !room.IsFull() {
		return
	}
	events, err := state.App.StartGame(room)
	if err != nil {
		logger.Error("startGame: Room %s failed to start: %v", room.ID, err)
		return
	}
	logger.Info("startGame: Room %s started (mode=%s, first=%d).", room.ID, room.Mode, room.CurrentPlayerIndex)
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	mh.syncRegistry(state, logger)
	mh.updateLabel(state, dispatcher, logger)
}

// actionFunc is the signature shared by all turn actions.
type actionFunc func(room *domain.Room, sessionID string) ([]app.Event, error)

func (mh *matchHandler) dispatchAction(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData, action actionFunc) {
	sessionID := msg.GetUserId()
	events, err := action(state.Room, sessionID)
	if err != nil {
		logger.Warn("dispatchAction: %s in room %s rejected: %v", sessionID, state.Room.ID, err)
		mh.sendError(state, dispatcher, logger, sessionID, err.Error())
		return
	}
	mh.finishAction(state, dispatcher, logger, events)
}

func (mh *matchHandler) handleCardToggle(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData, selecting bool) {
	var req struct {
		CardID int `json:"cardId"`
	}
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Warn("handleCardToggle: Bad payload from %s: %v", msg.GetUserId(), err)
		return
	}

	toggle := state.App.ToggleMark
	if selecting {
		toggle = state.App.ToggleSelect
	}
	events, err := toggle(state.Room, msg.GetUserId(), req.CardID)
	if err != nil {
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), err.Error())
		return
	}
	mh.finishAction(state, dispatcher, logger, events)
}

func (mh *matchHandler) handleMakePrediction(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	var req struct {
		Prediction string `json:"prediction"`
	}
	if err := json.Unmarshal(msg.GetData(), &req); err != nil {
		logger.Warn("handleMakePrediction: Bad payload from %s: %v", msg.GetUserId(), err)
		return
	}

	events, err := state.App.MakePrediction(state.Room, msg.GetUserId(), domain.HandCategory(req.Prediction))
	if err != nil {
		logger.Warn("handleMakePrediction: %s rejected: %v", msg.GetUserId(), err)
		mh.sendError(state, dispatcher, logger, msg.GetUserId(), err.Error())
		return
	}
	mh.finishAction(state, dispatcher, logger, events)
}

func (mh *matchHandler) finishAction(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	if len(events) > 0 {
		mh.syncRegistry(state, logger)
		mh.updateLabel(state, dispatcher, logger)
	}
}

// broadcastEvent converts an engine event to its opcode and wire
// payload, honoring targeted recipients.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	room := state.Room

	var opCode int64
	var payload any

	switch ev.Kind {
	case app.EventGameStarted:
		opCode = OpGameStarted
		p := ev.Payload.(app.GameStartedPayload)
		// The start snapshot carries both hands to the whole room.
		payload = struct {
			app.GameStartedPayload
			Room roomSnapshot `json:"room"`
		}{p, toRoomSnapshot(room, true)}
	case app.EventHandDealt:
		opCode = OpHandDealt
		p := ev.Payload.(app.HandDealtPayload)
		owner := room.PlayerBySession(p.SessionID)
		if owner == nil {
			return
		}
		payload = struct {
			SessionID string     `json:"id"`
			Hand      []cardView `json:"hand"`
		}{p.SessionID, toCardViews(owner)}
	case app.EventCardSelected, app.EventCardMarked:
		opCode = OpCardSelected
		if ev.Kind == app.EventCardMarked {
			opCode = OpCardMarkedForDiscard
		}
		p := ev.Payload.(app.CardTogglePayload)
		payload = struct {
			SessionID string `json:"id"`
			CardID    int    `json:"cardId"`
			On        bool   `json:"on"`
		}{p.SessionID, p.CardID, p.On}
	case app.EventCardsDiscarded:
		opCode = OpCardsDiscarded
		p := ev.Payload.(app.CardsDiscardedPayload)
		payload = struct {
			app.CardsDiscardedPayload
			Players []playerView `json:"players"`
		}{p, playerViews(room)}
	case app.EventHandPlayed:
		opCode = OpHandPlayed
		p := ev.Payload.(app.HandPlayedPayload)
		payload = struct {
			app.HandPlayedPayload
			Players []playerView `json:"players"`
		}{p, playerViews(room)}
	case app.EventArmorBuilt:
		opCode = OpArmorBuilt
		p := ev.Payload.(app.ArmorBuiltPayload)
		payload = struct {
			app.ArmorBuiltPayload
			Players []playerView `json:"players"`
		}{p, playerViews(room)}
	case app.EventPredictionMade:
		opCode = OpPredictionMade
		p := ev.Payload.(app.PredictionMadePayload)
		payload = struct {
			SessionID string `json:"id"`
			Category  string `json:"prediction,omitempty"`
		}{p.SessionID, string(p.Category)}
	case app.EventInvalidHand:
		opCode = OpInvalidHand
		p := ev.Payload.(app.InvalidHandPayload)
		payload = struct {
			Reason string `json:"reason"`
		}{p.Reason}
	case app.EventGameEnded:
		opCode = OpGameEnded
		p := ev.Payload.(app.GameEndedPayload)
		payload = struct {
			app.GameEndedPayload
			Players []playerView `json:"players"`
		}{p, playerViews(room)}
	case app.EventRematchRequested, app.EventRematchAccepted, app.EventRematchDeclined:
		switch ev.Kind {
		case app.EventRematchRequested:
			opCode = OpRematchRequested
		case app.EventRematchAccepted:
			opCode = OpRematchAccepted
		default:
			opCode = OpRematchDeclined
		}
		p := ev.Payload.(app.RematchPayload)
		payload = struct {
			SessionID string `json:"id"`
		}{p.SessionID}
	default:
		logger.Warn("broadcastEvent: Unknown event kind: %v", ev.Kind)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("broadcastEvent: Failed to marshal %v: %v", ev.Kind, err)
		return
	}

	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, sessionID := range ev.Recipients {
			if p, ok := state.Presences[sessionID]; ok {
				recipients = append(recipients, p)
			}
		}
		// A targeted event with no connected recipient must not leak
		// to the rest of the room.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("broadcastEvent: Broadcast %v failed: %v", ev.Kind, err)
	}
}

// sendError relays a user-correctable rejection to the offending
// session only.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, sessionID, message string) {
	presence, ok := state.Presences[sessionID]
	if !ok {
		logger.Warn("sendError: Presence not found for %s", sessionID)
		return
	}
	data, err := json.Marshal(struct {
		Message string `json:"message"`
	}{message})
	if err != nil {
		logger.Error("sendError: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpGameError, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("sendError: Broadcast failed: %v", err)
	}
}

func playerViews(room *domain.Room) []playerView {
	views := make([]playerView, 0, len(room.Players))
	for _, p := range room.Players {
		views = append(views, toPlayerView(room, p))
	}
	return views
}

func (mh *matchHandler) syncRegistry(state *MatchState, logger runtime.Logger) {
	if err := state.Registry.UpdateRoom(state.Room.ID, len(state.Room.Players), state.Room.State); err != nil {
		logger.Warn("syncRegistry: Room %s: %v", state.Room.ID, err)
	}
}

func marshalLabel(room *domain.Room) string {
	label := matchLabel{
		Open:  domain.RoomCapacity - len(room.Players),
		Game:  "cardclash",
		Mode:  string(room.Mode),
		State: string(room.State),
	}
	data, _ := json.Marshal(label)
	return string(data)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if err := dispatcher.MatchLabelUpdate(marshalLabel(state.Room)); err != nil {
		logger.Error("updateLabel: Failed to update: %v", err)
	}
}

// MatchTerminate drops the room from the registry on shutdown.
func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	if matchState, ok := state.(*MatchState); ok {
		matchState.Registry.DeleteRoom(matchState.Room.ID)
	}
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
