package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"cardclash/internal/domain"
	"cardclash/internal/registry"

	"github.com/heroiclabs/nakama-common/runtime"
)

var errNoUserID = errors.New("no user id in context")

// CreateRoomRequest is the client payload for the create_room RPC.
type CreateRoomRequest struct {
	RoomName string `json:"roomName"`
	GameMode string `json:"gameMode"`
}

// CreateRoomResponse returns the id the creator joins through.
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// SetPlayerNameRequest is the client payload for set_player_name.
type SetPlayerNameRequest struct {
	Name string `json:"name"`
}

// ListRoomsResponse wraps the public room listing.
type ListRoomsResponse struct {
	Rooms []registry.RoomInfo `json:"rooms"`
}

// rpcCreateRoom creates a new authoritative room. The mode defaults to
// classic when the payload omits or misspells it. The room registers
// itself in MatchInit.
func rpcCreateRoom() func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if userID == "" {
			return "", errNoUserID
		}

		var req CreateRoomRequest
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &req); err != nil {
				logger.Warn("rpcCreateRoom [User:%s]: Bad payload: %v", userID, err)
				return "", err
			}
		}

		params := map[string]interface{}{
			"room_name": req.RoomName,
			"game_mode": string(domain.ParseMode(req.GameMode)),
		}
		roomID, err := nk.MatchCreate(ctx, MatchNameCardClash, params)
		if err != nil {
			logger.Error("rpcCreateRoom [User:%s]: Failed to create match: %v", userID, err)
			return "", err
		}

		logger.Info("rpcCreateRoom [User:%s]: Created room %s (mode=%s)", userID, roomID, params["game_mode"])
		resp, err := json.Marshal(CreateRoomResponse{RoomID: roomID})
		if err != nil {
			return "", err
		}
		return string(resp), nil
	}
}

// rpcListRooms returns rooms that still have a free seat.
func rpcListRooms(reg *registry.Service) func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		resp, err := json.Marshal(ListRoomsResponse{Rooms: reg.ListOpenRooms()})
		if err != nil {
			logger.Error("rpcListRooms: Failed to marshal: %v", err)
			return "", err
		}
		return string(resp), nil
	}
}

// rpcSetPlayerName creates or renames the calling session's player
// record.
func rpcSetPlayerName(reg *registry.Service) func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if userID == "" {
			return "", errNoUserID
		}

		var req SetPlayerNameRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			logger.Warn("rpcSetPlayerName [User:%s]: Bad payload: %v", userID, err)
			return "", err
		}

		sess, err := reg.SetPlayerName(userID, req.Name)
		if err != nil {
			return "", err
		}

		resp, err := json.Marshal(struct {
			SessionID string `json:"id"`
			Name      string `json:"name"`
		}{sess.SessionID, sess.Name})
		if err != nil {
			return "", err
		}
		return string(resp), nil
	}
}
