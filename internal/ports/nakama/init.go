package nakama

import (
	"context"
	"database/sql"

	"cardclash/internal/registry"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs, the match handler and session lifecycle events
// for the Nakama runtime. All of them share one registry instance.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	reg := registry.NewService()

	if err := initializer.RegisterRpc(RpcCreateRoom, rpcCreateRoom()); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcListRooms, rpcListRooms(reg)); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcSetPlayerName, rpcSetPlayerName(reg)); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameCardClash, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(reg), nil
	}); err != nil {
		return err
	}

	if err := initializer.RegisterEventSessionEnd(sessionEndHandler(reg)); err != nil {
		return err
	}

	logger.Info("CardClash Go module loaded.")
	return nil
}
