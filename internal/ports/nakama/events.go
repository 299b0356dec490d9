package nakama

import (
	"context"

	"cardclash/internal/registry"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// sessionEndHandler drops the disconnecting session's player record.
// Room membership cleanup happens in MatchLeave; this removes the
// session table entry in all cases, even when the player never joined a
// room.
func sessionEndHandler(reg *registry.Service) func(ctx context.Context, logger runtime.Logger, evt *api.Event) {
	return func(ctx context.Context, logger runtime.Logger, evt *api.Event) {
		userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if userID == "" {
			return
		}
		reg.RemoveSession(userID)
		logger.Debug("sessionEnd: Session %s removed.", userID)
	}
}
