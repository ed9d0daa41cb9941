package user

import (
	"encoding/json"
	"net/http"

	"github.com/ZJUSCT/DailyBoard/internal/api"
	"github.com/ZJUSCT/DailyBoard/internal/auth"
	"github.com/ZJUSCT/DailyBoard/internal/leaderboard"
	"github.com/ZJUSCT/DailyBoard/internal/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleLeaderboardWs pushes every new snapshot of a group until the client
// goes away.
func (h *Handler) handleLeaderboardWs(c *gin.Context) {
	groupID := c.Param("id")
	tokenString := c.Query("token")

	if tokenString == "" {
		c.String(http.StatusUnauthorized, "token query parameter is required")
		return
	}

	claims, err := auth.ValidateJWT(tokenString, h.cfg.Auth.JWT.Secret)
	if err != nil {
		c.String(http.StatusUnauthorized, "invalid token")
		return
	}

	// Eager mode never publishes, so a live feed would go quiet after the
	// first message.
	if h.svc.Boards().Mode() == leaderboard.ModeEager {
		c.String(http.StatusNotImplemented, "live leaderboard updates require refresh mode cached")
		return
	}

	snap, err := h.svc.GetLeaderboard(c.Request.Context(), groupID)
	if err != nil {
		c.String(api.ErrorStatus(err), err.Error())
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Errorf("failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	topic := pubsub.LeaderboardTopic(groupID)
	msgChan, unsubscribe := h.broker.Subscribe(topic)
	defer unsubscribe()

	// Nothing published for this group yet. Start from the snapshot we just read.
	if _, ok := h.broker.Latest(topic); !ok {
		data, err := json.Marshal(snap)
		if err == nil {
			if err := conn.WriteMessage(websocket.TextMessage, pubsub.FormatMessage("leaderboard", data)); err != nil {
				return
			}
		}
	}

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for msg := range msgChan {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zap.S().Warnf("error writing to websocket: %v", err)
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.S().Infof("websocket unexpected close error: %v", err)
			}
			break
		}
	}
	unsubscribe()
	<-clientClosed

	zap.S().Infof("websocket connection closed for user %s on group %s", claims.Subject, groupID)
}
