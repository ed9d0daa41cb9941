package league

import (
	"encoding/json"

	"github.com/ZJUSCT/DailyBoard/internal/leaderboard"
	"github.com/ZJUSCT/DailyBoard/internal/pubsub"
	"go.uber.org/zap"
)

// BrokerListener publishes every new snapshot on the group's leaderboard topic.
func BrokerListener(b *pubsub.Broker) leaderboard.Listener {
	return func(snap *leaderboard.Snapshot) {
		data, err := json.Marshal(snap)
		if err != nil {
			zap.S().Errorf("failed to encode leaderboard of group %s: %v", snap.GroupID, err)
			return
		}
		b.Publish(pubsub.LeaderboardTopic(snap.GroupID), pubsub.FormatMessage("leaderboard", data))
	}
}
