package walletmanager

import "time"

const (
	dbRecentPrefix  = "wlm-recent-"
	dbSessionPrefix = "wlm-session-"

	recentConnectorKey = "connector"
)

const (
	defaultWatchInterval = 4 * time.Second
	watchRequestTimeout  = 10 * time.Second
	reconnectTimeout     = 15 * time.Second
)
