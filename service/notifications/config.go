package notification

import (
	"os"
	"strconv"
	"time"
)

// Defaults for the dispatch pipeline. Each can be overridden from the
// environment; bad values fall back to the default.
const (
	DefaultProcessLimit     = 100              // queue entries per dispatch run
	DefaultBatchSize        = 100              // Expo's per-request message limit
	DefaultPushTimeout      = 30 * time.Second // per-batch HTTP budget
	DefaultDispatchEvery    = time.Minute
	DefaultDigestEvery      = 7 * 24 * time.Hour
	DefaultClaimGracePeriod = 15 * time.Minute // processing older than this is considered abandoned
)

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func ProcessLimit() int {
	return envInt("PROCESS_LIMIT", DefaultProcessLimit)
}

func BatchSize() int {
	return envInt("BATCH_SIZE", DefaultBatchSize)
}
