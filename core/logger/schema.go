package logger

import "strings"

const (
	// LevelDebug represents the debug severity level name.
	LevelDebug = "DEBUG"
	// LevelInfo represents the info severity level name.
	LevelInfo = "INFO"
	// LevelWarn represents the warning severity level name.
	LevelWarn = "WARN"
	// LevelError represents the error severity level name.
	LevelError = "ERROR"
)

var allowedLevels = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var allowedStatus = map[string]string{
	"ok":       "ok",
	"fail":     "fail",
	"skip":     "skip",
	"retry":    "retry",
	"ignored":  "ignored",
	"rejected": "rejected",
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return "", false
	}
	if mapped, ok := allowedStatus[status]; ok {
		return mapped, true
	}
	return status, false
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"ts_unix_nano",
	"provider_id",
	"consumer_id",
	"phone",
	"wallet",
	"state",
	"next_state",
	"account_id",
	"account_no",
	"reference",
	"amount",
	"balance",
	"outcome",
	"method",
	"path",
	"http_code",
	"duration_ms",
	"attempt",
	"attempts",
	"queue_len",
	"db",
	"host",
	"port",
	"err",
	"cause",
	"retryable",
}
