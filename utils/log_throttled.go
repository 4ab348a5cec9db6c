package utils

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const MAX_THROTTLED_LOG_KEYS = 10000

var THROTTLED_LOGS_MUTEX sync.Mutex
var THROTTLED_LOGS_LAST = make(map[string]time.Time)

// LogWithTimeThrottled logs at most once per `every` duration for a given `key`.
// Used on hot rejection paths (rate limiting) so a flood of identical warnings stays readable.
func LogWithTimeThrottled(key string, every time.Duration, msg string, level zapcore.Level, fields ...zap.Field) {
	if every <= 0 {
		LogWithTime(msg, level, fields...)
		return
	}

	now := time.Now()

	THROTTLED_LOGS_MUTEX.Lock()
	if len(THROTTLED_LOGS_LAST) > MAX_THROTTLED_LOG_KEYS {
		THROTTLED_LOGS_LAST = make(map[string]time.Time)
	}
	last, ok := THROTTLED_LOGS_LAST[key]
	if ok && now.Sub(last) < every {
		THROTTLED_LOGS_MUTEX.Unlock()
		return
	}
	THROTTLED_LOGS_LAST[key] = now
	THROTTLED_LOGS_MUTEX.Unlock()

	LogWithTime(msg, level, fields...)
}
