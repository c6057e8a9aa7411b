package gen

import (
	"time"
)

var (
	DefaultLogLevel LogLevel = LogLevelInfo

	DefaultLogFilter = []LogLevel{
		LogLevelTrace,
		LogLevelDebug,
		LogLevelInfo,
		LogLevelWarning,
		LogLevelError,
		LogLevelPanic,
	}

	// DefaultMailboxSize limits every per-type mailbox queue. -1 - unlimited
	DefaultMailboxSize int64 = -1

	DefaultReductionBudget time.Duration = time.Millisecond
	DefaultProcessors      int           = 4
	DefaultProcessorIdle   time.Duration = 5 * time.Millisecond
)
