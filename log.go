package radixcache

import "log/slog"

// Keys for the structured log attributes emitted by Cache. Named the
// same way fox's router logger names its attribute keys, so a log
// pipeline can alias them consistently across packages.
const (
	// LogTokensKey is the key for a token count attribute.
	LogTokensKey = "tokens"
	// LogRequestedKey is the key for the tokens requested to evict.
	LogRequestedKey = "requested"
	// LogFreedKey is the key for the tokens actually freed by evict.
	LogFreedKey = "freed"
)

// nopLogger discards everything. Used when a *Cache is constructed
// without WithLogger, so call sites never need a nil check.
var nopLogger = slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{
	Level: slog.LevelError + 1, // above Error: nothing is ever enabled
}))

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// logEvict emits a debug line on ordinary progress and a warning when
// an eviction pass made no progress (spec §7's "no-progress eviction"
// case is the caller-observable signal; the log line just makes it
// visible without requiring the caller to poll EvictableSize).
func logEvict(log *slog.Logger, requested int, res EvictResult) {
	if res.Progressed {
		log.Debug("evict", slog.Int(LogRequestedKey, requested), slog.Int(LogFreedKey, res.TokensFreed))
		return
	}
	log.Warn("evict made no progress",
		slog.Int(LogRequestedKey, requested),
		slog.Int(LogFreedKey, res.TokensFreed),
	)
}

func logReset(log *slog.Logger, freedTokens int) {
	log.Debug("reset", slog.Int(LogTokensKey, freedTokens))
}
