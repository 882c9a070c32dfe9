package runtime

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logMu  sync.RWMutex
	pkgLog = zap.NewNop()
)

// SetLogger sets the package logger. Pass nil to silence it.
func SetLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	pkgLog = l
}

func logger() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return pkgLog
}
