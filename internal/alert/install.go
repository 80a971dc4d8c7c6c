package alert

import (
	"context"
	"time"

	"github.com/coldroute/coldroute/internal/pkg/logger"
)

// InstallCriticalSink wires sink into the logger package so every
// logger.Critical(...) call also fires a Telegram alert, mirroring how the
// node health monitor historically logged "ALERT:" lines that a real
// deployment would pipe to notification.
func InstallCriticalSink(sink Sink) {
	logger.SetCriticalSink(func(msg string, fields map[string]string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = sink.Send(ctx, Critical, msg)
	})
}
