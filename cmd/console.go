package main

import (
	"go.uber.org/zap"

	"github.com/sells-group/autolink/internal/model"
)

// consoleObserver logs batch progress through zap.
type consoleObserver struct {
	lastProcessed int
}

func (c *consoleObserver) OnItem(item model.BatchItemState) {
	if !item.Status.Terminal() || item.Status == model.ItemAlreadyLinked {
		return
	}
	fields := []zap.Field{
		zap.String("source_id", item.SourceID),
		zap.String("title", item.Title),
		zap.String("status", string(item.Status)),
		zap.String("message", item.Message),
	}
	if item.Status == model.ItemFailed {
		zap.L().Warn("item failed", fields...)
		return
	}
	zap.L().Info("item linked", fields...)
}

func (c *consoleObserver) OnSnapshot(snap model.ProgressSnapshot) {
	if !snap.Running || snap.Processed == c.lastProcessed {
		return
	}
	c.lastProcessed = snap.Processed
	zap.L().Info("progress",
		zap.Int("processed", snap.Processed),
		zap.Int("total", snap.Total),
		zap.String("percent", formatPercent(snap.Percent())),
		zap.String("eta", snap.ETA().String()),
	)
}
