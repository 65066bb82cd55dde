package alert

import (
	"context"
	"log/slog"

	"github.com/leakhound/leakhound/internal/model"
)

// LogNotifier writes alerts to the structured log. It is the default
// delivery path; mail or webhook notifiers implement the same
// interface out of tree.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, watch model.Watch, leak model.LeakRecord) error {
	n.logger.Info("leak matched watch",
		slog.Int64("user_id", watch.UserID),
		slog.String("keyword", watch.Keyword),
		slog.String("company", leak.Company),
		slog.String("source_url", leak.SourceURL))
	return nil
}
