package logging

import (
	"log/slog"
	"os"
)

// New creates a JSON-formatted logger decorated with the default task/job/
// consumer context extractors, plus any caller-supplied extras.
func New(extractors ...ContextExtractor) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(NewLogHandlerDecorator(h, append(DefaultExtractors(), extractors...)...))
}
