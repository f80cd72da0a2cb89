package agent

import (
	"io"

	loggerpkg "github.com/minhyannv/financial-analyst-go/pkg/logger"
)

// Option configures optional runtime dependencies for the Orchestrator.
type Option func(*deps)

type deps struct {
	logger     loggerpkg.Logger
	completer  ChatCompleter
	transcript io.Writer
}

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) Option {
	return func(d *deps) {
		d.logger = l
	}
}

// WithCompleter replaces the OpenAI client used for assistant replies.
func WithCompleter(c ChatCompleter) Option {
	return func(d *deps) {
		d.completer = c
	}
}

// WithTranscript echoes every conversation turn to w.
func WithTranscript(w io.Writer) Option {
	return func(d *deps) {
		d.transcript = w
	}
}
