package audit

import "context"

// Logger is the logging interface used by Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder writes audit entries on behalf of the API and the access
// dispatcher. A nil Recorder records nothing.
type Recorder struct {
	repo   Repository
	source string
	logger Logger
}

// NewRecorder creates a Recorder that stamps every entry with source.
func NewRecorder(repo Repository, source string, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, source: source, logger: logger}
}

// Record stores one entry. Failures are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, action, entityType, entityID string, details map[string]any) {
	if r == nil || r.repo == nil {
		return
	}
	entry := &Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Source:     r.source,
		Details:    details,
	}
	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Warn("audit write failed",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err,
		)
	}
}
