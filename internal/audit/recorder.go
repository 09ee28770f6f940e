package audit

import "context"

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder writes entries on behalf of the domain services. A failed write
// is logged and never fails the edit being recorded.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder over repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Record stores e.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if err := r.repo.Create(ctx, &e); err != nil {
		r.logger.Warn("writing audit entry failed", "action", e.Action, "entity_type", e.EntityType, "error", err)
	}
}

// List returns stored entries matching f, newest first.
func (r *Recorder) List(ctx context.Context, f Filter) (*ListResult, error) {
	return r.repo.List(ctx, f)
}
