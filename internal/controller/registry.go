package controller

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides the controller directory with caching and thread safety.
//
// The cache is filled from the Directory by RefreshCache. Every successful
// refresh is written to the Repository so the service can start, and keep
// serving, from the last known snapshot while the backend is unreachable.
//
// All public methods are thread-safe.
type Registry struct {
	dir     Directory
	repo    Repository
	order   []string               // Controller IDs in directory order
	cache   map[string]*Controller // Cached controllers by ID
	cacheMu sync.RWMutex           // Protects order and cache
	stale   bool                   // true when serving a stored snapshot
	logger  Logger
	now     func() time.Time
}

// NewRegistry creates a new controller registry.
// dir may be nil, in which case the registry serves the stored snapshot only.
func NewRegistry(dir Directory, repo Repository) *Registry {
	return &Registry{
		dir:    dir,
		repo:   repo,
		cache:  make(map[string]*Controller),
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all controllers from the directory into the cache.
//
// When the directory fails, the stored snapshot is loaded instead and the
// directory error is only logged; the call fails only when neither source
// can supply controllers.
func (r *Registry) RefreshCache(ctx context.Context) error {
	if r.dir != nil {
		controllers, err := r.dir.ListControllers(ctx)
		if err == nil {
			now := r.now().UTC()
			for i := range controllers {
				if controllers[i].FetchedAt.IsZero() {
					controllers[i].FetchedAt = now
				}
			}
			r.replace(controllers, false)
			if r.repo != nil {
				if saveErr := r.repo.ReplaceAll(ctx, controllers); saveErr != nil {
					r.logger.Warn("storing controller snapshot failed", "error", saveErr)
				}
			}
			r.logger.Info("controller cache refreshed", "count", len(controllers), "source", "directory")
			return nil
		}
		if ctx.Err() != nil {
			// A cancelled refresh must not replace a live cache with the snapshot.
			return fmt.Errorf("loading controllers: %w", ctx.Err())
		}
		r.logger.Warn("controller directory unavailable, using stored snapshot", "error", err)
		if r.repo == nil {
			return fmt.Errorf("loading controllers: %w", err)
		}
	}

	if r.repo == nil {
		return ErrNoSnapshot
	}
	controllers, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading controller snapshot: %w", err)
	}
	r.replace(controllers, true)
	r.logger.Info("controller cache refreshed", "count", len(controllers), "source", "snapshot")
	return nil
}

// replace swaps the cache contents. Caller passes ownership of controllers.
func (r *Registry) replace(controllers []Controller, stale bool) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Controller, len(controllers))
	r.order = make([]string, 0, len(controllers))
	for i := range controllers {
		c := controllers[i].DeepCopy()
		if _, dup := r.cache[c.ID]; !dup {
			r.order = append(r.order, c.ID)
		}
		r.cache[c.ID] = c
	}
	r.stale = stale
}

// Stale reports whether the cache was last filled from the stored snapshot
// rather than the live directory.
func (r *Registry) Stale() bool {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return r.stale
}

// ListControllers returns all cached controllers in directory order.
// The returned controllers are deep copies; callers can safely modify them.
func (r *Registry) ListControllers(_ context.Context) ([]Controller, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	out := make([]Controller, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.cache[id].DeepCopy())
	}
	return out, nil
}

// GetController retrieves a controller by ID.
// Returns ErrControllerNotFound if the controller is not cached.
func (r *Registry) GetController(_ context.Context, id string) (*Controller, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	c, ok := r.cache[id]
	if !ok {
		return nil, ErrControllerNotFound
	}
	return c.DeepCopy(), nil
}

// ControllerCount returns the number of cached controllers.
func (r *Registry) ControllerCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// ApplyRule records a rule that was created or updated upstream, keeping
// the cache in step with the backend without a full refresh.
func (r *Registry) ApplyRule(ctx context.Context, controllerID string, rule Rule) error {
	return r.mutate(ctx, controllerID, func(c *Controller) error {
		return c.PutRule(rule)
	})
}

// RemoveRule records a rule that was deleted upstream.
func (r *Registry) RemoveRule(ctx context.Context, controllerID string, kind Kind, ruleID string) error {
	return r.mutate(ctx, controllerID, func(c *Controller) error {
		return c.RemoveRule(kind, ruleID)
	})
}

func (r *Registry) mutate(ctx context.Context, controllerID string, fn func(*Controller) error) error {
	r.cacheMu.Lock()
	c, ok := r.cache[controllerID]
	if !ok {
		r.cacheMu.Unlock()
		return ErrControllerNotFound
	}
	if err := fn(c); err != nil {
		r.cacheMu.Unlock()
		return err
	}
	snapshot := c.DeepCopy()
	r.cacheMu.Unlock()

	if r.repo != nil {
		if err := r.repo.Save(ctx, snapshot); err != nil {
			r.logger.Warn("storing controller snapshot failed", "controller_id", controllerID, "error", err)
		}
	}
	return nil
}
