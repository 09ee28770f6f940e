package layout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/controlhub-core/internal/audit"
	"github.com/nerrad567/controlhub-core/internal/controller"
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ControllerSource resolves controllers for generated dashboards.
type ControllerSource interface {
	GetController(ctx context.Context, id string) (*controller.Controller, error)
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// MQTTClient is the interface for announcing saved dashboards to panels.
type MQTTClient interface {
	PublishRetained(topic string, payload []byte) error
}

// Auditor records dashboard edits.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

// Channel is the WebSocket channel carrying dashboard changes.
const Channel = "dashboard.updated"

// DashboardUpdatedTopic is the retained MQTT topic carrying a controller's
// current dashboard.
func DashboardUpdatedTopic(controllerID string) string {
	return "controlhub/controller/" + controllerID + "/dashboard/updated"
}

// Service serves per-controller dashboards, generating one on first use.
// Mutations are serialised so concurrent edits are not lost.
type Service struct {
	source  ControllerSource
	repo    Repository
	columns int
	hub     WSHub
	mqtt    MQTTClient
	audit   Auditor
	logger  Logger
	mu      sync.Mutex
}

// NewService creates a dashboard service. columns is the grid width for
// generated dashboards; values below 1 use DefaultColumns.
func NewService(source ControllerSource, repo Repository, columns int) *Service {
	if columns < 1 {
		columns = DefaultColumns
	}
	return &Service{
		source:  source,
		repo:    repo,
		columns: columns,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetHub sets the WebSocket hub for change broadcasts (may be nil).
func (s *Service) SetHub(hub WSHub) {
	s.hub = hub
}

// SetMQTT sets the MQTT client for retained dashboard updates (may be nil).
func (s *Service) SetMQTT(client MQTTClient) {
	s.mqtt = client
}

// SetAudit sets the edit history recorder (may be nil).
func (s *Service) SetAudit(a Auditor) {
	s.audit = a
}

// Columns returns the grid width used for generated dashboards.
func (s *Service) Columns() int {
	return s.columns
}

// Dashboard returns the stored dashboard for a controller, generating and
// storing one when none exists yet.
func (s *Service) Dashboard(ctx context.Context, controllerID string) (*Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, controllerID)
}

func (s *Service) load(ctx context.Context, controllerID string) (*Dashboard, error) {
	d, err := s.repo.Get(ctx, controllerID)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrDashboardNotFound) {
		return nil, err
	}
	return s.generate(ctx, controllerID)
}

func (s *Service) generate(ctx context.Context, controllerID string) (*Dashboard, error) {
	c, err := s.source.GetController(ctx, controllerID)
	if err != nil {
		return nil, err
	}
	d := Generate(c, s.columns)
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info("dashboard generated", "controller_id", controllerID, "widgets", len(d.Widgets))
	return d, nil
}

// Regenerate discards the stored dashboard and builds a fresh one.
func (s *Service) Regenerate(ctx context.Context, controllerID string) (*Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.generate(ctx, controllerID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, d, "regenerated")
	return d, nil
}

// AddWidget stores w on the controller's dashboard. An unpositioned widget
// is auto-placed; a positioned one keeps its cell or fails with
// ErrInvalidWidget when it is off the grid or overlaps another widget.
// A zero footprint takes the kind's default size.
func (s *Service) AddWidget(ctx context.Context, controllerID string, w Widget) (*Dashboard, Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load(ctx, controllerID)
	if err != nil {
		return nil, Widget{}, err
	}

	w = w.WithDefaultSize()
	if err := w.Validate(d.Columns); err != nil {
		return nil, Widget{}, err
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if !w.Placed() {
		w = AutoPlace(d.Widgets, w, d.Columns)
	} else if !w.fitsOn(d.Widgets, d.Columns) {
		return nil, Widget{}, fmt.Errorf("%w: %s at (%d,%d) is off the grid or overlaps another widget",
			ErrInvalidWidget, w.ID, w.X, w.Y)
	}

	d.Widgets = append(d.Widgets, w)
	d.Generated = false
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, Widget{}, err
	}
	s.notify(ctx, d, "widget_added", w.ID)
	return d, w, nil
}

// RemoveWidget deletes a widget. Other widgets keep their positions.
func (s *Service) RemoveWidget(ctx context.Context, controllerID, widgetID string) (*Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.repo.Get(ctx, controllerID)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(d.Widgets, func(w Widget) bool { return w.ID == widgetID })
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, widgetID)
	}
	d.Widgets = slices.Delete(d.Widgets, i, i+1)
	d.Generated = false
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, err
	}
	s.notify(ctx, d, "widget_removed", widgetID)
	return d, nil
}

// notify tells listeners that d was saved. widgetIDs names the widgets the
// action touched, if any.
func (s *Service) notify(ctx context.Context, d *Dashboard, action string, widgetIDs ...string) {
	if s.audit != nil {
		details := map[string]any{"widgets": len(d.Widgets)}
		if len(widgetIDs) > 0 {
			details["widget_ids"] = widgetIDs
		}
		s.audit.Record(ctx, audit.Entry{
			Action:      action,
			EntityType:  audit.EntityDashboard,
			EntityID:    d.ControllerID,
			Controllers: []string{d.ControllerID},
			Details:     details,
		})
	}
	if s.hub != nil {
		s.hub.Broadcast(Channel, map[string]any{
			"controller_id": d.ControllerID,
			"action":        action,
			"widgets":       len(d.Widgets),
		})
	}
	if s.mqtt == nil {
		return
	}

	// Panels subscribe to the retained topic and get the full layout.
	payload, err := json.Marshal(map[string]any{
		"action":    action,
		"dashboard": d,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Error("encoding dashboard update", "error", err)
		return
	}
	topic := DashboardUpdatedTopic(d.ControllerID)
	if err := s.mqtt.PublishRetained(topic, payload); err != nil {
		s.logger.Warn("publishing dashboard update failed", "topic", topic, "error", err)
	}
}
