package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/controlhub-core/internal/controller"
	"github.com/nerrad567/controlhub-core/internal/layout"
	"github.com/nerrad567/controlhub-core/internal/rulegroup"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site:
  id: test-site
database:
  path: ` + filepath.Join(dir, "data", "controlhub.db") + `
  wal_mode: true
  busy_timeout: 5
backend:
  base_url: http://127.0.0.1:1
  timeout: 1
  retry_count: 0
  max_concurrency: 2
logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CONTROLHUB_CONFIG", "")
	if got := resolveConfigPath(""); got != defaultConfigPath {
		t.Errorf("default = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("CONTROLHUB_CONFIG", "/etc/controlhub.yaml")
	if got := resolveConfigPath(""); got != "/etc/controlhub.yaml" {
		t.Errorf("env = %q", got)
	}
	if got := resolveConfigPath("flag.yaml"); got != "flag.yaml" {
		t.Errorf("flag = %q", got)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "reconcile", "layout", "migrate"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"serve", "--config", "/nonexistent/config.yaml"})
	root.SetOut(&bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %v, want config load failure", err)
	}
}

func TestMigrateCmd(t *testing.T) {
	path := writeConfig(t)
	ctx := context.Background()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs([]string{"migrate", "--config", path})
	root.SetOut(&out)
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if strings.Contains(out.String(), "pending") || !strings.Contains(out.String(), "applied") {
		t.Errorf("status after migrate:\n%s", out.String())
	}

	out.Reset()
	root = newRootCmd()
	root.SetArgs([]string{"migrate", "down", "--config", path})
	root.SetOut(&out)
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("migrate down error = %v", err)
	}
	if strings.Count(out.String(), "pending") != 1 {
		t.Errorf("status after rollback:\n%s", out.String())
	}
}

func TestConfigChangeHandler(t *testing.T) {
	ch := make(chan string, 1)
	handler := configChangeHandler(ch)

	if err := handler("controlhub/controller/c1/config", nil); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	// A second change while one is pending collapses into it.
	if err := handler("controlhub/controller/c2/config", nil); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := <-ch; got != "controller c1 changed" {
		t.Errorf("queued = %q", got)
	}
	if len(ch) != 0 {
		t.Error("second change was queued separately")
	}

	if err := handler("other/topic", nil); err == nil {
		t.Error("foreign topic should fail")
	}
}

type fakeReloader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeReloader) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeReloader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Info(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestRunReloadLoop(t *testing.T) {
	r := &fakeReloader{}
	ch := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		runReloadLoop(ctx, r, &recordingLogger{}, 0, ch)
		close(done)
	}()

	ch <- "c1"
	deadline := time.Now().Add(2 * time.Second)
	for r.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.count() != 1 {
		t.Errorf("reloads = %d, want 1", r.count())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on cancel")
	}
}

func TestReload_LogsFailuresOnly(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"superseded", rulegroup.ErrSuperseded, 0},
		{"failure", errors.New("backend down"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &recordingLogger{}
			reload(ctx, &fakeReloader{err: tt.err}, log, "test")
			if len(log.warns) != tt.want {
				t.Errorf("warnings = %v, want %d", log.warns, tt.want)
			}
		})
	}
}

type fakeRuleGroups struct {
	groups []rulegroup.GroupView
}

func (f *fakeRuleGroups) Reload(context.Context) error { return nil }

func (f *fakeRuleGroups) Groups() ([]rulegroup.GroupSummary, error) {
	out := make([]rulegroup.GroupSummary, len(f.groups))
	for i, g := range f.groups {
		out[i] = g.GroupSummary
	}
	return out, nil
}

func (f *fakeRuleGroups) Group(id int) (rulegroup.GroupView, error) {
	for _, g := range f.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return rulegroup.GroupView{}, rulegroup.ErrGroupNotFound
}

func TestReconcile_DeviantsOnly(t *testing.T) {
	svc := &fakeRuleGroups{groups: []rulegroup.GroupView{
		{
			GroupSummary: rulegroup.GroupSummary{ID: 1, Name: "Zone 1"},
			Rules: []rulegroup.RuleView{
				{ID: 1, Kind: controller.KindAlert},
				{ID: 2, Kind: controller.KindTimer, Deviants: []rulegroup.FieldDeviants{{Field: "isEnabled"}}},
			},
		},
		{
			GroupSummary: rulegroup.GroupSummary{ID: 2, Name: "Zone 2"},
			Rules:        []rulegroup.RuleView{{ID: 3, Kind: controller.KindSchedule}},
		},
	}}

	var out bytes.Buffer
	if err := reconcile(context.Background(), svc, &out, true); err != nil {
		t.Fatalf("reconcile() error = %v", err)
	}
	var got []struct {
		Name  string `json:"name"`
		Rules []struct {
			ID int `json:"id"`
		} `json:"rules"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out.String())
	}
	if len(got) != 1 || got[0].Name != "Zone 1" || len(got[0].Rules) != 1 || got[0].Rules[0].ID != 2 {
		t.Errorf("output = %+v", got)
	}
}

type fakeDashboards struct {
	regenerated bool
}

func (f *fakeDashboards) Dashboard(_ context.Context, id string) (*layout.Dashboard, error) {
	if id != "c1" {
		return nil, controller.ErrControllerNotFound
	}
	return &layout.Dashboard{ControllerID: id, Columns: 6}, nil
}

func (f *fakeDashboards) Regenerate(ctx context.Context, id string) (*layout.Dashboard, error) {
	f.regenerated = true
	return f.Dashboard(ctx, id)
}

func TestPrintLayout(t *testing.T) {
	ctx := context.Background()
	svc := &fakeDashboards{}

	var out bytes.Buffer
	if err := printLayout(ctx, svc, &out, "c1", false); err != nil {
		t.Fatalf("printLayout() error = %v", err)
	}
	if svc.regenerated || !strings.Contains(out.String(), `"controllerId": "c1"`) {
		t.Errorf("output = %s regenerated = %v", out.String(), svc.regenerated)
	}

	if err := printLayout(ctx, svc, &out, "c1", true); err != nil || !svc.regenerated {
		t.Errorf("regenerate: err = %v regenerated = %v", err, svc.regenerated)
	}

	err := printLayout(ctx, svc, &out, "missing", false)
	if !errors.Is(err, controller.ErrControllerNotFound) {
		t.Errorf("error = %v, want ErrControllerNotFound", err)
	}
}
