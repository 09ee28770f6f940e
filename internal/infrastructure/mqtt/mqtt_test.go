package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/controlhub-core/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "controlhub-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"status", Topics{}.SystemStatus(), "controlhub/system/status"},
		{"config", Topics{}.ControllerConfig("c1"), "controlhub/controller/c1/config"},
		{"all configs", Topics{}.AllControllerConfigs(), "controlhub/controller/+/config"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestParseControllerTopic(t *testing.T) {
	tests := []struct {
		topic   string
		id      string
		leaf    string
		wantErr bool
	}{
		{topic: "controlhub/controller/c1/config", id: "c1", leaf: "config"},
		{topic: "controlhub/controller/abc-123/rules/changed", id: "abc-123", leaf: "rules/changed"},
		{topic: "controlhub/controller/c1", wantErr: true},
		{topic: "controlhub/controller//config", wantErr: true},
		{topic: "controlhub/controller/+/config", wantErr: true},
		{topic: "controlhub/system/status", wantErr: true},
		{topic: "other/controller/c1/config", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			id, leaf, err := ParseControllerTopic(tt.topic)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTopicName) {
					t.Errorf("error = %v, want ErrInvalidTopicName", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.id || leaf != tt.leaf {
				t.Errorf("got (%q, %q), want (%q, %q)", id, leaf, tt.id, tt.leaf)
			}
		})
	}
}

func TestBrokerURL(t *testing.T) {
	b := config.MQTTBrokerConfig{Host: "broker.local", Port: 8883}
	if got := brokerURL(b); got != "tcp://broker.local:8883" {
		t.Errorf("brokerURL() = %q", got)
	}
	b.TLS = true
	if got := brokerURL(b); got != "ssl://broker.local:8883" {
		t.Errorf("brokerURL(tls) = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "hub", Password: "secret"}
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)
	if opts.ClientID != "controlhub-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "hub" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if opts.TLSConfig == nil {
		t.Error("TLS config not set")
	}
	if !opts.WillEnabled || opts.WillTopic != "controlhub/system/status" || !opts.WillRetained {
		t.Errorf("will = enabled:%v topic:%q retained:%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	var will Status
	if err := json.Unmarshal(opts.WillPayload, &will); err != nil {
		t.Fatalf("will payload: %v", err)
	}
	if will.Status != "offline" || will.Reason != "unexpected_disconnect" || will.ClientID != "controlhub-test" {
		t.Errorf("will = %+v", will)
	}
}

func TestStatusPayload(t *testing.T) {
	var s Status
	if err := json.Unmarshal(statusPayload("hub", "online", ""), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Status != "online" || s.ClientID != "hub" || s.Timestamp.IsZero() {
		t.Errorf("status = %+v", s)
	}
	if strings.Contains(string(statusPayload("hub", "online", "")), "reason") {
		t.Error("empty reason should be omitted")
	}
}

// An unconnected client validates arguments before checking the connection.
func TestDisconnectedClient(t *testing.T) {
	c := newClient(testConfig())
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 1, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("t", nil, 3, false), ErrInvalidQoS},
		{"publish oversize", c.Publish("t", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed},
		{"publish disconnected", c.Publish("t", []byte("x"), 1, false), ErrNotConnected},
		{"retained disconnected", c.PublishRetained("t", []byte("x")), ErrNotConnected},
		{"subscribe empty topic", c.Subscribe("", 1, noop), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("t", 5, noop), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("t", 1, nil), ErrSubscribeFailed},
		{"subscribe disconnected", c.Subscribe("t", 1, noop), ErrNotConnected},
		{"unsubscribe empty topic", c.Unsubscribe(""), ErrInvalidTopic},
		{"unsubscribe disconnected", c.Unsubscribe("t"), ErrNotConnected},
		{"health", c.HealthCheck(context.Background()), ErrNotConnected},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, tt.err, tt.want)
		}
	}

	if c.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
	if c.SubscriptionCount() != 0 || c.HasSubscription("t") {
		t.Error("failed subscribe left a tracked subscription")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestHealthCheck_CancelledContext(t *testing.T) {
	c := newClient(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() = %v, want context.Canceled", err)
	}
}

func TestDispatch(t *testing.T) {
	c := newClient(testConfig())
	logger := &recordingLogger{}
	c.SetLogger(logger)

	var got string
	c.dispatch(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	}, "a/b", []byte("1"))
	if got != "a/b=1" {
		t.Errorf("handler saw %q", got)
	}

	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "a/b", nil)
	c.dispatch(func(string, []byte) error { panic("boom") }, "a/b", nil)

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one handler error", logger.warns)
	}
	if len(logger.errs) != 1 {
		t.Errorf("errors = %v, want one recovered panic", logger.errs)
	}
}

func TestDisconnectCallback(t *testing.T) {
	c := newClient(testConfig())
	var got error
	c.SetOnDisconnect(func(err error) { got = err })

	lost := errors.New("network down")
	c.handleDisconnect(lost)
	if !errors.Is(got, lost) {
		t.Errorf("callback error = %v", got)
	}
	if c.IsConnected() {
		t.Error("IsConnected() after disconnect")
	}
}
