//go:build integration

package mqtt

import (
	"testing"
	"time"
)

// These tests need a broker at 127.0.0.1:1883:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func TestIntegration_ConfigRoundtrip(t *testing.T) {
	pubCfg := testConfig()
	pubCfg.Broker.ClientID = "controlhub-int-pub"
	pub, err := Connect(pubCfg)
	if err != nil {
		t.Fatalf("Connect(pub) error = %v", err)
	}
	defer pub.Close() //nolint:errcheck // test cleanup

	subCfg := testConfig()
	subCfg.Broker.ClientID = "controlhub-int-sub"
	sub, err := Connect(subCfg)
	if err != nil {
		t.Fatalf("Connect(sub) error = %v", err)
	}
	defer sub.Close() //nolint:errcheck // test cleanup

	got := make(chan string, 1)
	err = sub.Subscribe(Topics{}.AllControllerConfigs(), 1, func(topic string, _ []byte) error {
		id, _, err := ParseControllerTopic(topic)
		if err != nil {
			return err
		}
		got <- id
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !sub.HasSubscription(Topics{}.AllControllerConfigs()) {
		t.Error("subscription not tracked")
	}

	time.Sleep(100 * time.Millisecond)
	if err := pub.Publish(Topics{}.ControllerConfig("c-42"), []byte(`{}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case id := <-got:
		if id != "c-42" {
			t.Errorf("controller id = %q, want c-42", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	if err := sub.Unsubscribe(Topics{}.AllControllerConfigs()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if sub.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after unsubscribe", sub.SubscriptionCount())
	}
}

func TestIntegration_OnConnectCallback(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "controlhub-int-callback"

	c, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close() //nolint:errcheck // test cleanup

	c.SetOnConnect(func() {})
	c.SetOnDisconnect(func(error) {})
	c.SetLogger(&recordingLogger{})

	if !c.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
}
