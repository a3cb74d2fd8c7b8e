package presence

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/home-presence-core/internal/device"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/home-presence-core/internal/router/asuswrt"
)

// capturingPublisher records everything published.
type capturingPublisher struct {
	messages []publishedMessage
}

type publishedMessage struct {
	topic    string
	retained bool
	payload  any
}

func (p *capturingPublisher) PublishJSON(topic string, v any, retained bool) error {
	p.messages = append(p.messages, publishedMessage{topic: topic, retained: retained, payload: v})
	return nil
}

func (p *capturingPublisher) onTopic(topic string) []publishedMessage {
	var out []publishedMessage
	for _, m := range p.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func newTestMonitor(t *testing.T) (*Monitor, *harness, *capturingPublisher) {
	t.Helper()
	h := newHarness(t, "")
	pub := &capturingPublisher{}
	mon := NewMonitor(h.service, h.registry, pub, nil, time.Minute, logging.Default())
	return mon, h, pub
}

func TestMonitor_FirstPollEmitsNoEvents(t *testing.T) {
	mon, h, pub := newTestMonitor(t)
	h.router.clients = []asuswrt.RawClient{
		{MAC: "aa:bb:cc:dd:ee:ff", Online: set(true)},
	}

	mon.poll(context.Background())

	if got := pub.onTopic(mqtt.Topics{}.PresenceArrive()); len(got) != 0 {
		t.Errorf("first poll emitted %d arrive events, want 0", len(got))
	}
	if got := pub.onTopic(mqtt.Topics{}.PresenceSnapshot()); len(got) != 1 {
		t.Errorf("first poll published %d snapshots, want 1", len(got))
	} else if !got[0].retained {
		t.Error("snapshot not retained")
	}
}

func TestMonitor_DetectsTransitions(t *testing.T) {
	mon, h, pub := newTestMonitor(t)
	ctx := context.Background()

	h.router.clients = []asuswrt.RawClient{
		{MAC: "aa:bb:cc:dd:ee:01", Online: set(true)},
	}
	mon.poll(ctx)

	// Device one leaves, device two arrives
	h.router.clients = []asuswrt.RawClient{
		{MAC: "aa:bb:cc:dd:ee:02", Online: set(true)},
	}
	mon.poll(ctx)

	arrives := pub.onTopic(mqtt.Topics{}.PresenceArrive())
	if len(arrives) != 1 {
		t.Fatalf("got %d arrive events, want 1", len(arrives))
	}
	if ev, ok := arrives[0].payload.(event); !ok || ev.MAC != "AA:BB:CC:DD:EE:02" {
		t.Errorf("arrive payload = %+v", arrives[0].payload)
	}
	if arrives[0].retained {
		t.Error("arrive event retained, events must not be")
	}

	leaves := pub.onTopic(mqtt.Topics{}.PresenceLeave())
	if len(leaves) != 1 {
		t.Fatalf("got %d leave events, want 1", len(leaves))
	}
	if ev, ok := leaves[0].payload.(event); !ok || ev.MAC != "AA:BB:CC:DD:EE:01" {
		t.Errorf("leave payload = %+v", leaves[0].payload)
	}
}

func TestMonitor_FailedPollKeepsState(t *testing.T) {
	mon, h, pub := newTestMonitor(t)
	ctx := context.Background()

	h.router.clients = []asuswrt.RawClient{
		{MAC: "aa:bb:cc:dd:ee:01", Online: set(true)},
	}
	mon.poll(ctx)

	// Router goes away; no phantom leave events.
	h.router.err = context.DeadlineExceeded
	mon.poll(ctx)

	if got := pub.onTopic(mqtt.Topics{}.PresenceLeave()); len(got) != 0 {
		t.Errorf("failed poll emitted %d leave events, want 0", len(got))
	}
	if mon.Last() == nil {
		t.Error("Last() = nil, previous snapshot should survive a failed poll")
	}
}

func TestMonitor_EnrichesRegistry(t *testing.T) {
	mon, h, _ := newTestMonitor(t)
	ctx := context.Background()

	// User-assigned label must survive poller writes.
	mustUpsert(t, h.registry, "aa:bb:cc:dd:ee:ff", device.Update{
		Label: device.NullString("my phone"),
	})

	h.router.clients = []asuswrt.RawClient{
		{MAC: "aa:bb:cc:dd:ee:ff", Online: set(true), Band: "5GHz", IP: "192.168.1.50"},
	}
	mon.poll(ctx)

	got, err := h.registry.Get(ctx, "aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Band == nil || *got.Band != "5GHz" {
		t.Errorf("Band = %v, want 5GHz", got.Band)
	}
	if got.IP == nil || *got.IP != "192.168.1.50" {
		t.Errorf("IP = %v, want 192.168.1.50", got.IP)
	}
	if got.Label == nil || *got.Label != "my phone" {
		t.Errorf("Label = %v, enrichment clobbered the label", got.Label)
	}
}

func TestOwnerSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"alice", "alice"},
		{"Alice Smith", "alice-smith"},
		{" Bob ", "bob"},
		{"a/b#c+d", "a-b-c-d"},
	}
	for _, tt := range tests {
		if got := ownerSlug(tt.input); got != tt.want {
			t.Errorf("ownerSlug(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
