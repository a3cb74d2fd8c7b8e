package presence

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/home-presence-core/internal/device"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/mqtt"
)

// Publisher is the outbound event sink. Implemented by mqtt.Client.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Recorder is the metrics sink. Implemented by influxdb.Client.
type Recorder interface {
	WriteSignal(mac string, band string, rssi int)
	WritePresenceCounts(online, known, unknown int)
	WriteOwnerState(ownerName string, home bool)
}

// Monitor runs the background poll loop: snapshot the network, enrich
// the registry with fresh band/ip sightings, detect arrivals and
// departures, and fan the results out to MQTT and InfluxDB.
//
// Both sinks are optional; a nil Publisher or Recorder simply skips
// that output.
type Monitor struct {
	service   *Service
	registry  *device.Registry
	publisher Publisher
	recorder  Recorder
	interval  time.Duration
	logger    *logging.Logger

	// lastOnline maps MAC -> display for the previous poll, nil before
	// the first completed poll (no events are emitted for the initial
	// state, only for changes).
	lastOnline map[string]string

	// lastSnapshot is served to API callers between polls.
	lastSnapshot *Snapshot
	snapMu       sync.RWMutex
}

// event is the payload for arrive/leave messages.
type event struct {
	MAC       string    `json:"mac"`
	Display   string    `json:"display"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMonitor creates a presence monitor. publisher and recorder may be nil.
func NewMonitor(service *Service, registry *device.Registry, publisher Publisher,
	recorder Recorder, interval time.Duration, logger *logging.Logger) *Monitor {
	return &Monitor{
		service:   service,
		registry:  registry,
		publisher: publisher,
		recorder:  recorder,
		interval:  interval,
		logger:    logger.With("component", "presence_monitor"),
	}
}

// Run polls until the context is cancelled. It performs one poll
// immediately so subscribers get state without waiting a full interval.
//
// Run is not safe for concurrent use; start exactly one goroutine.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("presence monitor started", "interval", m.interval.String())

	m.poll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("presence monitor stopped")
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll performs one snapshot-and-publish cycle. Failures are logged and
// the previous state is kept; a flaky router must not emit phantom
// departure events.
func (m *Monitor) poll(ctx context.Context) {
	snap, err := m.service.Snapshot(ctx)
	if err != nil {
		m.logger.Warn("snapshot failed", "error", err)
		return
	}

	m.enrichRegistry(ctx, snap)

	current := make(map[string]string)
	for _, row := range snap.Devices {
		if row.Online {
			current[row.MAC] = row.Display
		}
	}

	if m.lastOnline != nil {
		m.emitTransitions(current)
	}
	m.lastOnline = current

	m.snapMu.Lock()
	m.lastSnapshot = snap
	m.snapMu.Unlock()

	m.publishSnapshot(snap)
	m.recordMetrics(snap, len(current))
}

// Last returns the most recent snapshot, or nil before the first
// successful poll.
func (m *Monitor) Last() *Snapshot {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.lastSnapshot
}

// enrichRegistry writes fresh band/ip sightings back to the registry.
// Only those two fields are touched; labels, owners, and presence types
// are user data and survive untouched.
func (m *Monitor) enrichRegistry(ctx context.Context, snap *Snapshot) {
	for _, row := range snap.Devices {
		if !row.Online {
			continue
		}
		upd := device.Update{}
		if row.Band != nil {
			upd.Band = device.NullString(*row.Band)
		}
		if row.IP != nil {
			upd.IP = device.NullString(*row.IP)
		}
		if upd.Band == nil && upd.IP == nil {
			continue
		}
		if _, err := m.registry.Upsert(ctx, row.MAC, upd); err != nil {
			m.logger.Debug("registry enrichment failed", "mac", row.MAC, "error", err)
		}
	}
}

// emitTransitions publishes arrive/leave events by diffing online sets.
func (m *Monitor) emitTransitions(current map[string]string) {
	if m.publisher == nil {
		return
	}

	now := time.Now().UTC()
	for mac, display := range current {
		if _, was := m.lastOnline[mac]; !was {
			m.publishEvent(mqtt.Topics{}.PresenceArrive(), event{MAC: mac, Display: display, Timestamp: now})
		}
	}
	for mac, display := range m.lastOnline {
		if _, still := current[mac]; !still {
			m.publishEvent(mqtt.Topics{}.PresenceLeave(), event{MAC: mac, Display: display, Timestamp: now})
		}
	}
}

// publishEvent sends one non-retained event message.
func (m *Monitor) publishEvent(topic string, e event) {
	if err := m.publisher.PublishJSON(topic, e, false); err != nil {
		m.logger.Warn("event publish failed", "topic", topic, "error", err)
	}
}

// publishSnapshot publishes the retained snapshot and per-owner states.
func (m *Monitor) publishSnapshot(snap *Snapshot) {
	if m.publisher == nil {
		return
	}

	if err := m.publisher.PublishJSON(mqtt.Topics{}.PresenceSnapshot(), snap, true); err != nil {
		m.logger.Warn("snapshot publish failed", "error", err)
	}

	for _, state := range snap.Owners {
		topic := mqtt.Topics{}.OwnerState(ownerSlug(state.Name))
		if err := m.publisher.PublishJSON(topic, state, true); err != nil {
			m.logger.Warn("owner state publish failed", "owner", state.Name, "error", err)
		}
	}
}

// recordMetrics writes poll results to the metrics sink.
func (m *Monitor) recordMetrics(snap *Snapshot, online int) {
	if m.recorder == nil {
		return
	}

	for _, row := range snap.Devices {
		if row.Online && row.RSSI != nil {
			band := ""
			if row.Band != nil {
				band = *row.Band
			}
			m.recorder.WriteSignal(row.MAC, band, *row.RSSI)
		}
	}

	m.recorder.WritePresenceCounts(online, online-len(snap.Unknown), len(snap.Unknown))

	for _, state := range snap.Owners {
		m.recorder.WriteOwnerState(state.Name, state.Home)
	}
}

// ownerSlug flattens an owner name into a topic segment.
func ownerSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "/", "-")
	slug = strings.ReplaceAll(slug, "#", "-")
	slug = strings.ReplaceAll(slug, "+", "-")
	return slug
}
