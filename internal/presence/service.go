package presence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nerrad567/home-presence-core/internal/device"
	"github.com/nerrad567/home-presence-core/internal/infrastructure/logging"
	"github.com/nerrad567/home-presence-core/internal/mac"
	"github.com/nerrad567/home-presence-core/internal/owner"
	"github.com/nerrad567/home-presence-core/internal/router/asuswrt"
)

// RouterSource provides the raw connected-client list.
// Implemented by asuswrt.Client; faked in tests.
type RouterSource interface {
	ClientList(ctx context.Context) ([]asuswrt.RawClient, error)
}

// Service reconciles router state against the device registry into
// presence snapshots.
type Service struct {
	router     RouterSource
	devices    *device.Registry
	owners     owner.Repository
	peopleFile string
	overrides  map[string]string
	logger     *logging.Logger
}

// NewService creates a presence service.
//
// Parameters:
//   - router: Client list source, nil when no router is configured
//   - devices: Device registry for stored labels and ownership
//   - owners: Owner repository for occupancy derivation
//   - peopleFile: Optional path to the MAC -> label fallback file
//   - logger: Structured logger
func NewService(router RouterSource, devices *device.Registry, owners owner.Repository,
	peopleFile string, logger *logging.Logger) *Service {
	return &Service{
		router:     router,
		devices:    devices,
		owners:     owners,
		peopleFile: peopleFile,
		logger:     logger.With("component", "presence"),
	}
}

// SetLabelOverrides installs an explicit MAC -> label mapping that beats
// every other label source. Keys are normalised; invalid MACs are dropped.
func (s *Service) SetLabelOverrides(labels map[string]string) {
	overrides := make(map[string]string, len(labels))
	for raw, label := range labels {
		canonical, err := mac.Normalize(raw)
		if err != nil {
			s.logger.Warn("ignoring label override with invalid MAC", "mac", raw)
			continue
		}
		if label == "" {
			continue
		}
		overrides[canonical] = label
	}
	s.overrides = overrides
}

// Snapshot queries the router and reconciles the result against stored
// devices and the people file.
//
// Reconciliation rules, applied per client:
//   - AiMesh responses are flattened; each node's connectedDevices are
//     the clients, standalone entries stand for themselves
//   - Connectivity: an explicit online flag wins outright; without one,
//     the device is online if either connected or isOnline says so
//   - Band: connectionMethod, then band, then radio
//   - Address: ip, then ipAddress
//   - Display: explicit override, stored label, people file, router
//     nickname, router hostname, and finally the MAC itself
//
// Clients with unparseable MACs are dropped. Duplicate MACs collapse to
// one row, preferring the online sighting.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s.router == nil {
		return nil, ErrRouterNotConfigured
	}

	clients, err := s.router.ClientList(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRouterUnavailable, err)
	}

	stored, err := s.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stored devices: %w", err)
	}
	storedByMAC := make(map[string]device.Device, len(stored))
	for _, d := range stored {
		storedByMAC[d.MAC] = d
	}

	people := loadPeople(s.peopleFile, s.logger)

	rows := s.reconcile(flattenClients(clients), storedByMAC, people, s.overrides)

	snap := &Snapshot{
		TakenAt: time.Now().UTC(),
		Devices: rows,
		Unknown: unknownMACs(rows),
	}
	for _, row := range rows {
		if row.Online {
			snap.Home = append(snap.Home, row)
		} else {
			snap.Away = append(snap.Away, row)
		}
	}

	owners, err := s.ownerStates(ctx, rows)
	if err != nil {
		return nil, err
	}
	snap.Owners = owners

	return snap, nil
}

// flattenClients collapses the two router response structures into a
// flat client list. AiMesh nodes carry their clients in
// connectedDevices; standalone entries are clients themselves.
func flattenClients(clients []asuswrt.RawClient) []asuswrt.RawClient {
	var flat []asuswrt.RawClient
	for _, c := range clients {
		if len(c.ConnectedDevices) > 0 {
			flat = append(flat, c.ConnectedDevices...)
			continue
		}
		if c.ConnectedDevices != nil {
			// A node that exists but has no clients contributes nothing.
			continue
		}
		flat = append(flat, c)
	}
	return flat
}

// reconcile merges raw clients with stored devices and label sources.
func (s *Service) reconcile(clients []asuswrt.RawClient,
	stored map[string]device.Device, people, overrides map[string]string) []Row {

	byMAC := make(map[string]Row)
	for _, c := range clients {
		canonical, err := mac.Normalize(c.MAC)
		if err != nil {
			s.logger.Debug("dropping client with invalid MAC", "mac", c.MAC)
			continue
		}

		row := buildRow(canonical, c, stored[canonical], people, overrides)

		if existing, ok := byMAC[canonical]; ok && existing.Online && !row.Online {
			continue
		}
		byMAC[canonical] = row
	}

	rows := make([]Row, 0, len(byMAC))
	for _, row := range byMAC {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := strings.ToLower(rows[i].Display), strings.ToLower(rows[j].Display)
		if a != b {
			return a < b
		}
		return rows[i].MAC < rows[j].MAC
	})
	return rows
}

// buildRow reconciles one client's field variants into a Row.
func buildRow(canonical string, c asuswrt.RawClient, known device.Device, people, overrides map[string]string) Row {
	row := Row{
		MAC:    canonical,
		Online: clientOnline(c),
	}

	if band := firstNonEmpty(c.ConnectionMethod, c.Band, c.Radio); band != "" {
		row.Band = &band
	}
	if ip := firstNonEmpty(c.IP, c.IPAddress); ip != "" {
		row.IP = &ip
	}
	if c.RSSI.Set {
		rssi := c.RSSI.Value
		row.RSSI = &rssi
	}

	// known is the zero value when the device isn't stored; its MAC is
	// empty in that case, so the nil checks below do the right thing.
	row.OwnerID = known.OwnerID
	row.OwnerName = known.OwnerName
	row.PresenceType = known.PresenceType

	switch {
	case overrides[canonical] != "":
		row.Display = overrides[canonical]
		row.Labelled = true
	case known.Label != nil && *known.Label != "":
		row.Display = *known.Label
		row.Labelled = true
	case people[canonical] != "":
		row.Display = people[canonical]
		row.Labelled = true
	case strings.TrimSpace(c.NickName) != "":
		row.Display = strings.TrimSpace(c.NickName)
	case strings.TrimSpace(c.Name) != "":
		row.Display = strings.TrimSpace(c.Name)
	default:
		row.Display = canonical
	}

	return row
}

// unknownMACs lists devices still waiting for a label, online or not; an
// offline stranger is as much a cataloguing gap as an online one.
func unknownMACs(rows []Row) []string {
	var unknown []string
	for _, row := range rows {
		if !row.Labelled {
			unknown = append(unknown, row.MAC)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// ownerStates derives per-owner occupancy from reconciled rows.
func (s *Service) ownerStates(ctx context.Context, rows []Row) ([]OwnerState, error) {
	all, err := s.owners.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing owners: %w", err)
	}

	type tally struct {
		hasPrimary    bool
		primaryOnline bool
		anyOnline     bool
		online        []string
	}
	tallies := make(map[int64]*tally)

	// Presence types on offline stored devices still matter: an owner
	// whose only primary device is offline must not fall back to
	// secondary-device occupancy.
	storedDevices, err := s.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stored devices: %w", err)
	}
	for _, d := range storedDevices {
		if d.OwnerID == nil {
			continue
		}
		t := tallies[*d.OwnerID]
		if t == nil {
			t = &tally{}
			tallies[*d.OwnerID] = t
		}
		if d.PresenceType != nil && *d.PresenceType == device.PresencePrimary {
			t.hasPrimary = true
		}
	}

	for _, row := range rows {
		if row.OwnerID == nil || !row.Online {
			continue
		}
		t := tallies[*row.OwnerID]
		if t == nil {
			t = &tally{}
			tallies[*row.OwnerID] = t
		}
		t.anyOnline = true
		t.online = append(t.online, row.Display)
		if row.PresenceType != nil && *row.PresenceType == device.PresencePrimary {
			t.primaryOnline = true
		}
	}

	var states []OwnerState
	for _, o := range all {
		if o.Kind != owner.KindPerson {
			continue
		}
		state := OwnerState{ID: o.ID, Name: o.Name}
		if t := tallies[o.ID]; t != nil {
			state.OnlineDevices = t.online
			if t.hasPrimary {
				state.Home = t.primaryOnline
			} else {
				state.Home = t.anyOnline
			}
		}
		states = append(states, state)
	}
	return states, nil
}

// clientOnline resolves a client's connectivity. An explicit online flag
// is authoritative; otherwise the generic flags are ORed together, since
// some firmwares send connected and isOnline with different meanings and
// either one counts as a sighting.
func clientOnline(c asuswrt.RawClient) bool {
	if c.Online.Set {
		return c.Online.Value
	}
	return (c.Connected.Set && c.Connected.Value) || (c.IsOnline.Set && c.IsOnline.Value)
}

// firstNonEmpty returns the first non-blank string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
