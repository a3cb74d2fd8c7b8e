package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSignal records a device's radio signal strength.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Signal history makes roaming and dead-spot problems visible over time.
//
// Parameters:
//   - mac: Canonical device MAC (tag)
//   - band: Radio band the device is on (tag, may be empty)
//   - rssi: Signal strength in dBm (typically -30 to -90)
func (c *Client) WriteSignal(mac string, band string, rssi int) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{"mac": mac}
	if band != "" {
		tags["band"] = band
	}

	point := write.NewPoint(
		"signal",
		tags,
		map[string]interface{}{
			"rssi": rssi,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePresenceCounts records the aggregate state of one poll cycle.
//
// Parameters:
//   - online: Devices currently seen by the router
//   - known: Online devices with a curated label
//   - unknown: Online devices nobody has labelled yet
func (c *Client) WritePresenceCounts(online, known, unknown int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"presence",
		nil,
		map[string]interface{}{
			"online":  online,
			"known":   known,
			"unknown": unknown,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteOwnerState records whether an owner is home (1) or away (0).
//
// Stored as a numeric field so dashboards can graph occupancy over time.
func (c *Client) WriteOwnerState(ownerName string, home bool) {
	if !c.IsConnected() {
		return
	}

	state := 0
	if home {
		state = 1
	}

	point := write.NewPoint(
		"owner_presence",
		map[string]string{"owner": ownerName},
		map[string]interface{}{"home": state},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
