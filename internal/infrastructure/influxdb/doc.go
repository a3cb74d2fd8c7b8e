// Package influxdb records presence history to InfluxDB v2.
//
// Three measurements are written by the presence monitor each poll cycle:
// per-device signal strength, aggregate online/known/unknown counts, and
// per-owner home/away state. Writes are batched and non-blocking; a down
// InfluxDB never stalls a poll.
//
// The integration is optional (influxdb.enabled in config.yaml).
package influxdb
