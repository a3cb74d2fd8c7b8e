// Package presence turns raw router client lists into answers to the
// question that matters: who is home?
//
// The Service reconciles the router's inconsistent JSON (field name
// variants, AiMesh nesting, stringly-typed booleans) against the device
// registry and the optional people file, producing snapshots of devices,
// per-owner occupancy, and the queue of unlabelled MACs.
//
// The Monitor wraps the Service in a poll loop: it enriches the registry
// with fresh band/ip sightings, diffs consecutive polls into arrive and
// leave events, and fans results out to MQTT and InfluxDB.
package presence
