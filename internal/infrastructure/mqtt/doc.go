// Package mqtt provides the MQTT publishing layer for Home Presence Core.
//
// The service announces itself on homepresence/system/status (with a Last
// Will for crash detection) and publishes presence data under
// homepresence/presence/: a retained snapshot after every poll, and
// arrive/leave events when devices change state. Home automation systems
// subscribe to these instead of polling the HTTP API.
//
// The client is publish-only and reconnects automatically with
// exponential backoff.
package mqtt
