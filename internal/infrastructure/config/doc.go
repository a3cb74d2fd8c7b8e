// Package config loads and validates Home Presence Core configuration.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by HOMEPRESENCE_* environment variables. Secrets
// (router password, MQTT password, InfluxDB token) should be supplied via
// the environment rather than the file.
package config
