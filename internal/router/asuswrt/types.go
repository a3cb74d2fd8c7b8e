package asuswrt

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RawClient is one entry from the router's client list, decoded tolerantly.
//
// ASUS firmware versions disagree on almost everything: connectivity may be
// reported as online, connected, or isOnline; booleans arrive as true,
// "1", or 1; the radio band lives in connectionMethod, band, or radio; and
// AiMesh nodes nest their clients under connectedDevices. This struct
// captures every variant and leaves reconciliation to the caller.
type RawClient struct {
	MAC string `json:"mac"`

	Online    Flag `json:"online"`
	Connected Flag `json:"connected"`
	IsOnline  Flag `json:"isOnline"`

	ConnectionMethod string `json:"connectionMethod"`
	Band             string `json:"band"`
	Radio            string `json:"radio"`

	RSSI OptionalInt `json:"rssi"`

	IP        string `json:"ip"`
	IPAddress string `json:"ipAddress"`

	NickName string `json:"nickName"`
	Name     string `json:"name"`

	// ConnectedDevices holds clients attached to this node (AiMesh).
	ConnectedDevices []RawClient `json:"connectedDevices"`
}

// Flag is a tri-state boolean that records whether the field was present
// at all. Firmware encodes truth as true, 1, "1", or "true"; absence of
// the field is meaningful (the next fallback field should be consulted).
type Flag struct {
	Set   bool
	Value bool
}

// UnmarshalJSON accepts bool, number, and string encodings.
func (f *Flag) UnmarshalJSON(data []byte) error {
	f.Set = true

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		f.Set = false
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		f.Value = b
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.Value = n != 0
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "on":
			f.Value = true
		default:
			f.Value = false
		}
		return nil
	}

	// Unrecognised encoding; treat as absent rather than failing the
	// whole client list.
	f.Set = false
	return nil
}

// OptionalInt is an integer that may be absent or encoded as a string.
type OptionalInt struct {
	Set   bool
	Value int
}

// UnmarshalJSON accepts number and numeric-string encodings.
func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		o.Set = true
		o.Value = int(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil
		}
		o.Set = true
		o.Value = parsed
		return nil
	}

	return nil
}
