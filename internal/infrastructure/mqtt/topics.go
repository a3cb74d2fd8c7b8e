package mqtt

// topicPrefix is the root of all Home Presence topics.
const topicPrefix = "homepresence"

// Topics provides type-safe construction of the MQTT topic hierarchy.
//
// Layout:
//
//	homepresence/system/status              service online/offline (retained)
//	homepresence/presence/snapshot          full reconciled snapshot (retained)
//	homepresence/presence/event/arrive      device came online
//	homepresence/presence/event/leave       device went offline
//	homepresence/presence/owner/{name}      per-owner home/away state (retained)
//
// The zero value is ready to use:
//
//	topic := mqtt.Topics{}.PresenceSnapshot()
type Topics struct{}

// SystemStatus returns the service status topic.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// PresenceSnapshot returns the retained snapshot topic.
func (Topics) PresenceSnapshot() string {
	return topicPrefix + "/presence/snapshot"
}

// PresenceArrive returns the device-arrived event topic.
func (Topics) PresenceArrive() string {
	return topicPrefix + "/presence/event/arrive"
}

// PresenceLeave returns the device-left event topic.
func (Topics) PresenceLeave() string {
	return topicPrefix + "/presence/event/leave"
}

// OwnerState returns the retained per-owner state topic.
func (Topics) OwnerState(slug string) string {
	return topicPrefix + "/presence/owner/" + slug
}
