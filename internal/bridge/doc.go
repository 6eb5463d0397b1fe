// Package bridge relays the state of one SmartCast speaker to other systems.
//
// A Bridge subscribes to the speaker's change poller and sends every changed
// snapshot to:
//
//   - websocket clients connected to /events (Hub)
//   - an MQTT broker as retained JSON on <prefix>/<device>/state (MQTTPublisher)
//   - Prometheus gauges served on /metrics (Collector)
//
// The HTTP handler also serves /state, the last published state, and
// /settings, the cached settings tree. MQTT commands published to
// <prefix>/<device>/set/{power,volume,mute,input} are applied to the speaker
// and followed by an immediate re-read.
//
// State messages look like:
//
//	{"device":"Living Room","power":"On","input":"HDMI-ARC","volume":22,"mute":false,"at":"2024-05-01T10:00:00Z"}
package bridge
