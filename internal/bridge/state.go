package bridge

import (
	"time"

	"github.com/muurk/smartcast/internal/speaker"
)

// State is the JSON form of a speaker snapshot sent to websocket clients,
// published over MQTT and served on /state.
type State struct {
	Device string    `json:"device"`
	Power  string    `json:"power"`
	Input  string    `json:"input"`
	Volume int       `json:"volume"`
	Mute   bool      `json:"mute"`
	At     time.Time `json:"at"`
}

// NewState converts snap, stamped with at
func NewState(device string, snap speaker.Snapshot, at time.Time) State {
	return State{
		Device: device,
		Power:  snap.Power.String(),
		Input:  snap.Input,
		Volume: snap.Volume,
		Mute:   snap.Mute,
		At:     at.UTC(),
	}
}
