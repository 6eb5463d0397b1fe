package speaker

import (
	"context"
)

// PowerState is the device power mode as reported by power_mode
type PowerState int

const (
	// PowerUnknown means the device reported something other than 0 or 1
	PowerUnknown PowerState = iota
	PowerOff
	PowerOn
)

// String returns "On", "Off" or "Unknown"
func (p PowerState) String() string {
	switch p {
	case PowerOn:
		return "On"
	case PowerOff:
		return "Off"
	default:
		return "Unknown"
	}
}

// PowerService groups power operations
type PowerService struct {
	s *Speaker
}

// Get reads the power mode
func (p *PowerService) Get(ctx context.Context) (PowerState, error) {
	item, _, err := p.s.readItem(ctx, EndpointPowerMode)
	if err != nil {
		return PowerUnknown, err
	}
	switch v := item.Value.(type) {
	case float64:
		switch v {
		case 1:
			return PowerOn, nil
		case 0:
			return PowerOff, nil
		}
	case bool:
		if v {
			return PowerOn, nil
		}
		return PowerOff, nil
	}
	return PowerUnknown, nil
}

// On sends the power-on key
func (p *PowerService) On(ctx context.Context) (string, error) {
	return p.s.KeyCommand(ctx, KeyPowerOn)
}

// Off sends the power-off key
func (p *PowerService) Off(ctx context.Context) (string, error) {
	return p.s.KeyCommand(ctx, KeyPowerOff)
}

// Toggle sends the power-toggle key
func (p *PowerService) Toggle(ctx context.Context) (string, error) {
	return p.s.KeyCommand(ctx, KeyPowerToggle)
}

// MediaService groups playback keys
type MediaService struct {
	s *Speaker
}

// Play sends the play key
func (m *MediaService) Play(ctx context.Context) (string, error) {
	return m.s.KeyCommand(ctx, KeyPlay)
}

// Pause sends the pause key
func (m *MediaService) Pause(ctx context.Context) (string, error) {
	return m.s.KeyCommand(ctx, KeyPause)
}
