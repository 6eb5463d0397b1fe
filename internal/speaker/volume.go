package speaker

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/settings"
	"github.com/muurk/smartcast/internal/transport"
)

// Volume limits accepted by the device
const (
	MinVolume = 0
	MaxVolume = 100
)

// VolumeService groups volume and mute operations
type VolumeService struct {
	s *Speaker
}

// Get reads the current volume level
func (v *VolumeService) Get(ctx context.Context) (int, error) {
	item, _, err := v.s.readItem(ctx, EndpointVolume)
	if err != nil {
		return 0, err
	}
	switch val := item.Value.(type) {
	case float64:
		return int(math.Round(val)), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, transport.NewParseError("volume is not a number: "+val, err)
		}
		return n, nil
	default:
		return 0, transport.NewParseError(fmt.Sprintf("unexpected volume value %v", item.Value), nil)
	}
}

// GetMute reads the mute state. Devices report it as "On"/"Off", 1/0 or a bool.
func (v *VolumeService) GetMute(ctx context.Context) (bool, error) {
	item, _, err := v.s.readItem(ctx, EndpointMute)
	if err != nil {
		return false, err
	}
	switch val := item.Value.(type) {
	case bool:
		return val, nil
	case float64:
		return val != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "on", "1", "true":
			return true, nil
		case "off", "0", "false":
			return false, nil
		}
	}
	return false, transport.NewParseError(fmt.Sprintf("unexpected mute value %v", item.Value), nil)
}

// Set validates and rounds value, refreshes the audio menu of the settings
// tree for the live write token, then modifies the volume through the tree.
// The audio menu is fetched again after a successful write so the cached view
// holds the new level. Invalid values fail before any request.
func (v *VolumeService) Set(ctx context.Context, value float64) (string, error) {
	level, err := validateVolume(value)
	if err != nil {
		return "", err
	}

	audio, err := v.s.audioMenu(ctx)
	if err != nil {
		return "", err
	}
	node, ok := audio.Child("volume")
	if !ok {
		return "", transport.NewNotFoundError("no volume setting found")
	}
	setting, ok := node.(*settings.Setting)
	if !ok {
		return "", transport.NewNotFoundError(fmt.Sprintf("volume is a %s, not a setting", node.Kind()))
	}

	body, err := setting.Set(ctx, level)
	if err != nil {
		return "", err
	}
	result, _ := body.Result()

	if _, err := audio.Fetch(ctx); err != nil {
		v.s.logger.Warn("Failed to refresh audio settings after volume change", zap.Error(err))
	}
	return result, nil
}

// audioMenu returns the audio menu with a fresh listing. A tree that has not
// discovered it yet is traversed first; a partially failed traversal is
// tolerated as long as the audio menu came through.
func (s *Speaker) audioMenu(ctx context.Context) (*settings.Menu, error) {
	if node, ok := s.tree.Find(EndpointAudio); ok {
		if menu, ok := node.(*settings.Menu); ok {
			if _, err := menu.Fetch(ctx); err != nil {
				return nil, err
			}
			return menu, checkListing(menu)
		}
	}

	_, discoverErr := s.tree.Fetch(ctx)
	node, ok := s.tree.Find(EndpointAudio)
	if !ok {
		if discoverErr != nil {
			return nil, discoverErr
		}
		return nil, transport.NewNotFoundError("no audio settings found")
	}
	menu, ok := node.(*settings.Menu)
	if !ok {
		return nil, transport.NewNotFoundError("audio settings are not a menu")
	}
	return menu, checkListing(menu)
}

// checkListing surfaces a refused or failed read of the menu, such as a
// missing pairing, instead of reporting its children as absent
func checkListing(menu *settings.Menu) error {
	body := menu.Raw()
	if body.Response().IsMenu() {
		return nil
	}
	_, err := transport.CheckResult("read audio settings", body)
	return err
}

// Up sends the volume-up key
func (v *VolumeService) Up(ctx context.Context) (string, error) {
	return v.s.KeyCommand(ctx, KeyVolumeUp)
}

// Down sends the volume-down key
func (v *VolumeService) Down(ctx context.Context) (string, error) {
	return v.s.KeyCommand(ctx, KeyVolumeDown)
}

// Mute sends the mute-on key
func (v *VolumeService) Mute(ctx context.Context) (string, error) {
	return v.s.KeyCommand(ctx, KeyMuteOn)
}

// Unmute sends the mute-off key
func (v *VolumeService) Unmute(ctx context.Context) (string, error) {
	return v.s.KeyCommand(ctx, KeyMuteOff)
}

// ToggleMute sends the mute-toggle key
func (v *VolumeService) ToggleMute(ctx context.Context) (string, error) {
	return v.s.KeyCommand(ctx, KeyMuteToggle)
}

// ParseVolume parses user input such as "35" or "50.6" into a volume value
func ParseVolume(s string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, transport.NewInvalidArgumentError(fmt.Sprintf("volume must be a number, got %q", s))
	}
	if _, err := validateVolume(value); err != nil {
		return 0, err
	}
	return value, nil
}

func validateVolume(value float64) (int, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, transport.NewInvalidArgumentError("volume must be a number")
	}
	if value < MinVolume || value > MaxVolume {
		return 0, transport.NewInvalidArgumentError(fmt.Sprintf(
			"volume %v is out of range, please enter a number between %d and %d inclusive", value, MinVolume, MaxVolume))
	}
	return int(math.Round(value)), nil
}
