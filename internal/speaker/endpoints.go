package speaker

// Device endpoint paths
const (
	EndpointBeginPair    = "/pairing/start"
	EndpointPair         = "/pairing/pair"
	EndpointKeyPress     = "/key_command/"
	EndpointPowerMode    = "/state/device/power_mode"
	EndpointSettings     = "/menu_native/dynamic/audio_settings"
	EndpointAudio        = EndpointSettings + "/audio"
	EndpointInputs       = EndpointSettings + "/input"
	EndpointCurrentInput = EndpointInputs + "/current_input"
	EndpointVolume       = EndpointAudio + "/volume"
	EndpointMute         = EndpointAudio + "/mute"
)

// Key is a remote-control key as a codeset/code pair
type Key struct {
	Codeset int
	Code    int
}

// Remote keys understood by SmartCast audio devices
var (
	KeyPause       = Key{Codeset: 2, Code: 2}
	KeyPlay        = Key{Codeset: 2, Code: 3}
	KeyVolumeDown  = Key{Codeset: 5, Code: 0}
	KeyVolumeUp    = Key{Codeset: 5, Code: 1}
	KeyMuteOff     = Key{Codeset: 5, Code: 2}
	KeyMuteOn      = Key{Codeset: 5, Code: 3}
	KeyMuteToggle  = Key{Codeset: 5, Code: 4}
	KeyPowerOff    = Key{Codeset: 11, Code: 0}
	KeyPowerOn     = Key{Codeset: 11, Code: 1}
	KeyPowerToggle = Key{Codeset: 11, Code: 2}
)

// Keys maps CLI-friendly names to remote keys
var Keys = map[string]Key{
	"pause":        KeyPause,
	"play":         KeyPlay,
	"vol-down":     KeyVolumeDown,
	"vol-up":       KeyVolumeUp,
	"mute-off":     KeyMuteOff,
	"mute-on":      KeyMuteOn,
	"mute-toggle":  KeyMuteToggle,
	"power-off":    KeyPowerOff,
	"power-on":     KeyPowerOn,
	"power-toggle": KeyPowerToggle,
}

// currentInputName is the pseudo-entry in the input listing that mirrors the
// active input; it is not itself selectable
const currentInputName = "Current Input"
