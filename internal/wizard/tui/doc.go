// Package tui implements the interactive terminal wizard for SmartCast speakers.
//
// Built on Bubble Tea, it follows the Model-Update-View pattern with value
// models and commands for every device request.
//
// # Screen Flow
//
//  1. Discovery: browses mDNS for _viziocast._tcp, shows speakers as cards and
//     accepts a hand-typed address ("host" or "host:port")
//  2. Pair: runs the PIN challenge when no stored token applies; the token is
//     handed to Options.OnPaired for saving
//  3. Dashboard: live power, volume, mute and input state fed by the speaker's
//     change poller, with keys for power, volume, mute, input cycling and
//     play/pause
//
// The dashboard can also run on its own (smartcast watch --tui); it owns a
// speaker.Subscription that must be closed when the model is discarded.
//
// # Framework Components
//
//   - bubbles/list: device cards with filtering
//   - bubbles/textinput: manual address and PIN entry
//   - bubbles/spinner, bubbles/progress: scan progress and the volume bar
//   - bubbles/help, bubbles/key: context-sensitive key help
//   - lipgloss: styling and layout through RenderApplicationContainer
package tui
