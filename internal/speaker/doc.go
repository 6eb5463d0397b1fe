// Package speaker is the client facade for a SmartCast audio device.
//
// A Speaker bundles the HTTPS transport, the settings tree and four grouped
// services that map onto fixed device endpoints and remote-control keys:
//   - Power: read power mode, on/off/toggle keys
//   - Input: list, read and select inputs
//   - Volume: read level and mute, set level, volume and mute keys
//   - Media: play and pause keys
//
// # Usage Example
//
//	spk := speaker.New("192.168.1.40", speaker.WithAuthToken(token))
//
//	state, err := spk.Power.Get(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Power:", state)
//
//	// Volume is validated locally before anything is sent
//	if _, err := spk.Volume.Set(ctx, 35); err != nil {
//	    log.Fatal(err)
//	}
//
// # Change Polling
//
// Poll starts a background loop that reads power, input, volume and mute on a
// fixed interval and notifies OnChange observers when the combined state
// differs from the previous poll. The first poll always notifies. The loop stops
// itself when it finds no observers registered.
//
//	remove := spk.OnChange(func(s speaker.Snapshot) {
//	    fmt.Printf("%s %s vol=%d mute=%v\n", s.Power, s.Input, s.Volume, s.Mute)
//	})
//	defer remove()
//	spk.Poll(30 * time.Second)
//
// # Errors
//
// Operations return *transport.DeviceError values; use transport.IsRejected,
// transport.IsInvalidArgument and transport.IsNotFound to tell them apart.
package speaker
