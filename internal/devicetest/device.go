// Package devicetest provides an in-memory SmartCast device for tests.
//
// A Device serves GET listings from a path table, applies MODIFY requests with
// the same HASHVAL checks a real device performs, accepts key commands and
// pairing, and records every call. It implements transport.Transport directly
// and http.Handler for tests that want the real HTTPS client in the loop.
package devicetest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/muurk/smartcast/internal/wire"
)

// Well-known paths served by Standard
const (
	RootPath         = "/menu_native/dynamic/audio_settings"
	AudioPath        = RootPath + "/audio"
	InputPath        = RootPath + "/input"
	CurrentInputPath = InputPath + "/current_input"
	VolumePath       = AudioPath + "/volume"
	MutePath         = AudioPath + "/mute"
	PowerPath        = "/state/device/power_mode"
	KeyPath          = "/key_command/"
	PairStartPath    = "/pairing/start"
	PairPath         = "/pairing/pair"
)

// Call is one recorded request
type Call struct {
	Method string
	Path   string
	Body   map[string]any
}

// Device is a fake SmartCast device
type Device struct {
	mu        sync.Mutex
	listings  map[string]*wire.Response
	rawPaths  map[string]string
	failPaths map[string]error
	calls     []Call
	nextHash  int64

	// PairToken is returned by /pairing/start
	PairToken int64
	// AuthToken is returned by /pairing/pair
	AuthToken string
}

// New returns an empty device that answers URI_NOT_FOUND everywhere
func New() *Device {
	return &Device{
		listings:  make(map[string]*wire.Response),
		rawPaths:  make(map[string]string),
		failPaths: make(map[string]error),
		nextHash:  9000,
		PairToken: 584217,
		AuthToken: "Zm9vYmFyYmF6",
	}
}

// Status returns a SUCCESS status block
func Status() *wire.Status {
	return &wire.Status{Result: wire.ResultSuccess, Detail: "Success"}
}

// MenuItem is a submenu entry
func MenuItem(cname, name string) wire.Item {
	return wire.Item{CName: cname, Type: "T_MENU_V1", Name: name}
}

// ValueItem is a setting entry
func ValueItem(cname, typ, name string, value any, hash int64) wire.Item {
	return wire.Item{CName: cname, Type: typ, Name: name, Value: value, HashVal: hash}
}

// ActionItem is an action entry
func ActionItem(cname, name string, hash int64) wire.Item {
	return wire.Item{CName: cname, Type: "T_ACTION_V1", Name: name, HashVal: hash}
}

// MenuResponse builds a menu listing
func MenuResponse(items ...wire.Item) *wire.Response {
	return &wire.Response{Type: "T_MENU_V1", Status: Status(), Items: items}
}

// ValueResponse builds a direct value endpoint response
func ValueResponse(items ...wire.Item) *wire.Response {
	return &wire.Response{Status: Status(), Items: items}
}

// Standard returns a device with a soundbar-like tree:
//
//	audio_settings/
//	  audio/        volume=22, mute=Off, eq (named option "Music"), bass=0
//	  input/        current_input=HDMI-ARC, TV, AUX, Bluetooth
//	  speaker_test  (action)
func Standard() *Device {
	d := New()

	d.SetListing(RootPath, MenuResponse(
		MenuItem("audio", "Audio"),
		MenuItem("input", "Input"),
		ActionItem("speaker_test", "Speaker Test", 301),
	))
	d.SetListing(AudioPath, MenuResponse(
		ValueItem("volume", "T_VALUE_ABS_V1", "Volume", 22, 101),
		ValueItem("mute", "T_LIST_X_V1", "Mute", "Off", 102),
		ValueItem("eq", "T_LIST_V1", "Music", map[string]any{"NAME": ""}, 103),
		ValueItem("bass", "T_VALUE_V1", "Bass", 0, 104),
	))
	d.SetListing(InputPath, MenuResponse(
		ValueItem("current_input", "T_STRING_V1", "Current Input", "HDMI-ARC", 201),
		ValueItem("hdmi", "T_DEVICE_V1", "TV", map[string]any{"NAME": "HDMI-ARC", "METADATA": ""}, 202),
		ValueItem("aux", "T_DEVICE_V1", "AUX", map[string]any{"NAME": "AUX", "METADATA": ""}, 203),
		ValueItem("bt", "T_DEVICE_V1", "Bluetooth", map[string]any{"NAME": "BT", "METADATA": ""}, 204),
	))
	d.SetListing(PowerPath, ValueResponse(ValueItem("power_mode", "T_VALUE_V1", "Power Mode", 1, 1)))

	return d
}

// SetListing installs the response for GET path
func (d *Device) SetListing(path string, resp *wire.Response) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listings[path] = resp
}

// SetRaw makes GET path answer with a raw body
func (d *Device) SetRaw(path, raw string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rawPaths[path] = raw
}

// Fail makes every request to path fail with err at the transport level
func (d *Device) Fail(path string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failPaths, path)
		return
	}
	d.failPaths[path] = err
}

// SetValue changes a leaf value as if it changed on the device
func (d *Device) SetValue(path string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modifyLocked(path, value)
}

// RemoveItem drops a child from a listing
func (d *Device) RemoveItem(menuPath, cname string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	resp, ok := d.listings[menuPath]
	if !ok {
		return
	}
	kept := resp.Items[:0]
	for _, item := range resp.Items {
		if item.CName != cname {
			kept = append(kept, item)
		}
	}
	resp.Items = kept
}

// AddItem appends a child to a listing
func (d *Device) AddItem(menuPath string, item wire.Item) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if resp, ok := d.listings[menuPath]; ok {
		resp.Items = append(resp.Items, item)
	}
}

// Calls returns a copy of every recorded request
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// CallCount counts recorded requests matching method and path
func (d *Device) CallCount(method, path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log
func (d *Device) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

// Do implements transport.Transport
func (d *Device) Do(ctx context.Context, method, path string, payload any) (*wire.Body, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var body map[string]any
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, err
		}
	}

	status, raw, err := d.handle(method, path, body)
	if err != nil {
		return nil, err
	}
	return wire.DecodeBody(status, raw), nil
}

// ServeHTTP implements http.Handler
func (d *Device) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if data, err := io.ReadAll(r.Body); err == nil && len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}

	status, raw, err := d.handle(r.Method, r.URL.Path, body)
	if err != nil {
		// Simulate a dropped connection
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, herr := hj.Hijack(); herr == nil {
				_ = conn.Close()
				return
			}
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func (d *Device) handle(method, path string, body map[string]any) (int, []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, Call{Method: method, Path: path, Body: body})

	if err, ok := d.failPaths[path]; ok {
		return 0, nil, err
	}

	switch method {
	case http.MethodGet:
		if raw, ok := d.rawPaths[path]; ok {
			return http.StatusOK, []byte(raw), nil
		}
		if resp, ok := d.listings[path]; ok {
			return d.encode(http.StatusOK, resp)
		}
		// Leaves answer with their own item, as listed by the parent menu
		if item, ok := d.itemLocked(path); ok {
			return d.encode(http.StatusOK, ValueResponse(*item))
		}
		return d.status("URI_NOT_FOUND")
	case http.MethodPut:
		return d.put(path, body)
	default:
		return http.StatusMethodNotAllowed, []byte("method not allowed"), nil
	}
}

func (d *Device) put(path string, body map[string]any) (int, []byte, error) {
	switch path {
	case KeyPath:
		if _, ok := body["KEYLIST"].([]any); !ok {
			return d.status("INVALID_PARAMETER")
		}
		return d.status(wire.ResultSuccess)
	case PairStartPath:
		if body["DEVICE_ID"] == nil {
			return d.status("INVALID_PARAMETER")
		}
		return d.encode(http.StatusOK, &wire.Response{
			Status: Status(),
			Item:   map[string]any{"PAIRING_REQ_TOKEN": d.PairToken, "CHALLENGE_TYPE": 1},
		})
	case PairPath:
		if body["RESPONSE_VALUE"] == "" || body["RESPONSE_VALUE"] == nil {
			return d.status("PAIRING_DENIED")
		}
		return d.encode(http.StatusOK, &wire.Response{
			Status: Status(),
			Item:   map[string]any{"AUTH_TOKEN": d.AuthToken},
		})
	}

	item, ok := d.itemLocked(path)
	if !ok {
		return d.status("URI_NOT_FOUND")
	}
	hash, _ := body["HASHVAL"].(float64)
	if int64(hash) != item.HashVal {
		return d.status("HASHVAL_ERROR")
	}

	switch body["REQUEST"] {
	case wire.RequestModify:
		d.modifyLocked(path, body["VALUE"])
		return d.status(wire.ResultSuccess)
	case wire.RequestAction:
		return d.status(wire.ResultSuccess)
	default:
		return d.status("INVALID_PARAMETER")
	}
}

// itemLocked finds the leaf at path in its parent's listing
func (d *Device) itemLocked(path string) (*wire.Item, bool) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return nil, false
	}
	parent, ok := d.listings[path[:i]]
	if !ok {
		return nil, false
	}
	for idx := range parent.Items {
		if parent.Items[idx].CName == path[i+1:] {
			return &parent.Items[idx], true
		}
	}
	return nil, false
}

// modifyLocked updates a leaf value and rotates its HASHVAL like the device does
func (d *Device) modifyLocked(path string, value any) {
	item, ok := d.itemLocked(path)
	if !ok {
		return
	}
	d.nextHash++
	item.Value = value
	item.HashVal = d.nextHash
}

func (d *Device) encode(status int, resp *wire.Response) (int, []byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return 0, nil, err
	}
	return status, data, nil
}

func (d *Device) status(result string) (int, []byte, error) {
	return d.encode(http.StatusOK, &wire.Response{Status: &wire.Status{Result: result}})
}

// ErrDropped is a convenient transport failure for Fail
var ErrDropped = errors.New("connection reset by peer")
