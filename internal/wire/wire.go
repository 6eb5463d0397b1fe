package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ResultSuccess is the STATUS.RESULT value the device reports for a successful operation
const ResultSuccess = "SUCCESS"

// Request values understood by settings endpoints
const (
	RequestModify = "MODIFY"
	RequestAction = "ACTION"
)

// KeyActionPress is the only key action the client sends
const KeyActionPress = "KEYPRESS"

// Status is the STATUS block attached to every device response
type Status struct {
	Result string `json:"RESULT"`
	Detail string `json:"DETAIL,omitempty"`
}

// Item is one record of a response's ITEMS list.
// Value keeps whatever JSON the device sent: float64, string, bool or map[string]any.
// Enabled is kept the same way; firmware sends both "TRUE" and true.
type Item struct {
	CName   string `json:"CNAME"`
	Type    string `json:"TYPE"`
	Name    string `json:"NAME,omitempty"`
	Value   any    `json:"VALUE,omitempty"`
	HashVal int64  `json:"HASHVAL,omitempty"`
	Enabled any    `json:"ENABLED,omitempty"`
}

// UnmarshalJSON accepts HASHVAL as a JSON number or a numeric string
func (i *Item) UnmarshalJSON(data []byte) error {
	var aux struct {
		CName   string          `json:"CNAME"`
		Type    string          `json:"TYPE"`
		Name    string          `json:"NAME"`
		Value   any             `json:"VALUE"`
		HashVal json.RawMessage `json:"HASHVAL"`
		Enabled any             `json:"ENABLED"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	hash, err := parseHashVal(aux.HashVal)
	if err != nil {
		return err
	}
	*i = Item{
		CName:   aux.CName,
		Type:    aux.Type,
		Name:    aux.Name,
		Value:   aux.Value,
		HashVal: hash,
		Enabled: aux.Enabled,
	}
	return nil
}

func parseHashVal(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, nil
		}
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("invalid HASHVAL %s", raw)
	}
	return int64(f), nil
}

// ValueName returns VALUE.NAME when the value is a named-option record.
// The second result is false when VALUE is not an object or has no NAME field.
func (i Item) ValueName() (string, bool) {
	obj, ok := i.Value.(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := obj["NAME"].(string)
	return name, ok
}

// Response is a decoded device response
type Response struct {
	Type   string  `json:"TYPE,omitempty"`
	Items  []Item  `json:"ITEMS,omitempty"`
	Status *Status `json:"STATUS,omitempty"`

	// Item is set by pairing endpoints, which answer with a single ITEM object
	Item map[string]any `json:"ITEM,omitempty"`

	// Skipped counts ITEMS entries that could not be decoded and were dropped
	Skipped int `json:"-"`
}

// UnmarshalJSON decodes each top-level field on its own. A field of the wrong
// shape is left empty and an undecodable ITEMS entry is dropped and counted.
func (r *Response) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var resp Response
	if raw, ok := fields["TYPE"]; ok {
		_ = json.Unmarshal(raw, &resp.Type)
	}
	if raw, ok := fields["STATUS"]; ok {
		var status Status
		if err := json.Unmarshal(raw, &status); err == nil && !isNull(raw) {
			resp.Status = &status
		}
	}
	if raw, ok := fields["ITEM"]; ok {
		_ = json.Unmarshal(raw, &resp.Item)
	}
	if raw, ok := fields["ITEMS"]; ok {
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err == nil {
			for _, entry := range entries {
				var item Item
				if err := json.Unmarshal(entry, &item); err != nil {
					resp.Skipped++
					continue
				}
				resp.Items = append(resp.Items, item)
			}
		}
	}
	*r = resp
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// IsMenu reports whether the response declares a container listing
func (r *Response) IsMenu() bool {
	return r != nil && strings.Contains(r.Type, "MENU")
}

// First returns ITEMS[0]
func (r *Response) First() (Item, bool) {
	if r == nil || len(r.Items) == 0 {
		return Item{}, false
	}
	return r.Items[0], true
}

// Find returns the first item with the given CNAME
func (r *Response) Find(cname string) (Item, bool) {
	if r == nil {
		return Item{}, false
	}
	for _, item := range r.Items {
		if item.CName == cname {
			return item, true
		}
	}
	return Item{}, false
}

// Body is a transport result. Exactly one of JSON and Text is meaningful:
// a body that parsed as a JSON object carries JSON, anything else is kept as Text.
type Body struct {
	StatusCode int
	JSON       *Response
	Text       string
}

// DecodeBody parses raw into the structured variant, falling back to opaque text.
// Any JSON object is structured; fields of an unexpected shape are dropped.
func DecodeBody(statusCode int, raw []byte) *Body {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var resp Response
		if err := json.Unmarshal(trimmed, &resp); err == nil {
			return &Body{StatusCode: statusCode, JSON: &resp}
		}
	}
	return &Body{StatusCode: statusCode, Text: string(raw)}
}

// IsText reports whether the body is the opaque-text variant
func (b *Body) IsText() bool {
	return b == nil || b.JSON == nil
}

// Response returns the structured body, or nil for text bodies
func (b *Body) Response() *Response {
	if b == nil {
		return nil
	}
	return b.JSON
}

// Result returns STATUS.RESULT and whether it was present
func (b *Body) Result() (string, bool) {
	if b.IsText() || b.JSON.Status == nil || b.JSON.Status.Result == "" {
		return "", false
	}
	return b.JSON.Status.Result, true
}

// String renders the body for error messages
func (b *Body) String() string {
	if b == nil {
		return "<nil>"
	}
	if b.IsText() {
		return b.Text
	}
	data, err := json.Marshal(b.JSON)
	if err != nil {
		return "<unencodable response>"
	}
	return string(data)
}

// ModifyRequest changes the value of a setting
type ModifyRequest struct {
	Request string `json:"REQUEST"`
	HashVal int64  `json:"HASHVAL"`
	Value   any    `json:"VALUE"`
}

// NewModify builds a MODIFY request
func NewModify(hashVal int64, value any) ModifyRequest {
	return ModifyRequest{Request: RequestModify, HashVal: hashVal, Value: value}
}

// ActionRequest triggers a device-side action
type ActionRequest struct {
	Request string `json:"REQUEST"`
	HashVal int64  `json:"HASHVAL"`
}

// NewAction builds an ACTION request
func NewAction(hashVal int64) ActionRequest {
	return ActionRequest{Request: RequestAction, HashVal: hashVal}
}

// KeyEvent is one entry of a KEYLIST
type KeyEvent struct {
	Codeset int    `json:"CODESET"`
	Code    int    `json:"CODE"`
	Action  string `json:"ACTION"`
}

// KeyList is the key_command payload
type KeyList struct {
	Keys []KeyEvent `json:"KEYLIST"`
}

// NewKeyPress wraps a single key press into a key list
func NewKeyPress(codeset, code int) KeyList {
	return KeyList{Keys: []KeyEvent{{Codeset: codeset, Code: code, Action: KeyActionPress}}}
}

// PairRequest starts pairing
type PairRequest struct {
	DeviceName string `json:"DEVICE_NAME"`
	DeviceID   string `json:"DEVICE_ID"`
}

// PairChallenge completes pairing with the PIN shown on the device
type PairChallenge struct {
	DeviceID        string `json:"DEVICE_ID"`
	ChallengeType   int    `json:"CHALLENGE_TYPE"`
	ResponseValue   string `json:"RESPONSE_VALUE"`
	PairingReqToken int64  `json:"PAIRING_REQ_TOKEN"`
}
