package settings

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/transport"
	"github.com/muurk/smartcast/internal/wire"
)

// Setting is a readable/writable leaf. Its state is normally refreshed in place
// from the parent menu's listing.
type Setting struct {
	tree *Tree
	path string
	item wire.Item
}

func (*Setting) sealed() {}

// Path returns the device endpoint path
func (s *Setting) Path() string { return s.path }

// Name returns the setting's CNAME
func (s *Setting) Name() string { return baseName(s.path) }

// Kind returns KindSetting
func (s *Setting) Kind() Kind { return KindSetting }

// Ready is always true for leaves
func (s *Setting) Ready() bool { return true }

// Item returns the last known raw item
func (s *Setting) Item() wire.Item {
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	return s.item
}

// View returns the cached value, applying the named-option convention
func (s *Setting) View() any {
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()
	return itemView(s.item)
}

// Fetch requests this setting directly and takes ITEMS[0] as its new state
func (s *Setting) Fetch(ctx context.Context) (any, error) {
	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()

	body, err := s.tree.transport.Do(ctx, http.MethodGet, s.path, nil)
	if err != nil {
		return nil, err
	}

	item, ok := body.Response().First()
	if !ok {
		if _, err := transport.CheckResult("read "+s.path, body); err != nil {
			return nil, err
		}
		return nil, transport.NewNotFoundError("setting " + s.path + " returned no items")
	}
	s.item = item
	return itemView(item), nil
}

// Set sends a MODIFY carrying the cached write token. A stale token is rejected
// by the device and reported as a rejection error; nothing is retried.
func (s *Setting) Set(ctx context.Context, value any) (*wire.Body, error) {
	s.tree.mu.Lock()
	hashVal := s.item.HashVal
	s.tree.mu.Unlock()

	s.tree.logger.Debug("Modifying setting",
		zap.String("path", s.path),
		zap.Any("value", value),
	)

	body, err := s.tree.transport.Do(ctx, http.MethodPut, s.path, wire.NewModify(hashVal, value))
	if err != nil {
		return nil, err
	}
	if _, err := transport.CheckResult("modify "+s.path, body); err != nil {
		return body, err
	}
	return body, nil
}

// Action is a write-only leaf that triggers a device-side command
type Action struct {
	tree *Tree
	path string
	item wire.Item
}

func (*Action) sealed() {}

// Path returns the device endpoint path
func (a *Action) Path() string { return a.path }

// Name returns the action's CNAME
func (a *Action) Name() string { return baseName(a.path) }

// Kind returns KindAction
func (a *Action) Kind() Kind { return KindAction }

// Ready is always true for leaves
func (a *Action) Ready() bool { return true }

// View is always nil: actions carry no readable state
func (a *Action) View() any { return nil }

// Item returns the last known raw item
func (a *Action) Item() wire.Item {
	a.tree.mu.Lock()
	defer a.tree.mu.Unlock()
	return a.item
}

// Trigger sends an ACTION carrying the cached write token
func (a *Action) Trigger(ctx context.Context) (*wire.Body, error) {
	a.tree.mu.Lock()
	hashVal := a.item.HashVal
	a.tree.mu.Unlock()

	a.tree.logger.Debug("Triggering action", zap.String("path", a.path))

	body, err := a.tree.transport.Do(ctx, http.MethodPut, a.path, wire.NewAction(hashVal))
	if err != nil {
		return nil, err
	}
	if _, err := transport.CheckResult("trigger "+a.path, body); err != nil {
		return body, err
	}
	return body, nil
}
