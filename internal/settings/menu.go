package settings

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/wire"
)

// Menu is a container node. It exclusively owns its children and refreshes them
// in place on every fetch, so child identity survives across polls.
type Menu struct {
	tree *Tree
	path string
	last *wire.Body

	// children is the CNAME order of the latest menu listing
	children []string
	// nodes holds every child ever created; entries missing from a later
	// listing are kept (hidden) and reused if they come back
	nodes map[string]Node

	listed bool
	ready  bool

	// onReady notifies the owner once this menu first becomes ready
	onReady func()
}

func (*Menu) sealed() {}

// Path returns the device endpoint path
func (m *Menu) Path() string { return m.path }

// Name returns the menu's CNAME
func (m *Menu) Name() string { return baseName(m.path) }

// Kind returns KindMenu
func (m *Menu) Kind() Kind { return KindMenu }

// Ready reports whether every listed child has been populated at least once
func (m *Menu) Ready() bool {
	m.tree.mu.Lock()
	defer m.tree.mu.Unlock()
	return m.ready
}

// Children returns the child names of the latest listing, in device order
func (m *Menu) Children() []string {
	m.tree.mu.Lock()
	defer m.tree.mu.Unlock()
	return append([]string(nil), m.children...)
}

// Child returns a listed child by name
func (m *Menu) Child(name string) (Node, bool) {
	m.tree.mu.Lock()
	defer m.tree.mu.Unlock()
	return m.childLocked(name)
}

// Raw returns the last response fetched for this menu
func (m *Menu) Raw() *wire.Body {
	m.tree.mu.Lock()
	defer m.tree.mu.Unlock()
	return m.last
}

// View returns the cache view: child name to child view, for listed children
// whose view is non-empty
func (m *Menu) View() any {
	m.tree.mu.Lock()
	defer m.tree.mu.Unlock()
	return m.viewLocked()
}

// Fetch requests this menu, creates or refreshes every listed child
// (recursively for submenus) and returns the refreshed cache view.
func (m *Menu) Fetch(ctx context.Context) (map[string]any, error) {
	m.tree.mu.Lock()
	defer m.tree.mu.Unlock()

	if err := m.fetchLocked(ctx); err != nil {
		return nil, err
	}
	return m.viewLocked(), nil
}

func (m *Menu) childLocked(name string) (Node, bool) {
	for _, listed := range m.children {
		if listed == name {
			child, ok := m.nodes[name]
			return child, ok
		}
	}
	return nil, false
}

func (m *Menu) viewLocked() map[string]any {
	view := make(map[string]any, len(m.children))
	for _, name := range m.children {
		child, ok := m.nodes[name]
		if !ok {
			continue
		}
		var v any
		switch c := child.(type) {
		case *Menu:
			v = c.viewLocked()
		case *Setting:
			v = itemView(c.item)
		case *Action:
			v = nil
		}
		if !isEmptyView(v) {
			view[name] = v
		}
	}
	return view
}

func (m *Menu) fetchLocked(ctx context.Context) error {
	log := m.tree.logger.With(zap.String("path", m.path))

	body, err := m.tree.transport.Do(ctx, http.MethodGet, m.path, nil)
	if err != nil {
		return err
	}
	m.last = body

	resp := body.Response()
	if !resp.IsMenu() {
		// The device no longer lists this path as a menu; keep the previous
		// children and let readiness stay where it is.
		result, _ := body.Result()
		log.Warn("Menu fetch did not return a menu listing",
			zap.Bool("text", body.IsText()),
			zap.String("result", result),
		)
	} else {
		m.applyListingLocked(ctx, resp.Items)
	}

	if !m.ready {
		m.checkReadyLocked()
	}
	return nil
}

func (m *Menu) applyListingLocked(ctx context.Context, items []wire.Item) {
	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.CName == "" {
			m.tree.logger.Warn("Skipping menu item without CNAME",
				zap.String("path", m.path),
				zap.String("type", item.Type),
				zap.String("name", item.Name),
			)
			continue
		}
		names = append(names, item.CName)
	}
	m.children = names
	m.listed = true

	for _, item := range items {
		if item.CName == "" {
			continue
		}
		m.refreshChildLocked(ctx, item)
	}
}

func (m *Menu) refreshChildLocked(ctx context.Context, item wire.Item) {
	name := item.CName
	kind, known := Classify(item.Type)

	existing, ok := m.nodes[name]
	if ok && existing.Kind() != kind {
		m.tree.logger.Info("Settings node changed type, replacing",
			zap.String("path", existing.Path()),
			zap.Stringer("was", existing.Kind()),
			zap.Stringer("now", kind),
		)
		ok = false
	}

	if !ok {
		if !known {
			m.tree.logger.Warn("Unrecognised settings node type, treating as setting",
				zap.String("path", m.path+"/"+name),
				zap.String("type", item.Type),
			)
		}
		child := m.tree.newNode(m.path+"/"+name, kind, item)
		m.nodes[name] = child

		if sub, isMenu := child.(*Menu); isMenu {
			sub.onReady = m.checkReadyLocked
			if err := sub.fetchLocked(ctx); err != nil {
				m.tree.logger.Warn("Submenu fetch failed",
					zap.String("path", sub.path),
					zap.Error(err),
				)
			}
		}
		return
	}

	switch node := existing.(type) {
	case *Menu:
		if err := node.fetchLocked(ctx); err != nil {
			m.tree.logger.Warn("Submenu refresh failed",
				zap.String("path", node.path),
				zap.Error(err),
			)
		}
	case *Setting:
		node.item = item
	case *Action:
		node.item = item
	}
}

// checkReadyLocked marks the menu ready the first time every listed child is
// ready, and notifies the owner exactly once.
func (m *Menu) checkReadyLocked() {
	if m.ready || !m.listed {
		return
	}
	for _, name := range m.children {
		child, ok := m.nodes[name]
		if !ok || !readyLocked(child) {
			return
		}
	}
	m.ready = true
	m.tree.logger.Debug("Menu ready", zap.String("path", m.path))
	if m.onReady != nil {
		m.onReady()
	}
}

func readyLocked(n Node) bool {
	if menu, ok := n.(*Menu); ok {
		return menu.ready
	}
	return true
}
