package settings

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/logging"
	"github.com/muurk/smartcast/internal/transport"
	"github.com/muurk/smartcast/internal/wire"
)

// Tree owns the settings hierarchy of one device.
//
// All nodes share the tree's lock: a fetch holds it for the whole traversal, so
// child requests go out one at a time in the order the device lists them.
type Tree struct {
	mu        sync.Mutex
	transport transport.Transport
	logger    *zap.Logger

	root *Menu

	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures a Tree
type Option func(*Tree)

// WithLogger sets the tree logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tree) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTree creates an empty tree rooted at rootPath. Nothing is fetched until
// Fetch is called.
func NewTree(tr transport.Transport, rootPath string, opts ...Option) *Tree {
	t := &Tree{
		transport: tr,
		logger:    logging.Named("settings"),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.root = t.newMenu(strings.TrimRight(rootPath, "/"))
	t.root.onReady = t.markReady
	return t
}

// Root returns the root menu
func (t *Tree) Root() *Menu {
	return t.root
}

// Fetch traverses the whole tree from the root and returns the root cache view
func (t *Tree) Fetch(ctx context.Context) (map[string]any, error) {
	return t.root.Fetch(ctx)
}

// View returns the root cache view without touching the network
func (t *Tree) View() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root.viewLocked()
}

// Ready is closed once the initial discovery of the whole tree has completed
func (t *Tree) Ready() <-chan struct{} {
	return t.ready
}

// IsReady reports whether Ready has been closed
func (t *Tree) IsReady() bool {
	select {
	case <-t.ready:
		return true
	default:
		return false
	}
}

func (t *Tree) markReady() {
	t.readyOnce.Do(func() {
		t.logger.Info("Settings discovery complete",
			zap.String("root", t.root.path),
			zap.Int("nodes", t.countLocked(t.root)),
		)
		close(t.ready)
	})
}

// Lookup walks known child names from the root.
// Only children present in each menu's latest listing are followed.
func (t *Tree) Lookup(names ...string) (Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var node Node = t.root
	for _, name := range names {
		menu, ok := node.(*Menu)
		if !ok {
			return nil, false
		}
		child, ok := menu.childLocked(name)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// Find resolves a slash-separated path. Both "audio/volume" and the full device
// path are accepted.
func (t *Tree) Find(path string) (Node, bool) {
	rel := path
	if rel == t.root.path {
		rel = ""
	} else if strings.HasPrefix(rel, t.root.path+"/") {
		rel = rel[len(t.root.path):]
	}
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return t.root, true
	}
	return t.Lookup(strings.Split(rel, "/")...)
}

// Walk calls fn for every node reachable through current listings, depth first,
// in device order. The tree is not locked while fn runs. Returning false from fn
// skips the node's children.
func (t *Tree) Walk(fn func(node Node, depth int) bool) {
	type entry struct {
		node  Node
		depth int
	}

	t.mu.Lock()
	var entries []entry
	var collect func(m *Menu, depth int)
	collect = func(m *Menu, depth int) {
		for _, name := range m.children {
			child, ok := m.nodes[name]
			if !ok {
				continue
			}
			entries = append(entries, entry{child, depth})
			if sub, ok := child.(*Menu); ok {
				collect(sub, depth+1)
			}
		}
	}
	collect(t.root, 0)
	t.mu.Unlock()

	skipBelow := -1
	for _, e := range entries {
		if skipBelow >= 0 {
			if e.depth > skipBelow {
				continue
			}
			skipBelow = -1
		}
		if !fn(e.node, e.depth) {
			skipBelow = e.depth
		}
	}
}

func (t *Tree) countLocked(m *Menu) int {
	n := 0
	for _, name := range m.children {
		child, ok := m.nodes[name]
		if !ok {
			continue
		}
		n++
		if sub, ok := child.(*Menu); ok {
			n += t.countLocked(sub)
		}
	}
	return n
}

func (t *Tree) newMenu(path string) *Menu {
	return &Menu{
		tree:  t,
		path:  path,
		nodes: make(map[string]Node),
	}
}

// newNode builds the node variant for kind. Leaves take their state from the
// parent's listing and are ready immediately.
func (t *Tree) newNode(path string, kind Kind, item wire.Item) Node {
	switch kind {
	case KindMenu:
		return t.newMenu(path)
	case KindAction:
		return &Action{tree: t, path: path, item: item}
	default:
		return &Setting{tree: t, path: path, item: item}
	}
}
