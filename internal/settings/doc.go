// Package settings discovers and caches the settings tree of a SmartCast device.
//
// The device exposes its configurable surface as a hierarchy of menus under
// /menu_native/dynamic/audio_settings. Each menu listing returns its items inline;
// an item is one of three kinds, chosen from its TYPE string:
//
//   - Menu (TYPE contains MENU): a container, fetched with its own request
//   - Action (TYPE contains ACTION): a write-only command
//   - Setting (anything else): a value with a write token (HASHVAL)
//
// # Traversal
//
// Fetching a menu requests its path, records the listing order, then walks the
// items one at a time. New submenus are created and fetched recursively; known
// submenus are re-fetched; known leaves are updated in place from the listing
// without a request of their own. Node objects are never replaced unless the
// device changes an item's kind, so callers can hold on to them across polls.
//
// A child that disappears from a later listing is hidden from views and readiness
// but kept, and reused if it returns.
//
// # Readiness
//
// Leaves are ready on creation. A menu becomes ready the first time every child
// in its latest listing is ready; it then notifies its owner once. The root's
// notification closes Tree.Ready. Readiness never reverts.
//
// A failed child fetch does not abort the parent's traversal. The partial tree is
// kept and the affected branch simply stays not ready.
//
// # Cache views
//
// View returns plain data: menus become map[string]any of their non-empty
// children, settings become their VALUE (or their NAME when VALUE is a
// named-option record with an empty NAME), and actions are omitted.
//
// # Concurrency
//
// The tree holds one lock for every node. A fetch keeps it for the whole
// traversal, so requests from one tree never overlap. Set and Trigger only hold it
// to read the write token; overlapping writes to the same node are the caller's
// problem and surface as a rejected HASHVAL.
package settings
