// Package device implements the gateway's device model: DALI lights,
// multi-button wall switches, and motion/occupancy sensors owned by
// ZenControl controllers.
//
// # Architecture
//
// The package is layered:
//
//	Registry (cache + validation)
//	    └── Repository (SQLite persistence)
//
// The Registry fronts a Repository with an in-memory cache. Deep copies
// flow in and out of the cache so callers can never mutate cached state
// by accident. The event path (one lookup per multicast datagram) reads
// from the cache; CRUD operations write through and invalidate.
//
// # State semantics
//
// Device state lives in a JSON map persisted per device:
//
//   - Lights carry "state", "brightness", "color_temp", "rgb_color".
//     Colour keys only apply to light_color devices; colour operations
//     on a plain light are rejected with ErrColorNotSupported.
//   - Switches carry per-button boolean state under "buttons". Momentary
//     switches track press/release; toggle switches invert on press and
//     double_press.
//   - Sensors carry "active" plus "last_triggered", set when activity
//     starts and cleared when it ends. Motion events for occupancy
//     sensors (and vice versa) are rejected with ErrSensorTypeMismatch.
//
// The Apply* methods on Device implement these rules; the bridge calls
// them when events arrive and persists the result via the Registry.
package device
