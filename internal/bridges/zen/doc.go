// Package zen implements the ZenControl DALI controller protocol and
// the bridge that connects it to the rest of the gateway.
//
// # Protocol
//
// Controllers are driven over two UDP channels:
//
//   - Commands: unicast request/response frames on the controller port.
//     Each frame is a 2-byte big-endian sequence number followed by a
//     JSON payload; the controller echoes the sequence in its response
//     so concurrent commands can share one socket. See UDPClient.
//
//   - Events: unsolicited JSON datagrams on a multicast group. These
//     carry controller lifecycle announcements (startup, heartbeat,
//     shutdown) and device events (buttons, motion, occupancy, light
//     state). See Listener.
//
// # Bridge
//
// Bridge ties the two channels to the gateway: multicast events update
// the controller and device registries and fan out to MQTT, WebSocket
// subscribers, and InfluxDB; inbound commands from MQTT or the REST
// API are translated to command frames and sent to the controller
// owning the target device. Light commands apply an optimistic state
// update on success rather than waiting for the controller's
// light_state event.
//
// All exported types are safe for concurrent use.
package zen
