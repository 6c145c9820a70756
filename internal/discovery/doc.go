// Package discovery finds the devices attached to ZenControl
// controllers and registers them with the gateway.
//
// A run broadcasts a solicitation, waits out a collection window while
// controllers announce themselves on the multicast group, then asks
// each ready controller for its device inventory. Discovered devices
// are persisted; already known devices keep their state and only have
// their inventory fields refreshed. Runs can be triggered at startup,
// from the REST API, or over MQTT, and concurrent triggers coalesce
// into the active run.
package discovery
