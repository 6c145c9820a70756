// Package controller tracks the ZenControl appliances visible on the
// multicast group.
//
// Controllers announce themselves with controller_status events
// (startup_complete, heartbeat, shutdown). The Registry records each
// sighting, detects IP changes, and maintains a ready flag that command
// routing and discovery consult. The Watchdog sweeps the registry on an
// interval and evicts controllers that have gone silent; controllers
// seeded from the config file are exempt and are only marked offline.
package controller
