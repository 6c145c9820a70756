// Package api implements the HTTP REST API and WebSocket server for the
// ZenControl gateway.
//
// This package provides:
//   - REST endpoints for device reads, state, and commands
//   - Scene CRUD, activation, and button assignments
//   - Controller listing and discovery control
//   - WebSocket hub for real-time broadcasts
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between user interfaces and the gateway core. Commands
// flow from the API to the ZenControl bridge, which talks UDP to the
// controllers; state changes flow back through the bridge and are broadcast
// to WebSocket clients via the shared hub.
//
// # Security
//
// Authentication uses HS256 JWT tokens issued to the configured admin
// account. WebSocket connections use single-use tickets to prevent token
// leakage in URLs.
package api
