// Package api implements the HTTP REST API and WebSocket server for MirAIe Core.
//
// This package provides:
//   - REST endpoints for config entries (add account, reload, remove)
//   - Entity listing and service calls (climate and switch commands)
//   - WebSocket hub pushing state_changed events
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - Prometheus scrape endpoint at /metrics
//
// # Config Flow
//
// POST /api/v1/entries validates credentials by setting the new entry up.
// If the cloud rejects them, the entry is removed again and the request
// fails with 400, so a stored entry always had working credentials once.
//
// # Security
//
// A single admin account (security.admin in config.yaml) logs in with
// POST /api/v1/auth/login. WebSocket connections use single-use tickets so
// the JWT never appears in a URL.
package api
