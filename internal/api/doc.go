// Package api implements the HTTP REST API and WebSocket server for
// controlhub.
//
// It provides:
//   - controller directory reads and a manual refresh
//   - mapped rule groups, their deviants, and cross-controller rule edits
//   - dashboards with auto-placed widgets, and a pure placement endpoint
//   - a WebSocket hub pushing rulegroups.updated and dashboard.updated
//   - middleware for request IDs, logging, recovery, CORS and body limits
//
// # Errors
//
// Domain sentinels map to structured bodies {status, code, message}:
// unknown IDs are 404, conflicting edits 409, a view that is not loaded
// yet 503, and backend failures during an edit 502.
//
// The API carries no authentication; put it behind a trusted proxy.
package api
