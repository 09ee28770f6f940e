// Package backend is the HTTP client for the controller REST backend.
//
//	            GET /controllers
//	Client ───▶ GET /controllers/{id}/rules        (parallel, bounded)
//	            POST|PUT|DELETE /controllers/{id}/{kind}[/{ruleId}]
//
// Client implements controller.Directory (the full controller list with
// rules) and rulegroup.RuleStore (one call per raw rule change).
// Requests carry the API key as a bearer token and are retried on
// transport errors and, for idempotent methods, on 5xx responses.
package backend
