// Package controller holds the controller directory for controlhub.
//
// A Controller is a physical environmental-control unit. It carries an
// ordered list of hardware Modules (each hosting Sensors and Devices), the
// RuleGroups defined on it, and the raw automation rules that belong to
// those groups: sensor triggers, timers, schedules and alerts.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────┐
//	│                 Registry (registry.go)                │
//	│  RWMutex cache of the last directory snapshot         │
//	│  ┌──────────────┐        ┌───────────────────────┐   │
//	│  │  Directory   │──────▶ │ Repository (SQLite)    │   │
//	│  │ (REST backend)│ save  │ offline snapshot       │   │
//	│  └──────────────┘        └───────────────────────┘   │
//	└──────────────────────────────────────────────────────┘
//
// RefreshCache pulls the directory and stores a snapshot. If the backend
// is unreachable the registry serves the last stored snapshot instead.
//
// # Structural equality
//
// SameConfig reports whether two controllers have the same hardware shape
// (module product types, sensor names, device names), independent of the
// order in which the backend listed them. Rule reconciliation only merges
// rule groups across controllers that are SameConfig.
//
// # Thread Safety
//
// Registry is safe for concurrent use. Controller values returned from the
// registry are deep copies and may be modified freely by the caller.
package controller
