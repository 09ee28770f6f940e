// Package rulegroup reconciles rule groups across controllers that share
// the same hardware layout.
//
// Controllers are loaded independently, each carrying its own copy of every
// rule. An installer who runs ten identical greenhouses wants to see one
// "Zone 1" rule group with one alert, not ten. This package builds that
// merged view and keeps it in step with bulk edits.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                          Service                           │
//	│  Reload (cancel-previous, generation check)                │
//	│  Update / Delete / Assign → RuleStore, cache, notify       │
//	└──────────────┬────────────────────────────┬────────────────┘
//	               │                            │
//	               ▼                            ▼
//	┌──────────────────────────┐   ┌──────────────────────────────┐
//	│        Reconcile         │   │      Edit operations         │
//	│  controllers →           │   │  Update, DeleteInstance,     │
//	│  []*MappedRuleGroup      │   │  DeleteMapped, Assign        │
//	└──────────────────────────┘   └──────────────────────────────┘
//
// # Merging
//
// Controllers join the same MappedRuleGroup when they have a rule group of
// the same name and controller.SameConfig holds against the group's first
// controller. Within a group, raw rules merge into one Mapped rule when
// they act on same-named sensors/devices, share the kind's equivalence key
// and reference the same set of additional devices by name. Each
// controller carrying the rule contributes one Linked instance.
//
// Rules whose sensor or device cannot be resolved are skipped.
//
// # Thread Safety
//
// Reconcile and the edit functions work on caller-owned data and are not
// synchronised. Service serialises access to the view it owns.
package rulegroup
