// Package influxdb writes controlhub telemetry to InfluxDB v2.
//
// Measurements:
//
//	rulegroup_reconcile  groups, rules, controllers, duration_ms
//	rule_edit            tags action, kind; fields controllers, failed
//
// The integration is optional (influxdb.enabled). Writes are batched and
// never block the caller; the token is read from CONTROLHUB_INFLUXDB_TOKEN
// in production and must not be logged.
package influxdb
