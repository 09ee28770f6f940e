// Package mqtt provides the MQTT client controlhub uses to talk to the
// controller backend's message bus.
//
//	controller backend ──config──▶ broker ──▶ controlhub (reload)
//	controlhub ──rules/changed, dashboard/updated──▶ broker ──▶ listeners
//
// Connect registers a retained last-will "offline" status, publishes
// "online" on every (re)connect, and restores subscriptions after a
// dropped connection. Handlers run on paho goroutines with panic recovery.
//
// Use TLS (broker.tls) and credentials outside development; never log
// the password.
package mqtt
