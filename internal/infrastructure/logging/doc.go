// Package logging provides structured logging for controlhub.
//
// It wraps log/slog: JSON output for production, text for development,
// level filtering, and service/version fields on every entry.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log the backend API key, MQTT password or InfluxDB token.
package logging
