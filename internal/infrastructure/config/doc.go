// Package config handles loading and validating controlhub configuration.
//
// Configuration is read once at startup from defaults, an optional YAML
// file and CONTROLHUB_* environment variables, in that order. Secrets
// (backend API key, MQTT password, InfluxDB token) belong in the
// environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Backend.BaseURL)
package config
