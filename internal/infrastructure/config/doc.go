// Package config handles loading and validating Gray Logic Access configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with GRAYLOGIC_* environment variables
//   - Validation of required fields and hardware timing limits
//   - Default value handling, including per-reader defaults
//
// Security Considerations:
//   - Broker passwords and tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range cfg.Readers {
//	    fmt.Println(r.Name, r.Mode)
//	}
package config
