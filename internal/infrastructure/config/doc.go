// Package config handles loading and validating MirAIe Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with MIRAIE_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - MirAIe account passwords and the JWT secret should be set via environment
//     variables (or a .env file loaded by the caller), not committed to YAML
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.HomeAssistant.DiscoveryPrefix)
package config
