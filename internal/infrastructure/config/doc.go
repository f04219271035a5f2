// Package config handles loading and validating Entry Guard Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The door credential should be set via ENTRYGUARD_CREDENTIAL, never committed
//   - Broker and cloud store secrets follow the same rule
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Site.Name)
package config
