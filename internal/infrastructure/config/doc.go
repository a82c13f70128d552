// Package config loads and validates StageLink Core configuration.
//
// Configuration comes from a YAML file, with STAGELINK_* environment
// variables overriding individual keys. Defaults are applied before
// validation, so a minimal file only needs the console host and the
// database path.
//
// Security Considerations:
//   - API keys, JWT secrets, and broker passwords belong in environment
//     variables, not the file
//   - The config file should have restricted permissions (0600)
//   - Validation rejects secrets shorter than 32 characters when the
//     HTTP API is enabled
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.Mixer.GetRequestTimeout()
package config
