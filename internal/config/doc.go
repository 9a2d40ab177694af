// Package config handles configuration loading for copilot-console.
//
// # Overview
//
// Configuration is loaded from a YAML file, or a TOML file when the path ends
// in .toml, with environment variable expansion. Load applies defaults and
// validates the result.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from COPILOT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/copilot/console.yaml
//  3. ~/.config/copilot/console.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${COPILOT_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:8080"
//
//	backend:
//	  url: "http://localhost:5000"
//	  timeout: "10s"
//	  max_failures: 5       # consecutive failures before the breaker opens
//	  open_timeout: "30s"
//
//	activity:
//	  capacity: 10
//
//	status:
//	  dwell: "4s"
//	  activate_on: "all"    # all, results
//	  roster: [QUOTE, POLICY, REMINDER, CRM]
//	  meta_agents: [COPILOT, SYSTEM]
//
//	commands:
//	  rate_per_minute: 30
//	  burst: 5
//	  dedupe_window: "10s"
//	  transcript_limit: 200
//
//	auth:
//	  jwt_secret: "${COPILOT_JWT_SECRET}"   # empty disables API auth
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
