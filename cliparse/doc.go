// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Values are resolved in three layers, later layers winning:

 1. A .env file (./.env if present, or the path given by -env-file).
    Variables already set in the process environment are not overwritten.
 2. Environment variables, parsed with github.com/caarlos0/env.
 3. CLI flags that were explicitly passed.

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Event store connection string (default: file:cla-access.db)
  - DatabaseType: "sqlite" or "postgres" (default: sqlite)
  - FlowKeySalt: Secret for flow key HMAC (required)
  - CLAAPIURL: Base URL of the CLA backend (required)
  - CLAAPITimeout: Per-request timeout for the CLA backend (default: 30s)
  - CLAAPIRate, CLAAPIBurst: Outbound rate limit; a rate of 0 disables it

# CLI Flags and Environment Variables

	-p            PORT
	-d            DATABASE_URL
	-t            DATABASE_TYPE
	-api          CLA_API_URL
	-api-timeout  CLA_API_TIMEOUT
	-api-rate     CLA_API_RATE
	-api-burst    CLA_API_BURST
	-flow-salt    FLOW_KEY_SALT
	-env-file     (flag only)

# Example

	// In main.go
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	// ...
*/
package cliparse
