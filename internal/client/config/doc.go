// Package config loads runtime configuration for the gophid CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the gophid API
//	-t int      request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_url": "http://localhost:8080",
//	  "request_timeout": "30s"
//	}
package config
