// Package config loads, normalizes, and validates Alchemy's TOML
// configuration.
//
// Load resolves the config file (explicit path, ~/.config/alchemy/config.toml,
// or ./alchemy.toml), merges it over Default(), expands ~ paths, and pulls
// vendor API keys from the environment when the file leaves them empty. The
// embedded sample_config.toml documents every knob and backs `alchemy config
// init`.
package config
