// Package config loads, normalizes, and validates the courier TOML
// configuration.
//
// Load resolves the config path (explicit flag, ~/.config/courier/config.toml,
// or a courier.toml in the working directory), applies repository defaults for
// anything the file omits, expands ~ in every path field, and rejects configs
// that cannot drive a delivery run (missing tracker credentials, unknown
// default root, bad delivery mode). The embedded sample config documents every
// setting and backs 'courier config init'.
package config
