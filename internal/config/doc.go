// Package config loads and validates the fotad server configuration.
//
// Configuration lives in a single YAML file. A missing file is not an
// error: the server starts with defaults so a bare `fotad serve` works
// out of the box. Command-line flags override file values; the merge
// happens in the CLI layer, not here.
package config
