// Package config loads, normalizes, and validates waxcrate configuration.
//
// Configuration is TOML. A missing file yields defaults; path fields are
// expanded (including ~) and made absolute before use. Validation runs after
// normalization so errors reference the resolved values.
package config
