// config_keys.go provides key-value access to configuration settings, as
// used by "spi config" and the MCP config tools.

package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ValidKeys returns all valid configuration keys.
func ValidKeys() []string {
	return []string{
		"compiler",
		"order.strict",
		"sources",
		"plugins",
		"audit.enabled",
	}
}

// IsValidKey returns true if the key is a valid configuration key.
func IsValidKey(key string) bool {
	return slices.Contains(ValidKeys(), key)
}

// Get returns the value of a configuration key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "compiler":
		return c.CompilerName(), nil
	case "order.strict":
		return strconv.FormatBool(c.StrictOrder()), nil
	case "sources":
		return strings.Join(c.Sources, ","), nil
	case "plugins":
		return c.Plugins, nil
	case "audit.enabled":
		return strconv.FormatBool(c.AuditEnabled()), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// Set sets the value of a configuration key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "compiler":
		if strings.ContainsAny(value, " \t,=") {
			return fmt.Errorf("%w: compiler must be a single extension name", ErrInvalidValue)
		}
		c.Compiler = value
	case "order.strict":
		b, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.Order.Strict = &b
	case "sources":
		c.Sources = nil
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.Sources = append(c.Sources, s)
			}
		}
	case "plugins":
		c.Plugins = strings.TrimSpace(value)
	case "audit.enabled":
		b, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.Audit.Enabled = &b
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

func parseBool(key, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
}

// All returns all configuration values as a map.
func (c *Config) All() map[string]string {
	all := make(map[string]string, len(ValidKeys()))
	for _, k := range ValidKeys() {
		all[k], _ = c.Get(k)
	}
	return all
}

// IsSet returns true if the key has an explicit value (not just defaults).
func (c *Config) IsSet(key string) bool {
	switch key {
	case "compiler":
		return c.Compiler != ""
	case "order.strict":
		return c.Order.Strict != nil
	case "sources":
		return len(c.Sources) > 0
	case "plugins":
		return c.Plugins != ""
	case "audit.enabled":
		return c.Audit.Enabled != nil
	default:
		return false
	}
}
