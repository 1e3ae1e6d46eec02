package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownKey is returned for a key that is not part of Config.
var ErrUnknownKey = errors.New("unknown configuration key")

// Get returns the value at a dotted key such as "tree.k1". A section key
// such as "tree" returns the whole section.
func (c *Config) Get(key string) (any, error) {
	tree, err := c.toMap()
	if err != nil {
		return nil, err
	}
	var cur any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		if cur, ok = m[part]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
	}
	return cur, nil
}

// Set parses value as YAML, stores it at the dotted leaf key, and validates
// the result. c is unchanged on error.
func (c *Config) Set(key, value string) error {
	tree, err := c.toMap()
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	m := tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		m = next
	}
	leaf := parts[len(parts)-1]
	old, ok := m[leaf]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if _, isSection := old.(map[string]any); isSection {
		return fmt.Errorf("%s is a section, set one of its keys instead", key)
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return fmt.Errorf("parsing value for %s: %w", key, err)
	}
	m[leaf] = parsed

	data, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	var updated Config
	if err := yaml.Unmarshal(data, &updated); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	*c = updated
	return nil
}

// Keys lists every leaf key in sorted order.
func (c *Config) Keys() []string {
	tree, err := c.toMap()
	if err != nil {
		return nil
	}
	var keys []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if sub, ok := v.(map[string]any); ok {
				walk(prefix+k+".", sub)
				continue
			}
			keys = append(keys, prefix+k)
		}
	}
	walk("", tree)
	sort.Strings(keys)
	return keys
}

func (c *Config) toMap() (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return m, nil
}
