// Package notify implements the policy-gated "notifications" execution
// path: parsing the notifications configuration document, computing the
// allowlist of permitted basenames, and composing the argument vector
// that gets handed to internal/execchild. None of this spawns a process
// itself — internal/proxy wires this package's outputs into execchild.
package notify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"
)

// ErrNotAbsolute is the exact error message the spec requires for a
// non-absolute configured executable (§6, §8 testable property 4).
var ErrNotAbsolute = errors.New("notifications-command executable must be an absolute path")

// Placeholder is the single trailing token permitted in the configured
// argument list that authorizes appending request-supplied arguments.
const Placeholder = "{args}"

// Config is the parsed, validated notifications configuration,
// parsed once and cached per process (spec §3 "Notification config").
type Config struct {
	ExecAbs                   string
	FixedArgs                 []string
	HasTrailingArgsPlaceholder bool
}

// Basename returns the basename of the configured executable, used to
// match against the request's `cmd` field (spec §4.4.3 step 3).
func (c Config) Basename() string {
	return filepath.Base(c.ExecAbs)
}

// LoadConfig reads and parses the notifications configuration document
// at path. Two shapes are accepted: an ordered YAML sequence of
// strings, or a single scalar string tokenized shell-style.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("notify: read config: %w", err)
	}
	return ParseConfig(raw)
}

// ParseConfig parses the raw YAML document bytes into a Config.
func ParseConfig(raw []byte) (Config, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return Config{}, fmt.Errorf("notify: parse config: %w", err)
	}
	if len(node.Content) == 0 {
		return Config{}, fmt.Errorf("notify: empty configuration document")
	}
	doc := node.Content[0]

	var tokens []string
	switch doc.Kind {
	case yaml.SequenceNode:
		for _, item := range doc.Content {
			if item.Kind != yaml.ScalarNode {
				return Config{}, fmt.Errorf("notify: configuration sequence must contain only strings")
			}
			tokens = append(tokens, item.Value)
		}
	case yaml.ScalarNode:
		parsed, err := shellwords.Parse(doc.Value)
		if err != nil {
			return Config{}, fmt.Errorf("notify: tokenize configuration string: %w", err)
		}
		tokens = parsed
	default:
		return Config{}, fmt.Errorf("notify: unsupported configuration shape")
	}

	return buildConfig(tokens)
}

func buildConfig(tokens []string) (Config, error) {
	if len(tokens) == 0 || !filepath.IsAbs(tokens[0]) {
		return Config{}, ErrNotAbsolute
	}
	cfg := Config{ExecAbs: tokens[0]}
	rest := tokens[1:]
	for i, t := range rest {
		if t == Placeholder {
			if i != len(rest)-1 {
				return Config{}, fmt.Errorf("notify: %q placeholder must be the trailing token", Placeholder)
			}
			cfg.HasTrailingArgsPlaceholder = true
			continue
		}
		if strings.Contains(t, Placeholder) {
			return Config{}, fmt.Errorf("notify: %q placeholder must be a standalone trailing token, not embedded", Placeholder)
		}
		cfg.FixedArgs = append(cfg.FixedArgs, t)
	}
	return cfg, nil
}
