package notify

import (
	"sort"
	"strings"
)

// DefaultAllowlist is the built-in set of notification basenames
// permitted even with no environment override (spec §3 "Allowlist").
var DefaultAllowlist = []string{"echo", "notify-send", "terminal-notifier"}

const maxAllowlistEntries = 16

// ComputeAllowlist merges DefaultAllowlist with a comma-separated
// environment override, trimming whitespace, deduplicating, and
// capping at 16 entries (spec §6 AIFO_NOTIFICATIONS_ALLOWLIST).
func ComputeAllowlist(envValue string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, n := range DefaultAllowlist {
		add(n)
	}
	for _, n := range strings.Split(envValue, ",") {
		add(n)
	}
	sort.Strings(out)
	if len(out) > maxAllowlistEntries {
		out = out[:maxAllowlistEntries]
	}
	return out
}

// Allowed reports whether basename is present in allowlist.
func Allowed(allowlist []string, basename string) bool {
	for _, a := range allowlist {
		if a == basename {
			return true
		}
	}
	return false
}
