package notify

import "fmt"

// DefaultMaxArgs is the default cap on request-supplied arguments
// appended after the trailing placeholder (spec §6
// AIFO_NOTIFICATIONS_MAX_ARGS, clamped to [1,32]).
const DefaultMaxArgs = 8

// ClampMaxArgs clamps n to [1,32], per spec §6.
func ClampMaxArgs(n int) int {
	if n < 1 {
		return 1
	}
	if n > 32 {
		return 32
	}
	return n
}

// ErrArgsMismatch carries the exact request/configured argument lists
// so the proxy can render the canonical mismatch message (spec §4.4.3
// step 4).
type ErrArgsMismatch struct {
	Configured []string
	Requested  []string
}

func (e *ErrArgsMismatch) Error() string {
	return fmt.Sprintf("arguments mismatch: configured %v vs requested %v", e.Configured, e.Requested)
}

// ComposeArgv builds the effective argv for the notifications child
// process: fixed_args, plus (if the config has a trailing placeholder)
// up to maxArgs of the request-supplied arguments, truncated silently;
// otherwise requestArgs must equal the configured fixed_args exactly.
func ComposeArgv(cfg Config, requestArgs []string, maxArgs int) ([]string, error) {
	if cfg.HasTrailingArgsPlaceholder {
		args := requestArgs
		if len(args) > maxArgs {
			args = args[:maxArgs]
		}
		argv := append([]string{cfg.ExecAbs}, cfg.FixedArgs...)
		argv = append(argv, args...)
		return argv, nil
	}
	if !equalStrings(cfg.FixedArgs, requestArgs) {
		return nil, &ErrArgsMismatch{Configured: cfg.FixedArgs, Requested: requestArgs}
	}
	argv := append([]string{cfg.ExecAbs}, cfg.FixedArgs...)
	return argv, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
