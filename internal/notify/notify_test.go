package notify

import "testing"

func TestParseConfig(t *testing.T) {
	tests := map[string]struct {
		raw        string
		wantErr    bool
		wantExec   string
		wantFixed  []string
		wantTrail  bool
	}{
		"sequence with trailing placeholder": {
			raw:       "[\"/bin/echo\", \"--\", \"{args}\"]",
			wantExec:  "/bin/echo",
			wantFixed: []string{"--"},
			wantTrail: true,
		},
		"sequence without placeholder": {
			raw:       "[\"/bin/echo\", \"-n\"]",
			wantExec:  "/bin/echo",
			wantFixed: []string{"-n"},
			wantTrail: false,
		},
		"scalar string tokenized": {
			raw:       `"/bin/echo --prefix hello"`,
			wantExec:  "/bin/echo",
			wantFixed: []string{"--prefix", "hello"},
			wantTrail: false,
		},
		"scalar string with quoted argument": {
			raw:       `"/bin/echo 'two words'"`,
			wantExec:  "/bin/echo",
			wantFixed: []string{"two words"},
			wantTrail: false,
		},
		"non-absolute executable rejected": {
			raw:     "[\"echo\"]",
			wantErr: true,
		},
		"placeholder in non-trailing position rejected": {
			raw:     "[\"/bin/echo\", \"{args}\", \"-n\"]",
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.ExecAbs != tc.wantExec {
				t.Fatalf("execAbs = %q, want %q", cfg.ExecAbs, tc.wantExec)
			}
			if len(cfg.FixedArgs) != len(tc.wantFixed) {
				t.Fatalf("fixedArgs = %v, want %v", cfg.FixedArgs, tc.wantFixed)
			}
			for i := range tc.wantFixed {
				if cfg.FixedArgs[i] != tc.wantFixed[i] {
					t.Fatalf("fixedArgs = %v, want %v", cfg.FixedArgs, tc.wantFixed)
				}
			}
			if cfg.HasTrailingArgsPlaceholder != tc.wantTrail {
				t.Fatalf("trailing = %v, want %v", cfg.HasTrailingArgsPlaceholder, tc.wantTrail)
			}
		})
	}
}

func TestComputeAllowlist(t *testing.T) {
	got := ComputeAllowlist("echo, echo ,custom-notifier")
	if !Allowed(got, "custom-notifier") {
		t.Fatalf("expected custom-notifier to be allowed: %v", got)
	}
	count := 0
	for _, a := range got {
		if a == "echo" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("echo should be deduplicated, got %d occurrences", count)
	}
}

func TestComputeAllowlistCap(t *testing.T) {
	env := ""
	for i := 0; i < 40; i++ {
		env += "tool" + string(rune('a'+i%26)) + ","
	}
	got := ComputeAllowlist(env)
	if len(got) > maxAllowlistEntries {
		t.Fatalf("allowlist not capped: got %d entries", len(got))
	}
}

func TestComposeArgv(t *testing.T) {
	tests := map[string]struct {
		cfg     Config
		reqArgs []string
		maxArgs int
		wantErr bool
		want    []string
	}{
		"trailing placeholder appends and truncates": {
			cfg:     Config{ExecAbs: "/bin/echo", FixedArgs: []string{"--"}, HasTrailingArgsPlaceholder: true},
			reqArgs: []string{"hello", "world", "extra"},
			maxArgs: 2,
			want:    []string{"/bin/echo", "--", "hello", "world"},
		},
		"exact match required without placeholder": {
			cfg:     Config{ExecAbs: "/bin/echo", FixedArgs: []string{"-n"}},
			reqArgs: []string{"-n"},
			maxArgs: 8,
			want:    []string{"/bin/echo", "-n"},
		},
		"mismatch rejected": {
			cfg:     Config{ExecAbs: "/bin/echo", FixedArgs: []string{"-n"}},
			reqArgs: []string{"xyz"},
			maxArgs: 8,
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ComposeArgv(tc.cfg, tc.reqArgs, tc.maxArgs)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				if _, ok := err.(*ErrArgsMismatch); !ok {
					t.Fatalf("expected *ErrArgsMismatch, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("argv = %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("argv = %v, want %v", got, tc.want)
				}
			}
		})
	}
}
