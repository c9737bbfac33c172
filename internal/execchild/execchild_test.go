package execchild

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpawnAndCapture(t *testing.T) {
	tests := map[string]struct {
		argv     []string
		wantCode int
		wantOut  string
	}{
		"captures stdout": {
			argv:     []string{"/bin/echo", "hello"},
			wantCode: 0,
			wantOut:  "hello\n",
		},
		"nonzero exit code propagates": {
			argv:     []string{"/bin/sh", "-c", "exit 3"},
			wantCode: 3,
			wantOut:  "",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, code, out, err := SpawnAndCapture(context.Background(), tc.argv, nil, 5*time.Second)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if code != tc.wantCode {
				t.Fatalf("code = %d, want %d", code, tc.wantCode)
			}
			if string(out) != tc.wantOut {
				t.Fatalf("out = %q, want %q", out, tc.wantOut)
			}
		})
	}
}

func TestSpawnAndCaptureTimeout(t *testing.T) {
	_, code, _, err := SpawnAndCapture(context.Background(), []string{"/bin/sleep", "5"}, nil, 50*time.Millisecond)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if code != 124 {
		t.Fatalf("code = %d, want 124", code)
	}
	if ExitCodeFor(err) != 124 {
		t.Fatalf("ExitCodeFor = %d, want 124", ExitCodeFor(err))
	}
}

func TestSpawnAndCaptureNotFound(t *testing.T) {
	_, _, _, err := SpawnAndCapture(context.Background(), []string{"/no/such/binary"}, nil, time.Second)
	if err == nil {
		t.Fatalf("expected not-found error")
	}
	if ExitCodeFor(err) != 127 {
		t.Fatalf("ExitCodeFor = %d, want 127", ExitCodeFor(err))
	}
}

func TestSpawnStreaming(t *testing.T) {
	var out strings.Builder
	var stderr strings.Builder
	_, code, err := SpawnStreaming(context.Background(),
		[]string{"/bin/sh", "-c", "echo out1; echo err1 >&2; echo out2"},
		nil, 5*time.Second, false,
		func(s ChunkStream, data []byte) {
			switch s {
			case ChunkStdout:
				out.Write(data)
			case ChunkStderr:
				stderr.Write(data)
			}
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 0 {
		t.Fatalf("code = %d", code)
	}
	if out.String() != "out1\nout2\n" {
		t.Fatalf("stdout = %q", out.String())
	}
	if stderr.String() != "err1\n" {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestTerminateReapsChild(t *testing.T) {
	rc, _, _, _, err := spawn(context.Background(), []string{"/bin/sleep", "30"}, nil, false)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	done := make(chan struct{})
	go func() {
		rc.cmd.Wait()
		close(done)
	}()

	rc.Terminate(context.Background())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("child was not reaped after Terminate")
	}
}
