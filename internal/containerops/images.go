package containerops

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/google/go-containerregistry/pkg/name"
)

// ImageOps is the subset of docker image operations the session manager
// needs: checking local presence and pulling when absent.
type ImageOps interface {
	Present(ctx context.Context, ref string) (bool, error)
	Pull(ctx context.Context, ref string) error
}

type dockerImageOps struct{}

// NewDockerImageOps returns the docker-CLI-backed ImageOps.
func NewDockerImageOps() ImageOps {
	return &dockerImageOps{}
}

func (d *dockerImageOps) Present(ctx context.Context, ref string) (bool, error) {
	cmd := exec.CommandContext(ctx, "docker", "image", "inspect", ref)
	if err := cmd.Run(); err != nil {
		return false, nil
	}
	return true, nil
}

func (d *dockerImageOps) Pull(ctx context.Context, ref string) error {
	if _, err := exec.CommandContext(ctx, "docker", "pull", ref).Output(); err != nil {
		return fmt.Errorf("containerops: docker pull %s: %w", ref, err)
	}
	return nil
}

// ResolveImageRef validates and normalizes a candidate image reference,
// returning an error if it does not parse as a valid reference. Callers
// try candidates in precedence order (explicit override > version-
// qualified default > kind default, per spec §4.3 step 3) and use the
// first one that both parses and is present-or-pullable.
func ResolveImageRef(candidate string) (string, error) {
	ref, err := name.ParseReference(candidate)
	if err != nil {
		return "", fmt.Errorf("containerops: invalid image reference %q: %w", candidate, err)
	}
	return ref.Name(), nil
}

// EnsureImage resolves, checks presence, and pulls the image if absent.
// Grounded on the teacher's images.go/boxer.go EnsureImage-then-pull flow.
func EnsureImage(ctx context.Context, ops ImageOps, candidate string) (string, error) {
	ref, err := ResolveImageRef(candidate)
	if err != nil {
		return "", err
	}
	present, err := ops.Present(ctx, ref)
	if err != nil {
		return "", err
	}
	if present {
		return ref, nil
	}
	if err := ops.Pull(ctx, ref); err != nil {
		return "", err
	}
	return ref, nil
}
