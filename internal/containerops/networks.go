package containerops

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// NetworkOps is the subset of docker network operations the session
// manager needs to create and tear down the per-session overlay network.
type NetworkOps interface {
	Create(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

type dockerNetworkOps struct{}

// NewDockerNetworkOps returns the docker-CLI-backed NetworkOps.
func NewDockerNetworkOps() NetworkOps {
	return &dockerNetworkOps{}
}

// Create creates a bridge network. Per spec §4.3 step 2, if the network
// already exists this is treated as success (reuse, not error).
func (d *dockerNetworkOps) Create(ctx context.Context, name string) error {
	exists, err := d.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := exec.CommandContext(ctx, "docker", "network", "create", name).Output(); err != nil {
		return fmt.Errorf("containerops: docker network create %s: %w", name, err)
	}
	return nil
}

func (d *dockerNetworkOps) Remove(ctx context.Context, name string) error {
	if _, err := exec.CommandContext(ctx, "docker", "network", "rm", name).Output(); err != nil {
		return fmt.Errorf("containerops: docker network rm %s: %w", name, err)
	}
	return nil
}

func (d *dockerNetworkOps) Exists(ctx context.Context, name string) (bool, error) {
	out, err := exec.CommandContext(ctx, "docker", "network", "ls", "--format", "{{.Name}}").Output()
	if err != nil {
		return false, fmt.Errorf("containerops: docker network ls: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}
