package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
)

// EnsureNetwork creates the bridge network when it does not already exist.
func (c *Client) EnsureNetwork(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("network name cannot be empty")
	}
	_, err := c.inner.NetworkInspect(ctx, name, network.InspectOptions{})
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("inspect network: %w", err)
	}
	if _, err := c.inner.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"}); err != nil {
		return fmt.Errorf("create network: %w", err)
	}
	return nil
}

// RemoveNetwork deletes the network, ignoring absence.
func (c *Client) RemoveNetwork(ctx context.Context, name string) error {
	if err := c.inner.NetworkRemove(ctx, name); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove network: %w", err)
	}
	return nil
}

// EnsureVolume creates a named volume when it does not already exist.
// Volume creation is idempotent on the engine side.
func (c *Client) EnsureVolume(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("volume name cannot be empty")
	}
	if _, err := c.inner.VolumeCreate(ctx, volume.CreateOptions{Name: name}); err != nil {
		return fmt.Errorf("create volume: %w", err)
	}
	return nil
}
