package docker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

// RunSpec describes a container to create and start.
type RunSpec struct {
	Name    string
	Image   string
	Env     []string
	Ports   nat.PortMap
	Binds   []string
	Network string
	Labels  map[string]string
	Restart string
}

// ContainerInfo captures minimal runtime details about a started container.
type ContainerInfo struct {
	ID          string
	PortBinding nat.PortMap
}

// ContainerState summarizes a container for stack listings.
type ContainerState struct {
	ID      string
	Name    string
	Image   string
	State   string
	Status  string
	Service string
}

// RunContainer creates and starts a container according to spec.
func (c *Client) RunContainer(ctx context.Context, spec RunSpec) (ContainerInfo, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return ContainerInfo{}, fmt.Errorf("container name cannot be empty")
	}
	if strings.TrimSpace(spec.Image) == "" {
		return ContainerInfo{}, fmt.Errorf("image name cannot be empty")
	}

	config := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		Labels:       spec.Labels,
		ExposedPorts: map[nat.Port]struct{}{},
	}
	for p := range spec.Ports {
		config.ExposedPorts[p] = struct{}{}
	}

	restart := spec.Restart
	if restart == "" {
		restart = "always"
	}
	hostCfg := &container.HostConfig{
		PortBindings: spec.Ports,
		Binds:        spec.Binds,
		RestartPolicy: container.RestartPolicy{
			Name: container.RestartPolicyMode(restart),
		},
	}

	var netCfg *network.NetworkingConfig
	if spec.Network != "" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.Network: {},
			},
		}
	}

	r, err := c.inner.ContainerCreate(ctx, config, hostCfg, netCfg, nil, spec.Name)
	if err != nil {
		return ContainerInfo{}, fmt.Errorf("container create: %w", err)
	}

	if err := c.inner.ContainerStart(ctx, r.ID, container.StartOptions{}); err != nil {
		return ContainerInfo{}, fmt.Errorf("container start: %w", err)
	}

	var inspect types.ContainerJSON
	for attempt := 0; attempt < 10; attempt++ {
		inspect, err = c.inner.ContainerInspect(ctx, r.ID)
		if err != nil {
			return ContainerInfo{}, fmt.Errorf("container inspect: %w", err)
		}
		if len(spec.Ports) == 0 || hasHostPort(inspect.NetworkSettings) {
			break
		}
		if attempt == 9 {
			break
		}
		select {
		case <-ctx.Done():
			return ContainerInfo{}, fmt.Errorf("wait for host port: %w", ctx.Err())
		case <-time.After(200 * time.Millisecond):
		}
	}

	portsBinding := nat.PortMap{}
	if inspect.NetworkSettings != nil && inspect.NetworkSettings.Ports != nil {
		portsBinding = inspect.NetworkSettings.Ports
	}

	return ContainerInfo{ID: r.ID, PortBinding: portsBinding}, nil
}

func hasHostPort(settings *types.NetworkSettings) bool {
	if settings == nil || settings.Ports == nil {
		return false
	}
	for _, bindings := range settings.Ports {
		for _, binding := range bindings {
			if strings.TrimSpace(binding.HostPort) != "" {
				return true
			}
		}
	}
	return false
}

// StopContainer stops a running container within the grace period.
func (c *Client) StopContainer(ctx context.Context, name string, grace time.Duration) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("container name cannot be empty")
	}
	seconds := int(grace.Seconds())
	opts := container.StopOptions{}
	if seconds > 0 {
		opts.Timeout = &seconds
	}
	if err := c.inner.ContainerStop(ctx, name, opts); err != nil {
		if client.IsErrNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("stop container: %w", err)
	}
	return nil
}

// RestartContainer restarts a container.
func (c *Client) RestartContainer(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("container name cannot be empty")
	}
	if err := c.inner.ContainerRestart(ctx, name, container.StopOptions{}); err != nil {
		if client.IsErrNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("restart container: %w", err)
	}
	return nil
}

// RemoveContainer removes an existing container if it exists.
func (c *Client) RemoveContainer(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("container name cannot be empty")
	}
	if err := c.inner.ContainerRemove(ctx, name, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove container: %w", err)
	}
	return nil
}

// SignalContainer delivers a signal to a running container. The proxy uses
// HUP to reload its configuration without dropping connections.
func (c *Client) SignalContainer(ctx context.Context, name, signal string) error {
	if err := c.inner.ContainerKill(ctx, name, signal); err != nil {
		if client.IsErrNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("signal container: %w", err)
	}
	return nil
}

// InspectRunning reports whether the named container exists and is running.
func (c *Client) InspectRunning(ctx context.Context, name string) (bool, error) {
	inspect, err := c.inner.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("container inspect: %w", err)
	}
	return inspect.State != nil && inspect.State.Running, nil
}

// ListByLabel lists containers (running or not) carrying the given label.
func (c *Client) ListByLabel(ctx context.Context, key, value string) ([]ContainerState, error) {
	args := filters.NewArgs(filters.Arg("label", key+"="+value))
	list, err := c.inner.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	states := make([]ContainerState, 0, len(list))
	for _, item := range list {
		name := ""
		if len(item.Names) > 0 {
			name = strings.TrimPrefix(item.Names[0], "/")
		}
		states = append(states, ContainerState{
			ID:      item.ID,
			Name:    name,
			Image:   item.Image,
			State:   item.State,
			Status:  item.Status,
			Service: item.Labels["com.hhftechnology.service"],
		})
	}
	return states, nil
}

// StreamLogs follows a container's log stream, invoking fn per line. It
// returns when the stream ends or the context is cancelled.
func (c *Client) StreamLogs(ctx context.Context, name, tail string, follow bool, fn func(line string)) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("container name cannot be empty")
	}
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
		Tail:       tail,
	}
	reader, err := c.inner.ContainerLogs(ctx, name, opts)
	if err != nil {
		if client.IsErrNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("container logs: %w", err)
	}
	defer reader.Close()

	pr, pw := io.Pipe()
	go func() {
		_, copyErr := stdcopy.StdCopy(pw, pw, reader)
		pw.CloseWithError(copyErr)
	}()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read log stream: %w", err)
	}
	return ctx.Err()
}
