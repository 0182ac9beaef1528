// Package orchestrator drives the stack lifecycle: dependency-ordered
// startup with readiness gating between the database and its dependents,
// plus the per-service operations the operator runbook used to spell out by
// hand (pull, up, down, ps, logs, restart, stop, rm).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hhftechnology/wordpress-docker/internal/config"
	"github.com/hhftechnology/wordpress-docker/internal/docker"
	"github.com/hhftechnology/wordpress-docker/internal/stackfile"
	"github.com/hhftechnology/wordpress-docker/internal/ws"
)

// Canonical service names within the stack descriptor.
const (
	ServiceDatabase = "database"
	ServiceApp      = "wordpress"
	ServiceProxy    = "nginx"
	ServiceAdmin    = "adminer"
)

const (
	labelStack   = "com.hhftechnology.stack"
	labelService = "com.hhftechnology.service"
	labelRun     = "com.hhftechnology.run"

	adminProfile = "admin"

	stopGrace = 10 * time.Second
)

// Engine is the container engine surface the orchestrator needs. Implemented
// by *docker.Client; faked in tests.
type Engine interface {
	Ping(ctx context.Context) error
	PullImage(ctx context.Context, ref string, onOutput docker.PullOutputCallback) error
	RunContainer(ctx context.Context, spec docker.RunSpec) (docker.ContainerInfo, error)
	StopContainer(ctx context.Context, name string, grace time.Duration) error
	RestartContainer(ctx context.Context, name string) error
	RemoveContainer(ctx context.Context, name string) error
	SignalContainer(ctx context.Context, name, signal string) error
	InspectRunning(ctx context.Context, name string) (bool, error)
	ListByLabel(ctx context.Context, key, value string) ([]docker.ContainerState, error)
	StreamLogs(ctx context.Context, name, tail string, follow bool, fn func(line string)) error
	EnsureNetwork(ctx context.Context, name string) error
	RemoveNetwork(ctx context.Context, name string) error
	EnsureVolume(ctx context.Context, name string) error
}

// Orchestrator sequences the stack's services.
type Orchestrator struct {
	engine Engine
	stack  stackfile.Stack
	cfg    config.Stack
	logger *slog.Logger
	hub    *ws.Hub
}

// New constructs an orchestrator. The hub may be nil when no log streaming
// consumers exist.
func New(engine Engine, stack stackfile.Stack, cfg config.Stack, logger *slog.Logger, hub *ws.Hub) (*Orchestrator, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Orchestrator{
		engine: engine,
		stack:  stack,
		cfg:    cfg,
		logger: logger.With("component", "orchestrator"),
		hub:    hub,
	}, nil
}

func (o *Orchestrator) profiles() []string {
	if o.cfg.Admin.Enabled {
		return []string{adminProfile}
	}
	return nil
}

// ContainerName resolves the container name for a service.
func (o *Orchestrator) ContainerName(svc stackfile.Service) string {
	if svc.ContainerName != "" {
		return svc.ContainerName
	}
	return o.cfg.ProjectName + "-" + svc.Name
}

// Services returns the stack's services that are active under the current
// profile selection.
func (o *Orchestrator) Services() []stackfile.Service {
	return o.stack.Active(o.profiles())
}

func (o *Orchestrator) serviceByName(name string) (stackfile.Service, error) {
	svc, ok := o.stack.Service(name)
	if !ok {
		return stackfile.Service{}, fmt.Errorf("unknown service %q", name)
	}
	return svc, nil
}

// Pull fetches the images of the named services, or of every active service
// when none are named.
func (o *Orchestrator) Pull(ctx context.Context, services ...string) error {
	targets, err := o.resolveTargets(services)
	if err != nil {
		return err
	}
	for _, svc := range targets {
		if svc.Image == "" {
			continue
		}
		log := o.logger.With("image", svc.Image)
		log.Info("pulling image")
		if err := o.engine.PullImage(ctx, svc.Image, func(line string) {
			log.Debug("pull progress", "message", line)
		}); err != nil {
			return fmt.Errorf("pull %s: %w", svc.Image, err)
		}
	}
	return nil
}

func (o *Orchestrator) resolveTargets(names []string) ([]stackfile.Service, error) {
	if len(names) == 0 {
		return o.stack.StartOrder(o.profiles())
	}
	targets := make([]stackfile.Service, 0, len(names))
	for _, name := range names {
		svc, err := o.serviceByName(name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, svc)
	}
	return targets, nil
}

// Up brings the full stack up: network and volumes first, then services in
// dependency order. After every service starts, its readiness contract must
// pass before any dependent is started; services sharing a dependency level
// start concurrently.
func (o *Orchestrator) Up(ctx context.Context) error {
	runID := strings.Split(uuid.NewString(), "-")[0]
	log := o.logger.With("run", runID)

	if err := o.engine.Ping(ctx); err != nil {
		return err
	}
	if err := o.engine.EnsureNetwork(ctx, o.cfg.NetworkName); err != nil {
		return err
	}

	order, err := o.stack.StartOrder(o.profiles())
	if err != nil {
		return err
	}

	for _, level := range dependencyLevels(order) {
		group, groupCtx := errgroup.WithContext(ctx)
		for _, svc := range level {
			svc := svc
			group.Go(func() error {
				return o.startService(groupCtx, log, svc, runID)
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
	}

	log.Info("stack up", "services", len(order))
	return nil
}

// UpService starts a single service without dependency gating. This is the
// manual escape hatch: starting a dependent before the database is ready
// leaves it failing to connect until the operator restarts it.
func (o *Orchestrator) UpService(ctx context.Context, name string) error {
	svc, err := o.serviceByName(name)
	if err != nil {
		return err
	}
	if err := o.engine.EnsureNetwork(ctx, o.cfg.NetworkName); err != nil {
		return err
	}
	return o.startService(ctx, o.logger, svc, strings.Split(uuid.NewString(), "-")[0])
}

func (o *Orchestrator) startService(ctx context.Context, log *slog.Logger, svc stackfile.Service, runID string) error {
	name := o.ContainerName(svc)

	running, err := o.engine.InspectRunning(ctx, name)
	if err == nil && running {
		log.Info("service already running", "service", svc.Name)
		return o.waitReady(ctx, log, svc)
	}
	if err := o.engine.RemoveContainer(ctx, name); err != nil {
		return err
	}

	spec, err := o.runSpec(ctx, svc, name, runID)
	if err != nil {
		return err
	}
	log.Info("starting service", "service", svc.Name, "image", svc.Image)
	if _, err := o.engine.RunContainer(ctx, spec); err != nil {
		return fmt.Errorf("start %s: %w", svc.Name, err)
	}
	return o.waitReady(ctx, log, svc)
}

func (o *Orchestrator) runSpec(ctx context.Context, svc stackfile.Service, name, runID string) (docker.RunSpec, error) {
	ports := nat.PortMap{}
	for _, p := range svc.Ports {
		port, err := nat.NewPort(p.Protocol, fmt.Sprintf("%d", p.Target))
		if err != nil {
			return docker.RunSpec{}, fmt.Errorf("service %s port %d: %w", svc.Name, p.Target, err)
		}
		ports[port] = append(ports[port], nat.PortBinding{HostIP: p.HostIP, HostPort: p.Published})
	}

	binds := make([]string, 0, len(svc.Volumes))
	for _, v := range svc.Volumes {
		if isNamedVolume(v.Source) {
			if err := o.engine.EnsureVolume(ctx, v.Source); err != nil {
				return docker.RunSpec{}, err
			}
		}
		binds = append(binds, v.Source+":"+v.Target)
	}

	return docker.RunSpec{
		Name:    name,
		Image:   svc.Image,
		Env:     svc.Environment,
		Ports:   ports,
		Binds:   binds,
		Network: o.cfg.NetworkName,
		Restart: svc.Restart,
		Labels: map[string]string{
			labelStack:   o.cfg.ProjectName,
			labelService: svc.Name,
			labelRun:     runID,
		},
	}, nil
}

// isNamedVolume distinguishes docker named volumes from host path binds.
func isNamedVolume(source string) bool {
	return !strings.HasPrefix(source, "/") && !strings.HasPrefix(source, "./") && !strings.HasPrefix(source, "../") && !strings.HasPrefix(source, "~")
}

// dependencyLevels buckets an already topologically sorted service list into
// levels: a service's level is one past the deepest of its dependencies.
// Services in the same level have no edges between them and may start
// concurrently (the application and the proxy share a level).
func dependencyLevels(order []stackfile.Service) [][]stackfile.Service {
	depth := make(map[string]int, len(order))
	var levels [][]stackfile.Service
	for _, svc := range order {
		d := 0
		for _, dep := range svc.DependsOn {
			if depDepth, ok := depth[dep]; ok && depDepth+1 > d {
				d = depDepth + 1
			}
		}
		depth[svc.Name] = d
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], svc)
	}
	return levels
}

// Down stops and removes every stack service in reverse dependency order,
// then removes the network. Data directories and volumes are left intact.
func (o *Orchestrator) Down(ctx context.Context) error {
	order, err := o.stack.StopOrder([]string{adminProfile})
	if err != nil {
		return err
	}
	for _, svc := range order {
		name := o.ContainerName(svc)
		if err := o.engine.StopContainer(ctx, name, stopGrace); err != nil && !errors.Is(err, docker.ErrNotFound) {
			o.logger.Warn("stop failed", "service", svc.Name, "error", err)
		}
		if err := o.engine.RemoveContainer(ctx, name); err != nil {
			return err
		}
	}
	if err := o.engine.RemoveNetwork(ctx, o.cfg.NetworkName); err != nil {
		o.logger.Warn("network remove failed", "error", err)
	}
	o.logger.Info("stack down")
	return nil
}

// Ps lists the stack's containers.
func (o *Orchestrator) Ps(ctx context.Context) ([]docker.ContainerState, error) {
	return o.engine.ListByLabel(ctx, labelStack, o.cfg.ProjectName)
}

// Logs streams a service's logs to out, and mirrors each line onto the hub
// when one is attached.
func (o *Orchestrator) Logs(ctx context.Context, service, tail string, follow bool, out func(line string)) error {
	svc, err := o.serviceByName(service)
	if err != nil {
		return err
	}
	return o.engine.StreamLogs(ctx, o.ContainerName(svc), tail, follow, func(line string) {
		if out != nil {
			out(line)
		}
		if o.hub != nil {
			o.hub.Broadcast(svc.Name, []byte(line))
		}
	})
}

// Restart restarts a single service. This is the documented recovery for a
// dependent started before the database was ready.
func (o *Orchestrator) Restart(ctx context.Context, service string) error {
	svc, err := o.serviceByName(service)
	if err != nil {
		return err
	}
	return o.engine.RestartContainer(ctx, o.ContainerName(svc))
}

// Stop stops a single service without removing it.
func (o *Orchestrator) Stop(ctx context.Context, service string) error {
	svc, err := o.serviceByName(service)
	if err != nil {
		return err
	}
	return o.engine.StopContainer(ctx, o.ContainerName(svc), stopGrace)
}

// Remove force-removes a single service's container.
func (o *Orchestrator) Remove(ctx context.Context, service string) error {
	svc, err := o.serviceByName(service)
	if err != nil {
		return err
	}
	return o.engine.RemoveContainer(ctx, o.ContainerName(svc))
}

// AdminOn starts the administrative database browser. It connects straight
// to the database, so the database must already be ready.
func (o *Orchestrator) AdminOn(ctx context.Context) error {
	svc, err := o.serviceByName(ServiceAdmin)
	if err != nil {
		return err
	}
	return o.startService(ctx, o.logger, svc, strings.Split(uuid.NewString(), "-")[0])
}

// AdminOff stops and removes the administrative service.
func (o *Orchestrator) AdminOff(ctx context.Context) error {
	svc, err := o.serviceByName(ServiceAdmin)
	if err != nil {
		return err
	}
	name := o.ContainerName(svc)
	if err := o.engine.StopContainer(ctx, name, stopGrace); err != nil && !errors.Is(err, docker.ErrNotFound) {
		return err
	}
	return o.engine.RemoveContainer(ctx, name)
}

// ReloadProxy signals the proxy container to re-read its configuration.
func (o *Orchestrator) ReloadProxy(ctx context.Context) error {
	return o.engine.SignalContainer(ctx, o.cfg.ProxyContainer, "HUP")
}
