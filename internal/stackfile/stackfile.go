package stackfile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/cli"
	composetypes "github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// PortBinding maps a published host port to a container port.
type PortBinding struct {
	HostIP    string `yaml:"host_ip,omitempty"`
	Published string `yaml:"published"`
	Target    uint32 `yaml:"target"`
	Protocol  string `yaml:"protocol"`
}

// VolumeMount maps a host path or named volume into the container.
type VolumeMount struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Service is one deployable unit of the stack descriptor.
type Service struct {
	Name          string        `yaml:"name"`
	Image         string        `yaml:"image"`
	ContainerName string        `yaml:"container_name,omitempty"`
	Ports         []PortBinding `yaml:"ports,omitempty"`
	Volumes       []VolumeMount `yaml:"volumes,omitempty"`
	Environment   []string      `yaml:"environment,omitempty"`
	DependsOn     []string      `yaml:"depends_on,omitempty"`
	Profiles      []string      `yaml:"profiles,omitempty"`
	Restart       string        `yaml:"restart,omitempty"`
}

// Stack is the parsed orchestration descriptor.
type Stack struct {
	Name     string    `yaml:"name"`
	Services []Service `yaml:"services"`
}

// Load parses a compose descriptor into a Stack. Environment interpolation
// inside the descriptor uses the process environment, so the env file must be
// overlaid before calling Load.
func Load(ctx context.Context, path, projectName string) (Stack, error) {
	options, err := cli.NewProjectOptions(
		[]string{path},
		cli.WithOsEnv,
		cli.WithName(projectName),
	)
	if err != nil {
		return Stack{}, fmt.Errorf("create project options: %w", err)
	}
	project, err := options.LoadProject(ctx)
	if err != nil {
		return Stack{}, fmt.Errorf("load stack descriptor %s: %w", path, err)
	}

	services := make([]Service, 0, len(project.Services))
	for _, composeService := range project.Services {
		services = append(services, convertService(composeService))
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })

	return Stack{Name: project.Name, Services: services}, nil
}

func convertService(cs composetypes.ServiceConfig) Service {
	env := make([]string, 0, len(cs.Environment))
	for key, value := range cs.Environment {
		if value == nil {
			continue
		}
		env = append(env, key+"="+*value)
	}
	sort.Strings(env)

	ports := make([]PortBinding, 0, len(cs.Ports))
	for _, p := range cs.Ports {
		if p.Published == "" {
			continue
		}
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		ports = append(ports, PortBinding{
			HostIP:    p.HostIP,
			Published: p.Published,
			Target:    p.Target,
			Protocol:  proto,
		})
	}

	volumes := make([]VolumeMount, 0, len(cs.Volumes))
	for _, v := range cs.Volumes {
		if v.Source == "" || v.Target == "" {
			continue
		}
		volumes = append(volumes, VolumeMount{Source: v.Source, Target: v.Target})
	}

	deps := make([]string, 0, len(cs.DependsOn))
	for dep := range cs.DependsOn {
		deps = append(deps, dep)
	}
	sort.Strings(deps)

	return Service{
		Name:          cs.Name,
		Image:         cs.Image,
		ContainerName: cs.ContainerName,
		Ports:         ports,
		Volumes:       volumes,
		Environment:   env,
		DependsOn:     deps,
		Profiles:      append([]string(nil), cs.Profiles...),
		Restart:       cs.Restart,
	}
}

// Service looks up a service by name.
func (s Stack) Service(name string) (Service, bool) {
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return Service{}, false
}

// MarshalText renders the resolved stack as YAML for operator inspection.
func (s Stack) MarshalText() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal stack: %w", err)
	}
	return out, nil
}

// activeFor reports whether the service participates given enabled profiles.
// A service with no profiles is always active.
func (svc Service) activeFor(profiles []string) bool {
	if len(svc.Profiles) == 0 {
		return true
	}
	for _, p := range svc.Profiles {
		for _, enabled := range profiles {
			if strings.EqualFold(p, enabled) {
				return true
			}
		}
	}
	return false
}
