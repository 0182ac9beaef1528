package stackfile

import (
	"fmt"
	"sort"
)

// Active returns the services that participate under the given profiles,
// in descriptor order.
func (s Stack) Active(profiles []string) []Service {
	out := make([]Service, 0, len(s.Services))
	for _, svc := range s.Services {
		if svc.activeFor(profiles) {
			out = append(out, svc)
		}
	}
	return out
}

// StartOrder returns the active services sorted so every service appears
// after all of its dependencies. Ties break alphabetically to keep the plan
// stable across runs. Dependencies on inactive services are ignored.
func (s Stack) StartOrder(profiles []string) ([]Service, error) {
	active := make(map[string]Service)
	for _, svc := range s.Services {
		if svc.activeFor(profiles) {
			active[svc.Name] = svc
		}
	}

	indegree := make(map[string]int, len(active))
	dependents := make(map[string][]string, len(active))
	for name, svc := range active {
		if _, ok := indegree[name]; !ok {
			indegree[name] = 0
		}
		for _, dep := range svc.DependsOn {
			if _, ok := active[dep]; !ok {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	queue := make([]string, 0, len(active))
	for name, deg := range indegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	order := make([]Service, 0, len(active))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, active[name])

		next := dependents[name]
		sort.Strings(next)
		for _, dependent := range next {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
		sort.Strings(queue)
	}

	if len(order) != len(active) {
		cyclic := make([]string, 0)
		for name, deg := range indegree {
			if deg > 0 {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
		return nil, fmt.Errorf("dependency cycle involving %v", cyclic)
	}
	return order, nil
}

// StopOrder is the reverse of StartOrder: dependents stop before their
// dependencies.
func (s Stack) StopOrder(profiles []string) ([]Service, error) {
	order, err := s.StartOrder(profiles)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}
