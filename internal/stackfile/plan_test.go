package stackfile

import "testing"

func testStack() Stack {
	return Stack{
		Name: "wordpress",
		Services: []Service{
			{Name: "adminer", DependsOn: []string{"database"}, Profiles: []string{"admin"}},
			{Name: "database"},
			{Name: "nginx", DependsOn: []string{"wordpress"}},
			{Name: "wordpress", DependsOn: []string{"database"}},
		},
	}
}

func names(services []Service) []string {
	out := make([]string, len(services))
	for i, svc := range services {
		out[i] = svc.Name
	}
	return out
}

func position(t *testing.T, order []string, name string) int {
	t.Helper()
	for i, n := range order {
		if n == name {
			return i
		}
	}
	t.Fatalf("service %q not in order %v", name, order)
	return -1
}

func TestStartOrderRespectsDependencies(t *testing.T) {
	order, err := testStack().StartOrder(nil)
	if err != nil {
		t.Fatalf("StartOrder: %v", err)
	}
	got := names(order)
	if len(got) != 3 {
		t.Fatalf("expected 3 active services, got %v", got)
	}
	if position(t, got, "database") > position(t, got, "wordpress") {
		t.Fatalf("database must start before wordpress: %v", got)
	}
	if position(t, got, "wordpress") > position(t, got, "nginx") {
		t.Fatalf("wordpress must start before nginx: %v", got)
	}
}

func TestStartOrderIncludesProfiledServices(t *testing.T) {
	order, err := testStack().StartOrder([]string{"admin"})
	if err != nil {
		t.Fatalf("StartOrder: %v", err)
	}
	got := names(order)
	if len(got) != 4 {
		t.Fatalf("expected 4 services with admin profile, got %v", got)
	}
	if position(t, got, "database") > position(t, got, "adminer") {
		t.Fatalf("database must start before adminer: %v", got)
	}
}

func TestStartOrderBreaksTiesAlphabetically(t *testing.T) {
	stack := Stack{Services: []Service{
		{Name: "zeta"},
		{Name: "alpha"},
		{Name: "mike"},
	}}
	order, err := stack.StartOrder(nil)
	if err != nil {
		t.Fatalf("StartOrder: %v", err)
	}
	got := names(order)
	want := []string{"alpha", "mike", "zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unstable tie-break: got %v, want %v", got, want)
		}
	}
}

func TestStartOrderIgnoresInactiveDependencies(t *testing.T) {
	stack := Stack{Services: []Service{
		{Name: "app", DependsOn: []string{"optional"}},
		{Name: "optional", Profiles: []string{"extra"}},
	}}
	order, err := stack.StartOrder(nil)
	if err != nil {
		t.Fatalf("StartOrder: %v", err)
	}
	if len(order) != 1 || order[0].Name != "app" {
		t.Fatalf("expected app alone, got %v", names(order))
	}
}

func TestStartOrderDetectsCycle(t *testing.T) {
	stack := Stack{Services: []Service{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	}}
	if _, err := stack.StartOrder(nil); err == nil {
		t.Fatalf("expected cycle error")
	}
}

func TestStopOrderIsReversed(t *testing.T) {
	stack := testStack()
	start, err := stack.StartOrder(nil)
	if err != nil {
		t.Fatalf("StartOrder: %v", err)
	}
	stop, err := stack.StopOrder(nil)
	if err != nil {
		t.Fatalf("StopOrder: %v", err)
	}
	for i := range start {
		if start[i].Name != stop[len(stop)-1-i].Name {
			t.Fatalf("stop order is not the reverse of start order: %v vs %v", names(start), names(stop))
		}
	}
}

func TestActiveFiltersProfiles(t *testing.T) {
	stack := testStack()
	if got := len(stack.Active(nil)); got != 3 {
		t.Fatalf("expected 3 active services, got %d", got)
	}
	if got := len(stack.Active([]string{"admin"})); got != 4 {
		t.Fatalf("expected 4 active services with admin profile, got %d", got)
	}
}
