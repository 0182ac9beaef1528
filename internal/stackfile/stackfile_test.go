package stackfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const descriptorFixture = `services:
  database:
    image: mysql:8.0
    container_name: database
    environment:
      MYSQL_DATABASE: wordpress
      MYSQL_USER: wordpress
    volumes:
      - ./dbdata:/var/lib/mysql
    restart: always
  wordpress:
    image: wordpress:6.4-fpm
    container_name: wordpress
    depends_on:
      - database
    volumes:
      - ./wordpress:/var/www/html
    restart: always
  nginx:
    image: nginx:1.25
    container_name: nginx
    depends_on:
      - wordpress
    ports:
      - "80:80"
      - "443:443"
    restart: always
  adminer:
    image: adminer:latest
    container_name: adminer
    profiles:
      - admin
    depends_on:
      - database
    ports:
      - "9001:8080"
    restart: always
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docker-compose.yml")
	if err := os.WriteFile(path, []byte(descriptorFixture), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadParsesDescriptor(t *testing.T) {
	stack, err := Load(context.Background(), writeFixture(t), "wordpress")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stack.Name != "wordpress" {
		t.Fatalf("unexpected project name %q", stack.Name)
	}
	if len(stack.Services) != 4 {
		t.Fatalf("expected 4 services, got %d", len(stack.Services))
	}

	db, ok := stack.Service("database")
	if !ok {
		t.Fatalf("database service missing")
	}
	if db.Image != "mysql:8.0" {
		t.Fatalf("unexpected database image %q", db.Image)
	}
	if len(db.Volumes) != 1 || db.Volumes[0].Target != "/var/lib/mysql" {
		t.Fatalf("unexpected database volumes %+v", db.Volumes)
	}
	if len(db.Environment) != 2 || db.Environment[0] != "MYSQL_DATABASE=wordpress" {
		t.Fatalf("environment not sorted or incomplete: %v", db.Environment)
	}

	proxy, ok := stack.Service("nginx")
	if !ok {
		t.Fatalf("nginx service missing")
	}
	if len(proxy.Ports) != 2 {
		t.Fatalf("expected 2 published ports, got %d", len(proxy.Ports))
	}
	if proxy.Ports[0].Published != "80" || proxy.Ports[0].Target != 80 {
		t.Fatalf("unexpected port binding %+v", proxy.Ports[0])
	}
	if proxy.DependsOn[0] != "wordpress" {
		t.Fatalf("unexpected proxy dependencies %v", proxy.DependsOn)
	}

	admin, _ := stack.Service("adminer")
	if len(admin.Profiles) != 1 || admin.Profiles[0] != "admin" {
		t.Fatalf("unexpected adminer profiles %v", admin.Profiles)
	}
}

func TestLoadInterpolatesEnvironment(t *testing.T) {
	t.Setenv("TEST_DB_IMAGE", "mysql:8.4")
	path := filepath.Join(t.TempDir(), "docker-compose.yml")
	descriptor := "services:\n  database:\n    image: ${TEST_DB_IMAGE}\n"
	if err := os.WriteFile(path, []byte(descriptor), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	stack, err := Load(context.Background(), path, "wordpress")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	db, _ := stack.Service("database")
	if db.Image != "mysql:8.4" {
		t.Fatalf("interpolation failed, image = %q", db.Image)
	}
}

func TestLoadMissingDescriptor(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yml"), "wordpress")
	if err == nil {
		t.Fatalf("expected error for missing descriptor")
	}
}
