package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hhftechnology/wordpress-docker/internal/config"
)

func renderConfig() config.Stack {
	return config.Stack{
		ServerName:   "blog.example.test",
		HTTPSPort:    443,
		DocumentRoot: "/var/www/html",
		AppHost:      "wordpress",
		AppPort:      9000,
		Upload: config.UploadPolicy{
			MaxFileSize:  64 << 20,
			MaxPostSize:  64 << 20,
			MemoryLimit:  256 << 20,
			MaxExecution: 300 * time.Second,
		},
	}
}

func mustContain(t *testing.T, rendered string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(rendered, want) {
			t.Fatalf("rendered config missing %q:\n%s", want, rendered)
		}
	}
}

func TestNginxConf(t *testing.T) {
	out := NginxConf(renderConfig())

	mustContain(t, out,
		"listen 80;",
		"return 301 https://$host$request_uri;",
		"listen 443 ssl;",
		"server_name blog.example.test;",
		"root /var/www/html;",
		"client_max_body_size 64M;",
		"ssl_certificate /etc/nginx/certs/server.crt;",
		"ssl_certificate_key /etc/nginx/certs/server.key;",
		"location = /favicon.ico",
		"location = /robots.txt",
		"expires max;",
		"fastcgi_split_path_info ^(.+\\.php)(/.+)$;",
		"fastcgi_pass wordpress:9000;",
		"fastcgi_param SCRIPT_FILENAME $document_root$fastcgi_script_name;",
		"fastcgi_read_timeout 300;",
		"location ~ /\\.ht",
		"deny all;",
		"try_files $uri $uri/ /index.php?$args;",
	)
}

func TestNginxConfNonStandardPort(t *testing.T) {
	cfg := renderConfig()
	cfg.HTTPSPort = 8443
	out := NginxConf(cfg)

	mustContain(t, out,
		"listen 8443 ssl;",
		"return 301 https://$host:8443$request_uri;",
	)
}

func TestUploadsConfig(t *testing.T) {
	out := UploadsConfig(renderConfig().Upload)

	mustContain(t, out,
		"file_uploads = On",
		"memory_limit = 256M",
		"upload_max_filesize = 64M",
		"post_max_size = 64M",
		"max_execution_time = 300",
	)
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := renderConfig()
	cfg.NginxConfPath = filepath.Join(dir, "nginx", "default.conf")
	cfg.UploadsConfPath = filepath.Join(dir, "config", "uploads.ini")

	if err := WriteArtifacts(cfg); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}

	nginx, err := os.ReadFile(cfg.NginxConfPath)
	if err != nil {
		t.Fatalf("read nginx conf: %v", err)
	}
	if !strings.Contains(string(nginx), "fastcgi_pass wordpress:9000;") {
		t.Fatalf("nginx conf incomplete:\n%s", nginx)
	}

	uploads, err := os.ReadFile(cfg.UploadsConfPath)
	if err != nil {
		t.Fatalf("read uploads config: %v", err)
	}
	if !strings.Contains(string(uploads), "post_max_size = 64M") {
		t.Fatalf("uploads config incomplete:\n%s", uploads)
	}
}
