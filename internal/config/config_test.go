package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProjectName != "wordpress" {
		t.Fatalf("unexpected project name %q", cfg.ProjectName)
	}
	if cfg.DB.Host != "database" || cfg.DB.Port != 3306 {
		t.Fatalf("unexpected database endpoint %s", cfg.DB.Addr())
	}
	if cfg.AppHost != "wordpress" || cfg.AppPort != 9000 {
		t.Fatalf("unexpected app endpoint %s:%d", cfg.AppHost, cfg.AppPort)
	}
	if cfg.Upload.MaxFileSize.String() != "64M" {
		t.Fatalf("unexpected upload ceiling %s", cfg.Upload.MaxFileSize)
	}
	if cfg.Readiness.LogMarker != "ready for connections" {
		t.Fatalf("unexpected readiness marker %q", cfg.Readiness.LogMarker)
	}
	if cfg.Upload.MaxExecution != 300*time.Second {
		t.Fatalf("unexpected execution ceiling %s", cfg.Upload.MaxExecution)
	}
}

func TestLoadMissingEnvFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "no-such.env")); err != nil {
		t.Fatalf("Load with missing env file: %v", err)
	}
}

func TestLoadOverlaysEnvFile(t *testing.T) {
	// Pre-register the keys so the test cleanup restores them even though
	// the env file writes them into the process environment.
	t.Setenv("STACK_PROJECT", "")
	t.Setenv("UPLOAD_MAX_FILESIZE", "")
	t.Setenv("UPLOAD_MAX_POSTSIZE", "")
	os.Unsetenv("STACK_PROJECT")
	os.Unsetenv("UPLOAD_MAX_FILESIZE")
	os.Unsetenv("UPLOAD_MAX_POSTSIZE")

	path := filepath.Join(t.TempDir(), ".env")
	content := "STACK_PROJECT=blog\nUPLOAD_MAX_FILESIZE=16M\nUPLOAD_MAX_POSTSIZE=32M\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProjectName != "blog" {
		t.Fatalf("env file not applied, project = %q", cfg.ProjectName)
	}
	if cfg.Upload.MaxFileSize != 16<<20 || cfg.Upload.MaxPostSize != 32<<20 {
		t.Fatalf("upload sizes not applied: %s / %s", cfg.Upload.MaxFileSize, cfg.Upload.MaxPostSize)
	}
}

func TestLoadProcessEnvironmentWins(t *testing.T) {
	t.Setenv("STACK_PROJECT", "from-process")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("STACK_PROJECT=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProjectName != "from-process" {
		t.Fatalf("process environment should win, got %q", cfg.ProjectName)
	}
}

func TestValidateRejectsFileLargerThanPost(t *testing.T) {
	cfg := Stack{
		DB: Database{User: "wordpress", Name: "wordpress"},
		Upload: UploadPolicy{
			MaxFileSize:  128 << 20,
			MaxPostSize:  64 << 20,
			MemoryLimit:  256 << 20,
			MaxExecution: time.Minute,
		},
		Readiness: Readiness{Timeout: time.Minute},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for file ceiling above post ceiling")
	}
}

func TestValidateRejectsMissingDatabaseIdentity(t *testing.T) {
	cfg := Stack{
		Upload: UploadPolicy{
			MaxFileSize:  1 << 20,
			MaxPostSize:  1 << 20,
			MaxExecution: time.Minute,
		},
		Readiness: Readiness{Timeout: time.Minute},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for empty database user and name")
	}
}
