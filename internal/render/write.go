package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hhftechnology/wordpress-docker/internal/config"
)

// WriteArtifacts renders both configuration files to their configured
// destinations, creating parent directories as needed.
func WriteArtifacts(cfg config.Stack) error {
	artifacts := []struct {
		path    string
		content string
	}{
		{cfg.NginxConfPath, NginxConf(cfg)},
		{cfg.UploadsConfPath, UploadsConfig(cfg.Upload)},
	}
	for _, artifact := range artifacts {
		if err := os.MkdirAll(filepath.Dir(artifact.path), 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err := os.WriteFile(artifact.path, []byte(artifact.content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", artifact.path, err)
		}
	}
	return nil
}
