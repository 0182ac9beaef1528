package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/image"
)

// PullOutputCallback is invoked with incremental pull progress messages.
type PullOutputCallback func(string)

// PullImage fetches an image, reporting progress through onOutput.
func (c *Client) PullImage(ctx context.Context, ref string, onOutput PullOutputCallback) error {
	if c.inner == nil {
		return fmt.Errorf("docker client not initialized")
	}
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("image reference cannot be empty")
	}
	resp, err := c.inner.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("docker image pull: %w", err)
	}
	defer resp.Close()

	decoder := json.NewDecoder(resp)
	for {
		var msg pullMessage
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("decode pull output: %w", err)
		}
		if errMsg := msg.errorMessage(); errMsg != "" {
			return fmt.Errorf("docker image pull: %s", errMsg)
		}
		line := msg.render()
		if line != "" && onOutput != nil {
			onOutput(line)
		}
	}
	return nil
}

type pullMessage struct {
	Status         string             `json:"status"`
	ID             string             `json:"id"`
	Progress       string             `json:"progress"`
	ProgressDetail pullProgressDetail `json:"progressDetail"`
	Error          string             `json:"error"`
	ErrorDetail    pullErrorDetail    `json:"errorDetail"`
}

type pullProgressDetail struct {
	Current int64 `json:"current"`
	Total   int64 `json:"total"`
}

type pullErrorDetail struct {
	Message string `json:"message"`
}

func (m pullMessage) errorMessage() string {
	if strings.TrimSpace(m.Error) != "" {
		return strings.TrimSpace(m.Error)
	}
	if strings.TrimSpace(m.ErrorDetail.Message) != "" {
		return strings.TrimSpace(m.ErrorDetail.Message)
	}
	return ""
}

func (m pullMessage) render() string {
	if m.Status == "" {
		return ""
	}
	parts := make([]string, 0, 3)
	if strings.TrimSpace(m.ID) != "" {
		parts = append(parts, strings.TrimSpace(m.ID))
	}
	parts = append(parts, strings.TrimSpace(m.Status))
	progress := strings.TrimSpace(m.Progress)
	if progress == "" && (m.ProgressDetail.Current > 0 || m.ProgressDetail.Total > 0) {
		if m.ProgressDetail.Total > 0 {
			progress = fmt.Sprintf("%d/%d", m.ProgressDetail.Current, m.ProgressDetail.Total)
		} else {
			progress = fmt.Sprintf("%d", m.ProgressDetail.Current)
		}
	}
	if progress != "" {
		parts = append(parts, progress)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
