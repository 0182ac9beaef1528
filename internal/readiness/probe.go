// Package readiness implements the health-check contract between dependent
// services: each probe answers "may dependents connect yet" for one service,
// and Wait drives a probe with capped exponential backoff until it passes or
// the deadline expires.
package readiness

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Probe is a single readiness check. Check returns nil once the service is
// ready; any error means "not ready yet".
type Probe interface {
	Name() string
	Check(ctx context.Context) error
}

// TCPProbe passes once the address accepts a TCP connection. Used for the
// FastCGI listener, where a bound port is the readiness condition.
type TCPProbe struct {
	Addr        string
	DialTimeout time.Duration
}

func (p TCPProbe) Name() string { return "tcp " + p.Addr }

func (p TCPProbe) Check(ctx context.Context) error {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.Addr, err)
	}
	return conn.Close()
}

// MySQLProbe passes once the database answers a ping with real credentials.
// This is stronger than the log marker: MySQL images log the ready line once
// during initialization and once when actually accepting connections.
type MySQLProbe struct {
	User     string
	Password string
	Addr     string
	Database string
}

func (p MySQLProbe) Name() string { return "mysql " + p.Addr }

func (p MySQLProbe) Check(ctx context.Context) error {
	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.Net = "tcp"
	cfg.Addr = p.Addr
	cfg.DBName = p.Database
	cfg.Timeout = 2 * time.Second

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping %s: %w", p.Addr, err)
	}
	return nil
}

// HTTPProbe passes once the URL answers with the wanted status code.
type HTTPProbe struct {
	URL        string
	WantStatus int
	Client     *http.Client
}

func (p HTTPProbe) Name() string { return "http " + p.URL }

func (p HTTPProbe) Check(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.URL, err)
	}
	defer resp.Body.Close()
	want := p.WantStatus
	if want == 0 {
		want = http.StatusOK
	}
	if resp.StatusCode != want {
		return fmt.Errorf("probe %s: status %d, want %d", p.URL, resp.StatusCode, want)
	}
	return nil
}

// LogSource supplies the current log tail of a service, one line per call to
// the callback. Follow semantics are the caller's concern; a probe scans a
// bounded snapshot per attempt.
type LogSource func(ctx context.Context, fn func(line string)) error

// LogMarkerProbe passes once the service's log stream contains the marker
// line. This automates the documented "watch the logs until 'ready for
// connections' appears" procedure.
type LogMarkerProbe struct {
	Marker string
	Source LogSource
	label  string
}

// NewLogMarkerProbe builds a probe scanning source for marker.
func NewLogMarkerProbe(label, marker string, source LogSource) LogMarkerProbe {
	return LogMarkerProbe{Marker: marker, Source: source, label: label}
}

func (p LogMarkerProbe) Name() string { return "log-marker " + p.label }

func (p LogMarkerProbe) Check(ctx context.Context) error {
	if p.Source == nil {
		return fmt.Errorf("log source not configured")
	}
	found := false
	err := p.Source(ctx, func(line string) {
		if strings.Contains(line, p.Marker) {
			found = true
		}
	})
	if err != nil && !found {
		return fmt.Errorf("scan logs: %w", err)
	}
	if !found {
		return fmt.Errorf("marker %q not seen yet", p.Marker)
	}
	return nil
}
