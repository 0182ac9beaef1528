package orchestrator

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hhftechnology/wordpress-docker/internal/readiness"
	"github.com/hhftechnology/wordpress-docker/internal/stackfile"
)

// fpmReadyMarker is printed by php-fpm once its FastCGI listener is bound.
// The database marker comes from configuration, defaulting to the line the
// operator used to watch for by hand.
const fpmReadyMarker = "ready to handle connections"

func (o *Orchestrator) waitReady(ctx context.Context, log *slog.Logger, svc stackfile.Service) error {
	probes := o.probesFor(svc)
	if len(probes) == 0 {
		return nil
	}
	policy := readiness.Policy{
		Interval:    o.cfg.Readiness.Interval,
		MaxInterval: o.cfg.Readiness.MaxInterval,
		Timeout:     o.cfg.Readiness.Timeout,
	}
	for _, probe := range probes {
		if err := readiness.Wait(ctx, log, probe, policy); err != nil {
			return err
		}
	}
	return nil
}

// probesFor selects the readiness contract per service. The log-marker scan
// works without published ports; when the relevant port is published on the
// host the contract is strengthened with a positive connection check.
func (o *Orchestrator) probesFor(svc stackfile.Service) []readiness.Probe {
	name := o.ContainerName(svc)
	source := func(ctx context.Context, fn func(line string)) error {
		return o.engine.StreamLogs(ctx, name, "all", false, fn)
	}

	switch svc.Name {
	case ServiceDatabase:
		probes := []readiness.Probe{
			readiness.NewLogMarkerProbe(svc.Name, o.cfg.Readiness.LogMarker, source),
		}
		if addr := publishedAddr(svc, uint32(o.cfg.DB.Port)); addr != "" {
			probes = append(probes, readiness.MySQLProbe{
				User:     o.cfg.DB.User,
				Password: o.cfg.DB.Password,
				Addr:     addr,
				Database: o.cfg.DB.Name,
			})
		}
		return probes
	case ServiceApp:
		if addr := publishedAddr(svc, uint32(o.cfg.AppPort)); addr != "" {
			return []readiness.Probe{readiness.TCPProbe{Addr: addr}}
		}
		return []readiness.Probe{readiness.NewLogMarkerProbe(svc.Name, fpmReadyMarker, source)}
	case ServiceProxy:
		// The plaintext listener answers everything with a permanent
		// redirect, so a 301 on / means the proxy is up.
		if addr := publishedAddr(svc, 80); addr != "" {
			return []readiness.Probe{readiness.HTTPProbe{
				URL:        "http://" + addr + "/",
				WantStatus: http.StatusMovedPermanently,
				Client: &http.Client{
					Timeout: 5 * time.Second,
					CheckRedirect: func(*http.Request, []*http.Request) error {
						return http.ErrUseLastResponse
					},
				},
			}}
		}
		return nil
	default:
		return nil
	}
}

// publishedAddr returns host:port when the container port is published.
func publishedAddr(svc stackfile.Service, target uint32) string {
	for _, p := range svc.Ports {
		if p.Target != target || p.Published == "" {
			continue
		}
		host := p.HostIP
		if host == "" || host == "0.0.0.0" {
			host = "127.0.0.1"
		}
		return host + ":" + p.Published
	}
	return ""
}
