package proxy

import (
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// CertKeeper holds the TLS certificate and hot-swaps it when the files
// change on disk, so replacing a misconfigured certificate does not require
// restarting the proxy.
type CertKeeper struct {
	certFile string
	keyFile  string
	current  atomic.Pointer[tls.Certificate]
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// NewCertKeeper loads the pair and starts watching the containing
// directory. Editors and provisioning tools replace files by rename, so the
// directory, not the file, is watched.
func NewCertKeeper(certFile, keyFile string, logger *slog.Logger) (*CertKeeper, error) {
	k := &CertKeeper{certFile: certFile, keyFile: keyFile, logger: logger}
	if err := k.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create cert watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(certFile)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch cert dir: %w", err)
	}
	k.watcher = watcher
	go k.watch()
	return k, nil
}

func (k *CertKeeper) reload() error {
	cert, err := tls.LoadX509KeyPair(k.certFile, k.keyFile)
	if err != nil {
		return fmt.Errorf("load certificate: %w", err)
	}
	k.current.Store(&cert)
	return nil
}

func (k *CertKeeper) watch() {
	for {
		select {
		case event, ok := <-k.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(event.Name)
			if name != filepath.Base(k.certFile) && name != filepath.Base(k.keyFile) {
				continue
			}
			if err := k.reload(); err != nil {
				if k.logger != nil {
					k.logger.Warn("certificate reload failed", "error", err)
				}
				continue
			}
			if k.logger != nil {
				k.logger.Info("certificate reloaded", "file", event.Name)
			}
		case err, ok := <-k.watcher.Errors:
			if !ok {
				return
			}
			if k.logger != nil {
				k.logger.Warn("cert watcher error", "error", err)
			}
		}
	}
}

// GetCertificate implements tls.Config.GetCertificate.
func (k *CertKeeper) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cert := k.current.Load()
	if cert == nil {
		return nil, fmt.Errorf("no certificate loaded")
	}
	return cert, nil
}

// Close stops the watcher.
func (k *CertKeeper) Close() error {
	if k.watcher == nil {
		return nil
	}
	return k.watcher.Close()
}
