package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/datalog-analyzer-go/log"
)

var errNoCACerts = errors.New("no certificates found in ca file")

type certs struct {
	ctx      context.Context
	certFile string
	keyFile  string
	log      *log.Logger
	mu       sync.RWMutex
	cert     *tls.Certificate
}

// newTLSConfig creates a tls config serving the key pair. The files are
// watched and reloaded on change. caFile is optional and enables
// verification of client certificates.
//
//nolint:whitespace // can't make both editor and linter happy
func newTLSConfig(ctx context.Context, certFile, keyFile, caFile string) (
	*tls.Config, error,
) {
	c := &certs{
		ctx:      ctx,
		certFile: certFile,
		keyFile:  keyFile,
		log:      log.GetFromContext(ctx).Named("http.certs"),
	}
	if err := c.loadCert(); err != nil {
		return nil, err
	}
	ret := &tls.Config{
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			return c.current(), nil
		},
		MinVersion: tls.VersionTLS13,
	}
	if caFile != "" {
		c.log.Info("Loading ca cert", log.String("file", caFile))
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("could not read TLS root CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errNoCACerts
		}
		ret.ClientCAs = pool
		ret.ClientAuth = tls.VerifyClientCertIfGiven
	}
	watcher, err := c.watch()
	if err != nil {
		return nil, err
	}
	go c.reloadLoop(watcher)
	return ret, nil
}

func (c *certs) current() *tls.Certificate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cert
}

func (c *certs) loadCert() error {
	c.log.Info("Loading cert",
		log.String("key", c.keyFile),
		log.String("cert", c.certFile))
	cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return fmt.Errorf("could not load TLS key pair: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cert = &cert
	return nil
}

// watch observes the directories of the files, so renames by cert
// managers are noticed too.
func (c *certs) watch() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dirs := map[string]struct{}{
		filepath.Dir(c.certFile): {},
		filepath.Dir(c.keyFile):  {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return watcher, nil
}

func (c *certs) relevant(name string) bool {
	name = filepath.Clean(name)
	return name == filepath.Clean(c.certFile) || name == filepath.Clean(c.keyFile)
}

func (c *certs) reloadLoop(watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-c.ctx.Done():
			c.log.Info("context done, stopping cert reload")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				c.log.Info("watcher events channel closed, stopping cert reload")
				return
			}
			if !c.relevant(event.Name) {
				continue
			}
			c.log.Debug("change detected",
				log.String("file", event.Name), log.Any("event", event))
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Chmod) {

				// key and cert may be written one after the other, keep the
				// current pair until both match
				if err := c.loadCert(); err != nil {
					c.log.Warn("cert not reloaded", log.ErrorField(err))
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				c.log.Info("watcher errors channel closed, stopping cert reload")
				return
			}
			c.log.Error("watcher error", log.ErrorField(err))
		}
	}
}
