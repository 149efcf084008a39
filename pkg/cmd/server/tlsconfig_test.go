package server

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeKeyPair writes a self signed certificate and returns its DER bytes.
func writeKeyPair(t *testing.T, certFile, keyFile string, serial int64) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	// key first, the cert write completes the pair
	require.NoError(t, os.WriteFile(keyFile,
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	require.NoError(t, os.WriteFile(certFile,
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	return der
}

func TestTLSConfigReload(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "tls.crt")
	keyFile := filepath.Join(dir, "tls.key")
	first := writeKeyPair(t, certFile, keyFile, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg, err := newTLSConfig(ctx, certFile, keyFile, "")
	require.NoError(t, err)
	served := func() []byte {
		c, err := cfg.GetCertificate(nil)
		if err != nil || c == nil {
			return nil
		}
		return c.Certificate[0]
	}
	assert.Equal(t, first, served())

	second := writeKeyPair(t, certFile, keyFile, 2)
	assert.Eventually(t, func() bool {
		return bytes.Equal(second, served())
	}, 2*time.Second, 20*time.Millisecond)
}

func TestTLSConfigErrors(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "tls.crt")
	keyFile := filepath.Join(dir, "tls.key")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := newTLSConfig(ctx, certFile, keyFile, "")
	assert.Error(t, err, "missing files")

	writeKeyPair(t, certFile, keyFile, 1)
	caFile := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(caFile, []byte("no pem here"), 0o600))
	_, err = newTLSConfig(ctx, certFile, keyFile, caFile)
	assert.ErrorIs(t, err, errNoCACerts)

	cfg, err := newTLSConfig(ctx, certFile, keyFile, certFile)
	require.NoError(t, err)
	assert.NotNil(t, cfg.ClientCAs)
}
