package api

import (
	"crypto/tls"
	"fmt"
)

// TLSFiles holds certificate and key paths.
type TLSFiles struct {
	CertFile string
	KeyFile  string
}

// Enabled returns true if both files are configured.
func (t TLSFiles) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// Load builds a tls.Config from the cert and key files. It returns nil,
// nil when TLS is not configured.
func (t TLSFiles) Load() (*tls.Config, error) {
	if !t.Enabled() {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
