package api

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// TLSFiles names the PEM files used to reach an API behind a private CA,
// optionally with a client certificate.
type TLSFiles struct {
	CAFile   string
	CertFile string
	KeyFile  string
}

// Empty reports whether no file is configured.
func (f TLSFiles) Empty() bool {
	return f.CAFile == "" && f.CertFile == "" && f.KeyFile == ""
}

// NewTLSHTTPClient builds an http.Client trusting CAFile and presenting the
// CertFile/KeyFile pair when both are set.
func NewTLSHTTPClient(files TLSFiles) (*http.Client, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if files.CAFile != "" {
		caCert, err := os.ReadFile(files.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA cert")
		}
		cfg.RootCAs = caPool
	}

	switch {
	case files.CertFile != "" && files.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(files.CertFile, files.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert/key: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	case files.CertFile != "" || files.KeyFile != "":
		return nil, errors.New("client cert and key must be set together")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = cfg
	return &http.Client{Transport: transport, Timeout: defaultTimeout}, nil
}

// defaultTimeout bounds every call made by a Client.
const defaultTimeout = 10 * time.Second
