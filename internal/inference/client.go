// Package inference talks to the remote email classification endpoint.
package inference

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jnyross/openclaw-email-triage-v1-plugin/internal/triage"
)

// ClientError reports a failed classification call: a transport failure, an
// HTTP error status, or a response that violates the triage schema.
type ClientError struct {
	msg   string
	cause error
}

func (e *ClientError) Error() string { return e.msg }

// Unwrap exposes the underlying transport or schema error.
func (e *ClientError) Unwrap() error { return e.cause }

func clientError(cause error, format string, args ...any) *ClientError {
	return &ClientError{msg: fmt.Sprintf(format, args...), cause: cause}
}

// Config holds everything needed to reach the classification endpoint.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// APIKey, when non-empty, is sent as a bearer token.
	APIKey string

	// mTLS material. When CAFile or ClientCertFile is set the connection
	// uses a dedicated TLS config; otherwise system trust applies.
	CAFile         string
	ClientCertFile string
	ClientKeyFile  string
}

// Client issues classification requests. It never retries; retry policy is
// layered outside by the caller.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a classification client. It fails if configured mTLS material
// cannot be loaded.
func New(config Config) (*Client, error) {
	transport := http.DefaultTransport
	if config.CAFile != "" || config.ClientCertFile != "" {
		tlsConfig, err := buildTLSConfig(config)
		if err != nil {
			return nil, err
		}
		transport = &http.Transport{TLSClientConfig: tlsConfig}
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}, nil
}

func buildTLSConfig(config Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}
	if config.CAFile != "" {
		pem, err := os.ReadFile(config.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", config.CAFile)
		}
		tlsConfig.RootCAs = pool
	}
	if config.ClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(config.ClientCertFile, config.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

// Classify POSTs the request to {base_url}/v1/classify/email and validates
// the verdict. A single synchronous call, bounded by the configured timeout.
func (c *Client) Classify(ctx context.Context, req *triage.Request) (*triage.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, clientError(err, "marshal triage request: %v", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/v1/classify/email"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, clientError(err, "build inference request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, clientError(err, "inference API unavailable: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, clientError(err, "read inference response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, clientError(nil, "inference API HTTP error: %d", resp.StatusCode)
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, clientError(err, "inference API returned malformed JSON")
	}
	verdict, err := triage.ParseResponseMap(parsed)
	if err != nil {
		return nil, clientError(err, "inference API schema error: %v", err)
	}
	return verdict, nil
}
