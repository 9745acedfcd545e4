// Package feed fetches live vehicle positions from the upstream GraphQL
// endpoint, optionally through a SOCKS5 proxy.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"vonatradar.hu/internal/appconf"
	"vonatradar.hu/internal/logging"
	"vonatradar.hu/internal/models"
)

// maxBodySize caps the response read so a misbehaving upstream cannot
// exhaust memory.
const maxBodySize = 25 * 1024 * 1024

// Client posts the positions query to the configured endpoint. The zero
// value is not usable; construct with NewClient.
type Client struct {
	cfg    appconf.Config
	logger *slog.Logger

	buildOnce  sync.Once
	httpClient *http.Client
	buildErr   error
}

// NewClient creates a feed client. Configuration problems (missing
// endpoint, half-configured proxy) surface on the first fetch, not here,
// so a misconfigured feed only fails the cycles that use it.
func NewClient(cfg appconf.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "feed_client")),
	}
}

// FetchVehiclePositions runs the positions query and returns the raw
// vehicle reports. Transport and HTTP failures propagate to the caller;
// the pipeline treats them as a failed cycle.
func (c *Client) FetchVehiclePositions(ctx context.Context) ([]models.VehicleReport, error) {
	if c.cfg.FeedEndpoint == "" {
		return nil, fmt.Errorf("feed endpoint is not set")
	}

	c.buildOnce.Do(func() {
		c.httpClient, c.buildErr = c.buildHTTPClient()
	})
	if c.buildErr != nil {
		return nil, c.buildErr
	}

	body, err := json.Marshal(map[string]string{"query": positionsQuery})
	if err != nil {
		return nil, fmt.Errorf("marshaling query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.FeedEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating feed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing feed request: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "feed_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed fetch failed: %s returned %s", c.cfg.FeedEndpoint, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading feed response: %w", err)
	}
	if int64(len(raw)) > maxBodySize {
		return nil, fmt.Errorf("feed response exceeds size limit of %d bytes", maxBodySize)
	}

	return parsePositionsResponse(raw)
}

// parsePositionsResponse extracts the vehicle-position array from the
// GraphQL document, accepting both the nested data.vehiclePositions path
// and a flattened top-level vehiclePositions array.
func parsePositionsResponse(raw []byte) ([]models.VehicleReport, error) {
	var payload struct {
		Data struct {
			VehiclePositions []models.VehicleReport `json:"vehiclePositions"`
		} `json:"data"`
		VehiclePositions []models.VehicleReport `json:"vehiclePositions"`
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling feed response: %w", err)
	}

	if len(payload.Data.VehiclePositions) > 0 {
		return payload.Data.VehiclePositions, nil
	}
	return payload.VehiclePositions, nil
}

// buildHTTPClient assembles the transport once. The transport is cloned
// from http.DefaultTransport to preserve its defaults (DialContext,
// HTTP/2, keepalives); when the SOCKS5 proxy is enabled its dialer
// replaces the direct one.
func (c *Client) buildHTTPClient() (*http.Client, error) {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second

	if c.cfg.SOCKS5ProxyEnable {
		if err := c.cfg.ValidateProxy(); err != nil {
			return nil, err
		}

		var auth *proxy.Auth
		if c.cfg.SOCKS5ProxyUsername != "" && c.cfg.SOCKS5ProxyPassword != "" {
			auth = &proxy.Auth{
				User:     c.cfg.SOCKS5ProxyUsername,
				Password: c.cfg.SOCKS5ProxyPassword,
			}
		}

		dialer, err := proxy.SOCKS5("tcp", c.cfg.ProxyAddr(), auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("building SOCKS5 dialer: %w", err)
		}

		transport.Proxy = nil
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}

		c.logger.Info("feed client using SOCKS5 proxy", slog.String("proxy", c.cfg.ProxyAddr()))
	}

	return &http.Client{
		// Absolute safety net per request; callers also bound the fetch
		// with a context timeout, and the stricter of the two wins.
		Timeout:   c.cfg.FeedTimeout,
		Transport: transport,
	}, nil
}
