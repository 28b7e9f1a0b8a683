package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/eleven-am/meshview/internal/adapters/trust"
	"github.com/eleven-am/meshview/internal/domain"
	"github.com/eleven-am/meshview/internal/ports"
)

var errUntrustedResponse = errors.New("response failed trust verification")

// Client is the initiating side of the announcement exchange: it PUTs the
// local announcement to a peer's connector endpoint and registers the
// announcement the peer returns.
type Client struct {
	validator  *trust.Validator
	registry   ports.AnnouncementRegistry
	builder    *Builder
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(config domain.ConnectorConfig, validator *trust.Validator, registry ports.AnnouncementRegistry, builder *Builder, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		validator:  validator,
		registry:   registry,
		builder:    builder,
		httpClient: &http.Client{Timeout: config.PingTimeout},
		logger:     logger.With("component", "connector-client"),
	}
}

// Ping performs one announcement exchange with the peer at peerURL. All
// failures are wrapped in a *domain.ConnectorError naming the peer and the
// failing step.
func (c *Client) Ping(ctx context.Context, peerURL string) error {
	target, err := url.Parse(peerURL)
	if err != nil {
		return domain.NewConnectorError(peerURL, "parse_url", err)
	}

	outgoing, err := c.builder.Build(target.Path)
	if err != nil {
		return domain.NewConnectorError(peerURL, "build_announcement", err)
	}

	encoded, err := outgoing.Encode()
	if err != nil {
		return domain.NewConnectorError(peerURL, "encode_announcement", err)
	}

	wire, err := c.validator.EncodeMessage(string(encoded))
	if err != nil {
		return domain.NewConnectorError(peerURL, "encrypt_announcement", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, peerURL, strings.NewReader(wire))
	if err != nil {
		return domain.NewConnectorError(peerURL, "build_request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.validator.TrustRequest(req, wire)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewConnectorError(peerURL, "send", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewConnectorError(peerURL, "send", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.NewConnectorError(peerURL, "read_response", err)
	}

	// The response signature is bound to the request path, so a response
	// captured from a different endpoint does not verify here.
	if !c.validator.IsTrustedResponse(target.Path, resp, string(body)) {
		return domain.NewConnectorError(peerURL, "verify_response", errUntrustedResponse)
	}

	plaintext, err := c.validator.DecodeMessage(string(body))
	if err != nil {
		return domain.NewConnectorError(peerURL, "decrypt_response", err)
	}

	incoming, err := domain.DecodeAnnouncement([]byte(plaintext))
	if err != nil {
		return domain.NewConnectorError(peerURL, "decode_response", err)
	}

	if err := c.registry.Register(incoming); err != nil {
		return domain.NewConnectorError(peerURL, "register", err)
	}

	c.logger.Debug("announcement exchange complete", "peer", peerURL, "origin", incoming.OriginID)
	return nil
}
