package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/meshview/internal/adapters/announcement"
	"github.com/eleven-am/meshview/internal/adapters/trust"
	"github.com/eleven-am/meshview/internal/domain"
)

type staticClusterView struct {
	view *domain.LocalClusterView
	err  error
}

func (s *staticClusterView) GetLocalClusterView() (*domain.LocalClusterView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.view, nil
}

func testTrustConfig() domain.TrustConfig {
	return domain.TrustConfig{
		SharedKey:         "connectorKey",
		HMACEnabled:       true,
		EncryptionEnabled: true,
		KeyInterval:       time.Hour,
		SkewWindows:       1,
	}
}

type endpoint struct {
	registry *announcement.Registry
	client   *Client
	handler  *Handler
}

func newEndpoint(t *testing.T, instanceID string, trustConfig domain.TrustConfig, members ...string) *endpoint {
	t.Helper()

	config := domain.DefaultConfig()
	config.InstanceID = instanceID
	config.ClusterID = "cluster-" + instanceID
	config.Trust = trustConfig

	view := &domain.LocalClusterView{ClusterID: config.ClusterID}
	for i, id := range append([]string{instanceID}, members...) {
		view.Instances = append(view.Instances, domain.InstanceDescription{
			ID:        id,
			ClusterID: config.ClusterID,
			Local:     i == 0,
		})
	}

	validator, err := trust.NewValidator(trustConfig, nil)
	require.NoError(t, err)

	registry := announcement.NewRegistry(nil)
	builder := NewBuilder(config, &staticClusterView{view: view})

	return &endpoint{
		registry: registry,
		client:   NewClient(config.Connector, validator, registry, builder, nil),
		handler:  NewHandler(validator, registry, builder, nil),
	}
}

func TestAnnouncementExchangeRoundTrip(t *testing.T) {
	alpha := newEndpoint(t, "alpha", testTrustConfig(), "alpha-2")
	beta := newEndpoint(t, "beta", testTrustConfig())

	server := httptest.NewServer(beta.handler)
	defer server.Close()

	require.NoError(t, alpha.client.Ping(context.Background(), server.URL+"/connector/announce"))

	// Beta learned alpha's cluster.
	betaSees := beta.registry.ListInstances(nil)
	require.Len(t, betaSees, 2)

	// Alpha learned beta's cluster from the response.
	alphaSees := alpha.registry.ListInstances(nil)
	require.Len(t, alphaSees, 1)
	assert.Equal(t, "beta", alphaSees[0].ID)
}

func TestExchangeWithTrustDisabled(t *testing.T) {
	bare := domain.TrustConfig{}
	alpha := newEndpoint(t, "alpha", bare)
	beta := newEndpoint(t, "beta", bare)

	server := httptest.NewServer(beta.handler)
	defer server.Close()

	require.NoError(t, alpha.client.Ping(context.Background(), server.URL+"/connector/announce"))
	assert.Len(t, beta.registry.ListInstances(nil), 1)
}

func TestHandlerRejectsUntrustedRequest(t *testing.T) {
	beta := newEndpoint(t, "beta", testTrustConfig())
	server := httptest.NewServer(beta.handler)
	defer server.Close()

	req, err := http.NewRequest(http.MethodPut, server.URL+"/connector/announce", strings.NewReader(`{"origin_id":"mallory"}`))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, beta.registry.ListAnnouncements())
}

func TestClientRejectsPeerWithDifferentKey(t *testing.T) {
	alpha := newEndpoint(t, "alpha", testTrustConfig())

	otherKey := testTrustConfig()
	otherKey.SharedKey = "differentKey"
	beta := newEndpoint(t, "beta", otherKey)

	server := httptest.NewServer(beta.handler)
	defer server.Close()

	err := alpha.client.Ping(context.Background(), server.URL+"/connector/announce")
	require.Error(t, err)
	assert.True(t, domain.IsConnectorError(err))
	assert.Empty(t, beta.registry.ListAnnouncements(), "peer must not accept a foreign-key announcement")
}

func TestHandlerRejectsNonWriteMethods(t *testing.T) {
	beta := newEndpoint(t, "beta", testTrustConfig())
	server := httptest.NewServer(beta.handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/connector/announce")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandlerUnavailableWhenLocalViewUndefined(t *testing.T) {
	alpha := newEndpoint(t, "alpha", testTrustConfig())

	config := domain.DefaultConfig()
	config.InstanceID = "beta"
	validator, err := trust.NewValidator(testTrustConfig(), nil)
	require.NoError(t, err)
	registry := announcement.NewRegistry(nil)
	undefined := &staticClusterView{err: domain.NewUndefinedClusterViewError(domain.ReasonRepositoryException, "storage down")}
	handler := NewHandler(validator, registry, NewBuilder(config, undefined), nil)

	server := httptest.NewServer(handler)
	defer server.Close()

	pingErr := alpha.client.Ping(context.Background(), server.URL+"/connector/announce")
	require.Error(t, pingErr)
	assert.True(t, domain.IsConnectorError(pingErr))
}

func TestBuilderStampsFreshAnnouncement(t *testing.T) {
	config := domain.DefaultConfig()
	config.InstanceID = "alpha"
	config.ClusterID = "cluster-alpha"
	config.Connector.AnnouncementTimeout = time.Minute

	view := &domain.LocalClusterView{
		ClusterID: "cluster-alpha",
		Instances: []domain.InstanceDescription{{ID: "alpha", Local: true}},
	}
	builder := NewBuilder(config, &staticClusterView{view: view})

	first, err := builder.Build("/connector/announce")
	require.NoError(t, err)
	second, err := builder.Build("/connector/announce")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID, "every announcement gets a fresh id")
	assert.Equal(t, "alpha", first.OriginID)
	assert.Equal(t, "/connector/announce", first.Path)
	assert.False(t, first.Instances[0].Local, "locality is cleared on the wire")
	assert.WithinDuration(t, first.Created.Add(time.Minute), first.Expires, time.Second)
}
