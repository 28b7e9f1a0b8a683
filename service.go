package meshview

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/eleven-am/meshview/internal/adapters/announcement"
	"github.com/eleven-am/meshview/internal/adapters/connector"
	"github.com/eleven-am/meshview/internal/adapters/discovery"
	"github.com/eleven-am/meshview/internal/adapters/gate"
	"github.com/eleven-am/meshview/internal/adapters/trust"
	"github.com/eleven-am/meshview/internal/domain"
)

// Service wires the change gate, trust layer, announcement registry,
// orchestrator and HTTP connector into one discovery instance.
type Service struct {
	config *Config
	logger *slog.Logger

	gate         *gate.ChangeGate
	registry     *announcement.Registry
	orchestrator *discovery.Orchestrator
	handler      *connector.Handler
	client       *connector.Client

	isolationMu sync.RWMutex
	onIsolated  IsolationHandler

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Service from config and the external cluster view provider.
// Configuration errors (HMAC enabled without a shared key, missing instance
// ID) are fatal here and never retried.
func New(config *Config, clusterView ClusterViewService) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("instance_id", config.InstanceID)

	validator, err := trust.NewValidator(config.Trust, logger)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		config: config,
		logger: logger,
	}

	svc.gate = gate.NewChangeGate(config.Gate, logger)
	svc.registry = announcement.NewRegistry(logger)

	builder := connector.NewBuilder(config, clusterView)
	svc.handler = connector.NewHandler(validator, svc.registry, builder, logger)
	svc.client = connector.NewClient(config.Connector, validator, svc.registry, builder, logger)

	svc.orchestrator = discovery.NewOrchestrator(
		clusterView,
		svc.registry,
		svc.gate,
		svc.handleIsolated,
		logger,
	)

	return svc, nil
}

// Start launches the periodic announcement exchange with the given peer
// connector URLs. With a zero ping interval nothing is scheduled and pings
// happen only through explicit Ping calls.
func (s *Service) Start(ctx context.Context, peers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return domain.ErrAlreadyStarted
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.config.Connector.PingInterval > 0 && len(peers) > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.pingLoop(runCtx, peers)
		}()
	}

	s.logger.Info("meshview service started", "peers", len(peers))
	return nil
}

// Stop drains in-flight topology changes through the gate, stops the ping
// loop, and tears the gate down. Safe to call once.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return domain.ErrNotStarted
	}
	s.started = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	s.gate.InitiateShutdown()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.gate.Close()
	s.logger.Info("meshview service stopped")
	return nil
}

// BindReady signals that the hosting process finished initializing and may
// participate in topology changes.
func (s *Service) BindReady() error {
	return s.gate.BindReady()
}

// UnbindReady signals the readiness condition went away, initiating
// shutdown.
func (s *Service) UnbindReady() {
	s.gate.UnbindReady()
}

// State returns the gate's lifecycle state.
func (s *Service) State() SystemState {
	return s.gate.State()
}

// GetTopology returns the current topology view; it never fails. A view
// that could not be refreshed is returned flagged as not current.
func (s *Service) GetTopology() *TopologyView {
	return s.orchestrator.GetTopology()
}

// HandleTopologyEvent feeds a topology lifecycle event through the gate and
// out to listeners.
func (s *Service) HandleTopologyEvent(event TopologyEvent) {
	s.orchestrator.HandleTopologyEvent(event)
}

// AddListener registers a topology event listener; it immediately receives
// an init event with the current view.
func (s *Service) AddListener(listener TopologyEventListener) {
	s.orchestrator.AddListener(listener)
}

// RemoveListener unregisters a previously added listener.
func (s *Service) RemoveListener(listener TopologyEventListener) {
	s.orchestrator.RemoveListener(listener)
}

// OnIsolation installs the hook invoked when this instance discovers it is
// isolated from the topology.
func (s *Service) OnIsolation(handler IsolationHandler) {
	s.isolationMu.Lock()
	s.onIsolated = handler
	s.isolationMu.Unlock()
}

// Handler returns the HTTP handler peers ping with their announcements.
// Mount it at the connector path shared across the deployment.
func (s *Service) Handler() http.Handler {
	return s.handler
}

// Ping performs one announcement exchange with the peer connector at
// peerURL.
func (s *Service) Ping(ctx context.Context, peerURL string) error {
	return s.client.Ping(ctx, peerURL)
}

// Registry exposes the announcement registry, mainly for inspection.
func (s *Service) Registry() AnnouncementRegistry {
	return s.registry
}

func (s *Service) pingLoop(ctx context.Context, peers []string) {
	ticker := time.NewTicker(s.config.Connector.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.registry.Prune(time.Now())
			for _, peer := range peers {
				if err := s.client.Ping(ctx, peer); err != nil {
					s.logger.Warn("announcement ping failed", "peer", peer, "error", err)
				}
			}
		}
	}
}

func (s *Service) handleIsolated() {
	s.isolationMu.RLock()
	handler := s.onIsolated
	s.isolationMu.RUnlock()

	if handler != nil {
		handler()
	}
	s.logger.Warn("instance is isolated from topology")
}
