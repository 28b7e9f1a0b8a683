package connector

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/eleven-am/meshview/internal/adapters/trust"
	"github.com/eleven-am/meshview/internal/domain"
	"github.com/eleven-am/meshview/internal/ports"
)

// maxBodyBytes bounds announcement bodies; topologies this layer serves stay
// far below it.
const maxBodyBytes = 1 << 20

// Handler is the receiving side of the announcement exchange. A peer PUTs
// its (possibly encrypted) announcement; the handler verifies the trust
// envelope, registers the announcement, and replies with the local
// announcement wrapped the same way.
//
// Untrusted or malformed requests are rejected with a bare status code and
// no detail.
type Handler struct {
	validator *trust.Validator
	registry  ports.AnnouncementRegistry
	builder   *Builder
	logger    *slog.Logger
}

func NewHandler(validator *trust.Validator, registry ports.AnnouncementRegistry, builder *Builder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		validator: validator,
		registry:  registry,
		builder:   builder,
		logger:    logger.With("component", "connector-handler"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Debug("failed to read announcement body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !h.validator.IsTrustedRequest(r, string(body)) {
		h.logger.Info("rejected untrusted announcement", "remote", r.RemoteAddr, "path", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	plaintext, err := h.validator.DecodeMessage(string(body))
	if err != nil {
		h.logger.Info("failed to decode announcement", "remote", r.RemoteAddr, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	incoming, err := domain.DecodeAnnouncement([]byte(plaintext))
	if err != nil {
		h.logger.Info("malformed announcement payload", "remote", r.RemoteAddr, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.registry.Register(incoming); err != nil {
		h.logger.Warn("failed to register announcement", "origin", incoming.OriginID, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.logger.Debug("registered peer announcement", "origin", incoming.OriginID)

	reply, err := h.builder.Build(r.URL.Path)
	if err != nil {
		// The local cluster view is momentarily undefined; the peer retries
		// on its next ping.
		h.logger.Info("cannot build local announcement", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	encoded, err := reply.Encode()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	wire, err := h.validator.EncodeMessage(string(encoded))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.validator.TrustResponse(w, r, wire)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, wire)
}
