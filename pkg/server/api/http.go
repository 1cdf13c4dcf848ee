// Package api provides the HTTP and WebSocket surfaces of the price engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TejasMate/Quantra-sub003/pkg/logging"
	"github.com/TejasMate/Quantra-sub003/pkg/metrics"
	"github.com/TejasMate/Quantra-sub003/pkg/server/engine"
	"github.com/TejasMate/Quantra-sub003/pkg/server/security"
)

// Server is the HTTP API server.
type Server struct {
	addr    string
	engine  *engine.Engine
	apiKeys map[string]string // bearer key -> caller identity
	logger  *logging.Logger
	server  *http.Server
	tlsCert string
	tlsKey  string
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, eng *engine.Engine, apiKeys map[string]string, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Server{
		addr:    addr,
		engine:  eng,
		apiKeys: apiKeys,
		logger:  logger,
	}
}

// SetTLS makes Start serve HTTPS with the given certificate and key files.
func (s *Server) SetTLS(certFile, keyFile string) {
	s.tlsCert = certFile
	s.tlsKey = keyFile
}

// Handler returns the routed API handler. Assets containing '/' must be
// percent-encoded in paths (ETH%2FUSD).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "GET /health", s.handleHealth)
	s.handle(mux, "GET /v1/prices/{asset}", s.handleSecurePrice)
	s.handle(mux, "GET /v1/prices/{asset}/latest", s.handleLatestPrice)
	s.handle(mux, "GET /v1/feeds/{asset}", s.handleFeeds)
	s.handle(mux, "GET /v1/feeds/{asset}/{index}", s.handleFeed)
	s.handle(mux, "GET /v1/security/{asset}", s.handleSecurity)
	s.handle(mux, "POST /v1/admin/pause", s.handlePause)
	s.handle(mux, "POST /v1/admin/unpause", s.handleUnpause)
	s.handle(mux, "POST /v1/admin/breaker/reset", s.handleBreakerReset)
	s.handle(mux, "PUT /v1/admin/breaker", s.handleBreakerConfigure)
	s.handle(mux, "POST /v1/admin/feeds/{asset}/{index}/remove", s.handleFeedRemove)
	s.handle(mux, "POST /v1/admin/feeds/{asset}/{index}/reactivate", s.handleFeedReactivate)
	s.handle(mux, "PUT /v1/admin/params", s.handleParams)
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr, "tls", s.tlsCert != "")
	var err error
	if s.tlsCert != "" {
		err = s.server.ListenAndServeTLS(s.tlsCert, s.tlsKey)
	} else {
		err = s.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// handle registers h, recording request metrics and resolving the caller.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	endpoint := pattern[strings.Index(pattern, " ")+1:]
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			metrics.RecordHTTPRequest(endpoint, strconv.Itoa(rec.status), time.Since(start))
		}()

		caller, ok := s.caller(r)
		if !ok {
			s.sendError(rec, http.StatusUnauthorized, "invalid API key")
			return
		}
		h(rec, r.WithContext(engine.WithCaller(r.Context(), caller)))
	})
}

// caller maps a bearer key to its identity. Requests without a key are
// identified by remote host.
func (s *Server) caller(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		return "anonymous:" + host, true
	}
	key, found := strings.CutPrefix(auth, "Bearer ")
	if !found {
		return "", false
	}
	identity, ok := s.apiKeys[strings.TrimSpace(key)]
	return identity, ok
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"paused":          s.engine.Paused(),
		"circuit_breaker": s.engine.BreakerStatus(),
		"emergency":       s.engine.EmergencyEnabled(),
	})
}

// PriceResponse is returned by the price endpoints. Price is in whole units,
// RawPrice in engine fixed-point units.
type PriceResponse struct {
	Asset      string     `json:"asset"`
	Price      string     `json:"price"`
	RawPrice   string     `json:"raw_price"`
	Decimals   uint8      `json:"decimals"`
	Confidence uint32     `json:"confidence"`
	Emergency  bool       `json:"emergency,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Valid      *bool      `json:"valid,omitempty"`
}

func (s *Server) priceResponse(asset string, raw decimal.Decimal, confidence uint32) PriceResponse {
	dec := s.engine.PriceDecimals()
	return PriceResponse{
		Asset:      asset,
		Price:      raw.Shift(-int32(dec)).StringFixed(int32(dec)),
		RawPrice:   raw.String(),
		Decimals:   dec,
		Confidence: confidence,
	}
}

func (s *Server) handleSecurePrice(w http.ResponseWriter, r *http.Request) {
	asset := r.PathValue("asset")
	quote, err := s.engine.GetSecurePrice(r.Context(), asset)
	if err != nil {
		s.sendEngineError(w, err)
		return
	}
	resp := s.priceResponse(asset, quote.Price, quote.Confidence)
	resp.Emergency = quote.Emergency
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestPrice(w http.ResponseWriter, r *http.Request) {
	asset := r.PathValue("asset")
	latest := s.engine.GetLatestPrice(asset)
	resp := s.priceResponse(asset, latest.Price, latest.Confidence)
	resp.Valid = &latest.Valid
	if !latest.Timestamp.IsZero() {
		resp.Timestamp = &latest.Timestamp
	}
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeeds(w http.ResponseWriter, r *http.Request) {
	asset := r.PathValue("asset")
	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"asset": asset,
		"count": s.engine.FeedCount(asset),
		"feeds": s.engine.Feeds(asset),
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	index, ok := s.pathIndex(w, r)
	if !ok {
		return
	}
	info, err := s.engine.FeedInfo(r.PathValue("asset"), index)
	if err != nil {
		s.sendEngineError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, info)
}

func (s *Server) handleSecurity(w http.ResponseWriter, r *http.Request) {
	asset := r.PathValue("asset")
	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"asset":           asset,
		"metrics":         s.engine.Metrics(asset),
		"params":          paramsBody(s.engine.SecurityParams()),
		"circuit_breaker": s.engine.BreakerStatus(),
		"paused":          s.engine.Paused(),
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.sendAdminResult(w, s.engine.Pause(r.Context()))
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	s.sendAdminResult(w, s.engine.Unpause(r.Context()))
}

func (s *Server) handleBreakerReset(w http.ResponseWriter, r *http.Request) {
	s.sendAdminResult(w, s.engine.ResetCircuitBreaker(r.Context()))
}

func (s *Server) handleBreakerConfigure(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Cooldown string `json:"cooldown"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cooldown, err := time.ParseDuration(body.Cooldown)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid cooldown")
		return
	}
	s.sendAdminResult(w, s.engine.ConfigureCircuitBreaker(r.Context(), cooldown))
}

func (s *Server) handleFeedRemove(w http.ResponseWriter, r *http.Request) {
	index, ok := s.pathIndex(w, r)
	if !ok {
		return
	}
	s.sendAdminResult(w, s.engine.RemoveFeed(r.Context(), r.PathValue("asset"), index))
}

func (s *Server) handleFeedReactivate(w http.ResponseWriter, r *http.Request) {
	index, ok := s.pathIndex(w, r)
	if !ok {
		return
	}
	s.sendAdminResult(w, s.engine.ReactivateFeed(r.Context(), r.PathValue("asset"), index))
}

// ParamsBody is the JSON form of security.Params.
type ParamsBody struct {
	MaxPriceDeviationBps uint32 `json:"max_price_deviation_bps"`
	MinConfidenceBps     uint32 `json:"min_confidence_bps"`
	MaxPriceAge          string `json:"max_price_age"`
	SuspiciousThreshold  uint32 `json:"suspicious_threshold"`
}

func paramsBody(p security.Params) ParamsBody {
	return ParamsBody{
		MaxPriceDeviationBps: p.MaxPriceDeviationBps,
		MinConfidenceBps:     p.MinConfidenceBps,
		MaxPriceAge:          p.MaxPriceAge.String(),
		SuspiciousThreshold:  p.SuspiciousThreshold,
	}
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	var body ParamsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	maxAge, err := time.ParseDuration(body.MaxPriceAge)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid max_price_age")
		return
	}
	s.sendAdminResult(w, s.engine.UpdateSecurityParams(r.Context(), security.Params{
		MaxPriceDeviationBps: body.MaxPriceDeviationBps,
		MinConfidenceBps:     body.MinConfidenceBps,
		MaxPriceAge:          maxAge,
		SuspiciousThreshold:  body.SuspiciousThreshold,
	}))
}

func (s *Server) pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid feed index")
		return 0, false
	}
	return index, true
}

func (s *Server) sendAdminResult(w http.ResponseWriter, err error) {
	if err != nil {
		s.sendEngineError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, engine.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidPrice),
		errors.Is(err, engine.ErrLowConfidence),
		errors.Is(err, engine.ErrManipulationDetected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrFallbackUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, engine.ErrPaused),
		errors.Is(err, engine.ErrCircuitBreakerOpen),
		errors.Is(err, engine.ErrNoValidFeeds):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) sendEngineError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("Request failed", "error", err)
	}
	s.sendJSON(w, status, map[string]string{
		"error":  err.Error(),
		"reason": engine.ErrorReason(err),
	})
}

func (s *Server) sendError(w http.ResponseWriter, status int, msg string) {
	s.sendJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
