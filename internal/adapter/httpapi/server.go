package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
	"github.com/example/storefront/internal/usecase"
)

const (
	maxBodyBytes        = 1 << 20
	defaultReceiptLimit = 20
)

// Server exposes the cart engine to the catalog client and accepts host
// messages posted over HTTP.
type Server struct {
	Router   *mux.Router
	Engine   *usecase.Engine
	UCGet    usecase.GetCatalog
	UCHost   usecase.ProcessHostMessage
	Receipts domain.ReceiptRepository
	Logger   *zap.Logger
}

// NewServer builds the router. receipts may be nil; webDir, when set, is
// served as the catalog client.
func NewServer(engine *usecase.Engine, uc usecase.GetCatalog, receipts domain.ReceiptRepository, webDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		Router:   mux.NewRouter(),
		Engine:   engine,
		UCGet:    uc,
		UCHost:   usecase.ProcessHostMessage{Engine: engine},
		Receipts: receipts,
		Logger:   logger,
	}
	s.Router.Use(s.logRequests)

	api := s.Router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/catalog", s.handleCatalog).Methods(http.MethodGet)
	api.HandleFunc("/receipts", s.handleReceipts).Methods(http.MethodGet)
	api.HandleFunc("/host/message", s.handleHostMessage).Methods(http.MethodPost)

	api.HandleFunc("/cart/items/{item}", s.handleAdd).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{item}", s.handleRemove).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items/{item}", s.handleQuantity).Methods(http.MethodPatch)
	api.HandleFunc("/cart", s.handleClear).Methods(http.MethodDelete)

	api.HandleFunc("/checkout", s.handleBeginCheckout).Methods(http.MethodPost)
	api.HandleFunc("/checkout/pay/{method}", s.handlePay).Methods(http.MethodPost)
	api.HandleFunc("/checkout", s.handleCancelCheckout).Methods(http.MethodDelete)

	api.HandleFunc("/close", s.handleClose).Methods(http.MethodPost)
	api.HandleFunc("/keys/{key}", s.handleKey).Methods(http.MethodPost)

	if webDir != "" {
		s.Router.PathPrefix("/").Handler(http.FileServer(http.Dir(webDir)))
	}
	return s
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.View(r.Context())
	s.writeView(w, v, err)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.UCGet.Execute(q.Get("category"), q.Get("q")))
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	if s.Receipts == nil {
		http.Error(w, "receipt journal disabled", http.StatusNotFound)
		return
	}
	limit := defaultReceiptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	receipts, err := s.Receipts.Recent(r.Context(), limit)
	if err != nil {
		s.Logger.Error("list receipts", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleHostMessage(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if err := s.UCHost.Execute(r.Context(), raw); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.AddItem(r.Context(), mux.Vars(r)["item"])
	s.writeView(w, v, err)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.RemoveItem(r.Context(), mux.Vars(r)["item"])
	s.writeView(w, v, err)
}

type quantityRequest struct {
	Delta int `json:"delta"`
}

func (s *Server) handleQuantity(w http.ResponseWriter, r *http.Request) {
	var body quantityRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	v, err := s.Engine.ChangeQuantity(r.Context(), mux.Vars(r)["item"], body.Delta)
	s.writeView(w, v, err)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.ClearCart(r.Context())
	s.writeView(w, v, err)
}

func (s *Server) handleBeginCheckout(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.BeginCheckout(r.Context())
	s.writeView(w, v, err)
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.SelectPayment(r.Context(), mux.Vars(r)["method"])
	s.writeView(w, v, err)
}

func (s *Server) handleCancelCheckout(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.CancelCheckout(r.Context())
	s.writeView(w, v, err)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.Close(r.Context())
	s.writeView(w, v, err)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.KeyDown(r.Context(), mux.Vars(r)["key"])
	s.writeView(w, v, err)
}

type errorResponse struct {
	Error string        `json:"error"`
	View  *usecase.View `json:"view,omitempty"`
}

func (s *Server) writeView(w http.ResponseWriter, v usecase.View, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}
	code := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if code < http.StatusInternalServerError {
		resp.View = &v
	} else {
		s.Logger.Error("engine unavailable", zap.Error(err))
	}
	writeJSON(w, code, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrEngineStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}
