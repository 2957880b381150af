package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quietdrop/internal/errs"
	"quietdrop/internal/model"
	"quietdrop/internal/protocol/envelope"
	"quietdrop/internal/repository/account"
	"quietdrop/internal/service/credential"
	"quietdrop/internal/utils/log"
)

type (
	// API serves the server public key, account registration and a
	// WebSocket entry point that carries one envelope per connection.
	API struct {
		server      *Server
		publicKey   model.PublicKey
		credentials *credential.Service
		upgrader    websocket.Upgrader
	}

	credentialsRequest struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	serverKeyResponse struct {
		PublicKey model.PublicKey `json:"public_key"`
	}

	verifyResponse struct {
		OK bool `json:"ok"`
	}
)

func NewAPI(srv *Server, pub model.PublicKey, creds *credential.Service) *API {
	return &API{
		server:      srv,
		publicKey:   pub,
		credentials: creds,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
	}
}

func (a *API) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/keys/server", a.GetServerKey()).Methods(http.MethodGet)
	r.HandleFunc("/accounts", a.Register()).Methods(http.MethodPost)
	r.HandleFunc("/accounts/verify", a.Verify()).Methods(http.MethodPost)
	r.HandleFunc("/ws", a.HandleWS()).Methods(http.MethodGet)
	return r
}

// ListenAndServe runs the API until ctx is done.
func (a *API) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %v: %w", addr, err, errs.ErrTransport)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", zap.String("addr", l.Addr().String()))
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve api: %v: %w", err, errs.ErrTransport)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *API) GetServerKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, &serverKeyResponse{PublicKey: a.publicKey})
	}
}

func (a *API) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		acc, err := a.credentials.Register(r.Context(), req.Name, req.Password)
		switch {
		case errors.Is(err, credential.ErrInvalidCredentials):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, account.ErrExists):
			http.Error(w, "account already exists", http.StatusConflict)
			return
		case err != nil:
			log.Error("register failed", zap.String("name", req.Name), zap.Error(err))
			http.Error(w, "register failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, acc)
	}
}

func (a *API) Verify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		ok, err := a.credentials.Authenticate(r.Context(), req.Name, req.Password)
		if err != nil {
			log.Error("verify failed", zap.String("name", req.Name), zap.Error(err))
			http.Error(w, "verify failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, &verifyResponse{OK: ok})
	}
}

// HandleWS accepts exactly one envelope per WebSocket, with the same gate,
// decrypt and acknowledgment rules as the TCP listener.
func (a *API) HandleWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// WebSocket connections count against the same MaxConns as TCP.
		if !a.server.sem.TryAcquire(1) {
			log.Warn("websocket rejected", zap.String("peer", r.RemoteAddr), zap.Error(ErrBusy))
			http.Error(w, "server busy", http.StatusServiceUnavailable)
			return
		}
		defer a.server.sem.Release(1)

		if err := a.server.admit(r.Context(), r.RemoteAddr); err != nil {
			log.Warn("websocket rejected", zap.String("peer", r.RemoteAddr), zap.Error(err))
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		conn, err := a.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		conn.SetReadLimit(envelope.MaxFrameSize)
		if a.server.ioTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(a.server.ioTimeout))
			_ = conn.SetWriteDeadline(time.Now().Add(a.server.ioTimeout))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug("websocket closed before envelope", zap.String("peer", r.RemoteAddr), zap.Error(err))
			return
		}

		env, err := envelope.Unmarshal(data)
		if err != nil {
			log.Error("unmarshal envelope failed", zap.String("peer", r.RemoteAddr), zap.Error(err))
			return
		}
		if err := a.server.deliver(env); err != nil {
			log.Error("decrypt envelope failed",
				zap.String("peer", r.RemoteAddr), zap.NamedError("kind", errs.Kind(err)), zap.Error(err))
			return
		}

		if err := conn.WriteMessage(websocket.TextMessage, []byte(envelope.Ack)); err != nil {
			log.Error("send acknowledgment failed", zap.String("peer", r.RemoteAddr), zap.Error(err))
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("marshal response failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
