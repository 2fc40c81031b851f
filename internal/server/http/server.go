package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/epiview/epiview/internal/catalog"
	"github.com/epiview/epiview/internal/runtime"
	browsesvc "github.com/epiview/epiview/internal/services/browse"
	episodesvc "github.com/epiview/epiview/internal/services/episodes"
	logpkg "github.com/epiview/epiview/pkg/log"
)

type Server struct {
	rt      *runtime.Runtime
	eps     *episodesvc.Service
	session *browsesvc.Session
	logger  logpkg.Logger
	srv     *http.Server
	lis     net.Listener
}

func New(rt *runtime.Runtime, eps *episodesvc.Service, session *browsesvc.Session, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	mux := http.NewServeMux()
	s := &Server{
		rt:      rt,
		eps:     eps,
		session: session,
		logger:  logger.WithComponent("http"),
		srv:     &http.Server{Handler: cors(mux)},
	}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/episodes", s.handleEpisodes)
	mux.HandleFunc("/v1/episodes/watch", s.handleWatchSSE)
	mux.HandleFunc("/v1/refresh", s.handleRefresh)
	mux.HandleFunc("/v1/filter", s.handleFilter)
	mux.HandleFunc("/v1/status", s.handleStatus)
	return s
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http.listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// watchOptions resolves the category and filter for a request. An absent
// category query falls back to the session selector.
func (s *Server) watchOptions(r *http.Request) (episodesvc.WatchOptions, bool, error) {
	opts := episodesvc.WatchOptions{
		Category: s.session.Category(),
		Filter:   r.URL.Query().Get("filter"),
	}
	explicit := false
	if v := r.URL.Query().Get("category"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, false, err
		}
		opts.Category = n
		explicit = true
	}
	return opts, explicit, nil
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	opts, _, err := s.watchOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}
	eps, err := s.eps.Snapshot(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if eps == nil {
		eps = []catalog.Episode{}
	}
	writeJSON(w, map[string]any{"episodes": eps})
}

type sseSink struct {
	w http.ResponseWriter
}

func (s sseSink) Send(eps []catalog.Episode) error {
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if err := json.NewEncoder(s.w).Encode(map[string]any{"episodes": eps}); err != nil {
		return err
	}
	_, err := s.w.Write([]byte("\n"))
	return err
}

func (s sseSink) Flush() {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) handleWatchSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	opts, explicit, err := s.watchOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	var ch <-chan []catalog.Episode
	if explicit || opts.Filter != "" {
		ch, err = s.eps.Watch(r.Context(), opts)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		ch = s.session.Watch(r.Context())
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sink := sseSink{w: w}
	for {
		select {
		case <-r.Context().Done():
			return
		case eps, ok := <-ch:
			if !ok {
				return
			}
			if err := sink.Send(eps); err != nil {
				return
			}
			sink.Flush()
		}
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.session.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type filterReq struct {
	Category int `json:"category"`
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req filterReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		s.session.SetCategory(r.Context(), req.Category)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		s.session.ClearCategory(r.Context())
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := map[string]any{
		"loading":  s.session.Loading(),
		"category": s.session.Category(),
	}
	if msg, ok := s.session.ConsumeError(); ok {
		status["error"] = msg
	}
	writeJSON(w, status)
}
