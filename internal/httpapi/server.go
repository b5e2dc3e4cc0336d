// Package httpapi exposes the lookup service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/yomitan-audio/internal/auth"
	"github.com/book-expert/yomitan-audio/internal/core"
	"github.com/book-expert/yomitan-audio/internal/service"
	"github.com/book-expert/yomitan-audio/internal/text"
)

const (
	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json"
	contentTypeMPEG   = "audio/mpeg"

	forwardedProtoHeader = "X-Forwarded-Proto"

	shutdownTimeout = 5 * time.Second

	errMsgInternal   = "Internal Server Error"
	errMsgBadRequest = "Bad Request"

	statusOK       = "ok"
	statusNotReady = "not_ready"
)

// Server serves the audio endpoints and health probes.
type Server struct {
	svc          *service.Service
	verifier     *auth.Verifier
	preprocessor *text.Preprocessor
	log          *logger.Logger
	baseURL      string
	ready        atomic.Bool
}

// New creates a Server. An empty baseURL derives playback URLs from each
// request's host.
func New(
	svc *service.Service,
	verifier *auth.Verifier,
	log *logger.Logger,
	baseURL string,
) *Server {
	return &Server{
		svc:          svc,
		verifier:     verifier,
		preprocessor: text.NewPreprocessor(),
		log:          log,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
	}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /audio/list", s.handleList)
	mux.HandleFunc("GET /audio/get/{source}/{file}", s.handleGet)
	mux.HandleFunc("GET /audio/get/{source}/{folder}/{file}", s.handleGet)
	mux.HandleFunc("GET /audio/tts", s.handleTTS)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleHealth)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, core.BadRequest(errMsgBadRequest))
	})

	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readHeaderTimeout time.Duration) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		s.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := server.Shutdown(shutdownCtx)
		if shutdownErr != nil {
			s.log.Warn("http_shutdown_failed: %v", shutdownErr)
		}
	}()

	s.log.System("http server listening on %s", addr)

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}

	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	err := s.verifier.Verify(query[paramAPIKey])
	if err != nil {
		s.writeError(w, err)

		return
	}

	term, reading, err := parseTermReading(query, s.preprocessor)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.log.Info("unpack_term_reading: term=%q reading=%q", term, reading)

	apiKey, _ := firstValue(query, paramAPIKey)

	resp, err := s.svc.List(r.Context(), service.ListRequest{
		Term:    term,
		Reading: reading,
		Sources: parseSources(query),
		BaseURL: s.publicBaseURL(r),
		APIKey:  apiKey,
	})
	if err != nil {
		s.writeError(w, err)

		return
	}

	w.Header().Set(contentTypeHeader, contentTypeJSON)
	w.WriteHeader(http.StatusOK)

	err = json.NewEncoder(w).Encode(resp)
	if err != nil {
		s.log.Warn("audio_list_encode_failed: %v", err)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	err := s.verifier.Verify(r.URL.Query()[paramAPIKey])
	if err != nil {
		s.writeError(w, err)

		return
	}

	file := r.PathValue("file")
	if folder := r.PathValue("folder"); folder != "" {
		file = folder + "/" + file
	}

	data, err := s.svc.Get(r.Context(), r.PathValue("source"), file)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeAudio(w, data)
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	err := s.verifier.Verify(query[paramAPIKey])
	if err != nil {
		s.writeError(w, err)

		return
	}

	term, reading, err := parseTermReading(query, s.preprocessor)
	if err != nil {
		s.writeError(w, err)

		return
	}

	data, err := s.svc.TTS(r.Context(), term, reading, parsePitch(query))
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeAudio(w, data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(contentTypeHeader, contentTypeJSON)

	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": statusNotReady})

		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": statusOK})
}

func (s *Server) writeAudio(w http.ResponseWriter, data []byte) {
	w.Header().Set(contentTypeHeader, contentTypeMPEG)
	w.WriteHeader(http.StatusOK)

	_, err := w.Write(data)
	if err != nil {
		s.log.Warn("audio_write_failed: %v", err)
	}
}

type errorBody struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// writeError answers with the classified status and message. Unclassified
// errors become 500 and their detail stays in the log.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := errMsgInternal

	var classified *core.Error
	if errors.As(err, &classified) {
		status = classified.Kind.Status()
		message = classified.Message

		if classified.Err != nil {
			s.log.Error("request_failed: status=%d: %v", status, err)
		}
	} else {
		s.log.Error("unhandled_error: %v", err)
	}

	w.Header().Set(contentTypeHeader, contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Status: status, Error: message})
}

// publicBaseURL is the configured base URL, or the request's own origin.
func (s *Server) publicBaseURL(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	if proto := r.Header.Get(forwardedProtoHeader); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host
}
