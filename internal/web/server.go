// Package web serves the live experiment state as an HTML page and as JSON.
package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/pi-experiments/internal/status"
)

// Server renders tracker snapshots on request.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	ln         net.Listener
	done       chan struct{}
}

// New creates a Server for addr. Nothing is bound until Listen.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /index.html", s.handlePage)
	mux.HandleFunc("GET /index.json", s.handleJSON)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routes without a listener, for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Listen binds the address and serves in the background. A bind failure
// is returned here rather than from the serving goroutine.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.httpServer.Addr
}

// Stop drains in-flight requests for up to timeout and waits for the
// serving goroutine to exit.
func (s *Server) Stop(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)
	if s.done != nil {
		<-s.done
	}
	return err
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(status.FormatJSON(s.tracker.Snapshot())); err != nil {
		log.Printf("write status json: %v", err)
	}
}
