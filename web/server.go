// Package web serves the studio as a single local web page backed by a small
// JSON API. Every browser gets its own view switcher, identified by a cookie,
// and receives state snapshots over a websocket whenever its page changes.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mhpenta/genstudio"
	"github.com/mhpenta/genstudio/view"
)

const (
	clientCookie    = "genstudio_client"
	shutdownTimeout = 10 * time.Second

	// DefaultClientIdleTimeout is how long a browser's page is kept after its
	// last request once it has no open websocket.
	DefaultClientIdleTimeout = 30 * time.Minute
)

type Config struct {
	Addr    string
	Gateway genstudio.Gateway
	Logger  zerolog.Logger

	// ClientIdleTimeout defaults to DefaultClientIdleTimeout.
	ClientIdleTimeout time.Duration
}

// Server owns the per-browser state of the web front end.
type Server struct {
	// ctx bounds provider calls that outlive the request that started them.
	ctx      context.Context
	addr     string
	gateway  genstudio.Gateway
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	idleTimeout time.Duration

	mu      sync.Mutex
	clients map[string]*client
}

// client is one browser: its page state and its open websockets.
type client struct {
	id       string
	switcher *view.Switcher
	pool     *connPool

	// lastSeen is guarded by Server.mu.
	lastSeen time.Time
}

func (c *client) encodeSnapshot() ([]byte, error) {
	return json.Marshal(c.switcher.Snapshot())
}

// New returns a Server. Background provider calls run under ctx.
func New(ctx context.Context, config Config) (*Server, error) {
	if ctx == nil {
		return nil, errors.New("ctx is nil")
	}
	if config.Gateway == nil {
		return nil, errors.New("gateway is nil")
	}
	idle := config.ClientIdleTimeout
	if idle <= 0 {
		idle = DefaultClientIdleTimeout
	}
	return &Server{
		ctx:         ctx,
		addr:        config.Addr,
		gateway:     config.Gateway,
		logger:      config.Logger.With().Str("component", "web").Logger(),
		idleTimeout: idle,
		clients:     map[string]*client{},
	}, nil
}

// Handler returns the routes of the web front end.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("POST /api/view", s.handleView)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/image", s.handleImage)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Run serves HTTP on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s.logger.Info().Str("addr", s.addr).Msg("starting web server")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})

	eg.Go(func() error {
		ticker := time.NewTicker(s.idleTimeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				s.evictIdle(now)
			}
		}
	})

	eg.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down web server")
		s.closeAll()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	return eg.Wait()
}

// clientFor returns the browser's client, creating one and setting its
// cookie when the request carries none or an unknown id. A new client's
// conversation is mounted before it is returned.
func (s *Server) clientFor(w http.ResponseWriter, r *http.Request) *client {
	if c, ok := s.lookup(r); ok {
		return c
	}

	c := &client{
		id:       uuid.NewString(),
		switcher: view.NewSwitcher(s.gateway),
	}
	c.pool = newConnPool(c.id, s.logger)
	if err := c.switcher.Mount(r.Context()); err != nil {
		s.logger.Error().Err(err).Str("client_id", c.id).Msg("chat session failed to start")
	}

	s.mu.Lock()
	c.lastSeen = time.Now()
	s.clients[c.id] = c
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    c.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Debug().Str("client_id", c.id).Msg("new client")
	return c
}

func (s *Server) lookup(r *http.Request) (*client, bool) {
	cookie, err := r.Cookie(clientCookie)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[cookie.Value]
	if ok {
		c.lastSeen = time.Now()
	}
	return c, ok
}

func (s *Server) touch(c *client) {
	s.mu.Lock()
	c.lastSeen = time.Now()
	s.mu.Unlock()
}

// evictIdle forgets browsers with no open websocket whose last request is
// older than the idle timeout. It returns how many were removed.
func (s *Server) evictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, c := range s.clients {
		if c.pool.count() > 0 || now.Sub(c.lastSeen) < s.idleTimeout {
			continue
		}
		delete(s.clients, id)
		evicted++
		s.logger.Debug().Str("client_id", id).Msg("evicted idle client")
	}
	return evicted
}

// publish pushes the client's current page to its websockets.
func (s *Server) publish(c *client) {
	c.pool.broadcast(c.encodeSnapshot)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		c.pool.closeAll()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
