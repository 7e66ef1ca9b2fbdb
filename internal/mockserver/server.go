// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/vscan-tui/internal/logging"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultChatAddr is where the chat backend listens.
	DefaultChatAddr = ":5000"

	// DefaultUserAddr is where the user and scanner backend listens.
	DefaultUserAddr = ":3000"

	// DefaultChunkSize is the number of runes per streamed reply chunk.
	DefaultChunkSize = 16

	// DefaultChunkDelay paces streamed chunks.
	DefaultChunkDelay = 25 * time.Millisecond

	// DefaultRateLimit is requests per minute per client address.
	DefaultRateLimit = 600

	// MaxRequestBodySize bounds JSON requests.
	MaxRequestBodySize = 1 << 20

	// MaxUploadSize bounds multipart uploads.
	MaxUploadSize = 16 << 20

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 5 * time.Second
)

// ============================================================================
// OPTIONS
// ============================================================================

// Options configures the mock backends. Zero values take the defaults.
type Options struct {
	ChatAddr string
	UserAddr string

	// JWTSecret signs tokens; empty generates a random secret per run.
	JWTSecret string
	TokenTTL  time.Duration

	// ChunkSize and ChunkDelay shape streamed replies. A negative delay
	// streams without pausing.
	ChunkSize  int
	ChunkDelay time.Duration

	// BcryptCost for stored passwords (default bcrypt.DefaultCost).
	BcryptCost int

	// RateLimit is requests per minute per client; negative disables it.
	RateLimit int

	// OnResetCode receives password-reset codes, which a real backend would
	// email. The code is also logged at info level.
	OnResetCode func(email, code string)

	Logger *log.Logger
}

func (o *Options) fillDefaults() {
	if o.ChatAddr == "" {
		o.ChatAddr = DefaultChatAddr
	}
	if o.UserAddr == "" {
		o.UserAddr = DefaultUserAddr
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = DefaultTokenTTL
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkDelay == 0 {
		o.ChunkDelay = DefaultChunkDelay
	}
	if o.RateLimit == 0 {
		o.RateLimit = DefaultRateLimit
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Server hosts both mock backends over one shared store.
type Server struct {
	opts   Options
	store  *Store
	tokens *TokenIssuer
	logger *log.Logger

	chat *gin.Engine
	user *gin.Engine
}

// New creates a server. It does not listen until ListenAndServe.
func New(opts Options) (*Server, error) {
	opts.fillDefaults()
	if opts.ChatAddr == opts.UserAddr {
		return nil, fmt.Errorf("chat and user backends need different addresses, both are %s", opts.ChatAddr)
	}
	if opts.JWTSecret == "" {
		opts.JWTSecret = uuid.NewString()
		opts.Logger.Warn("no jwt secret configured, tokens will not survive a restart")
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		opts:   opts,
		store:  NewStore(opts.BcryptCost),
		tokens: NewTokenIssuer(opts.JWTSecret, opts.TokenTTL),
		logger: opts.Logger,
	}
	s.chat = s.newEngine("chat")
	s.user = s.newEngine("user")
	s.chatRoutes(s.chat)
	s.userRoutes(s.user)
	return s, nil
}

// newEngine builds a gin engine with the shared middleware chain.
func (s *Server) newEngine(backend string) *gin.Engine {
	e := gin.New()
	e.Use(
		recovery(s.logger),
		requestID(),
		requestLogger(s.logger, backend),
		securityHeaders(),
	)
	if s.opts.RateLimit > 0 {
		e.Use(rateLimit(NewRateLimiter(s.opts.RateLimit, time.Minute)))
	}
	e.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": backend})
	})
	return e
}

// Store returns the backing store.
func (s *Server) Store() *Store { return s.store }

// Tokens returns the token issuer.
func (s *Server) Tokens() *TokenIssuer { return s.tokens }

// ChatHandler serves the chat backend.
func (s *Server) ChatHandler() http.Handler { return s.chat }

// UserHandler serves the user and scanner backend.
func (s *Server) UserHandler() http.Handler { return s.user }

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves both backends until ctx is cancelled, then shuts
// them down gracefully. ready, when non-nil, is called with the bound
// addresses once both listeners are open.
func (s *Server) ListenAndServe(ctx context.Context, ready func(chatAddr, userAddr string)) error {
	chatLn, err := net.Listen("tcp", s.opts.ChatAddr)
	if err != nil {
		return fmt.Errorf("listen chat backend: %w", err)
	}
	userLn, err := net.Listen("tcp", s.opts.UserAddr)
	if err != nil {
		chatLn.Close()
		return fmt.Errorf("listen user backend: %w", err)
	}

	servers := []*http.Server{
		s.httpServer(s.chat),
		s.httpServer(s.user),
	}
	listeners := []net.Listener{chatLn, userLn}

	s.logger.Info("mock backends listening", "chat", chatLn.Addr().String(), "user", userLn.Addr().String())
	if ready != nil {
		ready(chatLn.Addr().String(), userLn.Addr().String())
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range servers {
		srv, ln := servers[i], listeners[i]
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("mock backends shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

func (s *Server) httpServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
