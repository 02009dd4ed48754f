// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/asset-tokenizer/internal/allocator"
	"github.com/asset-tokenizer/internal/service"
	"github.com/asset-tokenizer/internal/storage"
)

// TokenizationServiceInterface defines the service operations the server
// exposes; the concrete service is injected for testability.
type TokenizationServiceInterface interface {
	AddAsset(ctx context.Context, caller string, input service.AddAssetInput) (*service.AssetView, error)
	GetAsset(ctx context.Context, id int) (*service.AssetView, error)
	ListAssets(ctx context.Context) ([]*service.AssetView, error)
	FillableStats(ctx context.Context) (*storage.FillableStats, error)
	EditAsset(ctx context.Context, caller, tokenID string, input service.EditAssetInput) (*service.AssetView, error)
	FundAsset(ctx context.Context, caller string, assetID int, amount decimal.Decimal) (*service.AssetView, error)
	InvestVehicle(ctx context.Context, investor string, amount decimal.Decimal, tokenID string) ([]*allocator.Investment, error)
	InvestPortfolio(ctx context.Context, investor string, amount decimal.Decimal) ([]*allocator.Investment, error)
	GetInvestment(ctx context.Context, id int) (*allocator.Investment, error)
	Portfolio(ctx context.Context, account string) (*service.PortfolioView, error)
	RedeemPortfolio(ctx context.Context, account string, amount decimal.Decimal) (*service.PortfolioView, error)
	ClaimFunds(ctx context.Context, caller, tokenID string) (*service.ClaimResult, error)
	TokenBalance(ctx context.Context, tokenID, account string) (decimal.Decimal, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	service    TokenizationServiceInterface
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	FreeTierRPS     int // Requests per second for free tier
	PaidTierRPS     int // Requests per second for paid tier
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, svc TokenizationServiceInterface) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		service: svc,
		config:  config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.FreeTierRPS, s.config.PaidTierRPS)

	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter)) // Rate limiting after CORS
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Asset endpoints
	s.router.HandleFunc("/assets", s.handleAddAsset).Methods("POST")
	s.router.HandleFunc("/assets", s.handleListAssets).Methods("GET")
	s.router.HandleFunc("/assets/{id:[0-9]+}", s.handleGetAsset).Methods("GET")
	s.router.HandleFunc("/assets/{tokenID}", s.handleEditAsset).Methods("PUT")
	s.router.HandleFunc("/assets/{id:[0-9]+}/fund", s.handleFundAsset).Methods("POST")

	// Investment endpoints
	s.router.HandleFunc("/invest/vehicle", s.handleInvestVehicle).Methods("POST")
	s.router.HandleFunc("/invest/portfolio", s.handleInvestPortfolio).Methods("POST")
	s.router.HandleFunc("/investments/{id:[0-9]+}", s.handleGetInvestment).Methods("GET")

	// Portfolio endpoints
	s.router.HandleFunc("/portfolio/redeem", s.handleRedeemPortfolio).Methods("POST")
	s.router.HandleFunc("/portfolio/{account}", s.handleGetPortfolio).Methods("GET")

	// Token endpoints
	s.router.HandleFunc("/tokens/{tokenID}/claim", s.handleClaimFunds).Methods("POST")
	s.router.HandleFunc("/tokens/{tokenID}/balance/{account}", s.handleTokenBalance).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "asset-tokenizer",
	})
}

// Router returns the configured router, primarily for testing.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
