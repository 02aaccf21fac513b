package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kipsangc/ramphub/internal/api/handler"
	"github.com/kipsangc/ramphub/internal/api/middleware"
	"github.com/kipsangc/ramphub/internal/api/spec"
	"github.com/kipsangc/ramphub/internal/config"
	"github.com/kipsangc/ramphub/internal/contract"
	"github.com/kipsangc/ramphub/internal/gateway"
	"github.com/kipsangc/ramphub/internal/idempotency"
	"github.com/kipsangc/ramphub/internal/repository"
	"github.com/kipsangc/ramphub/internal/service"
)

// Router assembles the HTTP surface: public discovery and callback routes,
// then the authenticated transaction and investment routes.
type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	repo      *repository.Repository
	idemStore *idempotency.Store
	redis     redis.Cmdable

	ramp        *service.RampService
	callbacks   *service.CallbackService
	investments *service.InvestmentService
	rates       *service.RateService
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *pgxpool.Pool,
	repo *repository.Repository,
	idemStore *idempotency.Store,
	redisClient redis.Cmdable,
) *Router {
	contractGW := newContractGateway(cfg)

	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		repo:      repo,
		idemStore: idemStore,
		redis:     redisClient,
		ramp: service.NewRampService(repo, newGateways(cfg), contractGW, repo, service.RampConfig{
			Currency:       cfg.FiatCurrency,
			MinFiatAmount:  cfg.MinFiatAmount,
			MaxFiatAmount:  cfg.MaxFiatAmount,
			GatewayTimeout: cfg.GatewayTimeout,
		}),
		callbacks:   service.NewCallbackService(repo, contractGW, cfg.CallbackHMACKey, cfg.CallbackSkipSig),
		investments: service.NewInvestmentService(repo),
		rates:       service.NewRateService(contractGW, redisClient, cfg.RateCacheTTL),
	}
}

// newGateways builds the configured payment providers. The mock provider is
// always registered under its own name so staging can exercise the full flow
// without spending money.
func newGateways(cfg *config.Config) map[string]gateway.Gateway {
	client := &http.Client{Timeout: cfg.GatewayTimeout}
	gateways := map[string]gateway.Gateway{"mock": gateway.NewMock()}

	switch cfg.PaymentProvider {
	case "mock":
	default:
		gateways["mpesa"] = gateway.NewMpesa(gateway.MpesaConfig{
			BaseURL:            cfg.MpesaBaseURL,
			ConsumerKey:        cfg.MpesaConsumerKey,
			ConsumerSecret:     cfg.MpesaConsumerSecret,
			ShortCode:          cfg.MpesaShortCode,
			PassKey:            cfg.MpesaPassKey,
			InitiatorName:      cfg.MpesaInitiatorName,
			SecurityCredential: cfg.MpesaSecurityCred,
			CallbackURL:        cfg.MpesaCallbackURL,
			ResultURL:          cfg.MpesaResultURL,
			TimeoutURL:         cfg.MpesaTimeoutURL,
		}, client)
		if cfg.IntersendBaseURL != "" {
			gateways["intersend"] = gateway.NewIntersend(gateway.IntersendConfig{
				BaseURL: cfg.IntersendBaseURL,
				APIKey:  cfg.IntersendAPIKey,
			}, client)
		}
	}
	return gateways
}

func newContractGateway(cfg *config.Config) contract.Gateway {
	if cfg.ContractRelayBaseURL == "" {
		return contract.NewMock()
	}
	return contract.NewRelay(contract.RelayConfig{
		BaseURL: cfg.ContractRelayBaseURL,
		APIKey:  cfg.ContractRelayAPIKey,
	}, &http.Client{Timeout: 15 * time.Second})
}

// Drain waits for background work spawned by request handling, currently
// the contract status mirrors. Called after the HTTP server has stopped.
func (api *Router) Drain() {
	api.callbacks.WaitMirrors()
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	authHandler := handler.NewAuthHandler(api.repo)
	userHandler := handler.NewUserHandler(api.repo)
	rampHandler := handler.NewRampHandler(api.ramp, api.rates)
	callbackHandler := handler.NewCallbackHandler(api.callbacks)
	investmentHandler := handler.NewInvestmentHandler(api.investments)

	// Infrastructure endpoints, no rate limit.
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())

	// Public routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Post("/v1/auth/login", authHandler.Login)
		r.Post("/v1/users", userHandler.CreateUser)

		r.Get("/v1/rates", rampHandler.GetRates)
		r.Post("/v1/rates/quote", rampHandler.Quote)
		r.Get("/v1/config", rampHandler.GetConfig)
		r.Get("/v1/stats", rampHandler.GetStats)

		// Provider callbacks authenticate with an HMAC signature instead
		// of a bearer token.
		r.Post("/v1/callbacks/provider", callbackHandler.Provider)
		r.Post("/v1/callbacks/mpesa/stk", callbackHandler.MpesaSTK)
		r.Post("/v1/callbacks/mpesa/result", callbackHandler.MpesaB2C)
	})

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		idem := middleware.IdempotencyMiddleware(api.idemStore, api.logger)

		r.With(idem).Post("/v1/transactions/onramp", rampHandler.InitiateOnRamp)
		r.With(idem).Post("/v1/transactions/offramp", rampHandler.InitiateOffRamp)
		r.Get("/v1/transactions", rampHandler.ListTransactions)
		r.Get("/v1/transactions/{id}", rampHandler.GetTransaction)

		r.With(idem).Post("/v1/students", investmentHandler.RegisterStudent)
		r.Get("/v1/students/me", investmentHandler.GetProfile)
		r.With(middleware.RequireRole("admin")).Post("/v1/students/{id}/verify", investmentHandler.VerifyStudent)

		r.With(idem).Post("/v1/investments", investmentHandler.CreateInvestment)
		r.Get("/v1/investments", investmentHandler.ListInvestments)
		r.Get("/v1/investments/stats", investmentHandler.GetStats)
		r.Get("/v1/investments/{id}", investmentHandler.GetInvestment)
		r.With(idem).Post("/v1/investments/{id}/withdraw", investmentHandler.RequestWithdrawal)
		r.With(idem).Post("/v1/investments/{id}/withdraw/complete", investmentHandler.CompleteWithdrawal)
		r.With(idem).Post("/v1/investments/{id}/cancel", investmentHandler.CancelInvestment)
	})

	return r
}
