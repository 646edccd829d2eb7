package api

import (
	"context"
	"net/http"

	"github.com/evetabi/easybet/internal/api/handler"
	"github.com/evetabi/easybet/internal/api/middleware"
	"github.com/evetabi/easybet/internal/config"
	"github.com/evetabi/easybet/internal/service"
	"github.com/evetabi/easybet/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc       *service.AuthService
	ActivitySvc   *service.ActivityService
	TicketSvc     *service.TicketService
	SettlementSvc *service.SettlementService
	OrderSvc      *service.OrderBookService
	WalletSvc     *service.WalletService
	Hub           *ws.Hub
	Cfg           *config.Config

	// Checks are probed by /health, keyed by dependency name.
	Checks map[string]HealthCheck

	// Ctx bounds the rate limiter janitors; nil means they never stop.
	Ctx context.Context
}

// SetupRouter creates the public gin engine with all routes and middleware,
// wrapped in the CORS handler.
func SetupRouter(deps RouterDeps) http.Handler {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", HealthHandler(deps.Checks))

	// ── Handlers ─────────────────────────────────────────────────────────────
	userH := handler.NewUserHandler(deps.AuthSvc, deps.WalletSvc)
	activityH := handler.NewActivityHandler(deps.ActivitySvc, deps.TicketSvc, deps.SettlementSvc)
	ticketH := handler.NewTicketHandler(deps.TicketSvc, deps.OrderSvc)
	orderH := handler.NewOrderHandler(deps.OrderSvc)
	walletH := handler.NewWalletHandler(deps.WalletSvc)

	// ── JWT middleware (shared) ──────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)

	// ── Rate limiters ────────────────────────────────────────────────────────
	authRL := middleware.NewRateLimiter(10)  // per IP, auth endpoints
	writeRL := middleware.NewRateLimiter(30) // per user, value-moving endpoints
	if deps.Ctx != nil {
		go authRL.RunJanitor(deps.Ctx)
		go writeRL.RunJanitor(deps.Ctx)
	}

	api := r.Group("/api")
	{
		// ── Auth (public, strict rate limit) ─────────────────────────────────
		auth := api.Group("/auth")
		auth.Use(authRL.Middleware())
		{
			auth.POST("/register", userH.Register)
			auth.POST("/login", userH.Login)
			auth.POST("/refresh", userH.Refresh)
		}

		// ── Public reads ─────────────────────────────────────────────────────
		api.GET("/activities", activityH.List)
		api.GET("/activities/count", activityH.Count)
		api.GET("/activities/:id", activityH.Get)
		api.GET("/activities/:id/choices/:choice/amount", activityH.ChoiceAmount)
		api.GET("/activities/:id/choices/:choice/count", activityH.ChoiceCount)
		api.GET("/activities/:id/tickets", activityH.Tickets)
		api.GET("/tickets/:id", ticketH.Get)
		api.GET("/tickets/:id/orders", ticketH.OrderBook)
		api.GET("/orders", orderH.ListActive)
		api.GET("/orders/:id", orderH.Get)

		// ── Authenticated routes ─────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			authed.GET("/me", userH.Me)
			authed.GET("/me/tickets", ticketH.Mine)

			writes := authed.Group("")
			writes.Use(writeRL.Middleware())
			{
				writes.POST("/activities", activityH.Create)
				writes.POST("/activities/:id/tickets", activityH.BuyTicket)
				writes.POST("/activities/:id/settle", activityH.Settle)
				writes.POST("/tickets/:id/transfer", ticketH.Transfer)
				writes.POST("/orders", orderH.Create)
				writes.POST("/orders/:id/fill", orderH.Fill)
				writes.POST("/orders/:id/cancel", orderH.Cancel)
				writes.POST("/wallet/approve", walletH.Approve)
			}

			wallet := authed.Group("/wallet")
			{
				wallet.GET("/balance", walletH.GetBalance)
				wallet.GET("/transactions", walletH.GetTransactions)
			}
		}
	}

	// ── WebSocket ────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return newCORS(deps.Cfg).Handler(r)
}

// newCORS allows every origin outside production and the configured list
// inside it.
func newCORS(cfg *config.Config) *cors.Cors {
	origins := cfg.Server.CORSOrigins
	if !cfg.IsProd() || len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	})
}
