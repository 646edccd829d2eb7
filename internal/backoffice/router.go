// Package backoffice builds the operator-facing admin API. It listens on its
// own port behind an IP allow-list and accepts only back-office roles.
package backoffice

import (
	"net/http"
	"strings"

	"github.com/evetabi/easybet/internal/api"
	"github.com/evetabi/easybet/internal/api/middleware"
	"github.com/evetabi/easybet/internal/backoffice/handler"
	"github.com/evetabi/easybet/internal/config"
	"github.com/evetabi/easybet/internal/service"
	"github.com/evetabi/easybet/internal/ws"
	"github.com/gin-gonic/gin"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	AuthSvc       *service.AuthService
	ActivitySvc   *service.ActivityService
	TicketSvc     *service.TicketService
	SettlementSvc *service.SettlementService
	WalletSvc     *service.WalletService
	Hub           *ws.Hub // optional; dashboard reports 0 connections without it
	Cfg           *config.Config
	Checks        map[string]api.HealthCheck
}

// SetupBackofficeRouter creates the admin Gin engine.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	r.GET("/health", api.HealthHandler(deps.Checks))

	dashH := handler.NewDashboardHandler(deps.ActivitySvc, deps.WalletSvc, deps.Hub)
	activityH := handler.NewActivityAdminHandler(deps.ActivitySvc, deps.TicketSvc, deps.SettlementSvc)
	userH := handler.NewUserAdminHandler(deps.AuthSvc, deps.WalletSvc)
	riskH := handler.NewRiskHandler(deps.ActivitySvc)
	financeH := handler.NewFinanceHandler(deps.ActivitySvc, deps.WalletSvc, deps.Cfg.Wallet.EscrowAccountID)

	adminOnly := middleware.AdminMiddleware()

	admin := r.Group("/admin")
	admin.Use(middleware.JWTMiddleware(deps.AuthSvc), middleware.BackofficeMiddleware())
	{
		admin.GET("/dashboard", dashH.Dashboard)

		// Activities
		a := admin.Group("/activities")
		{
			a.GET("", activityH.List)
			a.GET("/awaiting", activityH.Awaiting)
			a.GET("/:id", activityH.Detail)
			a.GET("/:id/preview", activityH.Preview)
		}

		// Users
		u := admin.Group("/users")
		{
			u.GET("", userH.List)
			u.GET("/:id", userH.Detail)
			u.POST("/:id/suspend", adminOnly, userH.Suspend)
			u.POST("/:id/activate", adminOnly, userH.Activate)
			u.POST("/:id/balance", adminOnly, userH.Credit)
			u.POST("/:id/role", adminOnly, userH.SetRole)
		}

		// Risk
		admin.GET("/risk/live", riskH.Live)

		// Finance
		fin := admin.Group("/finance")
		{
			fin.GET("/report", financeH.Report)
			fin.GET("/transactions", financeH.Transactions)
		}
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		if !allowed[c.ClientIP()] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "access denied: your IP is not whitelisted",
				"code":    "ERR_IP_DENIED",
			})
			return
		}
		c.Next()
	}
}
