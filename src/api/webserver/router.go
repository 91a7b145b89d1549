package webserver

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New builds the gin engine with every route attached.
func New(d Deps) *gin.Engine {
	if !d.Config.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(AccessLog(), Recovery())
	attachRoutes(r, newServer(d), d)
	return r
}

func attachRoutes(r *gin.Engine, s *Server, d Deps) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	limiter := d.Limiter
	if limiter == nil {
		limiter = NewMemoryLimiter(s.cfg.RateLimit, s.cfg.RateWindow)
	}

	v1 := r.Group("/v1")
	v1.Use(SessionMiddleware(s.auth))
	{
		auth := v1.Group("/auth", RateLimitMiddleware(limiter, "auth"))
		auth.POST("/challenge", s.Challenge)
		auth.POST("/verify", s.Verify)

		v1.GET("/session", s.Session)
		v1.GET("/access", s.Access)
		v1.GET("/membership", s.Membership)
		v1.GET("/nft/collection", s.Collection)
		v1.GET("/nft/tokens/:id", s.Token)
		v1.GET("/tx/:hash", s.TxStatus)
		v1.GET("/governance", s.Governance)
		v1.GET("/voting-power", s.VotingPower)
		v1.GET("/proposals/:id", s.Proposal)

		writes := v1.Group("", RateLimitMiddleware(limiter, "write"))
		wallet := writes.Group("", s.RequireWallet())
		wallet.POST("/nft/mint", s.Mint)
		wallet.POST("/delegate", s.Delegate)
		wallet.POST("/tx/relay", s.Relay)
		wallet.POST("/proposals/:id/queue", s.Queue)
		wallet.POST("/proposals/:id/execute", s.Execute)

		member := writes.Group("", s.RequireAccess(nil))
		member.POST("/proposals/:id/vote", s.Vote)
		member.POST("/proposals", s.Propose)
		member.POST("/drafts", s.CreateDraft)
	}

	adminTier := s.cfg.RequiredAdminTier()
	admin := v1.Group("/admin", s.RequireAccess(&adminTier))
	{
		admin.GET("", s.AdminDashboard)
		admin.GET("/members", s.ListMembers)
		admin.POST("/members", s.CreateMember)
		admin.PUT("/members/:id", s.UpdateMember)
		admin.GET("/treasury", s.ListTransfers)
		admin.POST("/treasury", s.CreateTransfer)
		admin.PUT("/treasury/:id", s.UpdateTransfer)
		admin.GET("/proposals", s.ListDrafts)
		admin.PUT("/proposals/:id", s.UpdateDraft)
		admin.GET("/settings", s.ListSettings)
	}
}
