package router

import (
	"fmt"
	"strings"

	"github.com/mobi-voucher/internal/cache"
	"github.com/mobi-voucher/internal/config"
	merchanthandlers "github.com/mobi-voucher/internal/http/handlers/merchant"
	publichandlers "github.com/mobi-voucher/internal/http/handlers/public"
	"github.com/mobi-voucher/internal/logger"
	"github.com/mobi-voucher/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter initializes the HTTP routes
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	merchantHandler := merchanthandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "mv"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts",
	}
	redeemRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:redeem", redisPrefix),
		WindowSeconds: cfg.Security.RedeemRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RedeemRateLimit.MaxAttempts,
		Message:       "too many redemption attempts for this card",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		public := apiV1.Group("/public")
		{
			// per-serial budget: rotating IPs does not reset the counter
			public.POST("/vouchers/redeem",
				RateLimitMiddleware(redisClient, redeemRule, KeyByJSONField("serial_number")),
				publicHandler.RedeemVoucher,
			)
		}

		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.Register)
			auth.POST("/login",
				RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")),
				publicHandler.Login,
			)
		}

		merchant := apiV1.Group("/merchant")
		merchant.Use(MerchantAuthMiddleware(c.MerchantService))
		{
			merchant.POST("/batches", merchantHandler.IssueBatch)
			merchant.GET("/batches", merchantHandler.ListBatches)
			merchant.GET("/batches/:id", merchantHandler.BatchDetail)
			merchant.GET("/batches/:id/status-counts", merchantHandler.BatchStatusCounts)
			merchant.GET("/batches/:id/cards", merchantHandler.ListBatchCards)
			merchant.POST("/batches/:id/deactivate", merchantHandler.DeactivateBatch)
			merchant.POST("/batches/:id/invalidate", merchantHandler.InvalidateBatch)

			merchant.POST("/cards/:id/sell", merchantHandler.MarkCardSold)
			merchant.POST("/cards/:id/invalidate", merchantHandler.InvalidateCard)

			merchant.GET("/wallet/balance", merchantHandler.WalletBalance)
			merchant.GET("/wallet/history", merchantHandler.WalletHistory)
			merchant.POST("/wallet/fund", merchantHandler.FundWallet)
			merchant.POST("/wallet/reconcile", merchantHandler.ReconcileWallet)

			merchant.POST("/applications", merchantHandler.ApplyToParent)
			merchant.GET("/applications", merchantHandler.ListApplications)
			merchant.POST("/applications/:id/decide", merchantHandler.DecideApplication)

			merchant.GET("/stock", merchantHandler.ListStock)
			merchant.PUT("/stock", merchantHandler.UpsertStock)
			merchant.POST("/stock/purchase", merchantHandler.PurchaseStock)
		}
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
