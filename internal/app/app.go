// Package app builds the Fiber application: global middleware, module wiring
// and route registration.
package app

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"greenh2-backend/internal/applications"
	"greenh2-backend/internal/auth"
	"greenh2-backend/internal/certificates"
	"greenh2-backend/internal/config"
	"greenh2-backend/internal/database"
	"greenh2-backend/internal/domain"
	"greenh2-backend/internal/gateway"
	"greenh2-backend/internal/health"
	"greenh2-backend/internal/listings"
	"greenh2-backend/internal/middleware"
	"greenh2-backend/internal/settlement"
	"greenh2-backend/internal/transactions"
	"greenh2-backend/internal/uploads"
)

// dbPinger adapts gorm to the health module's DBPinger.
type dbPinger struct{ db *gorm.DB }

func (p *dbPinger) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with all middleware and routes. Returns the
// DB and Redis client so main can ping them before listening.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS before session.
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.RequestStats(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	// Health (no auth).
	var pinger health.DBPinger
	if db != nil {
		pinger = &dbPinger{db: db}
	}
	healthHandlers := &health.Handlers{Rdb: rdb, DB: pinger}
	app.Get("/health", healthHandlers.Live)
	app.Get("/health/json", healthHandlers.JSON)

	// Auth (no auth middleware).
	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{DB: db, UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/register", authHandlers.Register)
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	if db == nil {
		return app, db, rdb, nil
	}

	// Applications: producers submit, certifiers review.
	appService := &applications.Service{DB: db}
	appHandlers := &applications.Handlers{Service: appService}
	appGroup := app.Group("/api/v1/applications", middleware.RequireAuth())
	appGroup.Post("/", middleware.RequireRole(domain.RoleProducer), appHandlers.Submit)
	appGroup.Get("/", middleware.RequireRole(domain.RoleCertifier), appHandlers.All)
	appGroup.Get("/my", middleware.RequireRole(domain.RoleProducer), appHandlers.Mine)
	appGroup.Get("/pending", middleware.RequireRole(domain.RoleCertifier), appHandlers.Pending)
	appGroup.Get("/:applicationId", appHandlers.Get)
	appGroup.Post("/:applicationId/documents", middleware.RequireRole(domain.RoleProducer), appHandlers.AttachDocuments)
	appGroup.Delete("/:applicationId/documents/:publicId", middleware.RequireRole(domain.RoleProducer), appHandlers.RemoveDocument)
	appGroup.Patch("/:applicationId/schedule", middleware.RequireRole(domain.RoleCertifier), appHandlers.Schedule)
	appGroup.Patch("/:applicationId/approve", middleware.RequireRole(domain.RoleCertifier), appHandlers.Approve)
	appGroup.Patch("/:applicationId/reject", middleware.RequireRole(domain.RoleCertifier), appHandlers.Reject)

	// Listings: browse and detail are public, mutations are producer-only.
	listingService := &listings.Service{DB: db}
	listingHandlers := &listings.Handlers{Service: listingService}
	listingGroup := app.Group("/api/v1/listings")
	listingGroup.Post("/", middleware.RequireAuth(), middleware.RequireRole(domain.RoleProducer), listingHandlers.Create)
	listingGroup.Get("/", listingHandlers.Browse)
	listingGroup.Get("/my", middleware.RequireAuth(), middleware.RequireRole(domain.RoleProducer), listingHandlers.Mine)
	listingGroup.Get("/:listingId", listingHandlers.Get)
	listingGroup.Patch("/:listingId/deactivate", middleware.RequireAuth(), middleware.RequireRole(domain.RoleProducer), listingHandlers.Deactivate)

	// Settlement: order creation and payment verification, buyers only.
	razorpay := gateway.NewRazorpayClient(cfg.GatewayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.GatewayTimeout)
	settlementService := &settlement.Service{
		DB:      db,
		Gateway: razorpay,
		Issuer:  &certificates.Issuer{},
	}
	settlementHandlers := &settlement.Handlers{Service: settlementService}
	payGroup := app.Group("/api/v1/payments", middleware.RequireAuth(), middleware.RequireRole(domain.RoleBuyer))
	payGroup.Post("/create-order", settlementHandlers.CreateOrder)
	payGroup.Post("/verify-payment", settlementHandlers.VerifyPayment)
	payGroup.Post("/direct-purchase", settlementHandlers.DirectPurchase)
	payGroup.Get("/status/:orderId", settlementHandlers.PaymentStatus)
	payGroup.Post("/:transactionId/refund", settlementHandlers.Refund)

	// Transactions: history for both sides of a trade.
	txService := &transactions.Service{DB: db}
	txHandlers := &transactions.Handlers{Service: txService}
	txGroup := app.Group("/api/v1/transactions", middleware.RequireAuth())
	txGroup.Get("/purchases", middleware.RequireRole(domain.RoleBuyer), txHandlers.Purchases)
	txGroup.Get("/sales", middleware.RequireRole(domain.RoleProducer), txHandlers.Sales)
	txGroup.Get("/:transactionId", txHandlers.Get)

	// Uploads: producers attach documents to applications.
	storageClient := &uploads.HTTPClient{
		BaseURL:   cfg.StorageURL,
		SecretKey: cfg.StorageSecretKey,
	}
	uploadHandlers := &uploads.Handlers{Service: &uploads.Service{
		Client:     storageClient,
		StorageURL: cfg.StorageURL,
	}}
	uploadGroup := app.Group("/api/v1/uploads", middleware.RequireAuth(), middleware.RequireRole(domain.RoleProducer))
	uploadGroup.Post("/document", uploadHandlers.UploadDocument)
	uploadGroup.Delete("/document/:publicId", uploadHandlers.DeleteDocument)

	return app, db, rdb, nil
}
