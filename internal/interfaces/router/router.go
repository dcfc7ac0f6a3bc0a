package router

import (
	"net/http"

	"agrimarket-backend/internal/analytics"
	acctsvc "agrimarket-backend/internal/application/accounts"
	eventsvc "agrimarket-backend/internal/application/listingevents"
	listsvc "agrimarket-backend/internal/application/listings"
	"agrimarket-backend/internal/config"
	"agrimarket-backend/internal/credentials"
	"agrimarket-backend/internal/infrastructure/database"
	analyticshandler "agrimarket-backend/internal/interfaces/handlers/analytics"
	authhandler "agrimarket-backend/internal/interfaces/handlers/auth"
	healthhandler "agrimarket-backend/internal/interfaces/handlers/health"
	eventhandler "agrimarket-backend/internal/interfaces/handlers/listingevents"
	listhandler "agrimarket-backend/internal/interfaces/handlers/listings"
	"agrimarket-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
	}))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
		app.Use(middleware.HealthMarker(rdb))
	}
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{Rdb: rdb}
	app.Get("/health/json", hh.JSON)
	app.Get("/health/reset", hh.Reset)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		if errDB = database.AutoMigrate(db); errDB != nil {
			return nil, nil, nil, errDB
		}
		hh.DB = &gormDBPinger{db: db}
	}

	if db != nil {
		creds := credentials.NewManager(credentials.Options{
			Secret:        cfg.JWTSecret,
			RefreshSecret: cfg.JWTRefreshSecret,
			AccessTTL:     cfg.AccessTokenTTL,
			RefreshTTL:    cfg.RefreshTokenTTL,
			BcryptCost:    cfg.BcryptCost,
		})
		requireAuth := middleware.RequireAuth(creds)

		// Auth
		as := &acctsvc.Service{DB: db, Credentials: creds}
		ah := &authhandler.Handlers{Service: as}
		ag := app.Group("/api/v1/auth")
		ag.Post("/register", ah.Register)
		ag.Post("/login", ah.Login)
		ag.Post("/refresh", ah.Refresh)
		ag.Get("/me", requireAuth, ah.Me)
		ag.Put("/profile", requireAuth, ah.UpdateProfile)
		ag.Delete("/logout", requireAuth, ah.Logout)
		ag.Delete("/logout-all", requireAuth, ah.LogoutAll)

		// Listings
		ls := &listsvc.Service{DB: db, CodePrefix: cfg.ListingCodePrefix}
		lh := &listhandler.Handlers{Service: ls}
		lg := app.Group("/api/v1/listings")
		lg.Get("/get-listing/:listing_id", lh.GetByID)
		lg.Get("/get-by-code/:listing_code", lh.GetByCode)
		lg.Post("/view/:listing_id", lh.View)
		lg.Post("/inquire/:listing_id", lh.Inquire)
		lg.Post("/share/:listing_id", lh.Share)
		lg.Post("/create-listing", requireAuth, lh.Create)
		lg.Get("/get-my-listings", requireAuth, lh.OwnerListings)
		lg.Put("/update-quantity", requireAuth, lh.UpdateQuantity)
		lg.Post("/add-review", requireAuth, lh.AddReview)
		lg.Patch("/set-status", requireAuth, lh.SetStatus)

		// Analytics (public reads; Redis caches hot aggregates when present)
		agg := &analytics.Aggregator{DB: db, Rdb: rdb}
		anh := &analyticshandler.Handlers{Aggregator: agg}
		ang := app.Group("/api/v1/analytics")
		ang.Get("/by-location", anh.ByLocation)
		ang.Get("/by-price-range", anh.ByPriceRange)
		ang.Get("/fresh", anh.Fresh)
		ang.Get("/stats", anh.Stats)
		ang.Get("/trending", anh.Trending)

		// Listing events
		es := &eventsvc.Service{DB: db}
		eh := &eventhandler.Handlers{Service: es}
		eg := app.Group("/api/v1/listing-events", requireAuth)
		eg.Get("/mine", eh.Mine)
		eg.Get("/:listing_id", eh.ByListing)
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
