package main

import (
	"log"

	"agentfails/internal/chain"
	"agentfails/internal/config"
	"agentfails/internal/db"
	"agentfails/internal/handlers"
	"agentfails/internal/middleware"
	"agentfails/internal/router"
	"agentfails/internal/services"
	"agentfails/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize Database
	gdb := db.Init(cfg.DB.URL)
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	}
	store := db.NewStore(gdb)

	// 链上校验
	rpc := chain.NewClient(cfg.Chain.RPCURL, cfg.Chain.RPCRateLimit, cfg.Chain.RPCBurst)
	verifier := services.NewOnChainVerifier(rpc, cfg.Chain.USDCAddress, cfg.Chain.Collector)
	members := services.NewMembershipResolver(store, verifier, cfg.Chain.ExemptNFT)
	policy := services.NewPolicy(store, members, verifier, services.Pricing{
		Signup:        cfg.Pricing.Signup,
		Post:          cfg.Pricing.Post,
		Comment:       cfg.Pricing.Comment,
		FreeThreshold: cfg.Pricing.FreeThreshold,
		Currency:      cfg.Pricing.Currency,
		Network:       cfg.Chain.Network,
		TokenAddress:  cfg.Chain.USDCAddress,
		PayTo:         cfg.Chain.Collector,
	})

	// 周边商品：Stripe 付款 + Printify 下单
	var sessions services.SessionCreator
	if cfg.MerchEnabled() {
		sessions = &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.Stripe.SecretKey}
	} else {
		log.Println("Merch checkout disabled: Stripe or Printify is not configured")
	}
	checkout := services.NewCheckoutService(services.MerchConfig{
		PriceID:       cfg.Stripe.PriceID,
		ProductID:     cfg.Printify.ProductID,
		Variants:      cfg.Printify.Variants,
		ShipCountries: cfg.Stripe.ShipCountries,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	}, sessions)

	printify := services.NewPrintifyClient(cfg.Printify.BaseURL, cfg.Printify.APIKey, cfg.Printify.ShopID)
	fulfiller := services.NewFulfiller(store, printify)
	if cfg.Redis.URL != "" {
		locker, err := db.NewRedisLocker(cfg.Redis.URL)
		if err != nil {
			log.Printf("Redis unavailable, webhook fulfillment runs without a lock: %v", err)
		} else {
			defer locker.Close()
			fulfiller.WithLocker(locker)
		}
	}

	app := &handlers.App{
		Store:     store,
		Policy:    policy,
		Members:   members,
		Holders:   verifier,
		Checkout:  checkout,
		Fulfiller: fulfiller,
		Cache:     utils.GetCache(),
		FeedTTL:   cfg.Feed.CacheTTL,
		BadgeNFT:  cfg.Chain.BadgeNFT,
	}

	// Initialize Gin
	r := gin.Default()
	r.Use(middleware.CORS(cfg.Server.SiteURL))
	r.Use(middleware.Metrics())
	router.RegisterRoutes(r, app)

	log.Printf("agentfails server starting on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
