package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/nubecita/lacoctelera/src/config"
	"github.com/nubecita/lacoctelera/src/database"
	"github.com/nubecita/lacoctelera/src/handlers"
	"github.com/nubecita/lacoctelera/src/logging"
	"github.com/nubecita/lacoctelera/src/middleware"
	"github.com/nubecita/lacoctelera/src/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize structured logging
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	log.Info().
		Int("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Msg("starting server")

	// Initialize database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	log.Info().Msg("database connected")

	// Admin session signing
	adminAuth, err := middleware.NewAdminAuth(cfg.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize admin sessions")
	}

	// Transactional email: Mailgun when configured, log-only otherwise
	var mailer services.Mailer
	if cfg.MailgunAPIKey != "" && cfg.MailgunDomain != "" {
		mailer = services.NewEmailService(
			cfg.MailgunDomain,
			cfg.MailgunAPIKey,
			cfg.MailgunFromEmail,
			cfg.MailgunFromName,
			cfg.AdminEmail,
		)
		log.Info().Str("domain", cfg.MailgunDomain).Msg("Mailgun email service initialized")
	} else {
		mailer = &services.LogMailer{Log: logging.NewLogger("mailer")}
		log.Warn().Msg("Mailgun credentials not configured - confirmation links will be logged")
	}

	// Initialize services
	credentialStore := services.NewCredentialStore(db.GetPool())
	registrationService := services.NewRegistrationService(
		db.GetPool(),
		credentialStore,
		mailer,
		cfg.ExternalHost,
		cfg.ConfirmationTTL,
		cfg.AccessTokenTTL,
	)
	accessService := services.NewAccessService(db.GetPool())
	adminService := services.NewAdminService(db.GetPool())
	ingredientService := services.NewIngredientService(db.GetPool())
	authorService := services.NewAuthorService(db.GetPool())
	recipeService := services.NewRecipeService(db.GetPool())

	// Auto-seed admin user on first run (if ADMIN_USERNAME and ADMIN_PASSWORD are set)
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		hasAdmins, err := adminService.HasAdmins(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("failed to check for existing admin users")
		} else if !hasAdmins {
			if _, err := adminService.CreateAdminUser(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
				log.Error().Err(err).Msg("failed to create initial admin user")
			} else {
				log.Info().Str("username", cfg.AdminUsername).Msg("initial admin user created")
			}
		}
	}

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOriginFunc: func(origin string) bool {
			// Allow localhost for development
			if origin == "http://localhost" || origin == "http://localhost:8080" || origin == "http://localhost:8081" {
				return true
			}
			// Allow production domain
			if origin == "https://lacoctelera.nubecita.eu" {
				return true
			}
			return false
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Setup routes
	if err := setupRoutes(router, db, registrationService, accessService, adminService, ingredientService, authorService, recipeService, adminAuth); err != nil {
		log.Fatal().Err(err).Msg("failed to set up routes")
	}

	// Create HTTP server with timeouts (protect from Slowloris attack)
	srv := &http.Server{
		Addr:              ":" + formatPort(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server shut down successfully")
}

func setupRoutes(
	router *gin.Engine,
	db *database.Database,
	registrationService *services.RegistrationService,
	accessService *services.AccessService,
	adminService *services.AdminService,
	ingredientService *services.IngredientService,
	authorService *services.AuthorService,
	recipeService *services.RecipeService,
	adminAuth *middleware.AdminAuth,
) error {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	tokenHandler, err := handlers.NewTokenHandler(
		registrationService,
		"./src/templates/token_request.html",
		"./src/templates/token_validated.html",
	)
	if err != nil {
		return fmt.Errorf("failed to initialize token handler: %w", err)
	}
	adminHandler := handlers.NewAdminHandler(adminService, registrationService, adminAuth)
	ingredientHandler := handlers.NewIngredientHandler(ingredientService)
	authorHandler := handlers.NewAuthorHandler(authorService)
	recipeHandler := handlers.NewRecipeHandler(recipeService)

	// Health check endpoints
	router.GET("/health", healthHandler.HandleHealth)
	router.GET("/ready", healthHandler.HandleReady)
	router.GET("/info", healthHandler.HandleInfo)

	// Client registration workflow; registration posts trigger outbound
	// email, so they sit behind a tight per-IP limit
	router.GET("/token/request", tokenHandler.HandleRequestForm)
	router.POST("/token/request", middleware.TokenRateLimitMiddleware(), tokenHandler.HandleTokenRequest)
	router.GET("/token/validate", tokenHandler.HandleValidateToken)
	router.POST("/token/resend", middleware.TokenRateLimitMiddleware(), tokenHandler.HandleResendConfirmation)

	// Public catalog endpoints
	router.GET("/ingredient", ingredientHandler.HandleSearch)
	router.GET("/ingredient/:id", ingredientHandler.HandleGet)
	router.GET("/author", authorHandler.HandleSearch)
	router.GET("/author/:id", authorHandler.HandleGet)
	router.GET("/recipe", recipeHandler.HandleSearch)
	router.GET("/recipe/:id", recipeHandler.HandleGet)

	// Restricted catalog endpoints (require an enabled API token)
	tokenAuth := middleware.TokenAuthMiddleware(accessService)
	router.POST("/ingredient", tokenAuth, ingredientHandler.HandleAdd)
	router.POST("/author", tokenAuth, authorHandler.HandleAdd)
	router.DELETE("/author/:id", tokenAuth, authorHandler.HandleDelete)
	router.POST("/recipe", tokenAuth, recipeHandler.HandleAdd)

	// Admin authentication endpoints
	router.POST("/admin/login", middleware.AdminRateLimitMiddleware(), adminHandler.HandleAdminLogin)
	router.POST("/admin/logout", adminAuth.Middleware(), adminHandler.HandleAdminLogout)
	router.GET("/admin/status", adminAuth.Middleware(), adminHandler.HandleAdminStatus)

	// Admin client approval endpoints (all require authentication)
	router.GET("/admin/clients", adminAuth.Middleware(), adminHandler.HandleListPendingClients)
	router.POST("/admin/clients/:client_id/enable", adminAuth.Middleware(), adminHandler.HandleEnableClient)
	router.POST("/admin/clients/:client_id/disable", adminAuth.Middleware(), adminHandler.HandleDisableClient)

	return nil
}

func formatPort(port int) string {
	return fmt.Sprintf("%d", port)
}
