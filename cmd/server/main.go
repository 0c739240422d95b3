package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adminpanel/docs"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"adminpanel/internal/auth"
	"adminpanel/internal/cache"
	"adminpanel/internal/config"
	"adminpanel/internal/db"
	"adminpanel/internal/handler"
	"adminpanel/internal/model"
	"adminpanel/internal/repository"
	"adminpanel/internal/router"
	"adminpanel/internal/service"
)

// @title Admin Panel API
// @version 1.0
// @description Authentication and user management API for the admin panel backend.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token. Browser clients use the session cookie instead.
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Auth components
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	cookies := auth.NewCookieManager(cfg.IsProduction(), cfg.CookieCrossOrigin, cfg.TokenTTL)
	limiter := auth.NewLoginLimiter(cacheClient, cfg.LoginMaxAttempts, cfg.LoginWindow)

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)

	// Services
	authService := service.NewAuthService(userRepo, hasher, jwtService, limiter)
	userService := service.NewUserService(userRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, cookies)
	userHandler := handler.NewUserHandler(userService)

	router.Register(e, cfg, jwtService, userRepo, authHandler, userHandler)

	go func() {
		addr := ":" + cfg.ServerPort
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := cacheClient.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}
	if err := db.Close(gormDB); err != nil {
		log.Printf("mysql close: %v", err)
	}
}
