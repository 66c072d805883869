package main

import (
	"log"
	"net/http"

	_ "userapi/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"userapi/internal/auth"
	"userapi/internal/cache"
	"userapi/internal/config"
	"userapi/internal/db"
	"userapi/internal/handler"
	"userapi/internal/model"
	"userapi/internal/repository"
	"userapi/internal/router"
	"userapi/internal/service"
)

// @title User Account API
// @version 1.0
// @description Minimal user-account service: registration, authentication, profile management.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Any scheme followed by a space and the token, e.g. "Bearer <token>".
func main() {
	cfg := config.Load()

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

	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		log.Fatalf("password hasher init: %v", err)
	}
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	gate := auth.NewRequestGate(tokens)

	userRepo := repository.NewUserRepository(gormDB)
	accounts := service.NewAccountService(userRepo, hasher, tokens, cacheClient)

	authHandler := handler.NewAuthHandler(accounts)
	userHandler := handler.NewUserHandler(accounts)

	router.Register(e, cfg, gate, authHandler, userHandler)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
