package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/example/ec-order-payments/internal/auth"
	"github.com/example/ec-order-payments/internal/config"
	"github.com/example/ec-order-payments/internal/logger"
	"github.com/example/ec-order-payments/internal/model"
)

// token mints a bearer token signed with JWT_SECRET for operators and local
// testing. Production callers get their tokens from the identity service.
func main() {
	userID := flag.Int64("user", 0, "user id carried in the token subject")
	role := flag.String("role", string(model.RoleCustomer), "ADMIN or CUSTOMER")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := logger.NewWithWriter(os.Stderr, "info", "json")
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}
	// stdout carries only the token
	log := logger.Component(logger.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat), "token")
	if err := cfg.ValidateToken(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTAccessTTL)
	token, expiresAt, err := jwtService.GenerateAccessToken(*userID, model.Role(strings.ToUpper(*role)))
	if err != nil {
		log.Fatal().Err(err).Int64("user_id", *userID).Str("role", *role).Msg("failed to issue token")
	}

	log.Info().Int64("user_id", *userID).Time("expires_at", expiresAt).Msg("token issued")
	fmt.Println(token)
}
