package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"

	"github.com/tendant/simple-cms/pkg/simplecms/api"
	"github.com/tendant/simple-cms/pkg/simplecms/config"
	"github.com/tendant/simple-cms/pkg/simplecms/presets"
)

// AuthConfig is the optional bearer-token guard for mutating routes. The
// token scheme itself is owned by the surrounding platform; an empty
// secret leaves the routes open.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET" env-default:""`
}

func main() {
	serverConfig, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	var authConfig AuthConfig
	if err := cleanenv.ReadEnv(&authConfig); err != nil {
		slog.Error("Failed to read auth configuration", "err", err)
		os.Exit(1)
	}

	registry, err := presets.CMS()
	if err != nil {
		slog.Error("Failed to build schema registry", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	svc, pool, err := serverConfig.BuildService(ctx, registry)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	resourceHandler := api.NewResourceHandler(svc)

	server.R.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if serverConfig.ApiKeySHA256 != "" {
				apiKeyMiddleware, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
					APIKeys: map[string]string{"key1": serverConfig.ApiKeySHA256},
				})
				if err != nil {
					slog.Error("Failed to initialize API key middleware", "err", err)
					os.Exit(1)
				}
				r.Use(apiKeyMiddleware)
			}
			if authConfig.JWTSecret != "" {
				tokenAuth := jwtauth.New("HS256", []byte(authConfig.JWTSecret), nil)
				r.Use(jwtauth.Verifier(tokenAuth))
				r.Use(jwtauth.Authenticator)
			}
			r.Mount("/", resourceHandler.Routes())
		})
	})

	slog.Info("simple-cms server starting",
		"port", serverConfig.Port,
		"env", serverConfig.Environment,
		"database", serverConfig.DatabaseType,
		"storage", serverConfig.StorageType,
		"entities", registry.Names())

	server.Run()
}
