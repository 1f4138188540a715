// Package main provides a CLI tool for seeding the database with the demo
// catalog and printing bearer tokens for local testing.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"growermarket/internal/config"
	appctx "growermarket/internal/core/context"
	"growermarket/internal/core/settings"
	"growermarket/internal/demo"
	"growermarket/internal/domain/auth"
	"growermarket/internal/infrastructure/storage/postgres"
	"growermarket/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
		Service:     "growermarket-seed",
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL, 2))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedCatalog(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed catalog", "error", err)
	}
	if err := seedSettings(ctx, pool, cfg); err != nil {
		log.Fatalw("failed to seed settings", "error", err)
	}

	if err := printTokens(cfg); err != nil {
		log.Fatalw("failed to issue tokens", "error", err)
	}

	log.Info("seeding completed successfully")
}

func seedCatalog(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	data := demo.Data()

	for _, p := range data.Products {
		if _, err := pool.Exec(ctx, `
			INSERT INTO cat_products (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING
		`, p.ID, p.Name); err != nil {
			return fmt.Errorf("insert product %s: %w", p.Name, err)
		}
	}

	for _, u := range data.Units {
		if _, err := pool.Exec(ctx, `
			INSERT INTO cat_sellable_units (id, product_id, label, quantity, unit_symbol, position)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`, u.ID, u.ProductID, u.Label, u.Quantity, u.UnitSymbol, u.Position); err != nil {
			return fmt.Errorf("insert unit %s: %w", u.Label, err)
		}
	}

	for _, g := range data.Growers {
		if _, err := pool.Exec(ctx, `
			INSERT INTO cat_growers (id, name, avatar_url, commission_rate)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, g.ID, g.Name, g.AvatarURL, g.CommissionRate); err != nil {
			return fmt.Errorf("insert grower %s: %w", g.Name, err)
		}
	}

	log.Infow("demo catalog seeded",
		"products", len(data.Products),
		"units", len(data.Units),
		"growers", len(data.Growers),
	)
	return nil
}

// seedSettings stores the configured defaults so they can later be changed
// at runtime. Existing rows are left alone.
func seedSettings(ctx context.Context, pool *postgres.Pool, cfg *config.Config) error {
	values := map[string]string{
		settings.KeyRequireStockApproval: fmt.Sprintf("%t", cfg.RequireStockApproval),
	}
	if cfg.DefaultSessionCommissionRate != "" {
		values[settings.KeySessionCommissionRate] = cfg.DefaultSessionCommissionRate
	}
	for key, value := range values {
		if _, err := pool.Exec(ctx, `
			INSERT INTO sys_settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO NOTHING
		`, key, value); err != nil {
			return fmt.Errorf("insert setting %s: %w", key, err)
		}
	}
	return nil
}

func printTokens(cfg *config.Config) error {
	jwtCfg := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtCfg.AccessTokenTTL = 24 * time.Hour
	jwtService := auth.NewJWTService(jwtCfg)

	token, _, err := jwtService.GenerateAccessToken("admin", "", []string{appctx.RoleAdmin}, true)
	if err != nil {
		return err
	}
	fmt.Printf("admin: %s\n", token)

	for _, g := range demo.Data().Growers {
		token, _, err := jwtService.GenerateAccessToken("grower-"+g.ID.String(), g.ID.String(), []string{appctx.RoleGrower}, false)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", g.Name, token)
	}
	return nil
}
