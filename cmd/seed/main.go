// Command seed populates a development database with grocery products and
// demo users, then prints an access token for each user.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sultanmr/aws-grocery/internal/auth"
	"github.com/sultanmr/aws-grocery/internal/config"
	"github.com/sultanmr/aws-grocery/migrations"
	"github.com/sultanmr/aws-grocery/pkg/database"
	"github.com/sultanmr/aws-grocery/pkg/logger"
)

type productDef struct {
	name     string
	price    float64
	imageURL string
}

type userDef struct {
	username string
	email    string
}

var products = []productDef{
	{"Bananas (1kg)", 1.99, "/static/products/bananas.png"},
	{"Whole Milk (1L)", 1.29, "/static/products/milk.png"},
	{"Free Range Eggs (12)", 3.49, "/static/products/eggs.png"},
	{"Sourdough Bread", 2.79, "/static/products/bread.png"},
	{"Cheddar Cheese (200g)", 2.99, "/static/products/cheddar.png"},
	{"Basmati Rice (1kg)", 2.49, "/static/products/rice.png"},
	{"Olive Oil (500ml)", 5.99, "/static/products/olive-oil.png"},
	{"Tomatoes (500g)", 1.79, "/static/products/tomatoes.png"},
	{"Chicken Breast (500g)", 4.99, "/static/products/chicken.png"},
	{"Ground Coffee (250g)", 4.49, "/static/products/coffee.png"},
	{"Greek Yogurt (500g)", 2.19, "/static/products/yogurt.png"},
	{"Spaghetti (500g)", 1.09, "/static/products/spaghetti.png"},
}

var users = []userDef{
	{"ana", "ana@example.com"},
	{"ben", "ben@example.com"},
	{"chloe", "chloe@example.com"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("seed", cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if err := seedProducts(ctx, pool); err != nil {
		return err
	}
	log.Info("products seeded", slog.Int("count", len(products)))

	ids, err := seedUsers(ctx, pool)
	if err != nil {
		return err
	}

	for i, u := range users {
		token, err := auth.NewAccessToken(cfg.JWTSecret, cfg.JWTIssuer, ids[i], u.email, 24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Printf("%s (id=%d)\n  Authorization: Bearer %s\n", u.username, ids[i], token)
	}
	return nil
}

// seedProducts inserts the catalog once. Rerunning leaves existing rows alone.
func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`INSERT INTO products (name, price, image_url) VALUES ($1, $2, $3)`, p.name, p.price, p.imageURL)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert products: %w", err)
	}
	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) ([]int64, error) {
	ids := make([]int64, len(users))
	for i, u := range users {
		err := pool.QueryRow(ctx,
			`INSERT INTO users (username, email)
			 VALUES ($1, $2)
			 ON CONFLICT (username) DO UPDATE SET email = EXCLUDED.email
			 RETURNING id`,
			u.username, u.email,
		).Scan(&ids[i])
		if err != nil {
			return nil, fmt.Errorf("upsert user %q: %w", u.username, err)
		}
	}
	return ids, nil
}
