// Command seed-db prepares a development database: products, demo coupons,
// a demo customer with cart and session token, and an admin API key.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/identity"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		adminKey     string
		sessionToken string
		pepper       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or SHOP_SEED_ADMIN_KEY env)")
	flag.StringVar(&sessionToken, "session-token", "", "demo customer session token (or SHOP_SEED_SESSION_TOKEN env)")
	flag.StringVar(&pepper, "token-pepper", "", "HMAC pepper for token hashing (or SHOP_TOKEN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("SHOP_SEED_ADMIN_KEY")
	}
	if sessionToken == "" {
		sessionToken = os.Getenv("SHOP_SEED_SESSION_TOKEN")
	}
	if pepper == "" {
		pepper = os.Getenv("SHOP_TOKEN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, adminKey, sessionToken, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, adminKey, sessionToken, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedDemoCustomer(ctx, pool, sessionToken, pepper); err != nil {
		return errors.Wrap(err, "seed demo customer")
	}
	if adminKey != "" {
		if err := seedAdminKey(ctx, pool, adminKey, pepper); err != nil {
			return errors.Wrap(err, "seed admin key")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	products := []struct {
		name     string
		price    string
		category string
	}{
		{"Waffle with Berries", "6.50", "Waffle"},
		{"Vanilla Bean Creme Brulee", "7.00", "Creme Brulee"},
		{"Macaron Mix of Five", "8.00", "Macaron"},
		{"Classic Tiramisu", "5.50", "Tiramisu"},
		{"Pistachio Baklava", "4.00", "Baklava"},
		{"Lemon Meringue Pie", "5.00", "Pie"},
		{"Red Velvet Cake", "4.50", "Cake"},
		{"Salted Caramel Brownie", "4.50", "Brownie"},
		{"Vanilla Panna Cotta", "6.50", "Panna Cotta"},
	}

	slog.Info("seeding products", slog.Int("count", len(products)))

	for _, p := range products {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return errors.Wrapf(err, "parse price for %s", p.name)
		}
		_, err = pool.Exec(ctx,
			`INSERT INTO products (name, price, category) VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`,
			p.name, price, p.category)
		if err != nil {
			return errors.Wrapf(err, "insert product %s", p.name)
		}
	}
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	now := time.Now().UTC()
	coupons := []struct {
		code      string
		startsAt  *time.Time
		endsAt    *time.Time
		total     int
		minAmount string
		flat      string
		percent   string
	}{
		{"TENOFF", nil, nil, 1000, "50.00", "10.00", ""},
		{"HAPPYHOURS", &now, ptr(now.Add(30 * 24 * time.Hour)), 500, "0.00", "", "18"},
		{"EXPIRED", ptr(now.Add(-48 * time.Hour)), ptr(now.Add(-24 * time.Hour)), 100, "0.00", "5.00", ""},
		{"LASTCALL", nil, nil, 1, "0.00", "5.00", ""},
	}

	for _, c := range coupons {
		min, err := decimal.NewFromString(c.minAmount)
		if err != nil {
			return errors.Wrapf(err, "parse min amount for %s", c.code)
		}
		var flat, percent *decimal.Decimal
		if c.flat != "" {
			v, err := decimal.NewFromString(c.flat)
			if err != nil {
				return errors.Wrapf(err, "parse flat discount for %s", c.code)
			}
			flat = &v
		}
		if c.percent != "" {
			v, err := decimal.NewFromString(c.percent)
			if err != nil {
				return errors.Wrapf(err, "parse percent discount for %s", c.code)
			}
			percent = &v
		}

		_, err = pool.Exec(ctx,
			`INSERT INTO cart_rules (code, is_active, starts_at, ends_at, total_available,
				min_amount, reduction_amount, reduction_percent)
			 VALUES ($1, TRUE, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (code) DO NOTHING`,
			c.code, c.startsAt, c.endsAt, c.total, min, flat, percent)
		if err != nil {
			return errors.Wrapf(err, "insert coupon %s", c.code)
		}
		slog.Info("seeded coupon", slog.String("code", c.code))
	}
	return nil
}

func seedDemoCustomer(ctx context.Context, pool *pgxpool.Pool, sessionToken, pepper string) error {
	if sessionToken == "" {
		slog.Info("no session token given, skipping demo customer")
		return nil
	}

	const customerID = 1

	slog.Info("seeding demo customer", slog.Int("customer_id", customerID))

	_, err := pool.Exec(ctx,
		`INSERT INTO cart_items (customer_id, product_id, quantity) VALUES ($1, 1, 2), ($1, 3, 1)
		 ON CONFLICT (customer_id, product_id) DO NOTHING`,
		customerID)
	if err != nil {
		return errors.Wrap(err, "insert cart items")
	}

	hash := identity.HashToken([]byte(pepper), sessionToken)
	_, err = pool.Exec(ctx,
		`INSERT INTO sessions (token_hash, customer_id, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (token_hash) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		hash, customerID, time.Now().Add(30*24*time.Hour))
	return errors.Wrap(err, "insert session")
}

func seedAdminKey(ctx context.Context, pool *pgxpool.Pool, adminKey, pepper string) error {
	slog.Info("seeding admin API key")

	hash := identity.HashToken([]byte(pepper), adminKey)
	_, err := pool.Exec(ctx,
		`INSERT INTO api_keys (key_hash, name, scopes) VALUES ($1, $2, $3)
		 ON CONFLICT (key_hash) DO NOTHING`,
		hash, "Seeded admin key", []string{identity.ScopeViewOrders})
	return errors.Wrap(err, "insert api key")
}

func ptr[T any](v T) *T { return &v }
