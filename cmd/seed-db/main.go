// Command seed-db loads the catalog seed file into the database, creating or
// updating products by name. Safe to run repeatedly.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/storage/postgres"
)

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
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

	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var seed []productJSON
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("seeding products", slog.Int("count", len(seed)))

	repo := postgres.NewProductRepository(pool)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range seed {
		g.Go(func() error {
			if err := upsertProduct(ctx, repo, p); err != nil {
				return errors.Wrapf(err, "seed product %q", p.Name)
			}
			slog.Info("seeded product", slog.String("name", p.Name))
			return nil
		})
	}
	return g.Wait()
}

// upsertProduct creates the product or, when one with the same name already
// exists, refreshes its fields in place.
func upsertProduct(ctx context.Context, repo product.Repository, seed productJSON) error {
	existing, err := repo.GetByName(ctx, seed.Name)
	switch {
	case errors.Is(err, product.ErrNotFound):
		return repo.Create(ctx, &product.Product{
			Name:        seed.Name,
			Description: seed.Description,
			Price:       seed.Price,
			Category:    seed.Category,
			Stock:       seed.Stock,
		})
	case err != nil:
		return err
	}

	existing.Description = seed.Description
	existing.Price = seed.Price
	existing.Category = seed.Category
	existing.Stock = seed.Stock
	return repo.Update(ctx, existing)
}
