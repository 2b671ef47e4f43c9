package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rbright/voxsearch/internal/catalog"
	"github.com/rbright/voxsearch/internal/cli"
	"github.com/rbright/voxsearch/internal/config"
)

// commandProducts dispatches the products subcommands against the catalog API.
func (r Runner) commandProducts(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) int {
	client := catalog.NewClient(cfg.Catalog, logger)
	out := newStyles(r.Stdout)

	var err error
	switch args[0] {
	case cli.ProductsList:
		var products []catalog.Product
		if products, err = client.ListProducts(ctx); err == nil {
			fmt.Fprintln(r.Stdout, out.renderProducts(products))
		}
	case cli.ProductsGet:
		var product catalog.Product
		if product, err = client.GetProduct(ctx, catalog.ID(args[1])); err == nil {
			fmt.Fprintln(r.Stdout, out.renderProduct(product))
		}
	case cli.ProductsCreate:
		var product catalog.Product
		if product, err = readProduct(args[1]); err == nil {
			if product, err = client.CreateProduct(ctx, product); err == nil {
				fmt.Fprintln(r.Stdout, out.renderProduct(product))
			}
		}
	case cli.ProductsUpdate:
		var product catalog.Product
		if product, err = readProduct(args[2]); err == nil {
			if product, err = client.UpdateProduct(ctx, catalog.ID(args[1]), product); err == nil {
				fmt.Fprintln(r.Stdout, out.renderProduct(product))
			}
		}
	case cli.ProductsDelete:
		if err = client.DeleteProduct(ctx, catalog.ID(args[1])); err == nil {
			fmt.Fprintf(r.Stdout, "deleted product %s\n", args[1])
		}
	default:
		fmt.Fprintf(r.Stderr, "error: unknown products subcommand %q\n", args[0])
		return 2
	}

	if err != nil {
		return r.reportCatalogError(err)
	}
	return 0
}

func (r Runner) reportCatalogError(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotConfigured):
		fmt.Fprintln(r.Stderr, "error: product API is not configured (set API_BASE_URL)")
	case errors.Is(err, catalog.ErrInvalidProduct):
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	default:
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
	}
	return 1
}

// readProduct loads a product from a JSON file. A "-" path reads stdin.
func readProduct(path string) (catalog.Product, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("read product file: %w", err)
	}

	var product catalog.Product
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&product); err != nil {
		return catalog.Product{}, fmt.Errorf("decode product file %q: %w", path, err)
	}
	return product, nil
}

// commandHistory prints the most recent queries.
func (r Runner) commandHistory(ctx context.Context, cfg config.Config, limit int) int {
	store, err := openHistory(ctx, cfg.History)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, newStyles(r.Stdout).renderHistory(entries))
	return 0
}
