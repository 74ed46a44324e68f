// Command seed-category creates the default forum category unless a category
// with the same name already exists.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/catalyst-codex/codex/backend/internal/setup"
	"github.com/catalyst-codex/codex/shared/config"
	"github.com/catalyst-codex/codex/shared/docstore"
	"github.com/catalyst-codex/codex/shared/domain"
	"github.com/catalyst-codex/codex/shared/logger"
)

var defaultCategory = domain.Category{
	Name:        "General Discussion",
	Description: "Chat about anything related to the Awakening community.",
	SortOrder:   1,
}

func main() {
	_ = godotenv.Load()

	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "backend/config", "path to folder with configs")
	flag.Parse()

	cfg := config.MustLoad(configFolder)
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Private.Pg.URL = url
	}

	store, closeStore, err := setup.OpenDocstore(cfg)
	if err != nil {
		logger.Log.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := seed(ctx, store, defaultCategory)
	if err != nil {
		logger.Log.Error("failed to seed category", "error", err)
		os.Exit(1)
	}
	if !created {
		fmt.Printf("Category %q already exists, nothing to do\n", defaultCategory.Name)
		return
	}
	fmt.Printf("Created category %q\n", defaultCategory.Name)
}

// seed adds category unless one with the same name exists.
func seed(ctx context.Context, store docstore.Store, category domain.Category) (bool, error) {
	existing, err := store.Query(ctx, docstore.Collection(domain.CategoriesCollection).
		Where("name", category.Name).
		WithLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to look up category: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}
	if _, err := store.Add(ctx, domain.CategoriesCollection, category); err != nil {
		return false, fmt.Errorf("failed to add category: %w", err)
	}
	return true, nil
}
