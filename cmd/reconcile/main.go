package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	orderspostgres "github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/persistence/postgres"
	"github.com/Apurer/loyalty-checkout/internal/platform/migrations"
	platformpostgres "github.com/Apurer/loyalty-checkout/internal/platform/postgres"
)

// reconcile lists open reconciliation entries as JSON lines, or resolves one
// with -resolve <id> after an operator has repaired storage.
func main() {
	resolveID := flag.String("resolve", "", "mark the reconciliation entry with this id as resolved")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	db, cleanup := platformpostgres.ConnectOrFallback(ctx, os.Getenv("POSTGRES_DSN"), logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot read reconciliation entries")
	}
	if err := migrations.Run(db); err != nil {
		log.Fatalf("failed to migrate checkout schema: %v", err)
	}
	recon := orderspostgres.NewReconciliationLog(db)

	if id := strings.TrimSpace(*resolveID); id != "" {
		if err := recon.Resolve(ctx, id); err != nil {
			log.Fatalf("failed to resolve entry %s: %v", id, err)
		}
		logger.Info("reconciliation entry resolved", slog.String("reconciliation.id", id))
		return
	}

	entries, err := recon.ListOpen(ctx)
	if err != nil {
		log.Fatalf("failed to list reconciliation entries: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			log.Fatalf("failed to write entry: %v", err)
		}
	}
	logger.Info("open reconciliation entries listed", slog.Int("count", len(entries)))
}
