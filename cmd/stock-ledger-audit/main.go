// stock-ledger-audit compares every flower's current stock with its opening stock plus the sum of its
// stock movements and exits 1 when any flower is out of balance.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/stock-ledger-audit
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/florist_backend/config"
	"github.com/mmdatafocus/florist_backend/models"
)

func main() {
	asJSON := flag.Bool("json", false, "Print mismatches as JSON")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	logger := config.GetLogger()
	store := models.NewGormStore(db, logger)
	ledger := models.NewStockLedger(store, logger)

	mismatches, err := ledger.Audit(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit failed: %v\n", err)
		os.Exit(2)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(mismatches)
	} else {
		for _, m := range mismatches {
			fmt.Printf("%s (%s): current=%d expected=%d difference=%+d\n", m.Name, m.FlowerId, m.CurrentStock, m.Expected, m.Difference)
		}
		fmt.Printf("%d flower(s) out of balance\n", len(mismatches))
	}
	if len(mismatches) > 0 {
		os.Exit(1)
	}
}
