// seed-catalog loads suppliers and flowers from a JSON file into an empty catalog.
// Opening stock is taken from each flower's current_stock.
//
// File shape:
//
//	{"suppliers": [{"name": "...", ...}], "flowers": [{"name": "...", "supplier": "<supplier name>", ...}]}
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/florist_backend/config"
	"github.com/mmdatafocus/florist_backend/models"
)

type seedFlower struct {
	models.NewFlower
	Supplier string `json:"supplier"`
}

type seedFile struct {
	Suppliers []models.NewSupplier `json:"suppliers"`
	Flowers   []seedFlower         `json:"flowers"`
}

func main() {
	path := flag.String("file", "", "Required: path to the catalog JSON file")
	flag.Parse()

	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		os.Exit(1)
	}
	raw, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *path, err)
		os.Exit(1)
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", *path, err)
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if err := models.MigrateTable(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	var existing int64
	if err := config.GetDB().WithContext(ctx).Model(&models.Flower{}).Count(&existing).Error; err != nil {
		fmt.Fprintf(os.Stderr, "count flowers: %v\n", err)
		os.Exit(1)
	}
	if existing > 0 {
		fmt.Fprintf(os.Stderr, "catalog already has %d flower(s); refusing to seed\n", existing)
		os.Exit(2)
	}

	suppliers := make(map[string]*models.Supplier, len(seed.Suppliers))
	for i := range seed.Suppliers {
		supplier, err := models.CreateSupplier(ctx, &seed.Suppliers[i])
		if err != nil {
			fmt.Fprintf(os.Stderr, "supplier %q: %v\n", seed.Suppliers[i].Name, err)
			os.Exit(1)
		}
		suppliers[strings.ToLower(supplier.Name)] = supplier
	}

	for i := range seed.Flowers {
		f := &seed.Flowers[i]
		if f.Supplier != "" {
			supplier, ok := suppliers[strings.ToLower(strings.TrimSpace(f.Supplier))]
			if !ok {
				fmt.Fprintf(os.Stderr, "flower %q: unknown supplier %q\n", f.Name, f.Supplier)
				os.Exit(1)
			}
			f.SupplierId = &supplier.ID
		}
		flower, err := models.CreateFlower(ctx, &f.NewFlower)
		if err != nil {
			fmt.Fprintf(os.Stderr, "flower %q: %v\n", f.Name, err)
			os.Exit(1)
		}
		fmt.Printf("seeded %s (%s) stock=%d\n", flower.Name, flower.ID, flower.CurrentStock)
	}
	fmt.Printf("seeded %d supplier(s), %d flower(s)\n", len(seed.Suppliers), len(seed.Flowers))
}
