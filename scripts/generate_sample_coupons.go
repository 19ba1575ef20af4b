//go:build ignore

// Command generate_sample_coupons writes gzipped JSON-lines coupon definitions
// for COUPON_IMPORT_FILES. Run with: go run scripts/generate_sample_coupons.go
package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func limit(n int) *int {
	return &n
}

func main() {
	dataDir := "data/coupons"

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	yearEnd := time.Date(now.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)

	files := map[string][]model.Coupon{
		"coupons-base.jsonl.gz": {
			{Code: "SAVE20", DiscountType: model.DiscountPercentage, Value: decimal.NewFromInt(20),
				MinOrderAmount: amount("1000"), MaxDiscountAmount: amount("5000"), IsActive: true},
			{Code: "WELCOME50", DiscountType: model.DiscountFixed, Value: decimal.NewFromInt(50),
				MinOrderAmount: amount("200"), UsageLimit: limit(1000), IsActive: true},
			{Code: "FLASH10", DiscountType: model.DiscountPercentage, Value: decimal.NewFromInt(10),
				StartsAt: now, ExpiresAt: now.Add(72 * time.Hour), UsageLimit: limit(100), IsActive: true},
		},
		"coupons-seasonal.jsonl.gz": {
			{Code: "YEAREND15", DiscountType: model.DiscountPercentage, Value: decimal.NewFromInt(15),
				MaxDiscountAmount: amount("750"), StartsAt: now, ExpiresAt: yearEnd, IsActive: true},
			// Overrides the base definition: later files win.
			{Code: "WELCOME50", DiscountType: model.DiscountFixed, Value: decimal.NewFromInt(75),
				MinOrderAmount: amount("300"), UsageLimit: limit(1000), IsActive: true},
			{Code: "RETIRED", DiscountType: model.DiscountFixed, Value: decimal.NewFromInt(100), IsActive: false},
		},
	}

	for filename, coupons := range files {
		filePath := filepath.Join(dataDir, filename)

		if err := writeCouponFile(filePath, coupons); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d definitions\n", filePath, len(coupons))
	}

	fmt.Println("\nImport with:")
	fmt.Printf("  COUPON_IMPORT_FILES=%s,%s\n",
		filepath.Join(dataDir, "coupons-base.jsonl.gz"),
		filepath.Join(dataDir, "coupons-seasonal.jsonl.gz"))
}

func writeCouponFile(filePath string, coupons []model.Coupon) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	if _, err := fmt.Fprintf(gzipWriter, "# generated %s\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	enc := json.NewEncoder(gzipWriter)
	for _, c := range coupons {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("failed to write coupon %s: %w", c.Code, err)
		}
	}

	return nil
}
