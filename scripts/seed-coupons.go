package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CouponFile struct {
	Coupons []SeedCoupon `json:"coupons"`
}

type SeedCoupon struct {
	Code          string     `json:"code"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue float64    `json:"discount_value"`
	Active        bool       `json:"active"`
	ExpiresAt     *time.Time `json:"expires_at"`
	MaxUses       *int       `json:"max_uses"`
}

const upsertCouponSQL = `
INSERT INTO coupons (code, discount_type, discount_value, active, expires_at, max_uses)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (code) DO UPDATE SET
    discount_type = EXCLUDED.discount_type,
    discount_value = EXCLUDED.discount_value,
    active = EXCLUDED.active,
    expires_at = EXCLUDED.expires_at,
    max_uses = EXCLUDED.max_uses,
    updated_at = now()`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/seed-coupons.go <coupons-file.json>")
		fmt.Println("Example: go run scripts/seed-coupons.go testdata/sample-coupons.json")
		os.Exit(1)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Println("❌ DATABASE_URL is required")
		os.Exit(1)
	}

	couponFile := os.Args[1]

	fmt.Printf("🌱 Seeding Coupons\n")
	fmt.Printf("============================\n")
	fmt.Printf("Coupons file: %s\n\n", couponFile)

	data, err := os.ReadFile(couponFile)
	if err != nil {
		fmt.Printf("❌ Error reading file: %v\n", err)
		os.Exit(1)
	}

	var file CouponFile
	if err := json.Unmarshal(data, &file); err != nil {
		fmt.Printf("❌ Error parsing JSON: %v\n", err)
		os.Exit(1)
	}
	if len(file.Coupons) == 0 {
		fmt.Println("❌ No coupons found in file")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		fmt.Printf("❌ Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	seeded := 0
	for _, c := range file.Coupons {
		if c.Code == "" || (c.DiscountType != "percentage" && c.DiscountType != "fixed") {
			fmt.Printf("⚠️  Skipping invalid coupon: %+v\n", c)
			continue
		}
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.Code, c.DiscountType, c.DiscountValue, c.Active, c.ExpiresAt, c.MaxUses,
		); err != nil {
			fmt.Printf("❌ Error seeding %s: %v\n", c.Code, err)
			os.Exit(1)
		}
		fmt.Printf("✅ %s (%s %.0f)\n", c.Code, c.DiscountType, c.DiscountValue)
		seeded++
	}

	fmt.Printf("\nDone: %d coupon(s) seeded\n", seeded)
}
