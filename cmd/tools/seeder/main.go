package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedProducts(ctx, pool)
	seedStaff(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) {
	products := []struct {
		Name        string
		Owner       string
		BottleSize  string
		Category    string
		Subcategory string
		CostPrice   string
		SellPrice   string
		StaffPrice  string
		Stock       int32
	}{
		{"Large Water Bottle", "house", "large", "Drinks", "Water", "5", "20", "10", 120},
		{"Small Water Bottle", "house", "small", "Drinks", "Water", "3", "12", "6", 120},
		{"Protein Bar", "house", "", "Snacks", "Protein", "18", "50", "40", 60},
		{"Energy Drink", "Sharoofa", "", "Drinks", "Energy", "10", "35", "30", 48},
		{"Iced Coffee", "Sharoofa", "", "Drinks", "Coffee", "12", "40", "35", 36},
		{"Creatine Scoop", "house", "", "Supplements", "Creatine", "4", "15", "12", 200},
		{"Gym Towel", "house", "", "Gear", "", "25", "80", "70", 30},
		{"Shaker Bottle", "house", "", "Gear", "", "30", "100", "85", 25},
	}

	log.Println("Seeding Products...")
	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (name, owner, bottle_size, category, subcategory, cost_price, sell_price, staff_price, stock)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)
			ON CONFLICT (lower(name)) DO UPDATE SET
				owner = EXCLUDED.owner,
				bottle_size = EXCLUDED.bottle_size,
				cost_price = EXCLUDED.cost_price,
				sell_price = EXCLUDED.sell_price,
				staff_price = EXCLUDED.staff_price`,
			p.Name, p.Owner, p.BottleSize, p.Category, p.Subcategory,
			p.CostPrice, p.SellPrice, p.StaffPrice, p.Stock)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}

func seedStaff(ctx context.Context, pool *pgxpool.Pool) {
	names := []string{"Omar Khaled", "Nour Adel", "Youssef Samir", "Mariam Tarek"}

	log.Println("Seeding Staff...")
	for _, name := range names {
		_, err := pool.Exec(ctx, `
			INSERT INTO staff_members (name)
			VALUES ($1)
			ON CONFLICT (lower(name)) DO NOTHING`, name)
		if err != nil {
			log.Printf("Failed to seed staff member %s: %v", name, err)
		}
	}
}
