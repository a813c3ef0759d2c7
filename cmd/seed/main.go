package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/restodesk/api/internal/config"
	"github.com/restodesk/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// CLI flags
	email := flag.String("email", "", "Owner email address")
	password := flag.String("password", "", "Owner password")
	name := flag.String("name", "", "Owner full name")
	restaurant := flag.String("restaurant", "", "Restaurant name")
	demo := flag.Bool("demo", false, "Also seed a demo menu with ingredient stock")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}
	if *restaurant == "" {
		*restaurant = os.Getenv("SEED_RESTAURANT")
	}

	// Fall back to defaults
	if *email == "" {
		*email = "owner@restodesk.local"
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}
	if *name == "" {
		*name = "Restaurant Owner"
	}
	if *restaurant == "" {
		*restaurant = "Demo Bistro"
	}

	_ = godotenv.Load()
	dbURL := config.Load().DatabaseURL

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed in a transaction (atomicity: both restaurant + user or neither)
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	restaurantID, err := seedRestaurant(ctx, tx, *restaurant)
	if err != nil {
		log.Fatalf("Failed to seed restaurant: %v", err)
	}

	userID, err := seedOwner(ctx, tx, restaurantID, *email, *password, *name)
	if err != nil {
		log.Fatalf("Failed to seed owner: %v", err)
	}

	if *demo {
		if err := seedDemoMenu(ctx, tx, restaurantID); err != nil {
			log.Fatalf("Failed to seed demo menu: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Restaurant ID: %s", restaurantID)
	log.Printf("Owner ID: %s", userID)
}

// seedRestaurant creates the restaurant if it doesn't exist.
func seedRestaurant(ctx context.Context, tx pgx.Tx, name string) (uuid.UUID, error) {
	var existingID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM restaurants WHERE name = $1 LIMIT 1`, name).Scan(&existingID)
	if err == nil {
		log.Printf("Restaurant '%s' already exists (ID: %s), skipping", name, existingID)
		return existingID, nil
	}
	if err != pgx.ErrNoRows {
		return uuid.Nil, fmt.Errorf("check restaurant: %w", err)
	}

	var newID uuid.UUID
	err = tx.QueryRow(ctx, `INSERT INTO restaurants (name) VALUES ($1) RETURNING id`, name).Scan(&newID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert restaurant: %w", err)
	}

	log.Printf("Created restaurant '%s' (ID: %s)", name, newID)
	return newID, nil
}

// seedOwner creates the owner user if it doesn't exist.
func seedOwner(ctx context.Context, tx pgx.Tx, restaurantID uuid.UUID, email, password, fullName string) (uuid.UUID, error) {
	// Check if user already exists
	var existingID uuid.UUID
	checkSQL := `SELECT id FROM users WHERE email = $1 LIMIT 1`
	err := tx.QueryRow(ctx, checkSQL, email).Scan(&existingID)
	if err == nil {
		log.Printf("User '%s' already exists (ID: %s), skipping", email, existingID)
		return existingID, nil
	}
	if err != pgx.ErrNoRows {
		return uuid.Nil, fmt.Errorf("check user: %w", err)
	}

	// Hash password
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	// Create user
	insertSQL := `
		INSERT INTO users (restaurant_id, email, hashed_password, full_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING id
	`
	var newID uuid.UUID
	err = tx.QueryRow(ctx, insertSQL, restaurantID, email, string(hashed), fullName, enum.UserRoleOwner).Scan(&newID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}

	log.Printf("Created owner user '%s' (ID: %s)", email, newID)
	return newID, nil
}

// demoIngredient is one inventory row and how much of it a burger uses.
type demoIngredient struct {
	name     string
	unit     string
	stock    string
	minStock string
	perItem  string
}

// seedDemoMenu creates a Burger whose recipe draws on Bun and Patty stock.
// Skipped when the restaurant already has menu items.
func seedDemoMenu(ctx context.Context, tx pgx.Tx, restaurantID uuid.UUID) error {
	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM menu_items WHERE restaurant_id = $1`, restaurantID).Scan(&count); err != nil {
		return fmt.Errorf("check menu items: %w", err)
	}
	if count > 0 {
		log.Printf("Restaurant already has %d menu items, skipping demo menu", count)
		return nil
	}

	var categoryID uuid.UUID
	err := tx.QueryRow(ctx,
		`INSERT INTO menu_categories (restaurant_id, name, sort_order) VALUES ($1, 'Mains', 1) RETURNING id`,
		restaurantID).Scan(&categoryID)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}

	var burgerID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO menu_items (restaurant_id, category_id, name, price, prep_time) VALUES ($1, $2, 'Burger', 12.50, 10) RETURNING id`,
		restaurantID, categoryID).Scan(&burgerID)
	if err != nil {
		return fmt.Errorf("insert menu item: %w", err)
	}

	ingredients := []demoIngredient{
		{name: "Bun", unit: "pcs", stock: "10", minStock: "4", perItem: "2"},
		{name: "Patty", unit: "pcs", stock: "5", minStock: "2", perItem: "1"},
	}
	for _, ing := range ingredients {
		var invID uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO inventory (restaurant_id, item_name, category, current_stock, min_stock, unit)
			VALUES ($1, $2, 'Kitchen', $3::numeric, $4::numeric, $5)
			RETURNING id`,
			restaurantID, ing.name, ing.stock, ing.minStock, ing.unit).Scan(&invID)
		if err != nil {
			return fmt.Errorf("insert inventory %s: %w", ing.name, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO menu_item_ingredients (menu_item_id, inventory_id, quantity) VALUES ($1, $2, $3::numeric)`,
			burgerID, invID, ing.perItem)
		if err != nil {
			return fmt.Errorf("insert ingredient %s: %w", ing.name, err)
		}
	}

	_, err = tx.Exec(ctx, `
		WITH s AS (
			INSERT INTO menu_sets (restaurant_id, name, price) VALUES ($1, 'Burger Duo', 22.00) RETURNING id
		)
		INSERT INTO menu_set_items (menu_set_id, menu_item_id, quantity) SELECT id, $2, 2 FROM s`,
		restaurantID, burgerID)
	if err != nil {
		return fmt.Errorf("insert menu set: %w", err)
	}

	log.Printf("Created demo menu: Burger (ID: %s) with %d ingredients", burgerID, len(ingredients))
	return nil
}
