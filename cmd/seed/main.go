package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nadab-hotels/orders-api/internal/auth"
	"github.com/nadab-hotels/orders-api/internal/config"
	"github.com/nadab-hotels/orders-api/internal/database"
)

func main() {
	// CLI flags
	hotelID := flag.String("hotel-id", "", "Hotel id")
	hotelName := flag.String("hotel-name", "", "Hotel business name")
	hotelDevice := flag.String("hotel-device", "", "Hotel FCM device token")
	customerID := flag.String("customer-id", "", "Customer id")
	customerName := flag.String("customer-name", "", "Customer full name")
	customerDevice := flag.String("customer-device", "", "Customer FCM device token")
	flag.Parse()

	// Fall back to environment variables
	if *hotelID == "" {
		*hotelID = os.Getenv("SEED_HOTEL_ID")
	}
	if *customerID == "" {
		*customerID = os.Getenv("SEED_CUSTOMER_ID")
	}

	// Fall back to defaults
	if *hotelID == "" {
		*hotelID = "dev-hotel"
	}
	if *hotelName == "" {
		*hotelName = "Nadab Dev Hotel"
	}
	if *customerID == "" {
		*customerID = "dev-customer"
	}
	if *customerName == "" {
		*customerName = "Dev Customer"
	}

	cfg := config.Load()
	if cfg.SessionKey == "dev-session-key-change-in-production" {
		log.Println("WARNING: Using the default SESSION_KEY. Tokens printed below only work against a dev server.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := database.Open(ctx, database.Options{
		Driver:        cfg.StoreDriver,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		PostgresURL:   cfg.DatabaseURL,
		ConnTimeout:   10 * time.Second,
	})
	if err != nil {
		log.Fatalf("Unable to open store: %v", err)
	}
	defer store.Close(ctx)
	log.Printf("Connected to %s store", cfg.StoreDriver)

	hotel := database.Hotel{ID: *hotelID, BusinessName: *hotelName, FCMToken: *hotelDevice}
	if err := store.UpsertHotel(ctx, hotel); err != nil {
		log.Fatalf("Failed to seed hotel: %v", err)
	}
	customer := database.Customer{ID: *customerID, FullName: *customerName, FCMToken: *customerDevice}
	if err := store.UpsertCustomer(ctx, customer); err != nil {
		log.Fatalf("Failed to seed customer: %v", err)
	}

	hotelToken, err := auth.GenerateToken(cfg.SessionKey, hotel.ID, "hotel", 0)
	if err != nil {
		log.Fatalf("Failed to sign hotel token: %v", err)
	}
	customerToken, err := auth.GenerateToken(cfg.SessionKey, customer.ID, "customer", 0)
	if err != nil {
		log.Fatalf("Failed to sign customer token: %v", err)
	}

	fmt.Println("Seed completed successfully!")
	fmt.Printf("  Hotel:    %s (%s)\n", hotel.BusinessName, hotel.ID)
	fmt.Printf("  Customer: %s (%s)\n", customer.FullName, customer.ID)
	fmt.Println()
	fmt.Println("Send one of these as the x-token header:")
	fmt.Printf("  hotel:    %s\n", hotelToken)
	fmt.Printf("  customer: %s\n", customerToken)
}
