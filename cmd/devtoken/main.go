// cmd/devtoken mints an access token signed with the configured secret, for
// calling authenticated endpoints locally without the hosted auth provider.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run ./cmd/devtoken <email> [user-id]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to mint tokens in production")
	}

	email := os.Args[1]
	userID := uuid.NewString()
	if len(os.Args) > 2 {
		userID = os.Args[2]
	}

	token, err := auth.NewJWTManager(cfg).GenerateAccessToken(userID, email)
	if err != nil {
		log.Fatal("Error generating token:", err)
	}

	admin := auth.NewAdminSet(cfg.Auth.AdminEmails).Contains(email)

	fmt.Printf("User ID: %s\n", userID)
	fmt.Printf("Email: %s (admin: %t)\n", email, admin)
	fmt.Printf("Authorization: Bearer %s\n", token)
}
