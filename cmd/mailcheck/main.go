// cmd/mailcheck sends one message through the configured email provider.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run ./cmd/mailcheck <recipient>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}
	emailService := email.NewEmailService(cfg, logger.ForApp(logger.New(cfg), cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	testEmail := &email.Email{
		To:          []string{os.Args[1]},
		Subject:     "Test email from " + cfg.App.Name,
		HTMLContent: "<h1>Success!</h1><p>Email delivery is configured correctly.</p>",
		Type:        "test",
	}

	if err := emailService.SendEmail(ctx, testEmail); err != nil {
		log.Fatal("Send failed:", err)
	}

	log.Printf("Email sent via %q provider", cfg.External.Email.Provider)
}
