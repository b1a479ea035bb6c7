// Command seed creates a demo account so the recovery flow can be exercised
// against a local stack. Not for production use.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/go-recovery-api/internal/config"
	"github.com/go-recovery-api/internal/domain"
	"github.com/go-recovery-api/internal/infrastructure/dynamo"
	"github.com/go-recovery-api/internal/pkg/id"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	email := flag.String("email", "alice@example.com", "account email")
	password := flag.String("password", "Password!23", "account password")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}
	cfg := config.Load()

	client := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), client, cfg.DynamoTables)
	accounts := dynamo.NewAccountRepo(client, cfg.DynamoTables.Accounts)

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:    id.New(),
		Email:        *email,
		PasswordHash: string(hash),
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := accounts.Put(context.Background(), a); err != nil {
		log.Fatalf("create account: %v", err)
	}
	log.Printf("created account %s (%s)", a.AccountID, a.Email)
}
