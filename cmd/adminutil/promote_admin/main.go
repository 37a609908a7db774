package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/sudo-init-do/coinvault/internal/config"
	"github.com/sudo-init-do/coinvault/internal/store"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

// promote_admin sets an account's role by email against the configured store.
// Usage:
//
//	go run ./cmd/adminutil/promote_admin -email user@example.com
//	go run ./cmd/adminutil/promote_admin -email user@example.com -demote
func main() {
	email := flag.String("email", "", "Email of the user to promote to admin")
	demote := flag.Bool("demote", false, "Demote the user back to a regular user")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/promote_admin -email user@example.com [-demote]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	backend, closeStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	role := wallet.RoleAdmin
	if *demote {
		role = wallet.RoleUser
	}

	acct, err := backend.Accounts().FindByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("no user found with email %s: %v", *email, err)
	}
	if _, err := backend.Accounts().SetRole(ctx, acct.ID, role); err != nil {
		log.Fatalf("failed to set role: %v", err)
	}

	fmt.Printf("User %s is now %s.\n", acct.Email, role)
}
