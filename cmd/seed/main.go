package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/garyjia/procurement/internal/config"
	"github.com/garyjia/procurement/internal/container"
	"go.uber.org/zap"
)

// Applies a seed file of users and approval templates, then optionally
// prints a development bearer token for one of the seeded users.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	seedPath := flag.String("file", "configs/seed.yaml", "seed file to apply")
	tokenFor := flag.String("token-for", "", "user id to issue a development token for")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ccfg := cfg.ToContainerConfig()
	ccfg.SeedPath = ""

	logger := zap.NewNop()
	if os.Getenv("SEED_VERBOSE") != "" {
		logger, _ = zap.NewDevelopment()
	}

	c, err := container.NewContainer(ccfg, logger)
	if err != nil {
		log.Fatalf("Failed to create container: %v", err)
	}

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		log.Fatalf("Failed to start container: %v", err)
	}
	defer c.Close()

	result, err := container.ApplySeed(ctx, *seedPath, c.Repositories(), c.TxManager(), logger)
	if err != nil {
		log.Fatalf("Failed to apply seed: %v", err)
	}
	fmt.Printf("Seed applied: %d users, %d templates created, %d templates already present\n",
		result.Users, result.TemplatesCreated, result.TemplatesSkipped)

	if *tokenFor == "" {
		return
	}

	user, err := c.Repositories().Users.GetByID(ctx, *tokenFor)
	if err != nil || user == nil {
		log.Fatalf("Unknown user %q", *tokenFor)
	}

	token, expiresAt, err := c.Authenticator().IssueToken(user)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Printf("\nToken for %s (%s), expires %s:\n%s\n", user.Name, user.Role, expiresAt.Format("2006-01-02 15:04"), token)
}
