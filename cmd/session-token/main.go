package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// session-token registers a browsing session and prints a bearer token for it.
// Sign-in lives outside this service; this is for local testing.
func main() {
	logg := logger.New(logger.Options{ServiceName: "session-token"})

	_ = godotenv.Load()

	userFlag := flag.String("user", "", "shopper user id (random when empty)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("failed to load config: %v", err)
	}
	if cfg.App.IsProd() {
		fail("refusing to mint session tokens in %s", cfg.App.Env)
	}

	userID := uuid.New()
	if *userFlag != "" {
		userID, err = uuid.Parse(*userFlag)
		if err != nil {
			fail("invalid -user: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		fail("failed to bootstrap redis: %v", err)
	}
	defer redisClient.Close()

	manager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		fail("failed to create session manager: %v", err)
	}
	accessID, err := manager.Generate(ctx, userID)
	if err != nil {
		fail("failed to register session: %v", err)
	}

	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		JTI:    accessID,
	})
	if err != nil {
		fail("failed to mint token: %v", err)
	}

	fmt.Println("user_id:   ", userID)
	fmt.Println("session_id:", accessID)
	fmt.Println("token:     ", token)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
