// Command migrate is the administrative CLI: schema migrations plus a
// status check across the engines the Registry would normally resolve.
// Exit codes follow §6 of the spec: 0 success, 1 validation failure, 2
// configuration error, 3 rate-limit exhausted across every engine, 4
// cache/store unreachable.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/musicfed/aggregator/internal/config"
	"github.com/musicfed/aggregator/internal/engine/adapters"
	"github.com/musicfed/aggregator/internal/ratelimit"
	"github.com/musicfed/aggregator/internal/registry"
	"github.com/musicfed/aggregator/internal/store"
)

const (
	exitSuccess           = 0
	exitValidationFailure = 1
	exitConfigError       = 2
	exitRateLimited       = 3
	exitStoreUnreachable  = 4
)

func fail(code int, format string, args ...any) {
	log.Printf(format, args...)
	os.Exit(code)
}

func main() {
	if len(os.Args) < 2 {
		fail(exitValidationFailure, "Usage: migrate [up|down|drop|version|force <version>|status]")
	}

	command := os.Args[1]

	validCommands := map[string]bool{"up": true, "down": true, "drop": true, "version": true, "force": true, "status": true}
	if !validCommands[command] {
		fail(exitValidationFailure, "Unknown command %q. Use: up, down, drop, version, force, or status", command)
	}
	if command == "force" && len(os.Args) < 3 {
		fail(exitValidationFailure, "Usage: migrate force <version>")
	}

	cfg, err := config.Load()
	if err != nil {
		fail(exitConfigError, "Failed to load configuration: %v", err)
	}

	if command == "status" {
		runStatus(cfg)
		return
	}

	m, err := migrate.New("file://migrations", cfg.GetDatabaseDSN())
	if err != nil {
		fail(exitStoreUnreachable, "Failed to create migration instance: %v", err)
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			fail(exitStoreUnreachable, "Failed to run migrations: %v", err)
		}
		fmt.Println("Migrations applied successfully")

	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			fail(exitStoreUnreachable, "Failed to rollback migrations: %v", err)
		}
		fmt.Println("Migrations rolled back successfully")

	case "drop":
		if err := m.Drop(); err != nil {
			fail(exitStoreUnreachable, "Failed to drop database: %v", err)
		}
		fmt.Println("Database dropped successfully")

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			fail(exitStoreUnreachable, "Failed to get migration version: %v", err)
		}
		fmt.Printf("Current migration version: %d, dirty: %t\n", version, dirty)

	case "force":
		version := os.Args[2]
		var v int
		if _, err := fmt.Sscanf(version, "%d", &v); err != nil {
			fail(exitValidationFailure, "Invalid version number: %v", err)
		}
		if err := m.Force(v); err != nil {
			fail(exitStoreUnreachable, "Failed to force migration version: %v", err)
		}
		fmt.Printf("Forced migration to version %d\n", v)
	}

	os.Exit(exitSuccess)
}

// runStatus reports per-engine rate-limit budget and exits 3 if every
// enabled engine's bucket is currently exhausted, 4 if Redis itself can't
// be reached.
func runStatus(cfg *config.Config) {
	redisClient, err := store.NewRedisConnection(cfg.RedisURL)
	if err != nil {
		fail(exitStoreUnreachable, "Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	reg := registry.New(
		adapters.MusicBrainz{},
		adapters.TidalWeb{},
		adapters.MusicToScrape{},
		adapters.RadioParadise{},
		adapters.RadioBrowser{},
		adapters.NewSpotify(cfg.SpotifyClientID, cfg.SpotifyClientSecret),
		adapters.NewGenius(cfg.GeniusAPIToken),
	)

	limiter := ratelimit.New(redisClient)
	ctx := context.Background()

	enabled := reg.Enabled()
	if len(enabled) == 0 {
		fmt.Println("No engines enabled")
		os.Exit(exitSuccess)
	}

	exhausted := 0
	for _, d := range enabled {
		remaining := limiter.Remaining(ctx, d.Name, d.RateLimit, d.RatePeriod)
		fmt.Printf("%-15s remaining=%d/%d\n", d.Name, remaining.Remaining, remaining.Limit)
		if remaining.Remaining == 0 {
			exhausted++
		}
	}

	if exhausted == len(enabled) {
		fail(exitRateLimited, "All %d enabled engines are rate-limit exhausted", exhausted)
	}

	os.Exit(exitSuccess)
}
