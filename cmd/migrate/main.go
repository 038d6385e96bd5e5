// Command migrate creates the schema, seeds the default patterns and can
// import a file of pre-printed cards into an event.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/bellapacxx/bingo-live/config"
	"github.com/bellapacxx/bingo-live/services"
	"github.com/bellapacxx/bingo-live/utils/logger"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		logger.Errorf("[FATAL] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dsn := fs.String("db", os.Getenv("DATABASE_URL"), "database URL or sqlite file")
	cards := fs.String("cards", "", "JSON file of cards to import")
	eventID := fs.Uint("event", 0, "event that receives the imported cards")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dsn == "" {
		return fmt.Errorf("DATABASE_URL or -db is required")
	}

	db, err := config.Connect(*dsn) // connects + migrates
	if err != nil {
		return err
	}
	logger.Info("✅ Database migration completed successfully")

	if *cards == "" {
		return nil
	}
	if *eventID == 0 {
		return fmt.Errorf("-event is required with -cards")
	}
	purchases := services.NewPurchaseService(db, services.NewDBLocker(db), nil, services.PurchaseConfig{})
	report, err := purchases.LoadCards(ctx, uint(*eventID), *cards)
	if err != nil {
		return err
	}
	for _, reason := range report.Skipped {
		logger.Warnf("skipped: %s", reason)
	}
	return nil
}
