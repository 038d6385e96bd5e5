// Command verifywin prints a card and the patterns a called number
// completed on it.
//
//	verifywin [-db DSN] <card-id> <number>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/bellapacxx/bingo-live/config"
	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/services"
)

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("verifywin", flag.ContinueOnError)
	dsn := fs.String("db", os.Getenv("DATABASE_URL"), "database URL or sqlite file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: verifywin [-db DSN] <card-id> <number>")
	}
	cardID, err := strconv.ParseUint(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid card id %q", fs.Arg(0))
	}
	number, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("invalid number %q", fs.Arg(1))
	}
	if *dsn == "" {
		return fmt.Errorf("DATABASE_URL or -db is required")
	}

	db, err := config.OpenDatabase(*dsn)
	if err != nil {
		return err
	}
	return report(ctx, db, uint(cardID), number, out)
}

func report(ctx context.Context, db *gorm.DB, cardID uint, number int, out io.Writer) error {
	catalog := services.NewPatternCatalog(db, game.NewDefaultSource(), 0)
	ledger := services.NewNumberLedger(db, catalog)
	details, grid, err := ledger.CompletedBy(ctx, cardID, number)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Card %d\n", cardID)
	fmt.Fprint(out, game.RenderCard(grid))
	if len(details) == 0 {
		fmt.Fprintf(out, "%s completed no pattern\n", game.Label(number))
		return nil
	}
	fmt.Fprintf(out, "%s completed:\n", game.Label(number))
	for _, d := range details {
		fmt.Fprintf(out, "  %-14s %v\n", d.DisplayName, d.MatchedNumbers)
	}
	return nil
}
