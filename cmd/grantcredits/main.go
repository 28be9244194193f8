package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"mediagen/internal/adapter/repo"
	"mediagen/internal/infra"
)

func main() {
	var (
		userFlag     string
		subFlag      int
		purchaseFlag int
	)

	flag.StringVar(&userFlag, "user", "", "owner ID to credit")
	flag.IntVar(&subFlag, "reset-subscription", -1, "set the subscription bucket to this value (renewal grant)")
	flag.IntVar(&purchaseFlag, "add-purchased", 0, "add this many credits to the purchased bucket")
	flag.Parse()

	ownerID := strings.TrimSpace(userFlag)
	if ownerID == "" {
		exitWithError(errors.New("-user is required"))
	}
	if subFlag < 0 && purchaseFlag <= 0 {
		exitWithError(errors.New("nothing to do: pass -reset-subscription and/or -add-purchased"))
	}

	_ = godotenv.Load()
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "grantcredits").Logger()
	runner := infra.NewSQLRunner(pool, logger)
	ledger := repo.NewCreditLedger(runner, logger)

	if subFlag >= 0 {
		if err := ledger.ResetSubscription(ctx, ownerID, subFlag); err != nil {
			exitWithError(fmt.Errorf("failed to reset subscription credits: %w", err))
		}
	}
	if purchaseFlag > 0 {
		if err := ledger.AddPurchased(ctx, ownerID, purchaseFlag); err != nil {
			exitWithError(fmt.Errorf("failed to add purchased credits: %w", err))
		}
	}

	account, err := ledger.Balance(ctx, ownerID)
	if err != nil {
		exitWithError(fmt.Errorf("failed to load balance: %w", err))
	}
	fmt.Printf("User %s: subscription=%d purchased=%d total=%d\n",
		ownerID, account.SubscriptionCredits, account.PurchasedCredits, account.Total())
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
