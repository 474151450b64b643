package cmd

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/dvloznov/budgetiq/internal/transactions"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	seedUser  string
	seedCount int
	seedDays  int
	seedValue int64
)

// seedMerchants are recognised by the default categorisation rules, so seeded
// data exercises the suggestions endpoint.
var seedMerchants = []string{
	"Uber trip", "Ola ride", "Amazon", "Flipkart", "Cafe Coffee Day",
	"Apollo Pharmacy", "Netflix", "Spotify", "Corner Restaurant",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert fake transactions for a user",
	Long: `seed inserts randomly generated, uncategorised transactions for an existing
user. Roughly half of the merchants are well-known names that the
categoriser recognises; the rest are fake company names.`,
	Example: "  budgetiq seed --user 6f1c... --count 50",
	Run: func(cmd *cobra.Command, args []string) {
		if seedUser == "" {
			exitOnError(fmt.Errorf("--user is required"), "invalid flags")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		a, ctx, err := newApp(ctx)
		exitOnError(err, "failed to initialise application")
		defer a.Close()

		faker := gofakeit.New(seedValue)
		today := civil.DateOf(time.Now())
		reqs := fakeTransactions(faker, seedCount, seedDays, today, a.Config.Currency.DefaultAccountCurrency)

		for i, req := range reqs {
			if _, err := a.Transactions.Create(ctx, seedUser, req); err != nil {
				exitOnError(err, fmt.Sprintf("failed to insert transaction %d", i))
			}
		}
		a.Log.Info().Str("user_id", seedUser).Int("count", len(reqs)).Msg("Seeded transactions")
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedUser, "user", "", "user ID to seed (required)")
	seedCmd.Flags().IntVar(&seedCount, "count", 25, "number of transactions")
	seedCmd.Flags().IntVar(&seedDays, "days", 90, "spread transactions over this many past days")
	seedCmd.Flags().Int64Var(&seedValue, "seed", 0, "random seed (0 picks one)")
}

// fakeTransactions generates n expense transactions dated within the last
// days days up to today.
func fakeTransactions(faker *gofakeit.Faker, n, days int, today civil.Date, currency string) []transactions.CreateRequest {
	if days < 1 {
		days = 1
	}
	out := make([]transactions.CreateRequest, 0, n)
	for i := 0; i < n; i++ {
		merchant := faker.Company()
		if faker.Bool() {
			merchant = faker.RandomString(seedMerchants)
		}
		amount := decimal.NewFromFloat(faker.Price(1, 500)).Round(2).Neg()
		out = append(out, transactions.CreateRequest{
			Date:     today.AddDays(-faker.Number(0, days-1)).String(),
			Amount:   amount,
			Currency: currency,
			Merchant: merchant,
			Notes:    faker.Sentence(5),
		})
	}
	return out
}
