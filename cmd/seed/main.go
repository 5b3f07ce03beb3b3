// Seed tool that loads a synthetic LATAM chargeback dataset into Kestrel.
//
// Usage:
//   go run cmd/seed/main.go -days 90 -seed 42
//
// The dataset is deliberately skewed: two problem merchants with an
// elevated dispute rate, a handful of repeat-offender customers, three
// hot card BINs with tight dispute clusters, and a burst of disputes in
// the trailing week so the spike alert has something to find.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
)

var countries = []string{"MX", "CO", "CL"}

var currencyByCountry = map[string]string{
	"MX": "MXN",
	"CO": "COP",
	"CL": "CLP",
}

// amountRanges are rough local-currency order-of-magnitude bands.
var amountRanges = map[string][2]float64{
	"MXN": {200, 25000},
	"COP": {50000, 2000000},
	"CLP": {5000, 500000},
}

var paymentMethods = []weighted{
	{domain.PaymentCreditCard, 0.60},
	{domain.PaymentDebitCard, 0.25},
	{domain.PaymentLocalPayment, 0.15},
}

var txStatuses = []weighted{
	{domain.TxStatusApproved, 0.85},
	{domain.TxStatusDeclined, 0.10},
	{domain.TxStatusPending, 0.05},
}

var categories = []string{
	"Electronics", "Apparel", "Home Goods", "Digital Goods",
	"Groceries", "Travel", "Beauty",
}

var reasonDescriptions = map[string]string{
	"10.4": "Card-Not-Present Fraud",
	"13.1": "Merchandise/Services Not Received",
	"13.3": "Not as Described or Defective Merchandise",
	"12.6": "Duplicate Processing",
	"13.2": "Cancelled Recurring Transaction",
}

var reasonCodes = []weighted{
	{"10.4", 0.30},
	{"13.1", 0.35},
	{"13.3", 0.20},
	{"12.6", 0.08},
	{"13.2", 0.07},
}

var disputeStatuses = []string{domain.DisputeOpen, domain.DisputeWon, domain.DisputeLost}

// hotBINs are the card prefixes that get dense dispute clusters.
var hotBINs = []string{"411111", "524099", "601100"}

type weighted struct {
	value  string
	weight float64
}

func pick(rng *rand.Rand, choices []weighted) string {
	r := rng.Float64()
	acc := 0.0
	for _, c := range choices {
		acc += c.weight
		if r < acc {
			return c.value
		}
	}
	return choices[len(choices)-1].value
}

func main() {
	days := flag.Int("days", 90, "length of the transaction window in days, ending now")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := domain.DefaultConfig()
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	rng := rand.New(rand.NewSource(*seed))
	snap := buildDataset(rng, *days)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := repo.SeedDataset(ctx, snap); err != nil {
		slog.Error("failed to seed dataset", "error", err)
		os.Exit(1)
	}

	slog.Info("dataset seeded",
		"merchants", len(snap.Merchants),
		"transactions", len(snap.Transactions),
		"chargebacks", len(snap.Chargebacks),
		"seed", *seed,
	)

	publishSeeded(ctx, cfg.EventBus, snap)

	fmt.Printf("Seeded %d merchants, %d transactions, %d chargebacks\n",
		len(snap.Merchants), len(snap.Transactions), len(snap.Chargebacks))
}

// publishSeeded announces the refresh on the bus. Best effort: a seeding
// run without a reachable bus is still a successful seeding run.
func publishSeeded(ctx context.Context, cfg domain.EventBusConfig, snap *domain.Snapshot) {
	busImpl, err := bus.New(cfg)
	if err != nil {
		slog.Warn("event bus unavailable, skipping seed notification", "error", err)
		return
	}
	defer busImpl.Close()

	payload, _ := json.Marshal(map[string]int{
		"merchants":    len(snap.Merchants),
		"transactions": len(snap.Transactions),
		"chargebacks":  len(snap.Chargebacks),
	})
	if err := busImpl.Publish(ctx, domain.TopicDataSeeded, payload); err != nil {
		slog.Warn("failed to publish seed notification", "error", err)
	}
}

func buildDataset(rng *rand.Rand, days int) *domain.Snapshot {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	snap := &domain.Snapshot{}

	problem := []*domain.Merchant{
		{ID: uuid.NewString(), Name: "TechZone Express MX", Country: "MX"},
		{ID: uuid.NewString(), Name: "Moda Rapida CO", Country: "CO"},
	}
	snap.Merchants = append(snap.Merchants, problem...)

	cleanNames := []string{
		"Libreria Central", "Cafe Andino", "ElectroHogar", "Viajes del Sur",
		"Mercado Verde", "Casa Bonita", "TiendaFit", "Dulce Hogar",
		"RopaNova", "Kiosko Digital",
	}
	for i, name := range cleanNames {
		country := countries[i%3]
		snap.Merchants = append(snap.Merchants, &domain.Merchant{
			ID:      uuid.NewString(),
			Name:    fmt.Sprintf("%s %s", name, country),
			Country: country,
		})
	}

	repeatOffenders := make([]string, 5)
	for i := range repeatOffenders {
		repeatOffenders[i] = uuid.NewString()
	}

	problemIDs := map[string]bool{problem[0].ID: true, problem[1].ID: true}

	randomDate := func(lo, hi time.Time) time.Time {
		span := hi.Sub(lo)
		return lo.Add(time.Duration(rng.Int63n(int64(span))))
	}

	for _, m := range snap.Merchants {
		count := 380
		if problemIDs[m.ID] {
			count = 600
		}
		currency := currencyByCountry[m.Country]
		band := amountRanges[currency]

		for i := 0; i < count; i++ {
			customerID := uuid.NewString()
			if rng.Float64() < 0.04 {
				customerID = repeatOffenders[rng.Intn(len(repeatOffenders))]
			}

			method := pick(rng, paymentMethods)
			bin := fmt.Sprintf("%06d", 400000+rng.Intn(200000))
			if method == domain.PaymentCreditCard && rng.Float64() < 0.06 {
				bin = hotBINs[rng.Intn(len(hotBINs))]
			}

			snap.Transactions = append(snap.Transactions, &domain.Transaction{
				ID:              uuid.NewString(),
				Timestamp:       randomDate(start, end),
				Amount:          round2(band[0] + rng.Float64()*(band[1]-band[0])),
				Currency:        currency,
				MerchantID:      m.ID,
				CustomerID:      customerID,
				PaymentMethod:   method,
				Country:         m.Country,
				ProductCategory: categories[rng.Intn(len(categories))],
				Status:          pick(rng, txStatuses),
				CardBIN:         bin,
			})
		}
	}

	buildChargebacks(rng, snap, problemIDs, repeatOffenders, end)
	return snap
}

// buildChargebacks selects transactions to dispute. Problem merchants run
// around 8%, clean merchants around 2%, then the repeat offenders, the hot
// BIN clusters, and a trailing-week burst are layered on top.
func buildChargebacks(rng *rand.Rand, snap *domain.Snapshot, problemIDs map[string]bool, repeatOffenders []string, end time.Time) {
	offenderSet := make(map[string]bool, len(repeatOffenders))
	for _, id := range repeatOffenders {
		offenderSet[id] = true
	}

	selected := make(map[string]*domain.Transaction)

	var approved []*domain.Transaction
	for _, tx := range snap.Transactions {
		if tx.Status != domain.TxStatusApproved {
			continue
		}
		approved = append(approved, tx)

		rate := 0.020
		if problemIDs[tx.MerchantID] {
			rate = 0.08
		}
		if rng.Float64() < rate {
			selected[tx.ID] = tx
		}
	}

	// Repeat offenders dispute most of what they buy.
	offenderPicks := 0
	for _, tx := range approved {
		if offenderPicks >= 15 {
			break
		}
		if offenderSet[tx.CustomerID] && selected[tx.ID] == nil {
			selected[tx.ID] = tx
			offenderPicks++
		}
	}

	// Hot BINs get a cluster of disputes raised close together.
	binGroups := make(map[string][]*domain.Transaction)
	for _, tx := range approved {
		for _, bin := range hotBINs {
			if tx.CardBIN == bin {
				binGroups[bin] = append(binGroups[bin], tx)
			}
		}
	}
	clustered := make(map[string]time.Time)
	for _, group := range binGroups {
		if len(group) < 3 {
			continue
		}
		anchor := end.AddDate(0, 0, -rng.Intn(30)-3)
		for i, tx := range group {
			if i >= 6 {
				break
			}
			selected[tx.ID] = tx
			// Disputes land within a day of the anchor so the pairwise
			// window check always passes.
			clustered[tx.ID] = anchor.Add(time.Duration(rng.Intn(24)) * time.Hour)
		}
	}

	// Burst in the trailing week to trip the spike rule.
	burst := 0
	for _, tx := range approved {
		if burst >= 25 {
			break
		}
		if selected[tx.ID] == nil && problemIDs[tx.MerchantID] {
			selected[tx.ID] = tx
			clustered[tx.ID] = end.AddDate(0, 0, -rng.Intn(6)-1)
			burst++
		}
	}

	for _, tx := range selected {
		code := pick(rng, reasonCodes)
		cbDate, ok := clustered[tx.ID]
		if !ok {
			cbDate = tx.Timestamp.AddDate(0, 0, rng.Intn(45)+1)
		}
		snap.Chargebacks = append(snap.Chargebacks, &domain.Chargeback{
			ID:                uuid.NewString(),
			TransactionID:     tx.ID,
			ChargebackDate:    cbDate,
			ReasonCode:        code,
			ReasonDescription: reasonDescriptions[code],
			Status:            disputeStatuses[rng.Intn(len(disputeStatuses))],
			Amount:            tx.Amount,
		})
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
