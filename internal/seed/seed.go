// Package seed generates synthetic customers, transactions and cases for
// local development and demos.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/luminasar/luminasar/internal/model"
)

// Store is the persistence surface the seeder writes through.
type Store interface {
	SaveCustomer(ctx context.Context, customer *model.Customer) error
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	SaveCase(ctx context.Context, c *model.Case) error
}

var firstNames = []string{
	"Rajesh", "Priya", "Amit", "Sunita", "Vikram", "Ananya", "Arjun",
	"Deepa", "Rahul", "Kavita", "Sanjay", "Meera", "Rohit", "Neha", "Suresh",
}

var lastNames = []string{
	"Sharma", "Patel", "Mehta", "Gupta", "Singh", "Reddy", "Joshi",
	"Desai", "Kumar", "Verma", "Chowdhury", "Nair", "Pandey", "Aggarwal", "Shah",
}

var occupations = []string{
	"Business Owner", "Software Engineer", "Import-Export Dealer",
	"Real Estate Agent", "Jeweler", "Restaurant Owner", "Textile Trader",
	"Pharmaceutical Distributor", "Retired Government Official",
	"Self-Employed Consultant",
}

var bankPrefixes = []string{"SBI", "HDFC", "ICICI", "AXIS"}

var transactionTypes = []string{"wire_transfer", "cash_deposit", "rtgs", "neft", "upi"}

var statedIncomes = []float64{300000, 500000, 800000, 1200000, 2000000, 5000000}

// profile shapes one suspicious-activity scenario.
type profile struct {
	name         string
	typologies   []string
	minAmount    float64
	maxAmount    float64
	minTxns      int
	maxTxns      int
	timeSpanDays int
	sourcePool   int
}

var profiles = []profile{
	{
		name:         "structuring",
		typologies:   []string{"structuring"},
		minAmount:    42000,
		maxAmount:    49900,
		minTxns:      15,
		maxTxns:      30,
		timeSpanDays: 14,
		sourcePool:   5,
	},
	{
		name:         "layering",
		typologies:   []string{"layering"},
		minAmount:    100000,
		maxAmount:    500000,
		minTxns:      20,
		maxTxns:      40,
		timeSpanDays: 5,
		sourcePool:   12,
	},
	{
		name:         "smurfing",
		typologies:   []string{"smurfing"},
		minAmount:    5000,
		maxAmount:    30000,
		minTxns:      30,
		maxTxns:      60,
		timeSpanDays: 10,
		sourcePool:   15,
	},
	{
		name:         "integration",
		typologies:   []string{"integration"},
		minAmount:    500000,
		maxAmount:    5000000,
		minTxns:      5,
		maxTxns:      15,
		timeSpanDays: 30,
		sourcePool:   4,
	},
	{
		name:         "structuring_layering",
		typologies:   []string{"structuring", "layering"},
		minAmount:    42000,
		maxAmount:    49900,
		minTxns:      20,
		maxTxns:      35,
		timeSpanDays: 5,
		sourcePool:   10,
	},
	{
		name:         "clean",
		typologies:   nil,
		minAmount:    2000,
		maxAmount:    60000,
		minTxns:      5,
		maxTxns:      12,
		timeSpanDays: 60,
		sourcePool:   3,
	},
}

// Result summarizes what the seeder wrote.
type Result struct {
	CaseIDs      []string
	Customers    int
	Transactions int
	Cases        int
}

// Seeder generates synthetic data through a store.
type Seeder struct {
	store Store
	rng   *rand.Rand
}

// New creates a seeder. A fixed seed produces reproducible data sets.
func New(store Store, seedValue int64) *Seeder {
	return &Seeder{
		store: store,
		rng:   rand.New(rand.NewSource(seedValue)),
	}
}

// Run generates one customer, transaction batch and case per profile.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	bar := progressbar.NewOptions(len(profiles),
		progressbar.OptionSetDescription("Seeding data"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	for _, p := range profiles {
		customer := s.makeCustomer()
		if err := s.store.SaveCustomer(ctx, customer); err != nil {
			return nil, fmt.Errorf("failed to save customer %s: %w", customer.Name, err)
		}
		result.Customers++

		transactions := s.makeTransactions(customer.ID, p)
		inserted, err := s.store.SaveTransactions(ctx, transactions)
		if err != nil {
			return nil, fmt.Errorf("failed to save transactions for %s: %w", customer.Name, err)
		}
		result.Transactions += inserted

		if p.typologies != nil {
			c := &model.Case{
				ID:         uuid.NewString(),
				CustomerID: customer.ID,
				Status:     model.CaseStatusPending,
				Typologies: p.typologies,
			}
			if err := s.store.SaveCase(ctx, c); err != nil {
				return nil, fmt.Errorf("failed to save case for %s: %w", customer.Name, err)
			}
			result.Cases++
			result.CaseIDs = append(result.CaseIDs, c.ID)
		}

		slog.Debug("Seeded profile",
			"profile", p.name,
			"customer", customer.Name,
			"transactions", inserted)
		_ = bar.Add(1)
	}

	return result, nil
}

func (s *Seeder) makeCustomer() *model.Customer {
	first := firstNames[s.rng.Intn(len(firstNames))]
	last := lastNames[s.rng.Intn(len(lastNames))]

	return &model.Customer{
		ID:            uuid.NewString(),
		Name:          first + " " + last,
		AccountNumber: s.makeAccountNumber(),
		Occupation:    occupations[s.rng.Intn(len(occupations))],
		StatedIncome:  statedIncomes[s.rng.Intn(len(statedIncomes))],
		CustomerSince: time.Now().AddDate(0, 0, -(365 + s.rng.Intn(3285))),
	}
}

func (s *Seeder) makeAccountNumber() string {
	prefix := bankPrefixes[s.rng.Intn(len(bankPrefixes))]
	return fmt.Sprintf("%s%09d", prefix, 100000000+s.rng.Intn(900000000))
}

func (s *Seeder) makeTransactions(customerID string, p profile) []model.Transaction {
	count := p.minTxns + s.rng.Intn(p.maxTxns-p.minTxns+1)
	baseDate := time.Now().UTC().AddDate(0, 0, -(1 + s.rng.Intn(30)))

	externalAccounts := make([]string, p.sourcePool)
	for i := range externalAccounts {
		externalAccounts[i] = s.makeAccountNumber()
	}

	transactions := make([]model.Transaction, 0, count)
	for i := 0; i < count; i++ {
		amount := p.minAmount + s.rng.Float64()*(p.maxAmount-p.minAmount)
		date := baseDate.Add(-time.Duration(s.rng.Intn(p.timeSpanDays*24*60)) * time.Minute)
		external := externalAccounts[s.rng.Intn(len(externalAccounts))]

		txn := model.Transaction{
			ID:         uuid.NewString(),
			CustomerID: customerID,
			Amount:     float64(int(amount*100)) / 100,
			Date:       date,
			Type:       transactionTypes[s.rng.Intn(len(transactionTypes))],
		}

		// 60% inbound, matching real smurfing patterns.
		if s.rng.Float64() < 0.6 {
			txn.SourceAccount = external
			txn.DestinationAccount = "SELF"
		} else {
			txn.SourceAccount = "SELF"
			txn.DestinationAccount = external
		}

		txn.Hash = txn.GenerateHash()
		transactions = append(transactions, txn)
	}
	return transactions
}
