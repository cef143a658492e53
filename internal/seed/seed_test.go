package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminasar/luminasar/internal/model"
)

type mockStore struct {
	customers    []*model.Customer
	transactions []model.Transaction
	cases        []*model.Case
}

func (m *mockStore) SaveCustomer(_ context.Context, customer *model.Customer) error {
	m.customers = append(m.customers, customer)
	return nil
}

func (m *mockStore) SaveTransactions(_ context.Context, transactions []model.Transaction) (int, error) {
	m.transactions = append(m.transactions, transactions...)
	return len(transactions), nil
}

func (m *mockStore) SaveCase(_ context.Context, c *model.Case) error {
	m.cases = append(m.cases, c)
	return nil
}

func TestRunSeedsAllProfiles(t *testing.T) {
	store := &mockStore{}

	result, err := New(store, 42).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, len(profiles), result.Customers)
	// The clean profile gets no case.
	assert.Equal(t, len(profiles)-1, result.Cases)
	assert.Len(t, result.CaseIDs, result.Cases)
	assert.Greater(t, result.Transactions, 0)
}

func TestRunIsReproducible(t *testing.T) {
	first := &mockStore{}
	_, err := New(first, 7).Run(context.Background())
	require.NoError(t, err)

	second := &mockStore{}
	_, err = New(second, 7).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(first.customers), len(second.customers))
	for i := range first.customers {
		assert.Equal(t, first.customers[i].Name, second.customers[i].Name)
		assert.Equal(t, first.customers[i].AccountNumber, second.customers[i].AccountNumber)
	}

	require.Equal(t, len(first.transactions), len(second.transactions))
	for i := range first.transactions {
		assert.Equal(t, first.transactions[i].Amount, second.transactions[i].Amount)
	}
}

func TestSeededDataIsValid(t *testing.T) {
	store := &mockStore{}

	_, err := New(store, 99).Run(context.Background())
	require.NoError(t, err)

	customerIDs := make(map[string]bool)
	for _, customer := range store.customers {
		assert.NotEmpty(t, customer.ID)
		assert.NotEmpty(t, customer.Name)
		assert.NotEmpty(t, customer.AccountNumber)
		assert.Greater(t, customer.StatedIncome, 0.0)
		customerIDs[customer.ID] = true
	}

	for _, txn := range store.transactions {
		assert.NotEmpty(t, txn.ID)
		assert.NotEmpty(t, txn.Hash)
		assert.Greater(t, txn.Amount, 0.0)
		assert.True(t, customerIDs[txn.CustomerID], "transaction references unknown customer")
		assert.False(t, txn.Date.IsZero())
	}

	for _, c := range store.cases {
		assert.NotEmpty(t, c.ID)
		assert.True(t, customerIDs[c.CustomerID], "case references unknown customer")
		assert.Equal(t, model.CaseStatusPending, c.Status)
		assert.NotEmpty(t, c.Typologies)
	}
}

func TestStructuringProfileStaysBelowThreshold(t *testing.T) {
	store := &mockStore{}

	_, err := New(store, 1).Run(context.Background())
	require.NoError(t, err)

	// The first profile seeds only near-threshold amounts.
	structuringCustomer := store.customers[0].ID
	count := 0
	for _, txn := range store.transactions {
		if txn.CustomerID != structuringCustomer {
			continue
		}
		count++
		assert.GreaterOrEqual(t, txn.Amount, 42000.0)
		assert.Less(t, txn.Amount, 50000.0)
	}
	assert.GreaterOrEqual(t, count, 15)
}
