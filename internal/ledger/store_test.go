package ledger

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fxwallet/internal/currency"
	"fxwallet/internal/domain"
)

// testDB opens an isolated in-memory database per test
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(10000)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Balance{}, &domain.Transaction{}))
	return db
}

// newUser creates a user with initialized balances and returns its id
func newUser(t *testing.T, store *Store, db *gorm.DB, name string) uint {
	t.Helper()
	user := domain.User{Username: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, store.InitializeBalances(user.ID))
	return user.ID
}

func TestInitializeBalances(t *testing.T) {
	db := testDB(t)
	store := NewStore(db)
	userID := newUser(t, store, db, "alice")

	balances, err := store.GetAllBalances(userID)
	require.NoError(t, err)
	require.Len(t, balances, len(currency.Codes()))
	for i, b := range balances {
		assert.Equal(t, currency.Codes()[i], b.Currency, "display order")
		assert.Equal(t, 0, b.Amount.Sign(), "fresh balances are zero")
	}

	// A second initialization for the same user must conflict
	err = store.InitializeBalances(userID)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestGetBalanceNotFound(t *testing.T) {
	store := NewStore(testDB(t))

	_, err := store.GetBalance(999, "USD")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "balance", notFound.Resource)
}

func TestCreditAndDebit(t *testing.T) {
	db := testDB(t)
	store := NewStore(db)
	userID := newUser(t, store, db, "alice")

	newBalance, err := store.Credit(userID, "USD", currency.NewBaseUnits(100000))
	require.NoError(t, err)
	assert.Equal(t, "100000", newBalance.String())

	newBalance, err = store.Debit(userID, "USD", currency.NewBaseUnits(40000))
	require.NoError(t, err)
	assert.Equal(t, "60000", newBalance.String())

	// Non-positive amounts are rejected before touching the row
	var validation *domain.ValidationError
	_, err = store.Credit(userID, "USD", currency.NewBaseUnits(0))
	assert.ErrorAs(t, err, &validation)
	_, err = store.Debit(userID, "USD", currency.NewBaseUnits(-5))
	assert.ErrorAs(t, err, &validation)

	// Unknown rows surface as not found
	var notFound *domain.NotFoundError
	_, err = store.Credit(999, "USD", currency.NewBaseUnits(1))
	assert.ErrorAs(t, err, &notFound)
	_, err = store.Debit(999, "USD", currency.NewBaseUnits(1))
	assert.ErrorAs(t, err, &notFound)
}

func TestDebitInsufficient(t *testing.T) {
	db := testDB(t)
	store := NewStore(db)
	userID := newUser(t, store, db, "alice")
	_, err := store.Credit(userID, "USD", currency.NewBaseUnits(100000))
	require.NoError(t, err)

	_, err = store.Debit(userID, "USD", currency.NewBaseUnits(200000))
	var insufficient *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "USD", insufficient.Currency)
	assert.Equal(t, "200000", insufficient.Required.String())
	assert.Equal(t, "100000", insufficient.Available.String())

	// The failed debit left the balance untouched
	balance, err := store.GetBalance(userID, "USD")
	require.NoError(t, err)
	assert.Equal(t, "100000", balance.Amount.String())
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := testDB(t)
	store := NewStore(db)
	userID := newUser(t, store, db, "alice")
	_, err := store.Credit(userID, "USD", currency.NewBaseUnits(100000))
	require.NoError(t, err)

	// Two debits that individually fit but jointly overdraw: the conditional
	// UPDATE guard must let exactly one through
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Debit(userID, "USD", currency.NewBaseUnits(60000))
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	var insufficient *domain.InsufficientBalanceError
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorAs(t, err, &insufficient):
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one debit wins")
	assert.Equal(t, 1, rejected, "the other is rejected")

	balance, err := store.GetBalance(userID, "USD")
	require.NoError(t, err)
	assert.Equal(t, "40000", balance.Amount.String())
}

func TestCreateTransaction(t *testing.T) {
	db := testDB(t)
	store := NewStore(db)
	userID := newUser(t, store, db, "alice")

	record, err := store.CreateTransaction(&domain.Transaction{
		SenderID:     userID,
		ReceiverID:   userID,
		FromCurrency: "USD",
		ToCurrency:   "USD",
		FromAmount:   currency.NewBaseUnits(50000),
		ToAmount:     currency.NewBaseUnits(50000),
		Rate:         decimal.New(1, 0),
		Status:       domain.StatusCompleted,
		Type:         domain.TypeDeposit,
	})
	require.NoError(t, err)
	assert.NotZero(t, record.ID, "id is generated")
	assert.False(t, record.CreatedAt.IsZero(), "timestamp is set")

	// Ledger entries must always carry positive amounts on both legs
	_, err = store.CreateTransaction(&domain.Transaction{
		SenderID: userID, ReceiverID: userID,
		FromCurrency: "USD", ToCurrency: "USD",
		FromAmount: currency.NewBaseUnits(0), ToAmount: currency.NewBaseUnits(1),
		Rate: decimal.New(1, 0), Status: domain.StatusCompleted, Type: domain.TypeDeposit,
	})
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestAtomicRollsBackEverything(t *testing.T) {
	db := testDB(t)
	store := NewStore(db)
	userID := newUser(t, store, db, "alice")

	boom := fmt.Errorf("boom")
	err := store.Atomic(func(tx *Store) error {
		if _, err := tx.Credit(userID, "USD", currency.NewBaseUnits(100000)); err != nil {
			return err
		}
		if _, err := tx.CreateTransaction(&domain.Transaction{
			SenderID: userID, ReceiverID: userID,
			FromCurrency: "USD", ToCurrency: "USD",
			FromAmount: currency.NewBaseUnits(100000), ToAmount: currency.NewBaseUnits(100000),
			Rate: decimal.New(1, 0), Status: domain.StatusCompleted, Type: domain.TypeDeposit,
		}); err != nil {
			return err
		}
		return boom // Force a rollback after both writes
	})
	require.ErrorIs(t, err, boom)

	// Neither the credit nor the record survived
	balance, err := store.GetBalance(userID, "USD")
	require.NoError(t, err)
	assert.Equal(t, 0, balance.Amount.Sign())
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}
