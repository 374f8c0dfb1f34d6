package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fxwallet/internal/currency"
	"fxwallet/internal/domain"
	"fxwallet/internal/ledger"
	"fxwallet/internal/rates"
)

// testEngine wires an engine over an isolated in-memory database and the
// static rate table (USD/EUR = 0.91)
func testEngine(t *testing.T) (*Engine, *gorm.DB, *ledger.Store) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(10000)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Balance{}, &domain.Transaction{}))
	static, err := rates.NewStaticProvider(nil)
	require.NoError(t, err)
	store := ledger.NewStore(db)
	return NewEngine(db, store, static), db, store
}

// newUser creates a user with initialized balances
func newUser(t *testing.T, db *gorm.DB, store *ledger.Store, name string) uint {
	t.Helper()
	user := domain.User{Username: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, store.InitializeBalances(user.ID))
	return user.ID
}

func TestDeposit(t *testing.T) {
	eng, db, store := testEngine(t)
	alice := newUser(t, db, store, "alice")
	_, err := store.Credit(alice, "USD", currency.NewBaseUnits(100000))
	require.NoError(t, err)

	// $1000.00 held, deposit $500.00 -> $1500.00
	result, err := eng.Deposit(context.Background(), alice, "USD", 500.00)
	require.NoError(t, err)
	assert.Equal(t, "150000", result.NewBalance.BaseUnits.String())
	assert.Equal(t, "$1500.00", result.NewBalance.Formatted)

	// Exactly one record, with the deposit invariants
	record := result.Transaction
	require.NotNil(t, record)
	assert.Equal(t, alice, record.SenderID)
	assert.Equal(t, alice, record.ReceiverID)
	assert.Equal(t, record.FromCurrency, record.ToCurrency)
	assert.Equal(t, "50000", record.FromAmount.String())
	assert.Equal(t, "50000", record.ToAmount.String())
	assert.True(t, record.Rate.Equal(decimal.New(1, 0)))
	assert.Equal(t, domain.TypeDeposit, record.Type)
	assert.Equal(t, domain.StatusCompleted, record.Status)

	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDepositValidation(t *testing.T) {
	eng, db, store := testEngine(t)
	alice := newUser(t, db, store, "alice")

	var validation *domain.ValidationError
	_, err := eng.Deposit(context.Background(), alice, "XYZ", 100)
	assert.ErrorAs(t, err, &validation, "unsupported currency")

	_, err = eng.Deposit(context.Background(), alice, "USD", -5)
	assert.ErrorAs(t, err, &validation, "negative amount")

	_, err = eng.Deposit(context.Background(), alice, "USD", 0.001)
	assert.ErrorAs(t, err, &validation, "rounds to zero base units")

	var notFound *domain.NotFoundError
	_, err = eng.Deposit(context.Background(), 999, "USD", 100)
	assert.ErrorAs(t, err, &notFound, "unknown user")

	// No record was written by any failed attempt
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTransferWithConversion(t *testing.T) {
	eng, db, store := testEngine(t)
	alice := newUser(t, db, store, "alice")
	bob := newUser(t, db, store, "bob")
	_, err := store.Credit(alice, "USD", currency.NewBaseUnits(100000))
	require.NoError(t, err)

	// 100.00 USD -> EUR at 0.91: sender loses 10000, recipient gains 9100
	result, err := eng.Transfer(context.Background(), alice, "bob", "USD", "EUR", 100.00, "")
	require.NoError(t, err)
	assert.Equal(t, "90000", result.SenderBalance.BaseUnits.String())
	assert.Equal(t, "bob", result.RecipientUsername)
	assert.True(t, result.RecipientReceived.Equal(decimal.RequireFromString("91.00")),
		"received %s", result.RecipientReceived)

	bobBalance, err := store.GetBalance(bob, "EUR")
	require.NoError(t, err)
	assert.Equal(t, "9100", bobBalance.Amount.String())

	record := result.Transaction
	assert.Equal(t, alice, record.SenderID)
	assert.Equal(t, bob, record.ReceiverID)
	assert.Equal(t, "USD", record.FromCurrency)
	assert.Equal(t, "EUR", record.ToCurrency)
	assert.Equal(t, "10000", record.FromAmount.String())
	assert.Equal(t, "9100", record.ToAmount.String())
	assert.True(t, record.Rate.Equal(decimal.RequireFromString("0.91")))
	assert.Equal(t, domain.TypeTransfer, record.Type)
}

func TestTransferSameCurrency(t *testing.T) {
	eng, db, store := testEngine(t)
	alice := newUser(t, db, store, "alice")
	_ = newUser(t, db, store, "bob")
	_, err := store.Credit(alice, "USD", currency.NewBaseUnits(100000))
	require.NoError(t, err)

	// Identity conversion: rate 1, both legs equal post-quantization
	result, err := eng.Transfer(context.Background(), alice, "bob", "USD", "USD", 250.00, "")
	require.NoError(t, err)
	record := result.Transaction
	assert.True(t, record.Rate.Equal(decimal.New(1, 0)))
	assert.Equal(t, 0, record.FromAmount.Cmp(record.ToAmount))
	assert.Equal(t, "25000", record.ToAmount.String())
}

func TestTransferInsufficientBalance(t *testing.T) {
	eng, db, store := testEngine(t)
	alice := newUser(t, db, store, "alice")
	bob := newUser(t, db, store, "bob")
	_, err := store.Credit(alice, "USD", currency.NewBaseUnits(100000))
	require.NoError(t, err)

	// $2000.00 requested against $1000.00 held
	_, err = eng.Transfer(context.Background(), alice, "bob", "USD", "USD", 2000.00, "")
	var insufficient *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "USD", insufficient.Currency)
	assert.Equal(t, "200000", insufficient.Required.String())
	assert.Equal(t, "100000", insufficient.Available.String())

	// All-or-nothing: both balances untouched, no record written
	aliceBalance, err := store.GetBalance(alice, "USD")
	require.NoError(t, err)
	assert.Equal(t, "100000", aliceBalance.Amount.String())
	bobBalance, err := store.GetBalance(bob, "USD")
	require.NoError(t, err)
	assert.Equal(t, 0, bobBalance.Amount.Sign())
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTransferToSelf(t *testing.T) {
	eng, db, store := testEngine(t)
	alice := newUser(t, db, store, "alice")
	_, err := store.Credit(alice, "USD", currency.NewBaseUnits(100000))
	require.NoError(t, err)

	// Both identifiers the user owns are rejected before any mutation
	for _, ident := range []string{"alice", "ALICE", "alice@example.com"} {
		_, err := eng.Transfer(context.Background(), alice, ident, "USD", "USD", 10, "")
		var rule *domain.BusinessRuleError
		require.ErrorAs(t, err, &rule, "identifier %q", ident)
		assert.Equal(t, "cannot transfer to yourself", rule.Message)
	}

	balance, err := store.GetBalance(alice, "USD")
	require.NoError(t, err)
	assert.Equal(t, "100000", balance.Amount.String())
}

func TestTransferRecipientResolution(t *testing.T) {
	eng, db, store := testEngine(t)
	alice := newUser(t, db, store, "alice")
	newUser(t, db, store, "bob")
	_, err := store.Credit(alice, "USD", currency.NewBaseUnits(100000))
	require.NoError(t, err)

	// Email and username resolve case-insensitively
	result, err := eng.Transfer(context.Background(), alice, "BOB@Example.Com", "USD", "USD", 10, "")
	require.NoError(t, err)
	assert.Equal(t, "bob", result.RecipientUsername)

	var notFound *domain.NotFoundError
	_, err = eng.Transfer(context.Background(), alice, "nobody", "USD", "USD", 10, "")
	assert.ErrorAs(t, err, &notFound)

	var validation *domain.ValidationError
	_, err = eng.Transfer(context.Background(), alice, "  ", "USD", "USD", 10, "")
	assert.ErrorAs(t, err, &validation, "blank identifier")
}

func TestTransferPaymentAlias(t *testing.T) {
	eng, db, store := testEngine(t)
	alice := newUser(t, db, store, "alice")
	newUser(t, db, store, "bob")
	_, err := store.Credit(alice, "USD", currency.NewBaseUnits(100000))
	require.NoError(t, err)

	result, err := eng.Transfer(context.Background(), alice, "bob", "USD", "USD", 10, domain.TypePayment)
	require.NoError(t, err)
	assert.Equal(t, domain.TypePayment, result.Transaction.Type)

	var validation *domain.ValidationError
	_, err = eng.Transfer(context.Background(), alice, "bob", "USD", "USD", 10, "refund")
	assert.ErrorAs(t, err, &validation)
}

func TestPreviewConversion(t *testing.T) {
	eng, db, store := testEngine(t)
	newUser(t, db, store, "alice")

	preview, err := eng.PreviewConversion(context.Background(), "USD", "EUR", 100.00)
	require.NoError(t, err)
	assert.True(t, preview.Rate.Equal(decimal.RequireFromString("0.91")))
	assert.True(t, preview.ToAmount.Equal(decimal.RequireFromString("91")))
	assert.Equal(t, "$100.00", preview.FormattedAmount)
	assert.Equal(t, "€91.00", preview.FormattedResult)
	product := preview.Rate.Mul(preview.InverseRate).Round(10)
	assert.True(t, product.Equal(decimal.New(1, 0)))

	// Pure: a preview writes nothing
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)

	var validation *domain.ValidationError
	_, err = eng.PreviewConversion(context.Background(), "USD", "XYZ", 100)
	assert.ErrorAs(t, err, &validation)
}

func TestGetRate(t *testing.T) {
	eng, _, _ := testEngine(t)

	rate, err := eng.GetRate(context.Background(), "USD", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.New(1, 0)))

	var validation *domain.ValidationError
	_, err = eng.GetRate(context.Background(), "USD", "XYZ")
	assert.ErrorAs(t, err, &validation)
}

func TestGetAllBalances(t *testing.T) {
	eng, db, store := testEngine(t)
	alice := newUser(t, db, store, "alice")

	// Freshly initialized user: one zero row per supported currency
	balances, err := eng.GetAllBalances(alice)
	require.NoError(t, err)
	require.Len(t, balances, len(currency.Codes()))
	for i, b := range balances {
		assert.Equal(t, currency.Codes()[i], b.Currency)
		assert.Equal(t, "0", b.BaseUnits.String())
		assert.True(t, b.Amount.IsZero())
	}
	assert.Equal(t, "$0.00", balances[0].Formatted)

	var notFound *domain.NotFoundError
	_, err = eng.GetAllBalances(999)
	assert.ErrorAs(t, err, &notFound)
}
