package currency_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dvloznov/budgetiq/internal/currency"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/dvloznov/budgetiq/internal/store/memory"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testUser = "user_0123456789abcdef"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openAccount(t *testing.T, st *memory.Store, userID, cur, balance string) *domain.Account {
	t.Helper()
	a := &domain.Account{UserID: userID, Currency: cur, AccountName: cur, Balance: dec(balance)}
	require.NoError(t, st.CreateAccount(context.Background(), a))
	return a
}

func balanceOf(t *testing.T, st *memory.Store, id string) decimal.Decimal {
	t.Helper()
	a, ok := st.Account(id)
	require.True(t, ok)
	return a.Balance
}

func TestTransferRequestValidate(t *testing.T) {
	from, to := uuid.NewString(), uuid.NewString()

	tests := []struct {
		name string
		req  currency.TransferRequest
		want *domain.Error
	}{
		{"missing source", currency.TransferRequest{ToAccountID: to, Amount: dec("1"), Rate: dec("1")}, domain.ErrValidation},
		{"malformed id", currency.TransferRequest{FromAccountID: "abc", ToAccountID: to, Amount: dec("1"), Rate: dec("1")}, domain.ErrInvalidAccountID},
		{"same account", currency.TransferRequest{FromAccountID: from, ToAccountID: from, Amount: dec("1"), Rate: dec("1")}, domain.ErrSameAccount},
		{"zero amount", currency.TransferRequest{FromAccountID: from, ToAccountID: to, Amount: dec("0"), Rate: dec("1")}, domain.ErrInvalidAmount},
		{"negative amount", currency.TransferRequest{FromAccountID: from, ToAccountID: to, Amount: dec("-5"), Rate: dec("1")}, domain.ErrInvalidAmount},
		{"zero rate", currency.TransferRequest{FromAccountID: from, ToAccountID: to, Amount: dec("5"), Rate: dec("0")}, domain.ErrInvalidRate},
		{"same account without dashes", currency.TransferRequest{FromAccountID: from, ToAccountID: strings.ReplaceAll(from, "-", ""), Amount: dec("1"), Rate: dec("1")}, domain.ErrSameAccount},
		{"same account in braces", currency.TransferRequest{FromAccountID: "{" + from + "}", ToAccountID: from, Amount: dec("1"), Rate: dec("1")}, domain.ErrSameAccount},
		{"same account as urn", currency.TransferRequest{FromAccountID: from, ToAccountID: "urn:uuid:" + from, Amount: dec("1"), Rate: dec("1")}, domain.ErrSameAccount},
		{"same account upper case", currency.TransferRequest{FromAccountID: strings.ToUpper(from), ToAccountID: from, Amount: dec("1"), Rate: dec("1")}, domain.ErrSameAccount},
		{"same account checked before amount", currency.TransferRequest{FromAccountID: from, ToAccountID: from, Amount: dec("0"), Rate: dec("0")}, domain.ErrSameAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			require.ErrorIs(t, err, tt.want)

			de, ok := domain.AsError(err)
			require.True(t, ok)
			require.Equal(t, tt.want.Status, de.Status)
		})
	}

	require.NoError(t, currency.TransferRequest{FromAccountID: from, ToAccountID: to, Amount: dec("1"), Rate: dec("1")}.Validate())
}

type mockTransferRunner struct {
	InTransferTxFunc func(ctx context.Context, fn func(tx store.TransferTx) error) error
}

func (m *mockTransferRunner) InTransferTx(ctx context.Context, fn func(tx store.TransferTx) error) error {
	return m.InTransferTxFunc(ctx, fn)
}

// uuidColumnTx resolves ids the way a UUID column does: any accepted spelling
// finds the same row.
type uuidColumnTx struct {
	accounts map[uuid.UUID]*domain.Account
	locked   []string
}

func (tx *uuidColumnTx) LockAccounts(ctx context.Context, userID string, ids ...string) (map[string]*domain.Account, error) {
	out := make(map[string]*domain.Account, len(ids))
	for _, id := range ids {
		tx.locked = append(tx.locked, id)
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		if a, ok := tx.accounts[u]; ok && a.UserID == userID {
			out[id] = a
		}
	}
	return out, nil
}

func (tx *uuidColumnTx) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	a := tx.accounts[uuid.MustParse(accountID)]
	a.Balance = a.Balance.Add(delta)
	return nil
}

func (tx *uuidColumnTx) InsertConversion(ctx context.Context, c *domain.Conversion) error {
	c.ID = uuid.NewString()
	return nil
}

func TestTransferRejectsAliasedAccountIDs(t *testing.T) {
	id := uuid.New()
	usd := &domain.Account{ID: id.String(), UserID: testUser, Currency: "USD", Balance: dec("100")}
	tx := &uuidColumnTx{accounts: map[uuid.UUID]*domain.Account{id: usd}}
	runs := 0
	runner := &mockTransferRunner{
		InTransferTxFunc: func(ctx context.Context, fn func(tx store.TransferTx) error) error {
			runs++
			return fn(tx)
		},
	}
	svc := currency.NewTransferService(runner, memory.New(), zerolog.Nop())

	for _, alias := range []string{
		strings.ReplaceAll(id.String(), "-", ""),
		"{" + id.String() + "}",
		"urn:uuid:" + id.String(),
		strings.ToUpper(id.String()),
	} {
		_, err := svc.Transfer(context.Background(), currency.TransferRequest{
			UserID:        testUser,
			FromAccountID: id.String(),
			ToAccountID:   alias,
			Amount:        dec("10"),
			Rate:          dec("83.5"),
		})
		require.ErrorIs(t, err, domain.ErrSameAccount, alias)
	}

	require.Zero(t, runs)
	require.True(t, usd.Balance.Equal(dec("100")))
}

func TestTransferPassesCanonicalIDsToStore(t *testing.T) {
	src, dst := uuid.New(), uuid.New()
	tx := &uuidColumnTx{accounts: map[uuid.UUID]*domain.Account{
		src: {ID: src.String(), UserID: testUser, Currency: "USD", Balance: dec("100")},
		dst: {ID: dst.String(), UserID: testUser, Currency: "INR", Balance: dec("0")},
	}}
	runner := &mockTransferRunner{
		InTransferTxFunc: func(ctx context.Context, fn func(tx store.TransferTx) error) error {
			return fn(tx)
		},
	}
	svc := currency.NewTransferService(runner, memory.New(), zerolog.Nop())

	conv, err := svc.Transfer(context.Background(), currency.TransferRequest{
		UserID:        testUser,
		FromAccountID: strings.ToUpper(strings.ReplaceAll(src.String(), "-", "")),
		ToAccountID:   "{" + dst.String() + "}",
		Amount:        dec("10"),
		Rate:          dec("83.5"),
	})
	require.NoError(t, err)
	require.Equal(t, []string{src.String(), dst.String()}, tx.locked)
	require.Equal(t, src.String(), conv.FromAccountID)
	require.True(t, tx.accounts[src].Balance.Equal(dec("90")))
	require.True(t, tx.accounts[dst].Balance.Equal(dec("835")))
}

func TestTransferMovesFunds(t *testing.T) {
	st := memory.New()
	usd := openAccount(t, st, testUser, "USD", "100")
	inr := openAccount(t, st, testUser, "INR", "0")
	svc := currency.NewTransferService(st, st, zerolog.Nop())

	conv, err := svc.Transfer(context.Background(), currency.TransferRequest{
		UserID:        testUser,
		FromAccountID: usd.ID,
		ToAccountID:   inr.ID,
		Amount:        dec("10"),
		Rate:          dec("83.5"),
	})
	require.NoError(t, err)

	require.True(t, balanceOf(t, st, usd.ID).Equal(dec("90")))
	require.True(t, balanceOf(t, st, inr.ID).Equal(dec("835")))

	require.NotEmpty(t, conv.ID)
	require.Equal(t, "USD", conv.FromCurrency)
	require.Equal(t, "INR", conv.ToCurrency)
	require.True(t, conv.ToAmount.Equal(dec("835")))
	require.Equal(t, "Converted 10 USD to INR", conv.Description)

	history, err := svc.History(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, conv.ID, history[0].ID)
}

func TestTransferKeepsExactProduct(t *testing.T) {
	st := memory.New()
	eur := openAccount(t, st, testUser, "EUR", "1")
	jpy := openAccount(t, st, testUser, "JPY", "0")
	svc := currency.NewTransferService(st, st, zerolog.Nop())

	conv, err := svc.Transfer(context.Background(), currency.TransferRequest{
		UserID:        testUser,
		FromAccountID: eur.ID,
		ToAccountID:   jpy.ID,
		Amount:        dec("0.333"),
		Rate:          dec("163.512"),
		Description:   "trip",
	})
	require.NoError(t, err)
	require.Equal(t, "54.449496", conv.ToAmount.String())
	require.Equal(t, "trip", conv.Description)
	require.True(t, balanceOf(t, st, eur.ID).Equal(dec("0.667")))
}

func TestTransferRejections(t *testing.T) {
	st := memory.New()
	usd := openAccount(t, st, testUser, "USD", "5")
	inr := openAccount(t, st, testUser, "INR", "0")
	foreign := openAccount(t, st, "user_ffffffffffffffff", "EUR", "50")
	svc := currency.NewTransferService(st, st, zerolog.Nop())

	tests := []struct {
		name string
		req  currency.TransferRequest
		want *domain.Error
	}{
		{"insufficient funds", currency.TransferRequest{FromAccountID: usd.ID, ToAccountID: inr.ID, Amount: dec("10"), Rate: dec("83.5")}, domain.ErrInsufficientFunds},
		{"unknown destination", currency.TransferRequest{FromAccountID: usd.ID, ToAccountID: uuid.NewString(), Amount: dec("1"), Rate: dec("1")}, domain.ErrAccountNotFound},
		{"other user's account", currency.TransferRequest{FromAccountID: foreign.ID, ToAccountID: inr.ID, Amount: dec("1"), Rate: dec("1")}, domain.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.UserID = testUser
			_, err := svc.Transfer(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)

			require.True(t, balanceOf(t, st, usd.ID).Equal(dec("5")))
			require.True(t, balanceOf(t, st, inr.ID).Equal(dec("0")))
			require.True(t, balanceOf(t, st, foreign.ID).Equal(dec("50")))
		})
	}

	history, err := svc.History(context.Background(), testUser)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestTransferFailureRollsBack(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name   string
		inject func(st *memory.Store, dstID string)
	}{
		{
			name: "credit fails after debit",
			inject: func(st *memory.Store, dstID string) {
				st.FailAdjust = func(id string) error {
					if id == dstID {
						return boom
					}
					return nil
				}
			},
		},
		{
			name: "conversion record fails",
			inject: func(st *memory.Store, _ string) {
				st.FailInsertConversion = boom
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New()
			usd := openAccount(t, st, testUser, "USD", "100")
			inr := openAccount(t, st, testUser, "INR", "0")
			tt.inject(st, inr.ID)
			svc := currency.NewTransferService(st, st, zerolog.Nop())

			_, err := svc.Transfer(context.Background(), currency.TransferRequest{
				UserID:        testUser,
				FromAccountID: usd.ID,
				ToAccountID:   inr.ID,
				Amount:        dec("10"),
				Rate:          dec("83.5"),
			})
			require.ErrorIs(t, err, domain.ErrTransferFailed)
			require.ErrorIs(t, err, boom)

			require.True(t, balanceOf(t, st, usd.ID).Equal(dec("100")))
			require.True(t, balanceOf(t, st, inr.ID).Equal(dec("0")))

			history, err := svc.History(context.Background(), testUser)
			require.NoError(t, err)
			require.Empty(t, history)
		})
	}
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	st := memory.New()
	usd := openAccount(t, st, testUser, "USD", "100")
	eur := openAccount(t, st, testUser, "EUR", "0")
	svc := currency.NewTransferService(st, st, zerolog.Nop())

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), currency.TransferRequest{
				UserID:        testUser,
				FromAccountID: usd.ID,
				ToAccountID:   eur.ID,
				Amount:        dec("10"),
				Rate:          dec("0.92"),
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 10, succeeded)
	require.True(t, balanceOf(t, st, usd.ID).Equal(decimal.Zero))
	require.True(t, balanceOf(t, st, eur.ID).Equal(dec("92")))
}
