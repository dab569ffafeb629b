package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tbourn/creator-payments/internal/domain"
	"github.com/tbourn/creator-payments/internal/events"
	"github.com/tbourn/creator-payments/internal/payments"
	"github.com/tbourn/creator-payments/internal/payments/paymentstest"
	"github.com/tbourn/creator-payments/internal/repo"
)

const testKey = "withdraw-2026-11-02-0001"

func newWithdrawalService(store WithdrawalStore, p *paymentstest.Fake) (*WithdrawalService, *events.Recorder) {
	rec := &events.Recorder{}
	return &WithdrawalService{
		Store:           store,
		Provider:        p,
		Publisher:       rec,
		Cooldown:        30 * time.Minute,
		MinKeyLen:       16,
		DefaultCurrency: "brl",
	}, rec
}

func TestWithdraw_CreatesPayout(t *testing.T) {
	store := newStore(t)
	seedCreator(t, store, true)
	prov := newFakeProvider()
	prov.SetBalance(testAccount, "brl", 50000)
	svc, rec := newWithdrawalService(store, prov)

	res, err := svc.Withdraw(context.Background(), WithdrawalRequest{
		CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 20000, Currency: "BRL",
	})
	require.NoError(t, err)
	require.False(t, res.Deduped)
	require.False(t, res.Processing)
	require.True(t, res.Payout.Resolved())
	require.EqualValues(t, 20000, res.Payout.AmountCents)
	require.Equal(t, "brl", res.Payout.Currency)
	require.NotNil(t, res.Payout.ArrivalDate)

	require.Equal(t, 1, prov.UniquePayouts())
	require.Equal(t, []string{events.PayoutCreated}, rec.Keys())
}

func TestWithdraw_SameKeyYieldsOnePayout(t *testing.T) {
	store := newStore(t)
	seedCreator(t, store, true)
	prov := newFakeProvider()
	prov.SetBalance(testAccount, "brl", 50000)
	svc, _ := newWithdrawalService(store, prov)
	req := WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 10000}

	first, err := svc.Withdraw(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.Withdraw(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.Deduped)
	require.Equal(t, first.Payout.ID, second.Payout.ID)

	require.EqualValues(t, 1, count(t, store, &domain.Payout{}))
	require.Equal(t, 1, prov.UniquePayouts())
	require.Equal(t, 1, prov.PayoutCalls)
}

func TestWithdraw_ConcurrentSameKey(t *testing.T) {
	store := newFileStore(t)
	seedCreator(t, store, true)
	prov := newFakeProvider()
	prov.SetBalance(testAccount, "brl", 50000)
	svc, _ := newWithdrawalService(store, prov)
	req := WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 10000}

	const n = 6
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Withdraw(context.Background(), req); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("withdraw: %v", err)
	}

	require.EqualValues(t, 1, count(t, store, &domain.Payout{}))
	require.Equal(t, 1, prov.UniquePayouts())
}

func TestWithdraw_CooldownReportsRemainingMinutes(t *testing.T) {
	store := newStore(t)
	seedCreator(t, store, true)
	prov := newFakeProvider()
	prov.SetBalance(testAccount, "brl", 50000)
	now := time.Date(2026, 11, 2, 15, 0, 0, 0, time.UTC)
	_, err := store.ReservePayout(context.Background(), testCreator, "earlier-withdrawal-key", 1000, "brl", now.Add(-5*time.Minute))
	require.NoError(t, err)

	svc, _ := newWithdrawalService(store, prov)
	svc.Now = fixedClock(now)

	_, err = svc.Withdraw(context.Background(), WithdrawalRequest{
		CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 1000,
	})
	require.ErrorIs(t, err, ErrCooldownActive)
	var cd *CooldownError
	require.True(t, errors.As(err, &cd))
	require.Equal(t, 25, cd.RemainingMinutes())
	require.Equal(t, "earlier-withdrawal-key", cd.LastPayout.IdempotencyKey)
	require.Zero(t, prov.PayoutCalls)
}

func TestWithdraw_SettledPayoutDoesNotTriggerCooldown(t *testing.T) {
	store := newStore(t)
	seedCreator(t, store, true)
	prov := newFakeProvider()
	prov.SetBalance(testAccount, "brl", 50000)
	now := time.Date(2026, 11, 2, 15, 0, 0, 0, time.UTC)
	prev, err := store.ReservePayout(context.Background(), testCreator, "earlier-withdrawal-key", 1000, "brl", now.Add(-5*time.Minute))
	require.NoError(t, err)
	_, err = store.ResolvePayout(context.Background(), prev.ID, "po_prev", domain.PayoutPaid, nil)
	require.NoError(t, err)

	svc, _ := newWithdrawalService(store, prov)
	svc.Now = fixedClock(now)
	_, err = svc.Withdraw(context.Background(), WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 1000})
	require.NoError(t, err)
}

func TestWithdraw_BalanceChecks(t *testing.T) {
	store := newStore(t)
	seedCreator(t, store, true)
	prov := newFakeProvider()
	svc, _ := newWithdrawalService(store, prov)
	ctx := context.Background()

	_, err := svc.Withdraw(ctx, WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, WithdrawAll: true})
	require.ErrorIs(t, err, ErrZeroBalance)

	prov.SetBalance(testAccount, "brl", 5000)
	_, err = svc.Withdraw(ctx, WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 5001})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, KindConflict, KindOf(err))

	res, err := svc.Withdraw(ctx, WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, WithdrawAll: true})
	require.NoError(t, err)
	require.EqualValues(t, 5000, res.Payout.AmountCents)
}

func TestWithdraw_RejectsBadInput(t *testing.T) {
	store := newStore(t)
	seedCreator(t, store, true)
	prov := newFakeProvider()
	prov.SetBalance(testAccount, "brl", 5000)
	svc, _ := newWithdrawalService(store, prov)
	ctx := context.Background()

	_, err := svc.Withdraw(ctx, WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: "short", AmountCents: 100})
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = svc.Withdraw(ctx, WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 0})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Withdraw(ctx, WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 100, Currency: "dollars"})
	require.ErrorIs(t, err, ErrInvalidCurrency)

	_, err = svc.Withdraw(ctx, WithdrawalRequest{IdempotencyKey: testKey, AmountCents: 100})
	require.ErrorIs(t, err, ErrUnauthenticated)

	require.Zero(t, prov.PayoutCalls)
	require.EqualValues(t, 0, count(t, store, &domain.Payout{}))
}

func TestWithdraw_NotConfigured(t *testing.T) {
	store := newStore(t)
	seedCreator(t, store, false)
	svc, _ := newWithdrawalService(store, newFakeProvider())

	_, err := svc.Withdraw(context.Background(), WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 100})
	require.ErrorIs(t, err, ErrNoConnectedAccount)
}

func TestWithdraw_PayoutsDisabled(t *testing.T) {
	store := newStore(t)
	seedCreator(t, store, true)
	prov := newFakeProvider()
	prov.Accounts[testAccount].PayoutsEnabled = false
	prov.SetBalance(testAccount, "brl", 5000)
	svc, _ := newWithdrawalService(store, prov)

	_, err := svc.Withdraw(context.Background(), WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 100})
	require.ErrorIs(t, err, ErrPayoutsDisabled)
	require.Equal(t, KindNotConfigured, KindOf(err))
}

func TestWithdraw_ProviderFailureMarksRowFailed(t *testing.T) {
	store := newStore(t)
	seedCreator(t, store, true)
	prov := newFakeProvider()
	prov.SetBalance(testAccount, "brl", 5000)
	prov.PayoutErr = errors.New("bank account restricted")
	svc, rec := newWithdrawalService(store, prov)
	req := WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 1000}

	_, err := svc.Withdraw(context.Background(), req)
	require.ErrorIs(t, err, ErrUpstream)

	p, err := store.GetPayoutByKey(context.Background(), testKey)
	require.NoError(t, err)
	require.Equal(t, domain.PayoutFailed, p.Status)
	require.Contains(t, p.FailureReason, "bank account restricted")
	require.Equal(t, []string{events.PayoutFailed}, rec.Keys())

	// The key is spent; a retry reports the failure instead of paying out.
	prov.PayoutErr = nil
	_, err = svc.Withdraw(context.Background(), req)
	require.ErrorIs(t, err, ErrPayoutFailed)
	require.Equal(t, 1, prov.PayoutCalls)
}

// cancellingProvider cancels the request context during CreatePayout. With
// fail set the payout is refused; otherwise the provider accepts it.
type cancellingProvider struct {
	*paymentstest.Fake
	cancel context.CancelFunc
	fail   bool
}

func (p cancellingProvider) CreatePayout(ctx context.Context, params payments.PayoutParams) (*payments.Payout, error) {
	p.cancel()
	if p.fail {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.Fake.CreatePayout(ctx, params)
}

func TestWithdraw_CancelledRequestStillSettlesRow(t *testing.T) {
	cases := []struct {
		name   string
		fail   bool
		status string
	}{
		{"provider refused", true, domain.PayoutFailed},
		{"provider accepted", false, domain.PayoutPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore(t)
			seedCreator(t, store, true)
			prov := newFakeProvider()
			prov.SetBalance(testAccount, "brl", 5000)
			svc, _ := newWithdrawalService(store, prov)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			svc.Provider = cancellingProvider{Fake: prov, cancel: cancel, fail: tc.fail}

			_, err := svc.Withdraw(ctx, WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 1000})
			if tc.fail {
				require.ErrorIs(t, err, ErrUpstream)
			} else {
				require.NoError(t, err)
			}

			p, err := store.GetPayoutByKey(context.Background(), testKey)
			require.NoError(t, err)
			require.Equal(t, tc.status, p.Status)
			if tc.fail {
				require.Contains(t, p.FailureReason, context.Canceled.Error())
				require.Nil(t, p.StripePayoutID)
			} else {
				require.True(t, p.Resolved())
			}

			// A same-key retry sees the settled row, never a stuck reservation.
			svc.Provider = prov
			res, err := svc.Withdraw(context.Background(), WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 1000})
			if tc.fail {
				require.ErrorIs(t, err, ErrPayoutFailed)
				return
			}
			require.NoError(t, err)
			require.True(t, res.Deduped)
			require.False(t, res.Processing)
		})
	}
}

func TestWithdraw_KeyOwnedByAnotherCreator(t *testing.T) {
	store := newStore(t)
	seedCreator(t, store, true)
	_, err := store.ReservePayout(context.Background(), "cr-other", testKey, 1000, "brl", time.Now())
	require.NoError(t, err)
	svc, _ := newWithdrawalService(store, newFakeProvider())

	_, err = svc.Withdraw(context.Background(), WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 100})
	require.ErrorIs(t, err, ErrKeyReused)
}

func TestWithdraw_PendingReplayIsProcessing(t *testing.T) {
	store := newStore(t)
	seedCreator(t, store, true)
	_, err := store.ReservePayout(context.Background(), testCreator, testKey, 1000, "brl", time.Now())
	require.NoError(t, err)
	prov := newFakeProvider()
	svc, _ := newWithdrawalService(store, prov)

	res, err := svc.Withdraw(context.Background(), WithdrawalRequest{CreatorID: testCreator, IdempotencyKey: testKey, AmountCents: 1000})
	require.NoError(t, err)
	require.True(t, res.Processing)
	require.Equal(t, domain.PayoutPending, res.Payout.Status)
	require.Zero(t, prov.PayoutCalls)
}

func TestListPayouts_Paginates(t *testing.T) {
	store := newStore(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := store.ReservePayout(context.Background(), testCreator,
			"list-key-000000000"+string(rune('a'+i)), int64(100*(i+1)), "brl", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
	svc, _ := newWithdrawalService(store, newFakeProvider())

	page, err := svc.ListPayouts(context.Background(), testCreator, 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	require.EqualValues(t, 500, page.Items[0].AmountCents)

	page, err = svc.ListPayouts(context.Background(), testCreator, 3, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.EqualValues(t, 100, page.Items[0].AmountCents)

	page, err = svc.ListPayouts(context.Background(), testCreator, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 20, page.PageSize)
}

var _ WithdrawalStore = (*repo.Store)(nil)
