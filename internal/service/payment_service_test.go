package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/checkout_gateway/internal/models"
	"github.com/GTDGit/checkout_gateway/internal/repository"
	"github.com/GTDGit/checkout_gateway/internal/utils"
)

type paymentFixture struct {
	svc          *PaymentService
	payments     *repository.MemoryPaymentRepository
	transactions *repository.MemoryTransactionRepository
}

func newPaymentFixture(t *testing.T, router TransactionRouter) *paymentFixture {
	t.Helper()
	if router == nil {
		router = NewFranchiseRouter(DefaultRoutingTable(), DefaultAcquiringProcessors())
	}
	payments := repository.NewMemoryPaymentRepository().WithIDGenerator(fixedIDs("pay-1", "pay-2", "pay-3"))
	transactions := repository.NewMemoryTransactionRepository().WithIDGenerator(fixedIDs("trx-secret-1", "trx-secret-2"))
	processing := NewCardProcessingService(defaultAccountRanges(), router, transactions, CardProcessingConfig{MaxAttempts: 10})

	fp, err := NewCardFingerprinter("test-fingerprint-key")
	if err != nil {
		t.Fatal(err)
	}
	provider := NewDefaultCardNotPresentProvider("CHECKOUT_GW", processing, transactions)
	return &paymentFixture{
		svc:          NewPaymentService(payments, provider, fp, time.Second),
		payments:     payments,
		transactions: transactions,
	}
}

func paymentRequest(pan string) PaymentRequest {
	sale := saleRequest(pan)
	return PaymentRequest{
		MerchantID:  sale.MerchantID,
		Currency:    sale.Currency,
		TotalAmount: sale.TotalAmount,
		Tip:         sale.Tip,
		VAT:         sale.VAT,
		Card:        sale.Card,
	}
}

func TestProcessPayment(t *testing.T) {
	tests := []struct {
		name         string
		pan          string
		wantStatus   models.PaymentStatus
		wantCode     string
		wantApproval string
	}{
		{"approved after retry", "4444444444444444", models.PaymentApproved, "00", "ABCDEFG1234"},
		{"stolen card", "5555555555555555", models.PaymentRejected, "43", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(t, nil)
			ctx := context.Background()

			resp, err := f.svc.ProcessPayment(ctx, paymentRequest(tt.pan))
			if err != nil {
				t.Fatalf("ProcessPayment: %v", err)
			}
			if resp.PaymentID != "pay-1" || resp.Status != tt.wantStatus || resp.ResponseCode != tt.wantCode || resp.ApprovalCode != tt.wantApproval {
				t.Fatalf("response = %+v", resp)
			}

			stored, _ := f.payments.FindByID(ctx, "pay-1")
			if stored.Status != tt.wantStatus || stored.Card.MaskedPAN != models.MaskPAN(tt.pan) {
				t.Fatalf("stored = %+v", stored)
			}
			if len(stored.Card.Fingerprint) != 64 {
				t.Errorf("fingerprint = %q", stored.Card.Fingerprint)
			}

			trx, _ := f.transactions.FindByClientReference(ctx, "CHECKOUT_GW", "pay-1")
			if trx == nil || trx.TransactionID != "trx-secret-1" {
				t.Fatalf("transaction not linked to payment: %+v", trx)
			}

			body, _ := json.Marshal(resp)
			if strings.Contains(string(body), "trx-secret") {
				t.Fatalf("transaction id leaked: %s", body)
			}
		})
	}
}

func TestProcessPayment_InfrastructureFailureLeavesPending(t *testing.T) {
	f := newPaymentFixture(t, routerOf(failing(models.NetworkCKO, errors.New("dial tcp: refused"))))
	ctx := context.Background()

	_, err := f.svc.ProcessPayment(ctx, paymentRequest("4444455555123456"))
	if !errors.Is(err, utils.ErrInfrastructure) {
		t.Fatalf("err = %v", err)
	}
	stored, _ := f.payments.FindByID(ctx, "pay-1")
	if stored.Status != models.PaymentPending || stored.Receipt != models.PendingReceipt() {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestProcessPayment_Validation(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		mutate  func(r *PaymentRequest)
		wantErr error
	}{
		{"currency", func(r *PaymentRequest) { r.Currency = "GBP" }, utils.ErrInvalidCurrency},
		{"zero total", func(r *PaymentRequest) { r.TotalAmount = decimal.Zero }, utils.ErrInvalidAmount},
		{"negative tip", func(r *PaymentRequest) { r.Tip = decimal.NewFromInt(-1) }, utils.ErrInvalidAmount},
		{"tip and vat over total", func(r *PaymentRequest) { r.VAT = decimal.NewFromInt(30) }, utils.ErrInvalidAmount},
		{"short pan", func(r *PaymentRequest) { r.Card.PAN = models.NewSecret("444444") }, utils.ErrInvalidCard},
		{"letters in pan", func(r *PaymentRequest) { r.Card.PAN = models.NewSecret("44444444444444ab") }, utils.ErrInvalidCard},
		{"cvv", func(r *PaymentRequest) { r.Card.CVV = models.NewSecret("12") }, utils.ErrInvalidCard},
		{"month", func(r *PaymentRequest) { r.Card.ExpirationMonth = 13 }, utils.ErrInvalidCard},
		{"expired", func(r *PaymentRequest) { r.Card.ExpirationYear = now.Year() - 1 }, utils.ErrInvalidCard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(t, nil)
			req := paymentRequest("4444444444444444")
			tt.mutate(&req)

			if _, err := f.svc.ProcessPayment(context.Background(), req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if p, _ := f.payments.FindByID(context.Background(), "pay-1"); p != nil {
				t.Fatal("invalid request must not create a payment")
			}
		})
	}
}

func TestGetPayment(t *testing.T) {
	f := newPaymentFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.ProcessPayment(ctx, paymentRequest("4444444444444444")); err != nil {
		t.Fatal(err)
	}

	p, err := f.svc.GetPayment(ctx, "merchant-1", "pay-1")
	if err != nil || p.Status != models.PaymentApproved {
		t.Fatalf("GetPayment = %+v, %v", p, err)
	}
	if _, err := f.svc.GetPayment(ctx, "merchant-2", "pay-1"); !errors.Is(err, utils.ErrPaymentNotFound) {
		t.Fatalf("other merchant err = %v", err)
	}
	if _, err := f.svc.GetPayment(ctx, "merchant-1", "nope"); !errors.Is(err, utils.ErrPaymentNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestReconcilePayment(t *testing.T) {
	ctx := context.Background()

	newPending := func(f *paymentFixture, id string) *models.CardNotPresentPayment {
		p := models.NewPayment(models.CreatePaymentParams{
			MerchantID:  "merchant-1",
			PaymentID:   id,
			Currency:    models.CurrencyEUR,
			TotalAmount: decimal.NewFromInt(10),
		})
		_, _ = f.payments.Create(ctx, p)
		return p
	}
	registerTrx := func(f *paymentFixture, ref string, apply func(*models.CardNotPresentTransaction)) {
		trx := models.NewCaptureTransaction(models.CaptureTransactionParams{
			TransactionID:     f.transactions.GenerateID(),
			ClientID:          "CHECKOUT_GW",
			ClientReferenceID: ref,
		})
		if apply != nil {
			apply(trx)
		}
		_, _ = f.transactions.Register(ctx, trx)
	}

	t.Run("no transaction", func(t *testing.T) {
		f := newPaymentFixture(t, nil)
		p := newPending(f, "p-1")

		changed, err := f.svc.ReconcilePayment(ctx, p)
		if err != nil || !changed {
			t.Fatalf("Reconcile = %v, %v", changed, err)
		}
		stored, _ := f.payments.FindByID(ctx, "p-1")
		if stored.Status != models.PaymentRejected || stored.Receipt.ResponseCode != "F99" {
			t.Fatalf("stored = %+v", stored)
		}
	})

	t.Run("approved transaction", func(t *testing.T) {
		f := newPaymentFixture(t, nil)
		p := newPending(f, "p-2")
		registerTrx(f, "p-2", func(trx *models.CardNotPresentTransaction) {
			_ = trx.Approve(models.NetworkCBK, "00", "Approved or completed successfully", 1, "ABCDEFG1234")
		})

		changed, err := f.svc.ReconcilePayment(ctx, p)
		if err != nil || !changed {
			t.Fatalf("Reconcile = %v, %v", changed, err)
		}
		stored, _ := f.payments.FindByID(ctx, "p-2")
		if stored.Status != models.PaymentApproved || stored.Receipt.ApprovalCode != "ABCDEFG1234" {
			t.Fatalf("stored = %+v", stored)
		}
	})

	t.Run("sale in progress", func(t *testing.T) {
		f := newPaymentFixture(t, nil)
		p := newPending(f, "p-3")
		registerTrx(f, "p-3", func(trx *models.CardNotPresentTransaction) {
			_ = trx.Reject(models.NetworkCKO, "19", "Re-enter transaction", 0, true)
		})

		changed, err := f.svc.ReconcilePayment(ctx, p)
		if err != nil || changed {
			t.Fatalf("Reconcile = %v, %v", changed, err)
		}
		stored, _ := f.payments.FindByID(ctx, "p-3")
		if stored.Status != models.PaymentPending {
			t.Fatalf("stored = %+v", stored)
		}
	})

	t.Run("abandoned sale", func(t *testing.T) {
		f := newPaymentFixture(t, nil)
		p := newPending(f, "p-5")
		registerTrx(f, "p-5", func(trx *models.CardNotPresentTransaction) {
			trx.TransactionDate = time.Now().Add(-time.Hour).UnixNano()
		})

		changed, err := f.svc.ReconcilePayment(ctx, p)
		if err != nil || !changed {
			t.Fatalf("Reconcile = %v, %v", changed, err)
		}
		stored, _ := f.payments.FindByID(ctx, "p-5")
		if stored.Status != models.PaymentRejected || stored.Receipt.ResponseCode != "F99" ||
			stored.Receipt.ResponseMessage != "Transaction Not Processed" {
			t.Fatalf("stored = %+v", stored)
		}
	})

	t.Run("abandon disabled", func(t *testing.T) {
		f := newPaymentFixture(t, nil)
		f.svc.WithAbandonAfter(0)
		p := newPending(f, "p-6")
		registerTrx(f, "p-6", func(trx *models.CardNotPresentTransaction) {
			trx.TransactionDate = time.Now().Add(-24 * time.Hour).UnixNano()
		})

		if changed, err := f.svc.ReconcilePayment(ctx, p); err != nil || changed {
			t.Fatalf("Reconcile = %v, %v", changed, err)
		}
	})

	t.Run("settled by another writer", func(t *testing.T) {
		f := newPaymentFixture(t, nil)
		p := newPending(f, "p-7")
		settled := *p
		_ = settled.Approve("00", "Approved or completed successfully", "ABCDEFG1234")
		_, _ = f.payments.Update(ctx, &settled)

		if changed, err := f.svc.ReconcilePayment(ctx, p); err != nil || changed {
			t.Fatalf("Reconcile = %v, %v", changed, err)
		}
		stored, _ := f.payments.FindByID(ctx, "p-7")
		if stored.Status != models.PaymentApproved {
			t.Fatalf("stored = %+v, approval was overwritten", stored)
		}
	})

	t.Run("already final", func(t *testing.T) {
		f := newPaymentFixture(t, nil)
		p := newPending(f, "p-4")
		_ = p.Reject("43", "Stolen card, pick up")

		if changed, err := f.svc.ReconcilePayment(ctx, p); err != nil || changed {
			t.Fatalf("Reconcile = %v, %v", changed, err)
		}
	})
}

type funcProvider struct {
	sale func(ctx context.Context, clientReferenceID string, req PaymentRequest) (*TransactionResult, error)
}

func (p funcProvider) Sale(ctx context.Context, clientReferenceID string, req PaymentRequest) (*TransactionResult, error) {
	return p.sale(ctx, clientReferenceID, req)
}

func (funcProvider) FindSale(context.Context, string) (*models.CardNotPresentTransaction, error) {
	return nil, nil
}

func TestProcessPayment_SettledDuringSale(t *testing.T) {
	payments := repository.NewMemoryPaymentRepository().WithIDGenerator(fixedIDs("pay-1"))
	fp, err := NewCardFingerprinter("test-fingerprint-key")
	if err != nil {
		t.Fatal(err)
	}

	// The worker rejects the payment while the sale is still running.
	provider := funcProvider{sale: func(ctx context.Context, ref string, _ PaymentRequest) (*TransactionResult, error) {
		p, _ := payments.FindByID(ctx, ref)
		_ = p.Reject("F99", "Transaction Not Processed")
		if _, err := payments.Update(ctx, p); err != nil {
			t.Fatalf("settle: %v", err)
		}
		return &TransactionResult{Status: models.StatusApproved, ResponseCode: "00", ResponseMessage: "Approved or completed successfully", ApprovalCode: "X"}, nil
	}}
	svc := NewPaymentService(payments, provider, fp, time.Second)

	resp, err := svc.ProcessPayment(context.Background(), paymentRequest("4111111111111111"))
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	if resp.Status != models.PaymentRejected || resp.ResponseCode != "F99" {
		t.Fatalf("resp = %+v, want the stored outcome", resp)
	}
}

func TestPendingPayments(t *testing.T) {
	f := newPaymentFixture(t, nil)
	ctx := context.Background()

	old := models.NewPayment(models.CreatePaymentParams{PaymentID: "old", Currency: models.CurrencyEUR, TotalAmount: decimal.NewFromInt(1)})
	old.PaymentDate = time.Now().Add(-time.Hour).UnixNano()
	fresh := models.NewPayment(models.CreatePaymentParams{PaymentID: "fresh", Currency: models.CurrencyEUR, TotalAmount: decimal.NewFromInt(1)})
	_, _ = f.payments.Create(ctx, old)
	_, _ = f.payments.Create(ctx, fresh)

	got, err := f.svc.PendingPayments(ctx, 10*time.Minute, 10)
	if err != nil || len(got) != 1 || got[0].PaymentID != "old" {
		t.Fatalf("PendingPayments = %+v, %v", got, err)
	}
}

func TestCardFingerprinter(t *testing.T) {
	fp, err := NewCardFingerprinter("k1")
	if err != nil {
		t.Fatal(err)
	}
	a := fp.Fingerprint(models.NewSecret("4444444444444444"))
	b := fp.Fingerprint(models.NewSecret("4444444444444444"))
	c := fp.Fingerprint(models.NewSecret("5555555555555555"))
	if a != b || a == c {
		t.Fatalf("fingerprints a=%s b=%s c=%s", a, b, c)
	}

	other, _ := NewCardFingerprinter("k2")
	if other.Fingerprint(models.NewSecret("4444444444444444")) == a {
		t.Fatal("fingerprint must depend on the key")
	}

	if _, err := NewCardFingerprinter(""); err == nil {
		t.Fatal("empty key accepted")
	}
	if _, err := NewCardFingerprinter(strings.Repeat("k", 65)); err == nil {
		t.Fatal("oversized key accepted")
	}
}
