package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/checkout_gateway/internal/models"
	"github.com/GTDGit/checkout_gateway/pkg/cko"
)

func TestNoProcessorAvailable(t *testing.T) {
	t.Run("without prior result", func(t *testing.T) {
		res, err := NoProcessorAvailable{}.Capture(context.Background(), CaptureMessage{})
		if err != nil {
			t.Fatal(err)
		}
		rej, ok := res.(RejectedCapture)
		if !ok {
			t.Fatalf("result = %T, want RejectedCapture", res)
		}
		if rej.Network != models.NetworkCKO || rej.ResponseCode != "F99" ||
			rej.ResponseMessage != "No Acquiring Processor Available" || !rej.InterchangeRate.IsZero() || rej.IsRetryable {
			t.Fatalf("rejection = %+v", rej)
		}
	})

	t.Run("carries prior network and rate", func(t *testing.T) {
		prior := RejectedCapture{
			CaptureResult: CaptureResult{Network: models.NetworkCBK, ResponseCode: "19", ResponseMessage: "Re-enter transaction", InterchangeRate: rate010},
			IsRetryable:   true,
		}
		res, _ := NoProcessorAvailable{Last: prior}.Capture(context.Background(), CaptureMessage{})
		rej := res.(RejectedCapture)
		if rej.Network != models.NetworkCBK || !rej.InterchangeRate.Equal(rate010) || rej.ResponseCode != "F99" || rej.IsRetryable {
			t.Fatalf("rejection = %+v", rej)
		}
	})
}

func TestRuleTableProcessor(t *testing.T) {
	processors := DefaultAcquiringProcessors()

	tests := []struct {
		name          string
		network       models.AcquiringNetwork
		pan           string
		wantApproved  bool
		wantCode      string
		wantRetryable bool
	}{
		{"CKO re-enter", models.NetworkCKO, "4444444444444444", false, "19", true},
		{"CKO approves others", models.NetworkCKO, "5555555555555555", true, "00", false},
		{"CBK stolen card", models.NetworkCBK, "5555555555555555", false, "43", false},
		{"CBK approves others", models.NetworkCBK, "4444444444444444", true, "00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := processors[tt.network].Capture(context.Background(), CaptureMessage{PAN: models.NewSecret(tt.pan)})
			if err != nil {
				t.Fatal(err)
			}
			if res.Result().Network != tt.network || res.Result().ResponseCode != tt.wantCode {
				t.Fatalf("result = %+v", res.Result())
			}
			switch r := res.(type) {
			case ApprovedCapture:
				if !tt.wantApproved || r.ApprovalCode != "ABCDEFG1234" || !r.InterchangeRate.Equal(rate010) {
					t.Fatalf("approval = %+v", r)
				}
			case RejectedCapture:
				if tt.wantApproved || r.IsRetryable != tt.wantRetryable {
					t.Fatalf("rejection = %+v", r)
				}
			}
		})
	}
}

func TestCKOProviderClient(t *testing.T) {
	tests := []struct {
		name          string
		rc            string
		wantApproved  bool
		wantRetryable bool
	}{
		{"approved", "00", true, false},
		{"re-enter", "19", false, true},
		{"issuer down", "91", false, true},
		{"stolen", "43", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen cko.CaptureRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&seen)
				_ = json.NewEncoder(w).Encode(cko.CaptureResponse{
					ResponseCode:    tt.rc,
					ResponseMessage: "msg",
					ApprovalCode:    "AP1",
					InterchangeRate: rate010,
				})
			}))
			defer srv.Close()

			p := NewCKOProviderClient(cko.NewClient(srv.URL, "key", time.Second))
			res, err := p.Capture(context.Background(), CaptureMessage{
				MerchantID:  "m-1",
				Currency:    models.CurrencyEUR,
				TotalAmount: decimal.RequireFromString("25"),
				Taxes:       models.VATBreakdown(decimal.RequireFromString("25"), decimal.Zero, decimal.RequireFromString("5")),
				PAN:         models.NewSecret("4444444444444444"),
				CVV:         models.NewSecret("123"),
			})
			if err != nil {
				t.Fatal(err)
			}
			if seen.Card.Number != "4444444444444444" || len(seen.Taxes) != 1 || seen.Taxes[0].Type != "VAT" {
				t.Fatalf("request = %+v", seen)
			}
			switch r := res.(type) {
			case ApprovedCapture:
				if !tt.wantApproved || r.Network != models.NetworkCKO || r.ApprovalCode != "AP1" {
					t.Fatalf("approval = %+v", r)
				}
			case RejectedCapture:
				if tt.wantApproved || r.IsRetryable != tt.wantRetryable {
					t.Fatalf("rejection = %+v", r)
				}
			}
		})
	}
}

func TestCKOProviderClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewCKOProviderClient(cko.NewClient(srv.URL, "key", time.Second))
	if _, err := p.Capture(context.Background(), CaptureMessage{PAN: models.NewSecret("4444444444444444")}); err == nil {
		t.Fatal("expected error on 503")
	}
}
