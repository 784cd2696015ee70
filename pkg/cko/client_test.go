package cko

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestClient_Capture(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  bool
		wantCode string
	}{
		{
			name:     "approved",
			status:   http.StatusOK,
			body:     `{"response_code":"00","response_message":"Approved or completed successfully","approval_code":"ABCDEFG1234","interchange_rate":"0.10"}`,
			wantCode: "00",
		},
		{
			name:     "declined",
			status:   http.StatusPaymentRequired,
			body:     `{"response_code":"19","response_message":"Re-enter transaction","interchange_rate":"0.10"}`,
			wantCode: "19",
		},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, wantErr: true},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, wantErr: true},
		{name: "no response code", status: http.StatusOK, body: `{}`, wantErr: true},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got CaptureRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/captures" {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer key-1" {
					t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
				}
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL+"/", "key-1", time.Second)
			resp, err := c.Capture(context.Background(), &CaptureRequest{
				MerchantID: "m-1",
				Currency:   "EUR",
				Amount:     decimal.RequireFromString("25.00"),
				Card:       Card{Number: "4444444444444444", CVV: "123", ExpiryMonth: 12, ExpiryYear: 2030},
			})

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", resp)
				}
				return
			}
			if err != nil {
				t.Fatalf("Capture: %v", err)
			}
			if resp.ResponseCode != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.ResponseCode, tt.wantCode)
			}
			if got.Card.Number != "4444444444444444" || got.MerchantID != "m-1" {
				t.Errorf("server saw %+v", got)
			}
		})
	}
}

func TestClient_CaptureContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := NewClient(srv.URL, "k", time.Second).Capture(ctx, &CaptureRequest{}); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}

func TestRCClassification(t *testing.T) {
	tests := []struct {
		rc        string
		approved  bool
		retryable bool
	}{
		{"00", true, false},
		{"19", false, true},
		{"91", false, true},
		{"96", false, true},
		{"43", false, false},
		{"05", false, false},
	}
	for _, tt := range tests {
		if IsApproved(tt.rc) != tt.approved || IsRetryable(tt.rc) != tt.retryable {
			t.Errorf("rc %s: approved=%v retryable=%v", tt.rc, IsApproved(tt.rc), IsRetryable(tt.rc))
		}
	}
}
