package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/GTDGit/checkout_gateway/internal/utils"
)

func TestMerchantTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	tests := []struct {
		name    string
		env     string
		args    []string
		wantErr bool
	}{
		{name: "secret flag", args: []string{"merchant-1", "--secret", "flag-secret"}},
		{name: "secret from env", env: "flag-secret", args: []string{"merchant-1", "-t", "1h"}},
		{name: "no secret", args: []string{"merchant-1"}, wantErr: true},
		{name: "no merchant", args: []string{"--secret", "flag-secret"}, wantErr: true},
		{name: "bad ttl", args: []string{"merchant-1", "--secret", "flag-secret", "--ttl", "0s"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.env)

			var out bytes.Buffer
			cmd := newRootCmd(&out)
			cmd.SetArgs(tt.args)
			cmd.SetErr(&bytes.Buffer{})

			err := cmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			claims, err := utils.ValidateMerchantJWT(strings.TrimSpace(out.String()), "flag-secret")
			if err != nil {
				t.Fatalf("issued token does not validate: %v", err)
			}
			if claims.MerchantID != "merchant-1" {
				t.Fatalf("merchant = %q", claims.MerchantID)
			}
		})
	}
}
