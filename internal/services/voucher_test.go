package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

func TestVoucherValueCents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		size int
		want int64
	}{
		{1, 50_000},
		{2, 60_000},
		{3, 70_000},
		{4, 80_000},
		{5, 90_000},
		// Larger households clamp to the last band.
		{6, 90_000},
		{12, 90_000},
		// Sizes below one are treated as a household of one.
		{0, 50_000},
		{-2, 50_000},
	}
	for _, tc := range cases {
		if got := VoucherValueCents(tc.size); got != tc.want {
			t.Errorf("VoucherValueCents(%d) = %d, want %d", tc.size, got, tc.want)
		}
	}
}

func TestValidateRedemption(t *testing.T) {
	t.Parallel()

	now := time.Now()
	active := func() *types.Voucher {
		return &types.Voucher{
			Status:              types.VoucherStatusActive,
			RemainingValueCents: 10_000,
			ExpiresAt:           now.Add(24 * time.Hour),
		}
	}

	if err := validateRedemption(active(), 2_500, now); err != nil {
		t.Fatalf("partial redemption should be allowed: %v", err)
	}
	if err := validateRedemption(active(), 10_000, now); err != nil {
		t.Fatalf("exact-balance redemption should be allowed: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*types.Voucher)
		amount int64
	}{
		{"overdraw", func(v *types.Voucher) {}, 10_001},
		{"redeemed voucher", func(v *types.Voucher) { v.Status = types.VoucherStatusRedeemed }, 1_000},
		{"cancelled voucher", func(v *types.Voucher) { v.Status = types.VoucherStatusCancelled }, 1_000},
		{"expired voucher", func(v *types.Voucher) { v.ExpiresAt = now.Add(-time.Minute) }, 1_000},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := active()
			tc.mutate(v)
			err := validateRedemption(v, tc.amount, now)
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestRedemptionUpdates(t *testing.T) {
	t.Parallel()

	now := time.Now()
	vendorID := uuid.New()
	v := &types.Voucher{Status: types.VoucherStatusActive, RemainingValueCents: 10_000}

	partial := redemptionUpdates(v, vendorID, 4_000, now)
	if partial["remaining_value_cents"] != int64(6_000) {
		t.Fatalf("remaining after partial = %v, want 6000", partial["remaining_value_cents"])
	}
	if _, ok := partial["status"]; ok {
		t.Fatal("partial redemption must not change voucher status")
	}

	full := redemptionUpdates(v, vendorID, 10_000, now)
	if full["remaining_value_cents"] != int64(0) {
		t.Fatalf("remaining after full = %v, want 0", full["remaining_value_cents"])
	}
	if full["status"] != types.VoucherStatusRedeemed {
		t.Fatalf("exact-balance redemption should close the voucher, got %v", full["status"])
	}
}

func TestVoidRestoreUpdates(t *testing.T) {
	t.Parallel()

	now := time.Now()

	open := &types.Voucher{Status: types.VoucherStatusActive, RemainingValueCents: 6_000}
	restored := voidRestoreUpdates(open, 4_000, now)
	if restored["remaining_value_cents"] != int64(10_000) {
		t.Fatalf("restored balance = %v, want 10000", restored["remaining_value_cents"])
	}
	if _, ok := restored["status"]; ok {
		t.Fatal("voiding against an active voucher must not change its status")
	}

	closed := &types.Voucher{Status: types.VoucherStatusRedeemed, RemainingValueCents: 0}
	reopened := voidRestoreUpdates(closed, 10_000, now)
	if reopened["remaining_value_cents"] != int64(10_000) {
		t.Fatalf("reopened balance = %v, want 10000", reopened["remaining_value_cents"])
	}
	if reopened["status"] != types.VoucherStatusActive {
		t.Fatalf("voiding a closing redemption should reactivate the voucher, got %v", reopened["status"])
	}
}

func TestGenerateVoucherCode(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := generateVoucherCode()
		if err != nil {
			t.Fatalf("generateVoucherCode: %v", err)
		}
		if len(code) != 15 {
			t.Fatalf("code length = %d, want 15: %q", len(code), code)
		}
		groups := strings.Split(code, "-")
		if len(groups) != 3 {
			t.Fatalf("code should have three dash-separated groups: %q", code)
		}
		for _, g := range groups {
			if len(g) != 4 {
				t.Fatalf("group length = %d, want 4: %q", len(g), code)
			}
			for _, r := range g {
				if !strings.ContainsRune(codeAlphabet, r) {
					t.Fatalf("code character %q outside alphabet: %q", r, code)
				}
			}
		}
		if seen[code] {
			t.Fatalf("duplicate code generated: %q", code)
		}
		seen[code] = true
	}
}
