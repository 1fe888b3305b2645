package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from string
		to   string
		want bool
	}{
		{types.AppStatusInProgress, types.AppStatusAwaitingDocuments, true},
		{types.AppStatusInProgress, types.AppStatusArchived, true},
		{types.AppStatusInProgress, types.AppStatusInReview, false},
		{types.AppStatusInProgress, types.AppStatusApproved, false},
		{types.AppStatusAwaitingDocuments, types.AppStatusInReview, true},
		{types.AppStatusAwaitingDocuments, types.AppStatusApproved, false},
		{types.AppStatusNeedsInformation, types.AppStatusInReview, true},
		{types.AppStatusNeedsInformation, types.AppStatusRejected, false},
		{types.AppStatusInReview, types.AppStatusNeedsInformation, true},
		{types.AppStatusInReview, types.AppStatusAwaitingCertification, true},
		{types.AppStatusInReview, types.AppStatusApproved, true},
		{types.AppStatusInReview, types.AppStatusRejected, true},
		{types.AppStatusAwaitingCertification, types.AppStatusApproved, true},
		{types.AppStatusAwaitingCertification, types.AppStatusNeedsInformation, true},
		{types.AppStatusAwaitingCertification, types.AppStatusInReview, false},
		// Terminal states have no outgoing edges.
		{types.AppStatusApproved, types.AppStatusArchived, false},
		{types.AppStatusRejected, types.AppStatusInReview, false},
		{types.AppStatusArchived, types.AppStatusInProgress, false},
		// Unknown statuses never transition.
		{"bogus", types.AppStatusApproved, false},
		{types.AppStatusInProgress, "bogus", false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIncomeThresholdCents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		size int
		want int64
	}{
		{1, 3_000_000},
		{2, 3_800_000},
		{4, 5_400_000},
		{10, 10_200_000},
		// Sizes below one are clamped to a household of one.
		{0, 3_000_000},
		{-3, 3_000_000},
	}
	for _, tc := range cases {
		if got := IncomeThresholdCents(tc.size); got != tc.want {
			t.Errorf("IncomeThresholdCents(%d) = %d, want %d", tc.size, got, tc.want)
		}
	}
}

func TestValidateForSubmission(t *testing.T) {
	t.Parallel()

	valid := func() *types.Application {
		return &types.Application{
			StateResident:     true,
			TermsAccepted:     true,
			HouseholdSize:     3,
			AnnualIncomeCents: 4_000_000,
		}
	}

	if err := validateForSubmission(valid()); err != nil {
		t.Fatalf("valid application should pass: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*types.Application)
	}{
		{"not a resident", func(a *types.Application) { a.StateResident = false }},
		{"terms not accepted", func(a *types.Application) { a.TermsAccepted = false }},
		{"household too small", func(a *types.Application) { a.HouseholdSize = 0 }},
		{"household too large", func(a *types.Application) { a.HouseholdSize = 21 }},
		{"income over threshold", func(a *types.Application) { a.AnnualIncomeCents = 4_700_000; a.HouseholdSize = 2 }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			app := valid()
			tc.mutate(app)
			err := validateForSubmission(app)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}

	// Income exactly at the threshold is eligible.
	app := valid()
	app.HouseholdSize = 2
	app.AnnualIncomeCents = IncomeThresholdCents(2)
	if err := validateForSubmission(app); err != nil {
		t.Fatalf("income at threshold should pass: %v", err)
	}
}

func TestApplicationCode(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000")
	code := applicationCode(id)
	if code != "APP-A1B2C3D4" {
		t.Fatalf("applicationCode = %q, want APP-A1B2C3D4", code)
	}
	if code != strings.ToUpper(code) {
		t.Fatalf("application codes must be uppercase: %q", code)
	}
}
