package services

import (
	"testing"

	"github.com/matvulcan/vulcan-backend/internal/types"
)

func TestNextStatusAfterRejection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status string
		count  int
		want   string
	}{
		{"below cap returns to constituent", types.AppStatusInReview, 1, types.AppStatusNeedsInformation},
		{"one short of cap returns to constituent", types.AppStatusInReview, types.MaxProofRejections - 1, types.AppStatusNeedsInformation},
		{"cap archives", types.AppStatusInReview, types.MaxProofRejections, types.AppStatusArchived},
		{"past cap archives", types.AppStatusInReview, types.MaxProofRejections + 3, types.AppStatusArchived},
		{"cap archives during certification", types.AppStatusAwaitingCertification, types.MaxProofRejections, types.AppStatusArchived},
		{"below cap during certification", types.AppStatusAwaitingCertification, 2, types.AppStatusNeedsInformation},
		{"no edge means no move", types.AppStatusInProgress, 2, ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := nextStatusAfterRejection(tc.status, tc.count); got != tc.want {
				t.Fatalf("nextStatusAfterRejection(%q, %d) = %q, want %q", tc.status, tc.count, got, tc.want)
			}
		})
	}
}
