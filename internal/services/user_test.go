package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

func TestValidRelationshipType(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{
		types.RelationshipParent,
		types.RelationshipLegalGuardian,
		types.RelationshipCaretaker,
		types.RelationshipOther,
	} {
		if !types.ValidRelationshipType(valid) {
			t.Errorf("ValidRelationshipType(%q) = false, want true", valid)
		}
	}
	for _, invalid := range []string{"", "sibling", "PARENT", "guardian"} {
		if types.ValidRelationshipType(invalid) {
			t.Errorf("ValidRelationshipType(%q) = true, want false", invalid)
		}
	}
}

func TestAddGuardianRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	// Input validation runs before any repository access, so no stores are
	// needed for the rejection paths.
	svc := NewUserService(nil, log, nil, nil, nil, nil, nil, nil, nil)

	adminID := uuid.New()
	guardianID := uuid.New()
	dependentID := uuid.New()

	t.Run("invalid relationship type", func(t *testing.T) {
		t.Parallel()
		for _, bad := range []string{"", "sibling", "Parent"} {
			_, err := svc.AddGuardian(context.Background(), adminID, guardianID, dependentID, bad)
			if err == nil {
				t.Fatalf("expected error for relationship type %q", bad)
			}
			if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument for %q, got %v", bad, err)
			}
		}
	})

	t.Run("self guardianship", func(t *testing.T) {
		t.Parallel()
		_, err := svc.AddGuardian(context.Background(), adminID, guardianID, guardianID, types.RelationshipParent)
		if err == nil {
			t.Fatal("expected error for self guardianship")
		}
		if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
