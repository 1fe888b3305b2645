package services

import (
	"errors"
	"reflect"
	"testing"

	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
)

func TestExtractPlaceholders(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "none",
			text: "plain text with no placeholders",
			want: []string{},
		},
		{
			name: "single",
			text: "Hello %<first_name>s",
			want: []string{"first_name"},
		},
		{
			name: "sorted and deduplicated",
			text: "%<voucher_code>s for %<first_name>s, again %<voucher_code>s",
			want: []string{"first_name", "voucher_code"},
		},
		{
			name: "malformed placeholders ignored",
			text: "%<>s %<bad name>s %<ok_1>s",
			want: []string{"ok_1"},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractPlaceholders(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractPlaceholders(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestValidatePlaceholders(t *testing.T) {
	t.Parallel()

	allowed := []string{"first_name", "application_code"}

	if err := ValidatePlaceholders("Hello %<first_name>s", "Ref %<application_code>s", allowed); err != nil {
		t.Fatalf("declared placeholders should validate: %v", err)
	}
	if err := ValidatePlaceholders("plain", "no placeholders", nil); err != nil {
		t.Fatalf("placeholder-free text should validate: %v", err)
	}

	err := ValidatePlaceholders("Hello %<first_name>s", "Code %<voucher_code>s", allowed)
	if err == nil {
		t.Fatal("expected error for undeclared placeholder")
	}
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRenderText(t *testing.T) {
	t.Parallel()

	got, err := RenderText("Hello %<first_name>s, your code is %<application_code>s", map[string]string{
		"first_name":       "Maya",
		"application_code": "APP-1A2B3C4D",
	})
	if err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	if got != "Hello Maya, your code is APP-1A2B3C4D" {
		t.Fatalf("unexpected render: %q", got)
	}

	_, err = RenderText("Hello %<first_name>s", map[string]string{})
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
