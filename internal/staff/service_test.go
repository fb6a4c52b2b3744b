package staff

import (
	"testing"

	"github.com/karimhafez/backend-pos/internal/pricing"
)

func TestAllowanceColumn(t *testing.T) {
	cases := []struct {
		size    pricing.BottleSize
		want    string
		wantErr bool
	}{
		{pricing.BottleLarge, "large_bottles", false},
		{pricing.BottleSmall, "small_bottles", false},
		{pricing.BottleNone, "", true},
		{pricing.BottleSize("medium"), "", true},
	}
	for _, tc := range cases {
		got, err := allowanceColumn(tc.size)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("size %q: expected error", tc.size)
			}
			continue
		}
		if err != nil {
			t.Fatalf("size %q: unexpected error %v", tc.size, err)
		}
		if got != tc.want {
			t.Fatalf("size %q: expected column %q, got %q", tc.size, tc.want, got)
		}
	}
}

func TestNewServiceClampsNegativeMax(t *testing.T) {
	svc := NewService(nil, -3)
	if svc.max != 0 {
		t.Fatalf("expected negative max clamped to 0, got %d", svc.max)
	}
}
