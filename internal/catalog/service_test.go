package catalog

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/karimhafez/backend-pos/internal/common"
)

func TestValidateInput(t *testing.T) {
	valid := ProductInput{
		Name:       "Large Water Bottle",
		SellPrice:  decimal.NewFromInt(20),
		StaffPrice: decimal.NewFromInt(10),
		Stock:      50,
		BottleSize: "large",
	}
	if err := validateInput(valid); err != nil {
		t.Fatalf("expected valid input to pass, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*ProductInput)
	}{
		{"empty name", func(p *ProductInput) { p.Name = "  " }},
		{"negative sell price", func(p *ProductInput) { p.SellPrice = decimal.NewFromInt(-1) }},
		{"negative staff price", func(p *ProductInput) { p.StaffPrice = decimal.NewFromInt(-1) }},
		{"negative stock", func(p *ProductInput) { p.Stock = -1 }},
		{"bad bottle size", func(p *ProductInput) { p.BottleSize = "medium" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			err := validateInput(input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			appErr, ok := err.(*common.AppError)
			if !ok || appErr.Code != "VALIDATION" {
				t.Fatalf("expected VALIDATION error, got %v", err)
			}
		})
	}
}
