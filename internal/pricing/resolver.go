package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BottleSize identifies the water bottle category of a product.
type BottleSize string

const (
	// BottleNone marks products that are not water bottles.
	BottleNone BottleSize = ""
	// BottleLarge marks large water bottles.
	BottleLarge BottleSize = "large"
	// BottleSmall marks small water bottles.
	BottleSmall BottleSize = "small"
)

const (
	largeBottlePhrase = "large water bottle"
	smallBottlePhrase = "small water bottle"
)

// Line describes a cart line item used for price resolution.
type Line struct {
	ProductName  string
	TaggedBottle BottleSize
	Quantity     int
	RegularPrice decimal.Decimal
	StaffPrice   decimal.Decimal
	PriceUsed    decimal.Decimal
	Owner        string
}

// ResolvedLine carries the line together with its charged unit price and
// bottle classification.
type ResolvedLine struct {
	Line
	UnitPrice decimal.Decimal
	Bottle    BottleSize
}

// Classify determines the bottle size of a product. An explicit catalog tag
// wins; products without one fall back to the legacy name match so SKUs that
// predate the tag keep working.
func Classify(name string, tagged BottleSize) BottleSize {
	if tagged == BottleLarge || tagged == BottleSmall {
		return tagged
	}
	lowered := strings.ToLower(name)
	if strings.Contains(lowered, largeBottlePhrase) {
		return BottleLarge
	}
	if strings.Contains(lowered, smallBottlePhrase) {
		return BottleSmall
	}
	return BottleNone
}

// ResolveLine determines the unit price to charge and the bottle
// classification for a cart line. The declared priceUsed is charged when
// present; otherwise the regular or staff price applies depending on the
// discount flag.
func ResolveLine(line Line, staffDiscount bool) ResolvedLine {
	unit := line.PriceUsed
	if unit.IsZero() {
		if staffDiscount {
			unit = line.StaffPrice
		} else {
			unit = line.RegularPrice
		}
	}
	return ResolvedLine{
		Line:      line,
		UnitPrice: unit,
		Bottle:    Classify(line.ProductName, line.TaggedBottle),
	}
}

// Subtotal sums unit price times quantity across all lines.
func Subtotal(lines []ResolvedLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// PartnerSplit sums, per line, the revenue attributable to the designated
// partner based on the product's owner tag.
func PartnerSplit(lines []ResolvedLine, partnerTag string) decimal.Decimal {
	total := decimal.Zero
	if strings.TrimSpace(partnerTag) == "" {
		return total
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if line.Owner != partnerTag {
			continue
		}
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}
