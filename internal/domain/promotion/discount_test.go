package promotion

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeDiscount(t *testing.T) {
	d := decimal.RequireFromString

	tests := []struct {
		name         string
		promo        Promotion
		subtotal     decimal.Decimal
		wantDiscount string
		wantTotal    string
	}{
		{
			name:         "percent of subtotal",
			promo:        Promotion{DiscountType: DiscountPercent, DiscountValue: d("10")},
			subtotal:     d("100.00"),
			wantDiscount: "10.00",
			wantTotal:    "90.00",
		},
		{
			name: "percent capped by max discount",
			promo: Promotion{
				DiscountType:  DiscountPercent,
				DiscountValue: d("10"),
				MaxDiscount:   decimal.NewNullDecimal(d("5")),
			},
			subtotal:     d("100.00"),
			wantDiscount: "5.00",
			wantTotal:    "95.00",
		},
		{
			name:         "fixed never exceeds subtotal",
			promo:        Promotion{DiscountType: DiscountFixed, DiscountValue: d("20")},
			subtotal:     d("15.00"),
			wantDiscount: "15.00",
			wantTotal:    "0.00",
		},
		{
			name:         "fixed below subtotal",
			promo:        Promotion{DiscountType: DiscountFixed, DiscountValue: d("20")},
			subtotal:     d("50.00"),
			wantDiscount: "20.00",
			wantTotal:    "30.00",
		},
		{
			name:         "zero subtotal yields zero",
			promo:        Promotion{DiscountType: DiscountFixed, DiscountValue: d("20")},
			subtotal:     decimal.Zero,
			wantDiscount: "0",
			wantTotal:    "0",
		},
		{
			name:         "rounds half away from zero",
			promo:        Promotion{DiscountType: DiscountPercent, DiscountValue: d("12.5")},
			subtotal:     d("0.99"),
			wantDiscount: "0.12",
			wantTotal:    "0.87",
		},
		{
			name:         "rounding tie goes up",
			promo:        Promotion{DiscountType: DiscountPercent, DiscountValue: d("50")},
			subtotal:     d("0.05"),
			wantDiscount: "0.03",
			wantTotal:    "0.03",
		},
		{
			name: "zero cap grants nothing",
			promo: Promotion{
				DiscountType:  DiscountPercent,
				DiscountValue: d("50"),
				MaxDiscount:   decimal.NewNullDecimal(decimal.Zero),
			},
			subtotal:     d("40.00"),
			wantDiscount: "0.00",
			wantTotal:    "40.00",
		},
		{
			name: "sub-cent cap floors to zero",
			promo: Promotion{
				DiscountType:  DiscountPercent,
				DiscountValue: d("10"),
				MaxDiscount:   decimal.NewNullDecimal(d("0.005")),
			},
			subtotal:     d("100.00"),
			wantDiscount: "0.00",
			wantTotal:    "100.00",
		},
		{
			name: "fractional cent cap floors to whole cents",
			promo: Promotion{
				DiscountType:  DiscountFixed,
				DiscountValue: d("5"),
				MaxDiscount:   decimal.NewNullDecimal(d("1.239")),
			},
			subtotal:     d("20.00"),
			wantDiscount: "1.23",
			wantTotal:    "18.77",
		},
		{
			name:         "full percentage clears the order",
			promo:        Promotion{DiscountType: DiscountPercent, DiscountValue: d("100")},
			subtotal:     d("37.45"),
			wantDiscount: "37.45",
			wantTotal:    "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discount, total := ComputeDiscount(&tt.promo, tt.subtotal)
			assert.True(t, d(tt.wantDiscount).Equal(discount), "discount: got %s, want %s", discount, tt.wantDiscount)
			assert.True(t, d(tt.wantTotal).Equal(total), "total: got %s, want %s", total, tt.wantTotal)
		})
	}
}

func TestComputeDiscount_Bounds(t *testing.T) {
	promos := []Promotion{
		{DiscountType: DiscountPercent, DiscountValue: decimal.RequireFromString("33.3")},
		{DiscountType: DiscountFixed, DiscountValue: decimal.RequireFromString("7.77")},
		{
			DiscountType:  DiscountPercent,
			DiscountValue: decimal.RequireFromString("80"),
			MaxDiscount:   decimal.NewNullDecimal(decimal.RequireFromString("12.5")),
		},
		{
			DiscountType:  DiscountPercent,
			DiscountValue: decimal.RequireFromString("25"),
			MaxDiscount:   decimal.NewNullDecimal(decimal.RequireFromString("0.005")),
		},
		{
			DiscountType:  DiscountFixed,
			DiscountValue: decimal.RequireFromString("9.999"),
			MaxDiscount:   decimal.NewNullDecimal(decimal.RequireFromString("4.995")),
		},
	}

	for _, p := range promos {
		prev := decimal.Zero
		for cents := int64(0); cents <= 5000; cents += 37 {
			subtotal := decimal.New(cents, -2)
			discount, total := ComputeDiscount(&p, subtotal)

			assert.False(t, discount.IsNegative(), "discount negative for %s", subtotal)
			assert.True(t, discount.LessThanOrEqual(subtotal), "discount %s above subtotal %s", discount, subtotal)
			assert.False(t, total.IsNegative(), "total negative for %s", subtotal)
			if p.MaxDiscount.Valid {
				assert.True(t, discount.LessThanOrEqual(p.MaxDiscount.Decimal))
			}
			assert.True(t, discount.GreaterThanOrEqual(prev), "discount decreased at %s", subtotal)
			prev = discount
		}
	}
}
