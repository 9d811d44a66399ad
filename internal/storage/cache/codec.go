package cache

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
)

func encodePromotion(p *promotion.Promotion) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Str(p.Code)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("discount_type")
	e.Str(string(p.DiscountType))
	e.FieldStart("discount_value")
	e.Str(p.DiscountValue.String())
	if p.MaxDiscount.Valid {
		e.FieldStart("max_discount")
		e.Str(p.MaxDiscount.Decimal.String())
	}
	e.FieldStart("max_uses")
	e.Int(p.MaxUses)
	e.FieldStart("usage_count")
	e.Int(p.UsageCount)
	e.FieldStart("per_user_limit")
	e.Int(p.PerUserLimit)
	if p.ValidFrom != nil {
		e.FieldStart("valid_from")
		e.Str(p.ValidFrom.Format(time.RFC3339Nano))
	}
	if p.ValidTo != nil {
		e.FieldStart("valid_to")
		e.Str(p.ValidTo.Format(time.RFC3339Nano))
	}
	e.FieldStart("branch_id")
	e.Str(p.BranchID)
	e.FieldStart("status")
	e.Str(string(p.Status))
	e.FieldStart("created_at")
	e.Str(p.CreatedAt.Format(time.RFC3339Nano))
	e.ObjEnd()
	return e.Bytes()
}

func decodePromotion(data []byte) (*promotion.Promotion, error) {
	var p promotion.Promotion
	d := jx.DecodeBytes(data)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "code":
			p.Code, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "discount_type":
			var s string
			s, err = d.Str()
			p.DiscountType = promotion.DiscountType(s)
		case "discount_value":
			p.DiscountValue, err = decodeDecimal(d)
		case "max_discount":
			var v decimal.Decimal
			v, err = decodeDecimal(d)
			p.MaxDiscount = decimal.NewNullDecimal(v)
		case "max_uses":
			p.MaxUses, err = d.Int()
		case "usage_count":
			p.UsageCount, err = d.Int()
		case "per_user_limit":
			p.PerUserLimit, err = d.Int()
		case "valid_from":
			var t time.Time
			t, err = decodeTime(d)
			p.ValidFrom = &t
		case "valid_to":
			var t time.Time
			t, err = decodeTime(d)
			p.ValidTo = &t
		case "branch_id":
			p.BranchID, err = d.Str()
		case "status":
			var s string
			s, err = d.Str()
			p.Status = promotion.Status(s)
		case "created_at":
			p.CreatedAt, err = decodeTime(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %s", key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode promotion")
	}
	return &p, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := d.Str()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(s)
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}
