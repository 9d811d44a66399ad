package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/foodhub-promotions/internal/domain/menu"
	"github.com/xenking/foodhub-promotions/internal/domain/order"
	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
)

const maxBodyBytes = 1 << 20

// decodeError is a request body that is not the expected JSON.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return "invalid request body: " + e.err.Error()
}

func (e *decodeError) Unwrap() error {
	return e.err
}

// decodeBody reads the request body as a JSON object, calling fn per field.
func decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return &decodeError{err: err}
	}
	if err := jx.DecodeBytes(data).Obj(fn); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}

func decodeNullDecimal(d *jx.Decoder) (decimal.NullDecimal, error) {
	if d.Next() == jx.Null {
		return decimal.NullDecimal{}, d.Null()
	}
	v, err := decodeDecimal(d)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(v), nil
}

func decodeTime(d *jx.Decoder) (*time.Time, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, errors.Wrap(err, "parse time")
	}
	return &t, nil
}

type previewRequest struct {
	code        string
	subtotal    decimal.Decimal
	hasSubtotal bool
	items       []promotion.Item
	branchID    string
}

func (p *previewRequest) decode(d *jx.Decoder, key string) (err error) {
	switch key {
	case "code":
		p.code, err = d.Str()
	case "subtotal":
		p.subtotal, err = decodeDecimal(d)
		p.hasSubtotal = true
	case "branchId":
		p.branchID, err = d.Str()
	case "items":
		err = d.Arr(func(d *jx.Decoder) error {
			var it promotion.Item
			err := d.Obj(func(d *jx.Decoder, key string) (err error) {
				switch key {
				case "id":
					it.ID, err = d.Str()
				case "quantity":
					it.Quantity, err = d.Int()
				case "unitPrice":
					it.UnitPrice, err = decodeDecimal(d)
				default:
					err = d.Skip()
				}
				return err
			})
			p.items = append(p.items, it)
			return err
		})
	default:
		err = d.Skip()
	}
	if err != nil {
		return errors.Wrap(err, key)
	}
	return nil
}

// orderSubtotal is the subtotal of the lines when the client did not send
// one.
func (p *previewRequest) orderSubtotal() decimal.Decimal {
	if p.hasSubtotal {
		return p.subtotal
	}
	sum := decimal.Zero
	for _, it := range p.items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.Round(2)
}

func decodePlaceOrder(req *order.PlaceOrderRequest) func(d *jx.Decoder, key string) error {
	return func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "promoCode":
			req.PromoCode, err = d.Str()
		case "branchId":
			req.BranchID, err = d.Str()
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				var line order.LineRequest
				err := d.Obj(func(d *jx.Decoder, key string) (err error) {
					switch key {
					case "menuItemId":
						line.MenuItemID, err = d.Str()
					case "quantity":
						line.Quantity, err = d.Int()
					default:
						err = d.Skip()
					}
					return err
				})
				req.Items = append(req.Items, line)
				return err
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	}
}

func decodeCreatePromotion(req *promotion.CreateRequest) func(d *jx.Decoder, key string) error {
	return func(d *jx.Decoder, key string) (err error) {
		var s string
		switch key {
		case "code":
			req.Code, err = d.Str()
		case "description":
			req.Description, err = d.Str()
		case "discountType":
			s, err = d.Str()
			req.DiscountType = promotion.DiscountType(s)
		case "discountValue":
			req.DiscountValue, err = decodeDecimal(d)
		case "maxDiscount":
			req.MaxDiscount, err = decodeNullDecimal(d)
		case "maxUses":
			req.MaxUses, err = d.Int()
		case "perUserLimit":
			req.PerUserLimit, err = d.Int()
		case "validFrom":
			req.ValidFrom, err = decodeTime(d)
		case "validTo":
			req.ValidTo, err = decodeTime(d)
		case "branchId":
			req.BranchID, err = d.Str()
		case "status":
			s, err = d.Str()
			req.Status = promotion.Status(s)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	}
}

func money(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.StringFixed(2)))
}

func optStr(e *jx.Encoder, key, v string) {
	if v == "" {
		return
	}
	e.FieldStart(key)
	e.Str(v)
}

func optTime(e *jx.Encoder, key string, v *time.Time) {
	if v == nil {
		return
	}
	e.FieldStart(key)
	e.Str(v.UTC().Format(time.RFC3339))
}

func encodeMenuItem(e *jx.Encoder, it menu.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	optStr(e, "branchId", it.BranchID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("category")
	e.Str(it.Category)
	e.FieldStart("price")
	money(e, it.Price)
	e.FieldStart("available")
	e.Bool(it.Available)
	e.ObjEnd()
}

func encodeMenu(items []menu.Item) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, it := range items {
		encodeMenuItem(&e, it)
	}
	e.ArrEnd()
	return e.Bytes()
}

func encodeEvaluation(res *promotion.EvaluationResult) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Str(res.Code)
	e.FieldStart("discount")
	money(&e, res.Discount)
	e.FieldStart("total")
	money(&e, res.Total)
	e.ObjEnd()
	return e.Bytes()
}

func encodePromotion(p *promotion.Promotion) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Str(p.Code)
	optStr(&e, "description", p.Description)
	e.FieldStart("discountType")
	e.Str(string(p.DiscountType))
	e.FieldStart("discountValue")
	e.Num(jx.Num(p.DiscountValue.String()))
	if p.MaxDiscount.Valid {
		e.FieldStart("maxDiscount")
		money(&e, p.MaxDiscount.Decimal)
	}
	e.FieldStart("maxUses")
	e.Int(p.MaxUses)
	e.FieldStart("usageCount")
	e.Int(p.UsageCount)
	e.FieldStart("perUserLimit")
	e.Int(p.PerUserLimit)
	optTime(&e, "validFrom", p.ValidFrom)
	optTime(&e, "validTo", p.ValidTo)
	optStr(&e, "branchId", p.BranchID)
	e.FieldStart("status")
	e.Str(string(p.Status))
	optTime(&e, "createdAt", &p.CreatedAt)
	e.ObjEnd()
	return e.Bytes()
}

// encodeOrder writes the order and, when given, the menu items it was
// priced from.
func encodeOrder(o *order.Order, items []menu.Item) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	optStr(&e, "userId", o.UserID)
	optStr(&e, "branchId", o.BranchID)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("menuItemId")
		e.Str(it.MenuItemID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		money(&e, it.UnitPrice)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	money(&e, o.Subtotal)
	e.FieldStart("discount")
	money(&e, o.Discount)
	e.FieldStart("total")
	money(&e, o.Total)
	optStr(&e, "promoCode", o.PromoCode)
	e.FieldStart("status")
	e.Str(string(o.Status))
	optTime(&e, "createdAt", &o.CreatedAt)
	if items != nil {
		e.FieldStart("menuItems")
		e.ArrStart()
		for _, it := range items {
			encodeMenuItem(&e, it)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
	return e.Bytes()
}
