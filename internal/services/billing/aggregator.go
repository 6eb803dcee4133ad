package billing

import (
	"fmt"
	"sort"
	"strings"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/money"

	"github.com/shopspring/decimal"
)

type LineTotals struct {
	HT  decimal.Decimal `json:"ht"`
	VAT decimal.Decimal `json:"vat"`
	TTC decimal.Decimal `json:"ttc"`
}

// RateBreakdown is the taxable base and tax collected at one VAT rate.
type RateBreakdown struct {
	Rate decimal.Decimal `json:"rate"`
	Base decimal.Decimal `json:"base"`
	Tax  decimal.Decimal `json:"tax"`
}

type Totals struct {
	HT        decimal.Decimal `json:"total_ht"`
	VAT       decimal.Decimal `json:"total_vat"`
	TTC       decimal.Decimal `json:"total_ttc"`
	Breakdown []RateBreakdown `json:"breakdown"`
}

// ComputeLine rounds HT and VAT to cents before TTC is derived.
func ComputeLine(quantity, unitPriceHT, vatRate decimal.Decimal) LineTotals {
	ht := money.Round2(quantity.Mul(unitPriceHT))
	vat := money.Tax(ht, vatRate)
	return LineTotals{HT: ht, VAT: vat, TTC: ht.Add(vat)}
}

// Stored precision of line inputs. Anything finer would be rounded by the
// database after the totals were computed.
const (
	QuantityPlaces = 3
	PricePlaces    = 2
)

// ValidateLines checks every line against the document type and reports all failures at once.
func ValidateLines(docType models.DocumentType, lines []models.InvoiceLine) error {
	verr := &apperr.ValidationError{}
	for i, l := range lines {
		field := func(name string) string { return fmt.Sprintf("lines[%d].%s", i, name) }

		if strings.TrimSpace(l.Description) == "" {
			verr.Add(field("description"), "is required")
		}
		if l.Quantity.IsNegative() && docType != models.TypeCreditNote {
			verr.Add(field("quantity"), "must not be negative on a "+string(docType))
		}
		if !l.Quantity.Equal(l.Quantity.Round(QuantityPlaces)) {
			verr.Add(field("quantity"), fmt.Sprintf("must have at most %d decimals", QuantityPlaces))
		}
		if l.UnitPriceHT.IsNegative() {
			verr.Add(field("unit_price_ht"), "must not be negative")
		} else if !l.UnitPriceHT.Equal(l.UnitPriceHT.Round(PricePlaces)) {
			verr.Add(field("unit_price_ht"), fmt.Sprintf("must have at most %d decimals", PricePlaces))
		}
		if !money.IsValidVATRate(l.VATRate) {
			verr.Add(field("vat_rate"), "must be one of 20, 10, 5.5, 2.1 or 0")
		}
	}
	return verr.Err()
}

// Aggregate validates the lines, writes each line's derived totals in place
// and returns the document totals with a per-rate breakdown.
func Aggregate(docType models.DocumentType, lines []models.InvoiceLine) (Totals, error) {
	if err := ValidateLines(docType, lines); err != nil {
		return Totals{}, err
	}

	totals := Totals{HT: decimal.Zero, VAT: decimal.Zero, TTC: decimal.Zero}
	byRate := map[string]*RateBreakdown{}

	for i := range lines {
		l := &lines[i]
		lt := ComputeLine(l.Quantity, l.UnitPriceHT, l.VATRate)
		l.TotalHT, l.TotalVAT, l.TotalTTC = lt.HT, lt.VAT, lt.TTC

		totals.HT = totals.HT.Add(lt.HT)
		totals.VAT = totals.VAT.Add(lt.VAT)
		totals.TTC = totals.TTC.Add(lt.TTC)

		key := l.VATRate.String()
		b, ok := byRate[key]
		if !ok {
			b = &RateBreakdown{Rate: l.VATRate, Base: decimal.Zero, Tax: decimal.Zero}
			byRate[key] = b
		}
		b.Base = b.Base.Add(lt.HT)
		b.Tax = b.Tax.Add(lt.VAT)
	}

	totals.Breakdown = make([]RateBreakdown, 0, len(byRate))
	for _, b := range byRate {
		totals.Breakdown = append(totals.Breakdown, *b)
	}
	sort.Slice(totals.Breakdown, func(i, j int) bool {
		return totals.Breakdown[i].Rate.GreaterThan(totals.Breakdown[j].Rate)
	})

	return totals, nil
}

// Apply copies document totals onto the invoice.
func Apply(inv *models.Invoice, t Totals) {
	inv.TotalHT, inv.TotalVAT, inv.TotalTTC = t.HT, t.VAT, t.TTC
}
