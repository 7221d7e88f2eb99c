// internal/finance/amortization.go
package finance

import (
	"github.com/shopspring/decimal"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
)

var (
	hundred       = decimal.NewFromInt(100)
	monthsPerYear = decimal.NewFromInt(12)
	moneyPlaces   = int32(2)
)

// Quote is the result of amortizing a principal over a fixed term.
type Quote struct {
	Principal   decimal.Decimal
	TermMonths  int
	AnnualRate  decimal.Decimal
	MonthlyRate decimal.Decimal
	Installment decimal.Decimal
	Total       decimal.Decimal
	Interest    decimal.Decimal
}

// Installment is one row of an amortization table.
type Installment struct {
	Month     int     `json:"month"`
	Payment   float64 `json:"payment"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// Amortize computes the equal monthly installment for principal over
// termMonths at annualRate percent APR. Money is rounded half-up to the cent.
// With a positive rate Total is the rounded installment times the term; a zero
// rate divides the principal evenly and Total equals the principal.
func Amortize(principal float64, termMonths int, annualRate float64) (Quote, error) {
	if principal <= 0 {
		return Quote{}, invalidTerms("principal must be greater than zero")
	}
	if termMonths <= 0 {
		return Quote{}, invalidTerms("term must be at least one month")
	}
	if annualRate < 0 {
		return Quote{}, invalidTerms("interest rate cannot be negative")
	}

	p := decimal.NewFromFloat(principal)
	rate := decimal.NewFromFloat(annualRate)
	term := decimal.NewFromInt(int64(termMonths))
	r := rate.Div(hundred).Div(monthsPerYear)

	var installment decimal.Decimal
	if r.IsZero() {
		installment = p.Div(term)
	} else {
		growth := decimal.NewFromInt(1).Add(r).Pow(term)
		installment = p.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	}

	installment = installment.Round(moneyPlaces)
	total := installment.Mul(term).Round(moneyPlaces)
	if r.IsZero() {
		total = p.Round(moneyPlaces)
	}

	return Quote{
		Principal:   p.Round(moneyPlaces),
		TermMonths:  termMonths,
		AnnualRate:  rate,
		MonthlyRate: r,
		Installment: installment,
		Total:       total,
		Interest:    total.Sub(p).Round(moneyPlaces),
	}, nil
}

// Schedule expands the quote into a month-by-month table. The final row
// absorbs rounding so that the balance closes at zero.
func (q Quote) Schedule() []Installment {
	rows := make([]Installment, 0, q.TermMonths)
	balance := q.Principal

	for month := 1; month <= q.TermMonths; month++ {
		interest := balance.Mul(q.MonthlyRate).Round(moneyPlaces)
		payment := q.Installment
		principal := payment.Sub(interest)

		if month == q.TermMonths || principal.GreaterThan(balance) {
			principal = balance
			payment = principal.Add(interest)
		}

		balance = balance.Sub(principal)
		rows = append(rows, Installment{
			Month:     month,
			Payment:   payment.InexactFloat64(),
			Principal: principal.InexactFloat64(),
			Interest:  interest.InexactFloat64(),
			Balance:   balance.InexactFloat64(),
		})
	}

	return rows
}

// InstallmentAmounts splits Total into TermMonths payments of Installment,
// with the last one adjusted so the amounts sum to Total exactly.
func (q Quote) InstallmentAmounts() []float64 {
	amounts := make([]float64, q.TermMonths)
	paid := decimal.Zero
	for i := 0; i < q.TermMonths-1; i++ {
		amounts[i] = q.Installment.InexactFloat64()
		paid = paid.Add(q.Installment)
	}
	amounts[q.TermMonths-1] = q.Total.Sub(paid).InexactFloat64()
	return amounts
}

// RoundMoney rounds half-up to the cent.
func RoundMoney(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(moneyPlaces).InexactFloat64()
}

// MultiplyMoney returns amount × n rounded to the cent.
func MultiplyMoney(amount float64, n int) float64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(int64(n))).Round(moneyPlaces).InexactFloat64()
}

// Percent returns pct percent of amount rounded to the cent.
func Percent(amount, pct float64) float64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(pct)).Div(hundred).Round(moneyPlaces).InexactFloat64()
}

// ToMinorUnits converts a major-unit amount to its integer minor units.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

func invalidTerms(message string) *apperrors.AppError {
	return apperrors.New(apperrors.KindValidation, "INVALID_LOAN_TERMS", message, apperrors.ErrInvalidInput)
}
