package finance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
)

func TestAmortize_Examples(t *testing.T) {
	tests := []struct {
		name        string
		principal   float64
		term        int
		rate        float64
		installment string
		total       string
		interest    string
	}{
		{"twelve percent over a year", 10000, 12, 12, "888.49", "10661.88", "661.88"},
		{"zero rate divides evenly", 12000, 12, 0, "1000", "12000", "0"},
		{"organic rate", 50000, 24, 10, "2307.25", "55374", "5374"},
		{"single month", 1000, 1, 12, "1010", "1010", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Amortize(tt.principal, tt.term, tt.rate)
			require.NoError(t, err)

			assert.True(t, q.Installment.Equal(decimal.RequireFromString(tt.installment)), "installment %s", q.Installment)
			assert.True(t, q.Total.Equal(decimal.RequireFromString(tt.total)), "total %s", q.Total)
			assert.True(t, q.Interest.Equal(decimal.RequireFromString(tt.interest)), "interest %s", q.Interest)
		})
	}
}

func TestAmortize_TotalMatchesInstallments(t *testing.T) {
	for _, principal := range []float64{1000, 25000, 99999.99, 1000000} {
		for _, term := range []int{1, 3, 12, 37, 60} {
			for _, rate := range []float64{0, 1, 10, 12, 14, 24} {
				q, err := Amortize(principal, term, rate)
				require.NoError(t, err)

				p := decimal.NewFromFloat(principal)
				product := q.Installment.Mul(decimal.NewFromInt(int64(term)))
				if rate == 0 {
					assert.True(t, q.Total.Equal(p), "P=%v T=%d total=%s", principal, term, q.Total)
					assert.True(t, product.Sub(q.Total).Abs().LessThanOrEqual(decimal.NewFromFloat(0.005*float64(term))),
						"P=%v T=%d installment=%s", principal, term, q.Installment)
					assert.True(t, q.Interest.IsZero())
				} else {
					assert.True(t, product.Equal(q.Total))
					assert.True(t, q.Total.GreaterThanOrEqual(p), "P=%v T=%d R=%v total=%s", principal, term, rate, q.Total)
				}
			}
		}
	}
}

func TestAmortize_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		term      int
		rate      float64
	}{
		{"zero principal", 0, 12, 12},
		{"negative principal", -5, 12, 12},
		{"zero term", 1000, 0, 12},
		{"negative rate", 1000, 12, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Amortize(tt.principal, tt.term, tt.rate)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		})
	}
}

func TestQuote_Schedule(t *testing.T) {
	q, err := Amortize(10000, 12, 12)
	require.NoError(t, err)

	rows := q.Schedule()
	require.Len(t, rows, 12)

	assert.Equal(t, 100.0, rows[0].Interest)
	assert.Equal(t, 788.49, rows[0].Principal)
	assert.Equal(t, 0.0, rows[11].Balance)

	principal := decimal.Zero
	for _, row := range rows {
		principal = principal.Add(decimal.NewFromFloat(row.Principal))
	}
	assert.True(t, principal.Equal(decimal.NewFromInt(10000)))
}

func TestQuote_InstallmentAmounts(t *testing.T) {
	q, err := Amortize(10000, 3, 0)
	require.NoError(t, err)

	amounts := q.InstallmentAmounts()
	assert.Equal(t, []float64{3333.33, 3333.33, 3333.34}, amounts)
}

func TestMoneyHelpers(t *testing.T) {
	assert.Equal(t, 2.35, RoundMoney(2.345))
	assert.Equal(t, 2666.66, MultiplyMoney(888.888, 3))
	assert.Equal(t, 17.77, Percent(888.49, 2))
	assert.Equal(t, int64(88849), ToMinorUnits(888.49))
}
