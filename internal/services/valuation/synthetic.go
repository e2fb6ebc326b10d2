package valuation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"FinScope/internal/domain/models"
	domsvc "FinScope/internal/domain/service"
)

// SourceSynthetic marks generated fundamentals.
const SourceSynthetic = "synthetic"

// SyntheticProvider generates a reproducible fundamentals snapshot from the
// ticker and price. It stands in for statement data and always flags its
// output as synthetic.
type SyntheticProvider struct{}

func NewSyntheticProvider() *SyntheticProvider { return &SyntheticProvider{} }

func (SyntheticProvider) Name() string { return SourceSynthetic }

func (SyntheticProvider) Fundamentals(_ context.Context, ticker string, price float64) (models.Fundamentals, error) {
	if !(price > 0) || math.IsInf(price, 0) {
		return models.Fundamentals{}, fmt.Errorf("synthetic fundamentals: invalid price %v", price)
	}
	return Synthesize(ticker, price), nil
}

// sineRand is a sine-hash generator: each draw is the fractional part of
// sin(seed)·10000 after incrementing the seed.
type sineRand struct{ seed float64 }

func newSineRand(ticker string, price float64) *sineRand {
	var sum int
	for _, r := range strings.ToUpper(ticker) {
		sum += int(r)
	}
	return &sineRand{seed: float64(sum) + price}
}

func (s *sineRand) next() float64 {
	s.seed++
	x := math.Sin(s.seed) * 10000
	return x - math.Floor(x)
}

// between draws uniformly from [lo, hi).
func (s *sineRand) between(lo, hi float64) float64 { return lo + (hi-lo)*s.next() }

// Synthesize builds the snapshot. Draw order is fixed; identical inputs give
// identical output.
func Synthesize(ticker string, price float64) models.Fundamentals {
	rng := newSineRand(ticker, price)

	shares := rng.between(20, 1000) * 1e6
	marketCap := price * shares
	priceToSales := rng.between(1, 8)
	revenue := marketCap / priceToSales

	gross := rng.between(0.2, 0.7)
	operating := gross * rng.between(0.3, 0.8)
	net := operating * rng.between(0.55, 0.85)
	netIncome := revenue * net

	revGrowth := rng.between(-0.05, 0.25)
	epsGrowth := revGrowth * rng.between(0.6, 1.5)
	debtToEquity := rng.between(0, 2)
	fcf := netIncome * rng.between(0.6, 1.2)

	payout := 0.0
	if r := rng.next(); r >= 0.35 {
		payout = r * 0.6
	}
	priceToBook := rng.between(1, 8)
	beta := rng.between(0.6, 1.8)
	cash := revenue * rng.between(0.05, 0.3)

	eps := netIncome / shares
	bookPerShare := price / priceToBook
	equity := bookPerShare * shares

	f := models.Fundamentals{
		Ticker:            strings.ToUpper(ticker),
		Source:            SourceSynthetic,
		Synthetic:         true,
		Price:             price,
		SharesOutstanding: shares,
		MarketCap:         marketCap,
		Revenue:           revenue,
		GrossMargin:       gross,
		OperatingMargin:   operating,
		NetMargin:         net,
		NetIncome:         netIncome,
		RevenueGrowth:     revGrowth,
		EarningsGrowth:    epsGrowth,
		DebtToEquity:      debtToEquity,
		TotalDebt:         debtToEquity * equity,
		Cash:              cash,
		FreeCashFlow:      fcf,
		EPS:               eps,
		FCFPerShare:       fcf / shares,
		PayoutRatio:       payout,
		BookValuePerShare: bookPerShare,
		ROE:               netIncome / equity,
		Beta:              beta,
	}
	if eps > 0 {
		f.DividendPerShare = eps * payout
		f.PE = models.Float(price / eps)
	}

	rev, ni := revenue, netIncome
	for y := 1; y <= 3; y++ {
		rev /= 1 + revGrowth*rng.between(0.8, 1.2)
		ni /= 1 + epsGrowth*rng.between(0.8, 1.2)
		f.History = append(f.History, models.FundamentalsPeriod{
			Label:        fmt.Sprintf("FY-%d", y),
			Revenue:      rev,
			NetIncome:    ni,
			EPS:          ni / shares,
			FreeCashFlow: ni * rng.between(0.6, 1.2),
		})
	}
	return f
}

var _ domsvc.FundamentalsProvider = (*SyntheticProvider)(nil)
