package models

import "time"

// Signal is a five-level trading signal.
type Signal string

const (
	StrongBuy  Signal = "STRONG_BUY"
	Buy        Signal = "BUY"
	Neutral    Signal = "NEUTRAL"
	Sell       Signal = "SELL"
	StrongSell Signal = "STRONG_SELL"
)

// Score maps a signal onto -2..2.
func (s Signal) Score() int {
	switch s {
	case StrongBuy:
		return 2
	case Buy:
		return 1
	case Sell:
		return -1
	case StrongSell:
		return -2
	default:
		return 0
	}
}

// IsStrong reports whether the signal is one of the STRONG tiers.
func (s Signal) IsStrong() bool { return s == StrongBuy || s == StrongSell }

// Trend directions and MA alignment labels.
const (
	Uptrend   = "UPTREND"
	Downtrend = "DOWNTREND"
	Sideways  = "SIDEWAYS"
	Flat      = "NEUTRAL"
)

// Volatility classes.
const (
	VolHigh     = "HIGH"
	VolElevated = "ELEVATED"
	VolNormal   = "NORMAL"
	VolLow      = "LOW"
)

// Regime labels.
const (
	RegimeStrongUptrend     = "STRONG_UPTREND"
	RegimeStrongDowntrend   = "STRONG_DOWNTREND"
	RegimeTrendingUptrend   = "TRENDING_UPTREND"
	RegimeTrendingDowntrend = "TRENDING_DOWNTREND"
	RegimeMeanReverting     = "MEAN_REVERTING"
	RegimeHighVolatility    = "HIGH_VOLATILITY"
	RegimeRanging           = "RANGING"
	RegimeTransitioning     = "TRANSITIONING"
)

// Risk levels.
const (
	RiskHigh   = "HIGH"
	RiskMedium = "MEDIUM"
	RiskLow    = "LOW"
)

// Recommendation actions.
const (
	ActionStrongBuy  = "STRONG BUY"
	ActionBuy        = "BUY"
	ActionHold       = "HOLD"
	ActionSell       = "SELL"
	ActionStrongSell = "STRONG SELL"
)

// Valuation-model signals.
const (
	Undervalued  = "UNDERVALUED"
	FairlyValued = "FAIRLY VALUED"
	Overvalued   = "OVERVALUED"
)

type Trend struct {
	Direction   string  `json:"direction"`
	Strength    float64 `json:"strength"`
	Slope       float64 `json:"slope"`
	RSquared    float64 `json:"rSquared"`
	MAAlignment string  `json:"maAlignment"`
}

type Volatility struct {
	Current        float64 `json:"current"`
	Average        float64 `json:"average"`
	Ratio          float64 `json:"ratio"`
	Classification string  `json:"classification"`
}

// Regime summarises trend, volatility and persistence into one label.
type Regime struct {
	Trend      Trend      `json:"trend"`
	Volatility Volatility `json:"volatility"`
	Hurst      float64    `json:"hurst"`
	Overall    string     `json:"overall"`
}

// SignalResult is the output of a single signal generator.
type SignalResult struct {
	Signal      Signal             `json:"signal"`
	Reason      string             `json:"reason,omitempty"`
	Diagnostics map[string]float64 `json:"diagnostics,omitempty"`
}

type AggregateSignal struct {
	Signal     Signal  `json:"signal"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	// WeightsNormalized is false while the component weights sum below 1.
	WeightsNormalized bool `json:"weightsNormalized"`
}

type StatSignals struct {
	ZScore    SignalResult    `json:"zscore"`
	Momentum  SignalResult    `json:"momentum"`
	Volume    SignalResult    `json:"volume"`
	Aggregate AggregateSignal `json:"aggregate"`
}

// TechSignal is one indicator read at the latest bar.
type TechSignal struct {
	Indicator string    `json:"indicator"`
	Signal    Signal    `json:"signal"`
	Value     NullFloat `json:"value"`
	Reason    string    `json:"reason"`
}

type RiskMetrics struct {
	Volatility  float64 `json:"volatility"`
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
	MaxDrawdown float64 `json:"maxDrawdown"`
	VaR95       float64 `json:"var95"`
	CVaR95      float64 `json:"cvar95"`
	RiskLevel   string  `json:"riskLevel"`
}

type StretchComponent struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Stretch is the price-stretch composite and its verdict.
type Stretch struct {
	Score      float64            `json:"score"`
	Verdict    string             `json:"verdict"`
	Components []StretchComponent `json:"components"`
}

type FundamentalsPeriod struct {
	Label        string  `json:"label"`
	Revenue      float64 `json:"revenue"`
	NetIncome    float64 `json:"netIncome"`
	EPS          float64 `json:"eps"`
	FreeCashFlow float64 `json:"freeCashFlow"`
}

// Fundamentals is a company snapshot. Synthetic is true for generated data.
type Fundamentals struct {
	Ticker            string               `json:"ticker"`
	Source            string               `json:"source"`
	Synthetic         bool                 `json:"synthetic"`
	Price             float64              `json:"price"`
	SharesOutstanding float64              `json:"sharesOutstanding"`
	MarketCap         float64              `json:"marketCap"`
	Revenue           float64              `json:"revenue"`
	GrossMargin       float64              `json:"grossMargin"`
	OperatingMargin   float64              `json:"operatingMargin"`
	NetMargin         float64              `json:"netMargin"`
	NetIncome         float64              `json:"netIncome"`
	RevenueGrowth     float64              `json:"revenueGrowth"`
	EarningsGrowth    float64              `json:"earningsGrowth"`
	DebtToEquity      float64              `json:"debtToEquity"`
	TotalDebt         float64              `json:"totalDebt"`
	Cash              float64              `json:"cash"`
	FreeCashFlow      float64              `json:"freeCashFlow"`
	EPS               float64              `json:"eps"`
	FCFPerShare       float64              `json:"fcfPerShare"`
	DividendPerShare  float64              `json:"dividendPerShare"`
	PayoutRatio       float64              `json:"payoutRatio"`
	BookValuePerShare float64              `json:"bookValuePerShare"`
	ROE               float64              `json:"roe"`
	PE                NullFloat            `json:"pe"`
	Beta              float64              `json:"beta"`
	History           []FundamentalsPeriod `json:"history"`
}

type ValuationAssumptions struct {
	DiscountRate    float64 `json:"discountRate"`
	TerminalGrowth  float64 `json:"terminalGrowth"`
	Growth          float64 `json:"growth"`
	DividendGrowth  float64 `json:"dividendGrowth"`
	TargetPE        float64 `json:"targetPE"`
	ProjectionYears int     `json:"projectionYears"`
}

type ValuationModels struct {
	DCF         NullFloat            `json:"dcf"`
	DDM         NullFloat            `json:"ddm"`
	Multiples   NullFloat            `json:"multiples"`
	Anchor      NullFloat            `json:"anchor"`
	Upside      NullFloat            `json:"upside"`
	Signal      string               `json:"signal"`
	Assumptions ValuationAssumptions `json:"assumptions"`
}

type RecommendationComponents struct {
	Technical   float64 `json:"technical"`
	Statistical float64 `json:"statistical"`
	Regime      float64 `json:"regime"`
	Valuation   float64 `json:"valuation"`
}

type Recommendation struct {
	Action     string                   `json:"action"`
	Confidence float64                  `json:"confidence"`
	Score      float64                  `json:"score"`
	Components RecommendationComponents `json:"components"`
	Reasons    []string                 `json:"reasons,omitempty"`
}

// AnalysisResult is the full engine output for one (ticker, series) call.
type AnalysisResult struct {
	Ticker          string          `json:"ticker"`
	Series          []EnrichedBar   `json:"series"`
	CurrentPrice    float64         `json:"currentPrice"`
	Recommendation  Recommendation  `json:"recommendation"`
	TechSignals     []TechSignal    `json:"techSignals"`
	Regime          Regime          `json:"regime"`
	StatSignals     StatSignals     `json:"statSignals"`
	Risk            RiskMetrics     `json:"risk"`
	Target          float64         `json:"target"`
	StopLoss        float64         `json:"stopLoss"`
	Valuation       Stretch         `json:"valuation"`
	Fundamentals    *Fundamentals   `json:"fundamentals"`
	ValuationModels ValuationModels `json:"valuationModels"`
}

// AnalysisSummary is the compact form published to consumers and screens.
type AnalysisSummary struct {
	RequestID       string    `json:"requestId,omitempty"`
	Ticker          string    `json:"ticker"`
	Interval        string    `json:"interval,omitempty"`
	AsOf            time.Time `json:"asOf"`
	Bars            int       `json:"bars"`
	CurrentPrice    float64   `json:"currentPrice"`
	Action          string    `json:"action"`
	Confidence      float64   `json:"confidence"`
	Score           float64   `json:"score"`
	Regime          string    `json:"regime"`
	RiskLevel       string    `json:"riskLevel"`
	Verdict         string    `json:"verdict"`
	ValuationSignal string    `json:"valuationSignal"`
	Upside          NullFloat `json:"upside"`
	Target          float64   `json:"target"`
	StopLoss        float64   `json:"stopLoss"`
}

// Summary condenses the result. AsOf is the time of the last analysed bar.
func (r *AnalysisResult) Summary() AnalysisSummary {
	s := AnalysisSummary{
		Ticker:          r.Ticker,
		Bars:            len(r.Series),
		CurrentPrice:    r.CurrentPrice,
		Action:          r.Recommendation.Action,
		Confidence:      r.Recommendation.Confidence,
		Score:           r.Recommendation.Score,
		Regime:          r.Regime.Overall,
		RiskLevel:       r.Risk.RiskLevel,
		Verdict:         r.Valuation.Verdict,
		ValuationSignal: r.ValuationModels.Signal,
		Upside:          r.ValuationModels.Upside,
		Target:          r.Target,
		StopLoss:        r.StopLoss,
	}
	if n := len(r.Series); n > 0 {
		s.AsOf = r.Series[n-1].Time
	}
	return s
}
