package service

import (
	"context"

	"FinScope/internal/domain/models"
)

// FundamentalsProvider supplies a company snapshot for valuation models.
type FundamentalsProvider interface {
	Name() string
	Fundamentals(ctx context.Context, ticker string, price float64) (models.Fundamentals, error)
}

// Analyzer turns one bar series into a full AnalysisResult.
type Analyzer interface {
	Analyze(ctx context.Context, ticker string, bars []models.PriceBar) (*models.AnalysisResult, error)
}
