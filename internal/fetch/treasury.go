package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"econ-health-api/internal/config"
	"econ-health-api/internal/logger"
	"econ-health-api/internal/models"
)

// TreasuryFetcher fetches the latest "Debt to the Penny" record from the
// Treasury Fiscal Data API.
type TreasuryFetcher struct {
	source config.Source
	client *Client
	logger *logger.Logger
}

// NewTreasuryFetcher creates a Treasury fetcher.
func NewTreasuryFetcher(source config.Source, client *Client, log *logger.Logger) *TreasuryFetcher {
	return &TreasuryFetcher{source: source, client: client, logger: log}
}

type treasuryResponse struct {
	Data []struct {
		RecordDate               string `json:"record_date"`
		TotalPublicDebtOutstand  string `json:"total_public_debt_outstanding"`
	} `json:"data"`
}

// FetchDebtToPenny fetches the most recent total public debt outstanding.
func (f *TreasuryFetcher) FetchDebtToPenny(ctx context.Context) (models.DebtSnapshot, error) {
	query := url.Values{}
	query.Set("sort", "-record_date")
	query.Set("page[size]", "1")
	query.Set("fields", "record_date,total_public_debt_outstanding")

	var payload treasuryResponse
	if err := f.client.GetJSON(ctx, f.source.Name, f.source.BaseURL+"?"+query.Encode(), &payload); err != nil {
		return models.DebtSnapshot{}, err
	}

	if len(payload.Data) == 0 {
		return models.DebtSnapshot{}, &Error{
			Kind:   KindParse,
			Source: f.source.Name,
			Cause:  fmt.Errorf("empty data array"),
		}
	}

	record := payload.Data[0]
	total, err := strconv.ParseFloat(record.TotalPublicDebtOutstand, 64)
	if err != nil {
		return models.DebtSnapshot{}, &Error{
			Kind:   KindParse,
			Source: f.source.Name,
			Cause:  fmt.Errorf("bad debt figure %q: %w", record.TotalPublicDebtOutstand, err),
		}
	}

	recordDate, err := time.Parse("2006-01-02", record.RecordDate)
	if err != nil {
		return models.DebtSnapshot{}, &Error{
			Kind:   KindParse,
			Source: f.source.Name,
			Cause:  fmt.Errorf("bad record date %q: %w", record.RecordDate, err),
		}
	}

	f.logger.WithSource(f.source.Name).Debugf("debt to the penny: %.0f as of %s", total, record.RecordDate)

	return models.DebtSnapshot{
		TotalPublicDebt: total,
		RecordDate:      recordDate,
		FetchedAt:       time.Now(),
	}, nil
}
