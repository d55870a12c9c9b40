package stooq

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/pkg/config"
	"github.com/wonny/altsignals/pkg/httputil"
	"github.com/wonny/altsignals/pkg/logger"
)

// Client downloads daily OHLCV bars from Stooq's CSV endpoint. Free,
// unauthenticated, US tickers carry a ".us" suffix.
type Client struct {
	http    *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// NewClient creates a Stooq client.
func NewClient(cfg config.StooqConfig, log *logger.Logger) *Client {
	return &Client{
		http:    httputil.NewWithTimeout(log, 30*time.Second).WithRateLimit(2, 1),
		baseURL: cfg.BaseURL,
		logger:  log,
	}
}

// FetchDaily returns daily bars for a US ticker over [start, end],
// oldest first.
func (c *Client) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]contracts.Price, error) {
	symbol := strings.ToLower(ticker) + ".us"
	url := fmt.Sprintf("%s/q/d/l/?s=%s&d1=%s&d2=%s&i=d",
		c.baseURL, symbol, start.Format("20060102"), end.Format("20060102"))

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"from":   start.Format("2006-01-02"),
		"to":     end.Format("2006-01-02"),
	}).Info("Fetching daily prices")

	body, err := c.http.GetBody(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices for %s: %w", ticker, err)
	}

	prices, err := ParseCSV(ticker, body)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"bars":   len(prices),
	}).Info("Fetched daily prices")
	return prices, nil
}

// ParseCSV parses Stooq's daily CSV format:
// Date,Open,High,Low,Close,Volume with an ISO date column. Stooq
// closes are split/dividend adjusted, so AdjClose mirrors Close.
func ParseCSV(ticker string, data []byte) ([]contracts.Price, error) {
	if strings.HasPrefix(strings.TrimSpace(string(data)), "No data") {
		return nil, fmt.Errorf("no price data for %s", ticker)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read price CSV header for %s: %w", ticker, err)
	}
	if len(header) < 5 || !strings.EqualFold(header[0], "Date") {
		return nil, fmt.Errorf("unexpected price CSV header for %s: %v", ticker, header)
	}

	var prices []contracts.Price
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read price CSV row for %s: %w", ticker, err)
		}
		if len(record) < 5 {
			continue
		}

		date, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			continue
		}

		open, err1 := strconv.ParseFloat(record[1], 64)
		high, err2 := strconv.ParseFloat(record[2], 64)
		low, err3 := strconv.ParseFloat(record[3], 64)
		closePrice, err4 := strconv.ParseFloat(record[4], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}

		var volume int64
		if len(record) >= 6 {
			volume, _ = strconv.ParseInt(record[5], 10, 64)
		}

		prices = append(prices, contracts.Price{
			Ticker:   ticker,
			Date:     date,
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			AdjClose: closePrice,
			Volume:   volume,
		})
	}
	return prices, nil
}
