// Package api implements the ReportSource port against the reporting HTTP
// API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"planfact/internal/core"
	"planfact/internal/fetch"
	"planfact/internal/source"

	"github.com/google/uuid"
)

// Client reads dashboard data from the remote reporting API.
type Client struct {
	base    string
	fetcher *fetch.Fetcher
}

// Ensure interface conformance
var _ source.ReportSource = (*Client)(nil)

// New creates a Client for the given base URL, e.g.
// "https://reports.example.com/api/dashboard". Every request carries a
// per-process visitor correlation id; the upstream ignores it when absent,
// so it is purely diagnostic.
func New(baseURL string, fetcher *fetch.Fetcher) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing reporting API base URL")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid reporting API base URL: %w", err)
	}
	fetcher.SetHeader("X-Visitor-ID", uuid.NewString())
	return &Client{base: baseURL, fetcher: fetcher}, nil
}

// MonthlyReport implements source.MonthlyReader.
func (c *Client) MonthlyReport(ctx context.Context, monthISO string) (core.MonthlyReport, error) {
	var rep core.MonthlyReport
	u := c.base + "?month=" + url.QueryEscape(monthISO)
	if err := c.fetcher.GetJSON(ctx, u, &rep); err != nil {
		return core.MonthlyReport{}, fmt.Errorf("monthly report %s: %w", monthISO, err)
	}
	if rep.Month == "" {
		rep.Month = monthISO
	}
	return rep, nil
}

// DailyReport implements source.DailyReader.
func (c *Client) DailyReport(ctx context.Context, dayISO string) (core.DailyReport, error) {
	var rep core.DailyReport
	u := c.base + "/daily?day=" + url.QueryEscape(dayISO)
	if err := c.fetcher.GetJSON(ctx, u, &rep); err != nil {
		return core.DailyReport{}, fmt.Errorf("daily report %s: %w", dayISO, err)
	}
	if rep.Date == "" {
		rep.Date = dayISO
	}
	return rep, nil
}

// Months implements source.PeriodLister.
func (c *Client) Months(ctx context.Context) ([]string, error) {
	var payload struct {
		Months []string `json:"months"`
	}
	if err := c.fetcher.GetJSON(ctx, c.base+"/months", &payload); err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	return payload.Months, nil
}

// Days implements source.PeriodLister.
func (c *Client) Days(ctx context.Context) ([]string, error) {
	var payload struct {
		Days []string `json:"days"`
	}
	if err := c.fetcher.GetJSON(ctx, c.base+"/days", &payload); err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return payload.Days, nil
}

// WorkBreakdown implements source.BreakdownReader. The response is either
// an object wrapping a "daily" array or a bare array; the raw message is
// handed to the drilldown transformer untouched.
func (c *Client) WorkBreakdown(ctx context.Context, monthISO, work string) (json.RawMessage, error) {
	var raw json.RawMessage
	u := c.base + "/work-breakdown?month=" + url.QueryEscape(monthISO) + "&work=" + url.QueryEscape(work)
	if err := c.fetcher.GetJSON(ctx, u, &raw); err != nil {
		return nil, fmt.Errorf("work breakdown %s %q: %w", monthISO, work, err)
	}
	return raw, nil
}

// PDF implements source.PDFReader: a binary passthrough of the
// server-rendered report.
func (c *Client) PDF(ctx context.Context, monthISO string) ([]byte, string, error) {
	u := c.base + "/pdf?month=" + url.QueryEscape(monthISO)
	body, header, err := c.fetcher.GetRaw(ctx, u, "application/pdf")
	if err != nil {
		return nil, "", fmt.Errorf("report pdf %s: %w", monthISO, err)
	}
	filename := filenameFromDisposition(header.Get("Content-Disposition"))
	if filename == "" {
		filename = fmt.Sprintf("planfact-report-%s.pdf", strings.TrimSuffix(monthISO, "-01"))
	}
	return body, filename, nil
}

// filenameFromDisposition extracts filename="..." from a
// Content-Disposition header, best effort.
func filenameFromDisposition(disposition string) string {
	for _, part := range strings.Split(disposition, ";") {
		part = strings.TrimSpace(part)
		if rest, ok := strings.CutPrefix(part, "filename="); ok {
			return strings.Trim(rest, `"`)
		}
	}
	return ""
}
