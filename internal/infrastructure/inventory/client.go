package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"intent-orchestrator/internal/config"
	"intent-orchestrator/internal/domain/device"
	"intent-orchestrator/internal/logger"

	"go.uber.org/zap"
)

const (
	devicesPath     = "/inventory/devices"
	pageSize        = 50
	fallbackListing = 200
	defaultTimeout  = 30 * time.Second
	maxErrorBody    = 2048
)

// Client talks to the device inventory REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Page is one page of the inventory listing.
type Page struct {
	Count   int             `json:"count"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
	Devices []device.Device `json:"items"`
	Query   string          `json:"query,omitempty"`
}

type apiPage struct {
	Count  int         `json:"count"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	Items  []apiDevice `json:"items"`
}

type apiDevice struct {
	Name              string `json:"name"`
	UID               string `json:"uid"`
	UIDOnFmc          string `json:"uidOnFmc"`
	DeviceType        string `json:"deviceType"`
	Serial            string `json:"serial"`
	SoftwareVersion   string `json:"softwareVersion"`
	FtdLicenses       []any  `json:"ftdLicenses"`
	ConnectivityState string `json:"connectivityState"`
	ConfigState       string `json:"configState"`
}

func (a apiDevice) toDevice() device.Device {
	d := device.Device{
		Name:              a.Name,
		UID:               a.UID,
		DeviceType:        a.DeviceType,
		Serial:            a.Serial,
		SoftwareVersion:   a.SoftwareVersion,
		ConnectivityState: a.ConnectivityState,
		ConfigState:       a.ConfigState,
	}
	if id := strings.TrimSpace(a.UIDOnFmc); id != "" {
		d.TelemetryID = &id
	}
	for _, l := range a.FtdLicenses {
		d.Licenses = append(d.Licenses, fmt.Sprint(l))
	}
	return d
}

func NewClient(cfg config.DirectoryConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.BearerToken,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
	}
}

// List fetches one page. A non-empty query is passed verbatim as the Lucene q parameter.
func (c *Client) List(ctx context.Context, limit, offset int, query string) (*Page, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if query != "" {
		params.Set("q", query)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+devicesPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrDirectoryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %w: HTTP %d", device.ErrDirectoryUnavailable, device.ErrDirectoryAuth, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: HTTP %d: %s", device.ErrDirectoryUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw apiPage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", device.ErrDirectoryUnavailable, err)
	}

	page := &Page{
		Count:   raw.Count,
		Limit:   limit,
		Offset:  raw.Offset,
		Devices: make([]device.Device, 0, len(raw.Items)),
		Query:   query,
	}
	for _, item := range raw.Items {
		page.Devices = append(page.Devices, item.toDevice())
	}

	logger.Debug("Inventory page fetched",
		zap.Int("limit", limit),
		zap.Int("offset", offset),
		zap.String("query", query),
		zap.Int("returned", len(page.Devices)),
		zap.Int("count", page.Count),
	)

	return page, nil
}

// FindResult reports how a search was satisfied.
type FindResult struct {
	SearchTerm   string          `json:"search_term"`
	SearchMethod string          `json:"search_method"`
	LuceneQuery  string          `json:"lucene_query_used,omitempty"`
	Devices      []device.Device `json:"items"`
	DevicesFound int             `json:"devices_found"`
}

// Find searches with a Lucene query first and, when that matches nothing,
// filters a plain listing locally.
func (c *Client) Find(ctx context.Context, term string, limit int) (*FindResult, error) {
	query := BuildSearchQuery(term)

	page, err := c.List(ctx, limit, 0, query)
	if err != nil {
		return nil, err
	}

	result := &FindResult{
		SearchTerm:   term,
		SearchMethod: "api_query",
		LuceneQuery:  query,
		Devices:      page.Devices,
	}

	if term != "" && len(page.Devices) == 0 {
		logger.Info("Inventory query returned nothing, filtering locally",
			zap.String("search_term", term),
			zap.String("query", query),
		)

		full, err := c.List(ctx, fallbackListing, 0, "")
		if err != nil {
			return nil, err
		}

		result.SearchMethod = "local_filter"
		result.LuceneQuery = ""
		result.Devices = FilterLocally(full.Devices, term)
	}

	result.DevicesFound = len(result.Devices)
	return result, nil
}

// GetAll pages through the inventory until maxDevices or the end of the listing.
func (c *Client) GetAll(ctx context.Context, maxDevices int) ([]device.Device, error) {
	var all []device.Device
	offset := 0

	for len(all) < maxDevices {
		page, err := c.List(ctx, pageSize, offset, "")
		if err != nil {
			return nil, err
		}

		all = append(all, page.Devices...)
		if len(page.Devices) < pageSize || (page.Count > 0 && len(all) >= page.Count) {
			break
		}
		offset += pageSize
	}

	if len(all) > maxDevices {
		all = all[:maxDevices]
	}
	return all, nil
}

// Search implements device.Directory.
func (c *Client) Search(ctx context.Context, term string) ([]device.Device, error) {
	result, err := c.Find(ctx, term, pageSize)
	if err != nil {
		return nil, err
	}
	return result.Devices, nil
}

// ListAll implements device.Directory.
func (c *Client) ListAll(ctx context.Context, limit int) ([]device.Device, error) {
	return c.GetAll(ctx, limit)
}
