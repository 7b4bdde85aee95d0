package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"listingsearch/internal/config"
	"listingsearch/internal/model"
	"listingsearch/internal/utils"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// MediaResolver replaces placeholder images with photos from a RESO
// property feed, matched by address. Feed failures never fail a search.
type MediaResolver struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewMediaResolver returns nil when no feed URL is configured
func NewMediaResolver(cfg config.MediaConfig, logger *zap.Logger) *MediaResolver {
	if cfg.RealtyAPIURL == "" {
		return nil
	}
	return &MediaResolver{
		url:   cfg.RealtyAPIURL,
		token: cfg.RealtyAPIToken,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger,
	}
}

type feedProperty struct {
	UnparsedAddress string        `json:"UnparsedAddress"`
	StreetNumber    any           `json:"StreetNumber"`
	StreetName      any           `json:"StreetName"`
	City            any           `json:"City"`
	StateOrProvince any           `json:"StateOrProvince"`
	Media           []model.Media `json:"Media"`
}

type feedResponse struct {
	Value []feedProperty `json:"value"`
}

// Attach fills Media for listings whose address appears in the feed.
// keep reports which listings may be changed (those still on the placeholder).
func (m *MediaResolver) Attach(ctx context.Context, listings []model.ListingRecord, keep func(model.ListingRecord) bool) {
	if m == nil || len(listings) == 0 {
		return
	}

	feed, err := m.fetch(ctx)
	if err != nil {
		m.logger.Warn("realty feed unavailable, keeping placeholder images", zap.Error(err))
		return
	}

	matched := 0
	for i := range listings {
		if !keep(listings[i]) {
			continue
		}
		if media := findMedia(listings[i].UnparsedAddress, feed); len(media) > 0 {
			listings[i].Media = media
			matched++
		}
	}
	m.logger.Debug("matched listing photos", zap.Int("matched", matched), zap.Int("feed_size", len(feed)))
}

func (m *MediaResolver) fetch(ctx context.Context) ([]feedProperty, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}
	return feed.Value, nil
}

// findMedia returns the photos of the first feed property whose address
// contains address
func findMedia(address string, feed []feedProperty) []model.Media {
	needle := utils.NormalizeAddress(address)
	if needle == "" {
		return nil
	}

	for _, p := range feed {
		candidate := p.UnparsedAddress
		if candidate == "" {
			var parts []string
			for _, v := range []any{p.StreetNumber, p.StreetName, p.City, p.StateOrProvince} {
				if s := cast.ToString(v); s != "" {
					parts = append(parts, s)
				}
			}
			candidate = strings.Join(parts, " ")
		}
		if candidate == "" || len(p.Media) == 0 {
			continue
		}
		if strings.Contains(utils.NormalizeAddress(candidate), needle) {
			return p.Media
		}
	}
	return nil
}
