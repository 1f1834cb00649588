package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lexscan/regtracker/config"
	"github.com/lexscan/regtracker/model"
)

// RegFeedService pulls regulation records from a remote catalog API. The
// feed is optional: when no API URL is configured the capability is off and
// the catalog runs on its local file alone.
type RegFeedService struct {
	config     *config.RegFeedConfig
	httpClient *http.Client
}

// regFeedResponse is the feed API envelope.
type regFeedResponse struct {
	Code    int                `json:"code"`
	Message string             `json:"msg"`
	Data    []model.Regulation `json:"data"`
}

func NewRegFeedService(cfg *config.RegFeedConfig) *RegFeedService {
	return &RegFeedService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Enabled reports whether a feed endpoint is configured.
func (s *RegFeedService) Enabled() bool {
	return s.config.APIURL != ""
}

// FetchUpdates retrieves the current regulation set from the feed API.
func (s *RegFeedService) FetchUpdates(ctx context.Context) ([]model.Regulation, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.config.APIURL+"/regulations", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if s.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result regFeedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("regulation feed error: %s", result.Message)
	}

	return result.Data, nil
}
