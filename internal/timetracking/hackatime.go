// Package timetracking — hackatime.go реализует клиент Hackatime API.
package timetracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HackatimeClient — HTTP-клиент Hackatime.
type HackatimeClient struct {
	baseURL  string
	apiToken string
	client   *http.Client
}

// NewHackatimeClient создаёт клиент с разумным таймаутом.
func NewHackatimeClient(baseURL, apiToken string) *HackatimeClient {
	return &HackatimeClient{
		baseURL:  baseURL,
		apiToken: apiToken,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// statsResponse — ответ эндпоинта статистики пользователя.
type statsResponse struct {
	Data struct {
		Projects []struct {
			Name         string `json:"name"`
			TotalSeconds int64  `json:"total_seconds"`
		} `json:"projects"`
	} `json:"data"`
}

// TotalsForUser возвращает суммы секунд по именованным сессиям пользователя.
func (c *HackatimeClient) TotalsForUser(ctx context.Context, externalID string) (map[string]int64, error) {
	endpoint := fmt.Sprintf("%s/users/%s/stats?features=projects",
		c.baseURL, url.PathEscape(externalID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к Hackatime: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Hackatime ответил статусом %d", resp.StatusCode)
	}

	var body statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа Hackatime: %w", err)
	}

	totals := make(map[string]int64, len(body.Data.Projects))
	for _, p := range body.Data.Projects {
		totals[p.Name] += p.TotalSeconds
	}
	return totals, nil
}
