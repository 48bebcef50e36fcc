package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rider-router/internal/models"
)

const (
	defaultGoogleMapsURL = "https://maps.googleapis.com"
	googleMaxBatchSize   = 10
)

type googleGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type googleMatrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// NewGoogleGateway creates a gateway backed by the Google Distance Matrix API
func NewGoogleGateway(apiKey string) Gateway {
	return &googleGateway{
		baseURL: defaultGoogleMapsURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (g *googleGateway) Name() string { return "google" }

func (g *googleGateway) MaxBatchSize() int {
	return googleMaxBatchSize
}

func googlePlace(loc models.Location) string {
	if loc.Address != "" {
		return loc.Address
	}
	if loc.Coords != nil {
		return fmt.Sprintf("%.6f,%.6f", loc.Coords.Lat, loc.Coords.Lng)
	}
	return ""
}

func joinPlaces(locs []models.Location) string {
	parts := make([]string, len(locs))
	for i, loc := range locs {
		parts[i] = googlePlace(loc)
	}
	return strings.Join(parts, "|")
}

func (g *googleGateway) BatchDistances(ctx context.Context, origins, destinations []models.Location) ([][]Element, error) {
	params := url.Values{}
	params.Set("origins", joinPlaces(origins))
	params.Set("destinations", joinPlaces(destinations))
	params.Set("mode", "driving")
	params.Set("units", "metric")
	params.Set("key", g.apiKey)
	queryURL := fmt.Sprintf("%s/maps/api/distancematrix/json?%s", g.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] Distance Matrix request failed: origins=%d destinations=%d err=%v", len(origins), len(destinations), err)
		return nil, &ErrDistanceCalculationFailed{Reason: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[ERROR] Distance Matrix API error: status=%d body=%s", resp.StatusCode, string(body))
		return nil, &ErrDistanceCalculationFailed{
			Reason:    string(body),
			Status:    resp.StatusCode,
			Retryable: retryableStatus(resp.StatusCode),
		}
	}

	var body googleMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ErrDistanceCalculationFailed{Reason: err.Error(), Retryable: true}
	}

	switch body.Status {
	case "OK":
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return nil, &ErrDistanceCalculationFailed{Reason: body.Status, Retryable: true}
	default:
		reason := body.Status
		if body.ErrorMessage != "" {
			reason = fmt.Sprintf("%s: %s", body.Status, body.ErrorMessage)
		}
		return nil, &ErrDistanceCalculationFailed{Reason: reason}
	}

	block := make([][]Element, len(body.Rows))
	for i, row := range body.Rows {
		block[i] = make([]Element, len(row.Elements))
		for j, el := range row.Elements {
			if el.Status != "OK" {
				block[i][j] = Element{Status: StatusUnreachable}
				continue
			}
			block[i][j] = Element{
				Meters:  el.Distance.Value,
				Seconds: el.Duration.Value,
				Status:  StatusOK,
			}
		}
	}

	log.Printf("[MATRIX] Distance Matrix response: origins=%d destinations=%d", len(origins), len(destinations))
	return block, nil
}
