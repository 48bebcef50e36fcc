package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rider-router/internal/models"
)

const defaultOSRMURL = "https://router.project-osrm.org"

type osrmGateway struct {
	baseURL    string
	httpClient *http.Client
	maxBatch   int
}

type osrmTableResponse struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// NewOSRMGateway creates a gateway backed by an OSRM table service.
// Locations must carry coordinates.
func NewOSRMGateway(baseURL string, maxBatch int) Gateway {
	if baseURL == "" {
		baseURL = defaultOSRMURL
	}
	if maxBatch <= 0 {
		maxBatch = 10
	}
	return &osrmGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxBatch: maxBatch,
	}
}

func (c *osrmGateway) Name() string { return "osrm" }

func (c *osrmGateway) MaxBatchSize() int {
	return c.maxBatch
}

// BatchDistances sends origins followed by destinations as one coordinate list and
// selects the block with the sources and destinations parameters
func (c *osrmGateway) BatchDistances(ctx context.Context, origins, destinations []models.Location) ([][]Element, error) {
	all := append(append([]models.Location{}, origins...), destinations...)
	coords := make([]string, len(all))
	for i, loc := range all {
		if loc.Coords == nil {
			return nil, &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("location %q has no coordinates", loc.Address)}
		}
		coords[i] = fmt.Sprintf("%.6f,%.6f", loc.Coords.Lng, loc.Coords.Lat)
	}

	sources := make([]string, len(origins))
	for i := range origins {
		sources[i] = strconv.Itoa(i)
	}
	dests := make([]string, len(destinations))
	for j := range destinations {
		dests[j] = strconv.Itoa(len(origins) + j)
	}

	queryURL := fmt.Sprintf("%s/table/v1/driving/%s?annotations=distance,duration&sources=%s&destinations=%s",
		c.baseURL, strings.Join(coords, ";"), strings.Join(sources, ";"), strings.Join(dests, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to create OSRM request: points=%d err=%v", len(all), err)
		return nil, &ErrDistanceCalculationFailed{Reason: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[ERROR] OSRM API request failed: points=%d err=%v", len(all), err)
		return nil, &ErrDistanceCalculationFailed{Reason: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("[ERROR] OSRM API error: points=%d status=%d body=%s", len(all), resp.StatusCode, string(body))
		return nil, &ErrDistanceCalculationFailed{
			Reason:    string(body),
			Status:    resp.StatusCode,
			Retryable: retryableStatus(resp.StatusCode),
		}
	}

	var osrmResp osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&osrmResp); err != nil {
		log.Printf("[ERROR] Failed to decode OSRM response: points=%d err=%v", len(all), err)
		return nil, &ErrDistanceCalculationFailed{Reason: err.Error(), Retryable: true}
	}

	if osrmResp.Code != "Ok" {
		log.Printf("[ERROR] OSRM returned error code: points=%d code=%s", len(all), osrmResp.Code)
		return nil, &ErrDistanceCalculationFailed{Reason: fmt.Sprintf("OSRM error: %s %s", osrmResp.Code, osrmResp.Message)}
	}

	block := make([][]Element, len(osrmResp.Distances))
	for i, row := range osrmResp.Distances {
		block[i] = make([]Element, len(row))
		for j, dist := range row {
			var dur *float64
			if i < len(osrmResp.Durations) && j < len(osrmResp.Durations[i]) {
				dur = osrmResp.Durations[i][j]
			}
			if dist == nil || dur == nil {
				block[i][j] = Element{Status: StatusUnreachable}
				continue
			}
			block[i][j] = Element{Meters: *dist, Seconds: *dur, Status: StatusOK}
		}
	}

	log.Printf("[OSRM] Table response: sources=%d destinations=%d", len(origins), len(destinations))
	return block, nil
}
