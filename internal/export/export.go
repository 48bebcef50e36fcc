package export

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"rider-router/internal/models"
)

const (
	// MaxLinkWaypoints is the number of intermediate stops a Google Maps link carries
	MaxLinkWaypoints = 10
	// MaxDirectionsWaypoints is the waypoint limit of the directions renderer
	MaxDirectionsWaypoints = 25

	mapsDirURL = "https://www.google.com/maps/dir/"
)

// ErrEmptyRoute is returned when there is no closed route to export
var ErrEmptyRoute = errors.New("route has no stops to export")

// CapacityWarning reports stops left out of an export. The route itself is unchanged.
type CapacityWarning struct {
	Target    string
	Limit     int
	Requested int
}

func (w *CapacityWarning) Error() string {
	return fmt.Sprintf("%s supports %d waypoints; %d stops after the first %d were left out",
		w.Target, w.Limit, w.Requested-w.Limit, w.Limit)
}

// DirectionsPlan is the input for a turn-by-turn directions request
type DirectionsPlan struct {
	Origin      models.Location   `json:"origin"`
	Destination models.Location   `json:"destination"`
	Waypoints   []models.Location `json:"waypoints"`
}

func split(stops []models.Stop) (models.Stop, models.Stop, []models.Stop, error) {
	if len(stops) < 2 {
		return models.Stop{}, models.Stop{}, nil, ErrEmptyRoute
	}
	last := len(stops) - 1
	return stops[0], stops[last], stops[1:last], nil
}

// DeepLink builds a Google Maps directions URL for a closed route
func DeepLink(stops []models.Stop) (string, *CapacityWarning, error) {
	origin, destination, waypoints, err := split(stops)
	if err != nil {
		return "", nil, err
	}

	var warning *CapacityWarning
	if len(waypoints) > MaxLinkWaypoints {
		warning = &CapacityWarning{Target: "map link", Limit: MaxLinkWaypoints, Requested: len(waypoints)}
		waypoints = waypoints[:MaxLinkWaypoints]
	}

	params := url.Values{}
	params.Set("api", "1")
	params.Set("origin", origin.FullAddress())
	params.Set("destination", destination.FullAddress())
	if len(waypoints) > 0 {
		addrs := make([]string, len(waypoints))
		for i := range waypoints {
			addrs[i] = waypoints[i].FullAddress()
		}
		params.Set("waypoints", strings.Join(addrs, "|"))
	}
	params.Set("travelmode", "driving")

	return mapsDirURL + "?" + params.Encode(), warning, nil
}

// Directions builds a directions request for a closed route, dropping waypoints past the renderer limit
func Directions(stops []models.Stop) (*DirectionsPlan, *CapacityWarning, error) {
	origin, destination, waypoints, err := split(stops)
	if err != nil {
		return nil, nil, err
	}

	var warning *CapacityWarning
	if len(waypoints) > MaxDirectionsWaypoints {
		warning = &CapacityWarning{Target: "directions", Limit: MaxDirectionsWaypoints, Requested: len(waypoints)}
		waypoints = waypoints[:MaxDirectionsWaypoints]
	}

	plan := &DirectionsPlan{
		Origin:      origin.Location(),
		Destination: destination.Location(),
		Waypoints:   make([]models.Location, len(waypoints)),
	}
	for i := range waypoints {
		plan.Waypoints[i] = waypoints[i].Location()
	}
	return plan, warning, nil
}
