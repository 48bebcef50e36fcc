package models

import (
	"fmt"
	"math"
	"strings"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RoundCoordinate rounds to 5 decimal places (~1m precision)
func RoundCoordinate(v float64) float64 {
	return math.Round(v*100000) / 100000
}

// Address is a US postal address as it appears on the roster
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// FullAddress returns the canonical single-line form of the address
func (a Address) FullAddress() string {
	street := strings.TrimSpace(a.Street)
	city := strings.TrimSpace(a.City)
	state := strings.TrimSpace(a.State)
	zip := strings.TrimSpace(a.Zip)
	return strings.TrimSpace(fmt.Sprintf("%s, %s, %s %s", street, city, state, zip))
}

// Complete reports whether all four address fields are present
func (a Address) Complete() bool {
	return strings.TrimSpace(a.Street) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.State) != "" &&
		strings.TrimSpace(a.Zip) != ""
}

// ValidationState tags where a stop is in address validation
type ValidationState string

const (
	ValidationUnvalidated ValidationState = "unvalidated"
	ValidationValid       ValidationState = "valid"
	ValidationInvalid     ValidationState = "invalid"
)

// Validation is the outcome of resolving a stop's address
type Validation struct {
	State  ValidationState `json:"state"`
	Reason string          `json:"reason,omitempty"`
}

// Stop is one rider pickup point
type Stop struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Phone            string       `json:"phone"`
	Notes            string       `json:"notes"`
	Address          Address      `json:"address"`
	FormattedAddress string       `json:"formatted_address,omitempty"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
	Category         string       `json:"category"`
	RiderCount       int          `json:"rider_count"`
	Validation       Validation   `json:"validation"`
}

// FullAddress returns the canonical address line for the stop
func (s *Stop) FullAddress() string {
	return s.Address.FullAddress()
}

// DisplayAddress prefers the provider-formatted address once validated
func (s *Stop) DisplayAddress() string {
	if s.FormattedAddress != "" {
		return s.FormattedAddress
	}
	return s.FullAddress()
}

// Location converts the stop into a distance lookup location
func (s *Stop) Location() Location {
	loc := Location{Address: s.DisplayAddress()}
	if s.Coordinates != nil {
		c := *s.Coordinates
		loc.Coords = &c
	}
	return loc
}

// CategoryTokens splits the category field into its tokens
func (s *Stop) CategoryTokens() []string {
	return strings.Fields(s.Category)
}

// Clone returns a deep copy of the stop
func (s *Stop) Clone() Stop {
	c := *s
	if s.Coordinates != nil {
		coords := *s.Coordinates
		c.Coordinates = &coords
	}
	return c
}

// Location is an address, optionally resolved to coordinates, used for distance lookups
type Location struct {
	Address string       `json:"address"`
	Coords  *Coordinates `json:"coords,omitempty"`
}

// RouteState describes the lifecycle state of a route session
type RouteState string

const (
	RouteStateEmpty           RouteState = "empty"
	RouteStatePendingDecision RouteState = "pending_decision"
	RouteStateReady           RouteState = "ready"
)

// CategoryCount summarises riders per category token
type CategoryCount struct {
	Category string `json:"category"`
	Riders   int    `json:"riders"`
	Stops    int    `json:"stops"`
}

// Snapshot is a read-only view of a route session handed to the presentation layer
type Snapshot struct {
	SessionID   string          `json:"session_id"`
	Generation  uint64          `json:"generation"`
	State       RouteState      `json:"state"`
	Stops       []Stop          `json:"stops"`
	TotalRiders int             `json:"total_riders"`
	Categories  []CategoryCount `json:"categories"`
	TotalCost   float64         `json:"total_cost"`
	CostKnown   bool            `json:"cost_known"`
	Filter      string          `json:"filter,omitempty"`
	Rejected    []Stop          `json:"rejected,omitempty"`
	Warnings    []string        `json:"warnings"`
}
