package session

import (
	"context"
	"sort"
	"strings"
	"sync"

	"rider-router/internal/distance"
	"rider-router/internal/geocoding"
	"rider-router/internal/models"
	"rider-router/internal/tour"
)

// InsertPolicy decides what happens to the route after a stop is inserted
type InsertPolicy string

const (
	InsertReoptimize InsertPolicy = "reoptimize"
	InsertAppend     InsertPolicy = "append"
)

// Validator resolves stop addresses
type Validator interface {
	Validate(ctx context.Context, stops []models.Stop) (*geocoding.ValidationResult, error)
	ValidateStop(ctx context.Context, stop *models.Stop) error
}

// MatrixBuilder produces a complete cost matrix for a list of locations
type MatrixBuilder interface {
	Build(ctx context.Context, locations []models.Location) (*distance.Matrix, error)
}

// Options are per-session settings
type Options struct {
	// Depot, when set, is used as the origin of every route instead of the first roster stop
	Depot        *models.Stop
	InsertPolicy InsertPolicy
}

// route is the working tour. order holds rider stop IDs; the origin closes both ends.
type route struct {
	origin string
	order  []string
	matrix tour.CostMatrix
	index  map[string]int
}

func (r route) clone() route {
	c := r
	c.order = append([]string(nil), r.order...)
	return c
}

// savedRoute is the route as it stood right after the last build
type savedRoute struct {
	route    route
	superset []string
	stops    map[string]models.Stop
	filter   string
}

type pendingDecision struct {
	origin    *models.Stop
	validated []models.Stop
	filter    string
}

// RouteSession owns one operator's route and every mutation applied to it
type RouteSession struct {
	ID string

	validator Validator
	builder   MatrixBuilder
	opts      Options

	mu         sync.Mutex
	state      models.RouteState
	generation uint64
	building   bool

	stops    map[string]*models.Stop
	superset []string
	route    route
	initial  *savedRoute
	pending  *pendingDecision
	rejected []models.Stop
	filter   string
	warnings []string
	// notices describe the roster behind the current load and survive edits
	notices []string

	totalRiders int
	categories  []models.CategoryCount
	totalCost   float64
	costKnown   bool
}

// New creates an empty session
func New(id string, validator Validator, builder MatrixBuilder, opts Options) *RouteSession {
	if opts.InsertPolicy == "" {
		opts.InsertPolicy = InsertReoptimize
	}
	if opts.Depot != nil {
		depot := opts.Depot.Clone()
		depot.RiderCount = 0
		opts.Depot = &depot
	}
	return &RouteSession{
		ID:        id,
		validator: validator,
		builder:   builder,
		opts:      opts,
		state:     models.RouteStateEmpty,
		stops:     make(map[string]*models.Stop),
	}
}

// State returns the current lifecycle state
func (s *RouteSession) State() models.RouteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a deep-copied view of the session
func (s *RouteSession) Snapshot() *models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *RouteSession) snapshotLocked() *models.Snapshot {
	snap := &models.Snapshot{
		SessionID:   s.ID,
		Generation:  s.generation,
		State:       s.state,
		Stops:       s.closedStopsLocked(),
		TotalRiders: s.totalRiders,
		Categories:  append([]models.CategoryCount{}, s.categories...),
		TotalCost:   s.totalCost,
		CostKnown:   s.costKnown,
		Filter:      s.filter,
		Warnings:    append(append([]string{}, s.notices...), s.warnings...),
	}
	for i := range s.rejected {
		snap.Rejected = append(snap.Rejected, s.rejected[i].Clone())
	}
	return snap
}

func (s *RouteSession) closedStopsLocked() []models.Stop {
	if s.state != models.RouteStateReady {
		return []models.Stop{}
	}
	origin := s.stops[s.route.origin]
	out := make([]models.Stop, 0, len(s.route.order)+2)
	out = append(out, origin.Clone())
	for _, id := range s.route.order {
		out = append(out, s.stops[id].Clone())
	}
	return append(out, origin.Clone())
}

// recomputeLocked refreshes rider totals, the category summary and the route cost
func (s *RouteSession) recomputeLocked() {
	s.totalRiders = 0
	s.categories = nil
	s.totalCost = 0
	s.costKnown = false

	if s.state != models.RouteStateReady {
		return
	}

	counts := make(map[string]*models.CategoryCount)
	for _, id := range s.route.order {
		stop := s.stops[id]
		s.totalRiders += stop.RiderCount
		for _, token := range stop.CategoryTokens() {
			c, ok := counts[token]
			if !ok {
				c = &models.CategoryCount{Category: token}
				counts[token] = c
			}
			c.Riders += stop.RiderCount
			c.Stops++
		}
	}
	for _, c := range counts {
		s.categories = append(s.categories, *c)
	}
	sort.Slice(s.categories, func(i, j int) bool {
		return s.categories[i].Category < s.categories[j].Category
	})

	s.totalCost, s.costKnown = s.routeCostLocked()
}

// routeCostLocked prices the current order against the matrix of the last build.
// Stops added since that build have no matrix entry, so the cost is unknown.
func (s *RouteSession) routeCostLocked() (float64, bool) {
	if s.route.matrix == nil {
		return 0, false
	}
	indices := make([]int, 0, len(s.route.order)+2)
	for _, id := range append(append([]string{s.route.origin}, s.route.order...), s.route.origin) {
		idx, ok := s.route.index[id]
		if !ok {
			return 0, false
		}
		indices = append(indices, idx)
	}
	return tour.Cost(s.route.matrix, indices), true
}

func (s *RouteSession) ridersLocked() int {
	return len(s.route.order)
}

// matchesCategory reports whether any category token contains tag, ignoring case
func matchesCategory(stop *models.Stop, tag string) bool {
	tag = strings.ToLower(tag)
	for _, token := range stop.CategoryTokens() {
		if strings.Contains(strings.ToLower(token), tag) {
			return true
		}
	}
	return false
}

func isAllCategories(tag string) bool {
	tag = strings.TrimSpace(tag)
	return tag == "" || strings.EqualFold(tag, "all")
}
