package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"rider-router/internal/models"
	"rider-router/internal/tour"
)

// buildResult is a freshly computed tour, not yet committed to the session
type buildResult struct {
	origin models.Stop
	order  []string
	matrix tour.CostMatrix
	index  map[string]int
}

// compute builds the matrix and tour for origin plus riders. It does no locking and
// must only be given copies of session stops.
func (s *RouteSession) compute(ctx context.Context, origin models.Stop, riders []models.Stop) (*buildResult, error) {
	n := len(riders) + 1
	if n < 2 {
		return nil, &tour.ErrInsufficientStops{Have: n, Need: 2}
	}

	stops := make([]models.Stop, 0, n)
	stops = append(stops, origin)
	stops = append(stops, riders...)

	locations := make([]models.Location, n)
	index := make(map[string]int, n)
	for i := range stops {
		locations[i] = stops[i].Location()
		index[stops[i].ID] = i
	}

	matrix, err := s.builder.Build(ctx, locations)
	if err != nil {
		return nil, err
	}
	order, err := tour.Build(matrix)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, n-1)
	for _, idx := range order[1 : len(order)-1] {
		ids = append(ids, stops[idx].ID)
	}
	return &buildResult{origin: origin, order: ids, matrix: matrix, index: index}, nil
}

// endBuild clears the build flag unless a newer load has taken over
func (s *RouteSession) endBuild(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.building = false
	}
}

// startBuildLocked claims the build flag for a mutation of the current generation
func (s *RouteSession) startBuildLocked() (uint64, error) {
	if s.building {
		return 0, ErrBuildInProgress
	}
	s.building = true
	return s.generation, nil
}

func (s *RouteSession) commitLocked(res *buildResult, warnings []string) {
	s.route = route{
		origin: res.origin.ID,
		order:  res.order,
		matrix: res.matrix,
		index:  res.index,
	}
	s.state = models.RouteStateReady
	s.warnings = warnings
	s.building = false
	s.recomputeLocked()
	s.initial = s.saveLocked()

	log.Printf("[SESSION] Route built: id=%s generation=%d stops=%d riders=%d cost=%.0f filter=%q",
		s.ID, s.generation, len(s.route.order), s.totalRiders, s.totalCost, s.filter)
}

func (s *RouteSession) saveLocked() *savedRoute {
	saved := &savedRoute{
		route:    s.route.clone(),
		superset: append([]string(nil), s.superset...),
		stops:    make(map[string]models.Stop, len(s.superset)+1),
		filter:   s.filter,
	}
	saved.stops[s.route.origin] = s.stops[s.route.origin].Clone()
	for _, id := range s.superset {
		saved.stops[id] = s.stops[id].Clone()
	}
	for _, id := range s.route.order {
		saved.stops[id] = s.stops[id].Clone()
	}
	return saved
}

func (s *RouteSession) clearLocked() {
	s.stops = make(map[string]*models.Stop)
	s.superset = nil
	s.route = route{}
	s.initial = nil
	s.pending = nil
	s.rejected = nil
	s.filter = ""
	s.state = models.RouteStateEmpty
}

// selectWorking picks the stops matching tag, falling back to every stop when none match
func selectWorking(superset []models.Stop, tag string) ([]models.Stop, string, []string) {
	if isAllCategories(tag) {
		return superset, "", nil
	}
	tag = strings.TrimSpace(tag)

	var working []models.Stop
	for i := range superset {
		if matchesCategory(&superset[i], tag) {
			working = append(working, superset[i])
		}
	}
	if len(working) == 0 {
		log.Printf("[SESSION] Category filter matched nothing, using all stops: category=%q", tag)
		return superset, tag, []string{fmt.Sprintf("no stops match category %q; showing all stops", tag)}
	}
	return working, tag, nil
}

func (s *RouteSession) supersetLocked() []models.Stop {
	out := make([]models.Stop, 0, len(s.superset))
	for _, id := range s.superset {
		out = append(out, s.stops[id].Clone())
	}
	return out
}

func (s *RouteSession) workingLocked() []models.Stop {
	out := make([]models.Stop, 0, len(s.route.order))
	for _, id := range s.route.order {
		out = append(out, s.stops[id].Clone())
	}
	return out
}

// Load replaces the session contents with a new roster. It supersedes any build
// still running for the session.
func (s *RouteSession) Load(ctx context.Context, stops []models.Stop) (*models.Snapshot, error) {
	return s.LoadFiltered(ctx, stops, "")
}

// LoadFiltered is Load followed by a category filter, computed as a single build
func (s *RouteSession) LoadFiltered(ctx context.Context, stops []models.Stop, category string) (*models.Snapshot, error) {
	return s.LoadRoster(ctx, stops, category, nil)
}

// LoadRoster is LoadFiltered carrying notices about how the roster was read
// (skipped or excluded rows). They stay in every snapshot until the next load.
func (s *RouteSession) LoadRoster(ctx context.Context, stops []models.Stop, category string, notices []string) (*models.Snapshot, error) {
	start := time.Now()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.notices = append([]string(nil), notices...)
	s.building = true
	var depot *models.Stop
	if s.opts.Depot != nil {
		d := s.opts.Depot.Clone()
		depot = &d
	}
	s.mu.Unlock()

	log.Printf("[SESSION] Load: id=%s generation=%d stops=%d category=%q", s.ID, gen, len(stops), category)

	if depot != nil && depot.Validation.State != models.ValidationValid {
		if err := s.validator.ValidateStop(ctx, depot); err != nil {
			s.endBuild(gen)
			return nil, fmt.Errorf("validate origin: %w", err)
		}
		s.mu.Lock()
		if s.generation == gen {
			d := depot.Clone()
			s.opts.Depot = &d
		}
		s.mu.Unlock()
	}

	result, err := s.validator.Validate(ctx, stops)
	if err != nil {
		s.endBuild(gen)
		return nil, err
	}

	if len(result.Rejected) > 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation != gen {
			return nil, ErrSuperseded
		}
		s.clearLocked()
		s.pending = &pendingDecision{origin: depot, validated: result.Validated, filter: category}
		s.rejected = result.Rejected
		s.state = models.RouteStatePendingDecision
		s.warnings = []string{fmt.Sprintf("%d of %d addresses could not be validated", len(result.Rejected), len(stops))}
		s.building = false
		s.recomputeLocked()
		log.Printf("[SESSION] Awaiting decision: id=%s valid=%d rejected=%d", s.ID, len(result.Validated), len(result.Rejected))
		return s.snapshotLocked(), nil
	}

	snap, err := s.buildValidated(ctx, gen, depot, result.Validated, category)
	if err == nil {
		log.Printf("[SESSION] Load complete: id=%s duration_ms=%d", s.ID, time.Since(start).Milliseconds())
	}
	return snap, err
}

// buildValidated builds a fresh route from validated stops and replaces the session contents
func (s *RouteSession) buildValidated(ctx context.Context, gen uint64, origin *models.Stop, validated []models.Stop, category string) (*models.Snapshot, error) {
	if origin == nil {
		if len(validated) == 0 {
			s.endBuild(gen)
			return nil, &tour.ErrInsufficientStops{Have: 0, Need: 2}
		}
		o := validated[0]
		origin = &o
		validated = validated[1:]
	}

	working, filter, warnings := selectWorking(validated, category)
	res, err := s.compute(ctx, *origin, working)
	if err != nil {
		s.endBuild(gen)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil, ErrSuperseded
	}

	s.clearLocked()
	o := origin.Clone()
	s.stops[o.ID] = &o
	for i := range validated {
		st := validated[i].Clone()
		s.stops[st.ID] = &st
		s.superset = append(s.superset, st.ID)
	}
	s.filter = filter
	s.commitLocked(res, warnings)
	return s.snapshotLocked(), nil
}

// Decide resolves a pending validation decision. proceed keeps only validated stops;
// otherwise the load is abandoned and the session is emptied.
func (s *RouteSession) Decide(ctx context.Context, proceed bool) (*models.Snapshot, error) {
	s.mu.Lock()
	if s.state != models.RouteStatePendingDecision {
		s.mu.Unlock()
		return nil, ErrNoDecisionPending
	}
	if !proceed {
		defer s.mu.Unlock()
		if s.building {
			return nil, ErrBuildInProgress
		}
		s.clearLocked()
		s.warnings = nil
		s.notices = nil
		s.recomputeLocked()
		log.Printf("[SESSION] Load aborted: id=%s", s.ID)
		return s.snapshotLocked(), nil
	}

	gen, err := s.startBuildLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	p := s.pending
	var origin *models.Stop
	if p.origin != nil {
		o := p.origin.Clone()
		origin = &o
	}
	validated := make([]models.Stop, len(p.validated))
	for i := range p.validated {
		validated[i] = p.validated[i].Clone()
	}
	s.mu.Unlock()

	log.Printf("[SESSION] Proceeding with validated stops: id=%s valid=%d", s.ID, len(validated))
	return s.buildValidated(ctx, gen, origin, validated, p.filter)
}

// FilterByCategory rebuilds the route over the superset stops matching category.
// "" and "all" select every stop; a category matching nothing also selects every stop.
func (s *RouteSession) FilterByCategory(ctx context.Context, category string) (*models.Snapshot, error) {
	s.mu.Lock()
	if s.route.origin == "" {
		s.mu.Unlock()
		return nil, ErrNoRoute
	}
	gen, err := s.startBuildLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	origin := s.stops[s.route.origin].Clone()
	superset := s.supersetLocked()
	s.mu.Unlock()

	working, filter, warnings := selectWorking(superset, category)
	res, err := s.compute(ctx, origin, working)
	if err != nil {
		s.endBuild(gen)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil, ErrSuperseded
	}
	s.filter = filter
	s.commitLocked(res, warnings)
	return s.snapshotLocked(), nil
}

// Reoptimize rebuilds the matrix and tour over the current working stops
func (s *RouteSession) Reoptimize(ctx context.Context) (*models.Snapshot, error) {
	s.mu.Lock()
	if s.state != models.RouteStateReady {
		s.mu.Unlock()
		return nil, ErrNoRoute
	}
	if have := s.ridersLocked() + 1; have < 2 {
		s.mu.Unlock()
		return nil, &tour.ErrInsufficientStops{Have: have, Need: 2}
	}
	gen, err := s.startBuildLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	origin := s.stops[s.route.origin].Clone()
	working := s.workingLocked()
	s.mu.Unlock()

	res, err := s.compute(ctx, origin, working)
	if err != nil {
		s.endBuild(gen)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil, ErrSuperseded
	}
	s.commitLocked(res, nil)
	return s.snapshotLocked(), nil
}

// Insert validates stop and adds it to the route. Under the append policy it is placed
// just before the return to the origin and the cost becomes unknown; otherwise the
// route is rebuilt.
func (s *RouteSession) Insert(ctx context.Context, stop models.Stop) (*models.Snapshot, error) {
	s.mu.Lock()
	if s.state != models.RouteStateReady {
		s.mu.Unlock()
		return nil, ErrNoRoute
	}
	gen, err := s.startBuildLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	policy := s.opts.InsertPolicy
	s.mu.Unlock()

	if stop.ID == "" {
		stop.ID = uuid.NewString()
	}
	if stop.RiderCount < 1 {
		stop.RiderCount = 1
	}
	stop.Validation = models.Validation{State: models.ValidationUnvalidated}

	if err := s.validator.ValidateStop(ctx, &stop); err != nil {
		s.endBuild(gen)
		return nil, err
	}

	if policy == InsertAppend {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation != gen {
			return nil, ErrSuperseded
		}
		s.addStopLocked(stop)
		s.route.order = append(s.route.order, stop.ID)
		s.warnings = []string{"route cost is unknown until the route is re-optimized"}
		s.building = false
		s.recomputeLocked()
		log.Printf("[EDIT] Appended stop: session=%s stop=%s address=%s", s.ID, stop.ID, stop.DisplayAddress())
		return s.snapshotLocked(), nil
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	origin := s.stops[s.route.origin].Clone()
	working := append(s.workingLocked(), stop.Clone())
	s.mu.Unlock()

	res, err := s.compute(ctx, origin, working)
	if err != nil {
		s.endBuild(gen)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil, ErrSuperseded
	}
	s.addStopLocked(stop)
	s.commitLocked(res, nil)
	log.Printf("[EDIT] Inserted stop and re-optimized: session=%s stop=%s", s.ID, stop.ID)
	return s.snapshotLocked(), nil
}

func (s *RouteSession) addStopLocked(stop models.Stop) {
	st := stop.Clone()
	s.stops[st.ID] = &st
	s.superset = append(s.superset, st.ID)
}
