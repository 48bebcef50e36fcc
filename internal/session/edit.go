package session

import (
	"log"

	"rider-router/internal/models"
)

func (s *RouteSession) editableLocked() error {
	if s.building {
		return ErrBuildInProgress
	}
	if s.state != models.RouteStateReady {
		return ErrNoRoute
	}
	return nil
}

// checkIndexLocked validates a position in the closed route and reports whether it is the origin
func (s *RouteSession) checkIndexLocked(index int) (bool, error) {
	size := len(s.route.order) + 2
	if index < 0 || index >= size {
		return false, &ErrIndexOutOfRange{Index: index, Len: size}
	}
	return index == 0 || index == size-1, nil
}

// riderPositionLocked maps a closed-route position to an index into route.order
func (s *RouteSession) riderPositionLocked(index int) (int, error) {
	isOrigin, err := s.checkIndexLocked(index)
	if err != nil {
		return 0, err
	}
	if isOrigin {
		return 0, &ErrProtectedStop{Index: index}
	}
	return index - 1, nil
}

// Delete removes the stop at a closed-route position. Removing the last rider stop
// leaves the session empty.
func (s *RouteSession) Delete(index int) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}
	pos, err := s.riderPositionLocked(index)
	if err != nil {
		return nil, err
	}

	id := s.route.order[pos]
	stop := s.stops[id]
	s.route.order = append(s.route.order[:pos:pos], s.route.order[pos+1:]...)
	s.superset = removeID(s.superset, id)
	delete(s.stops, id)
	s.warnings = nil

	log.Printf("[EDIT] Deleted stop: session=%s position=%d stop=%s riders=%d remaining=%d",
		s.ID, index, id, stop.RiderCount, len(s.route.order))

	if len(s.route.order) == 0 {
		s.state = models.RouteStateEmpty
		s.warnings = []string{"no rider stops remain; load a roster or reset to rebuild the route"}
	}
	s.recomputeLocked()
	return s.snapshotLocked(), nil
}

// Move takes the stop at position from and reinserts it at position to.
// No distances are recomputed; the cost is re-priced from the existing matrix.
func (s *RouteSession) Move(from, to int) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}
	src, err := s.riderPositionLocked(from)
	if err != nil {
		return nil, err
	}
	dst, err := s.riderPositionLocked(to)
	if err != nil {
		return nil, err
	}

	s.warnings = nil
	if src != dst {
		id := s.route.order[src]
		order := append(s.route.order[:src:src], s.route.order[src+1:]...)
		order = append(order[:dst:dst], append([]string{id}, order[dst:]...)...)
		s.route.order = order
		log.Printf("[EDIT] Moved stop: session=%s stop=%s from=%d to=%d", s.ID, id, from, to)
	}
	s.recomputeLocked()
	return s.snapshotLocked(), nil
}

// SetRiderCount adjusts the rider count at a position by delta, clamping at 0 for the
// origin and 1 for every other stop
func (s *RouteSession) SetRiderCount(index, delta int) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}
	isOrigin, err := s.checkIndexLocked(index)
	if err != nil {
		return nil, err
	}

	var stop *models.Stop
	floor := 1
	if isOrigin {
		stop = s.stops[s.route.origin]
		floor = 0
	} else {
		stop = s.stops[s.route.order[index-1]]
	}

	count := stop.RiderCount + delta
	if count < floor {
		count = floor
	}
	stop.RiderCount = count
	s.warnings = nil
	s.recomputeLocked()

	log.Printf("[EDIT] Rider count changed: session=%s stop=%s delta=%d count=%d", s.ID, stop.ID, delta, count)
	return s.snapshotLocked(), nil
}

// Reset restores the route produced by the most recent build, undoing later edits
func (s *RouteSession) Reset() (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.building {
		return nil, ErrBuildInProgress
	}
	if s.initial == nil {
		return nil, ErrNoRoute
	}

	// stops inserted or deleted since the build are dropped or restored along with the route
	s.stops = make(map[string]*models.Stop, len(s.initial.stops))
	for id, saved := range s.initial.stops {
		st := saved.Clone()
		s.stops[id] = &st
	}
	s.superset = append([]string(nil), s.initial.superset...)
	s.route = s.initial.route.clone()
	s.filter = s.initial.filter
	s.state = models.RouteStateReady
	s.warnings = nil
	s.recomputeLocked()

	log.Printf("[EDIT] Reset route: session=%s stops=%d", s.ID, len(s.route.order))
	return s.snapshotLocked(), nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
