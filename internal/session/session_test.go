package session

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rider-router/internal/distance"
	"rider-router/internal/geocoding"
	"rider-router/internal/models"
	"rider-router/internal/roster"
	"rider-router/internal/testutil"
	"rider-router/internal/tour"
)

type fixture struct {
	geo     *testutil.MockGeocoder
	gw      *testutil.MockGateway
	session *RouteSession
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	geo := testutil.NewMockGeocoder()
	gw := testutil.NewMockGateway()
	cfg := distance.DefaultBuilderConfig()
	cfg.BaseDelay = time.Millisecond
	builder := distance.NewBuilder(gw, nil, cfg)
	return &fixture{
		geo:     geo,
		gw:      gw,
		session: New("test-session", geocoding.NewValidator(geo, 0), builder, opts),
	}
}

// stop registers a rider on a north-south line so nearest neighbour visits in latitude order
func (f *fixture) stop(id string, lat float64, riders int, category string) models.Stop {
	s := models.Stop{
		ID:         id,
		Name:       "Rider " + id,
		Address:    models.Address{Street: fmt.Sprintf("%s Main St", id), City: "Olathe", State: "KS", Zip: "66061"},
		Category:   category,
		RiderCount: riders,
	}
	f.geo.Add(s.FullAddress(), lat, -94.8)
	return s
}

func (f *fixture) roster() []models.Stop {
	return []models.Stop{
		f.stop("o", 0.00, 1, "9am"),
		f.stop("a", 0.03, 2, "9am"),
		f.stop("b", 0.01, 1, "11am"),
		f.stop("c", 0.04, 3, "9am 11am"),
		f.stop("d", 0.02, 1, "11am"),
	}
}

func ids(stops []models.Stop) []string {
	out := make([]string, len(stops))
	for i, s := range stops {
		out[i] = s.ID
	}
	return out
}

func TestLoadBuildsClosedNearestNeighbourRoute(t *testing.T) {
	f := newFixture(t, Options{})

	snap, err := f.session.Load(context.Background(), f.roster())

	require.NoError(t, err)
	assert.Equal(t, models.RouteStateReady, snap.State)
	assert.Equal(t, []string{"o", "b", "d", "a", "c", "o"}, ids(snap.Stops))
	assert.Equal(t, 7, snap.TotalRiders)
	assert.True(t, snap.CostKnown)
	assert.InDelta(t, 0.08*111000, snap.TotalCost, 1)
	assert.Equal(t, uint64(1), snap.Generation)
	for _, s := range snap.Stops {
		assert.Equal(t, models.ValidationValid, s.Validation.State)
		require.NotNil(t, s.Coordinates)
	}
}

func TestLoadCategorySummary(t *testing.T) {
	f := newFixture(t, Options{})

	snap, err := f.session.Load(context.Background(), f.roster())

	require.NoError(t, err)
	assert.Equal(t, []models.CategoryCount{
		{Category: "11am", Riders: 5, Stops: 3},
		{Category: "9am", Riders: 5, Stops: 2},
	}, snap.Categories)
}

func TestLoadWithDepotOrigin(t *testing.T) {
	f := newFixture(t, Options{Depot: &models.Stop{
		ID:         "depot",
		Name:       "Church",
		Address:    models.Address{Street: "100 Church Rd", City: "Olathe", State: "KS", Zip: "66061"},
		RiderCount: 5,
	}})
	f.geo.Add("100 Church Rd, Olathe, KS 66061", -0.01, -94.8)

	snap, err := f.session.Load(context.Background(), f.roster())

	require.NoError(t, err)
	require.Len(t, snap.Stops, 7)
	assert.Equal(t, "depot", snap.Stops[0].ID)
	assert.Equal(t, "depot", snap.Stops[6].ID)
	assert.Equal(t, 0, snap.Stops[0].RiderCount)
	assert.Equal(t, 8, snap.TotalRiders)
}

func TestLoadFailsWhenDepotCannotBeResolved(t *testing.T) {
	f := newFixture(t, Options{Depot: &models.Stop{
		ID:      "depot",
		Address: models.Address{Street: "1 Nowhere", City: "Olathe", State: "KS", Zip: "66061"},
	}})

	_, err := f.session.Load(context.Background(), f.roster())

	var gerr *geocoding.ErrGeocodingFailed
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, models.RouteStateEmpty, f.session.State())

	// the build flag is released
	_, err = f.session.Reset()
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestEndToEndRosterDeleteScenario(t *testing.T) {
	f := newFixture(t, Options{})
	csv := "First Name,Last Name,Home Address Street,Home Address City,Home Address State,Home Address Zip,Number of Riders,Role\n" +
		"Org,Anizer,1 Main St,Olathe,KS,66061,1,\n" +
		"Amy,Adams,2 Main St,Olathe,KS,66061,2,\n" +
		"Ben,Brown,3 Main St,Olathe,KS,66061,1,\n" +
		"Dan,Driver,9 Main St,Olathe,KS,66061,1,Driver\n" +
		"Cal,Cole,4 Main St,Olathe,KS,66061,3,\n" +
		"Deb,Day,5 Main St,Olathe,KS,66061,1,\n"
	for i := 1; i <= 5; i++ {
		f.geo.Add(fmt.Sprintf("%d Main St, Olathe, KS 66061", i), float64(i)*0.01, -94.8)
	}

	table, err := roster.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	res, err := roster.Normalize(table, roster.DefaultColumns())
	require.NoError(t, err)
	require.Len(t, res.Stops, 5)
	assert.Equal(t, 1, res.Excluded)

	snap, err := f.session.Load(context.Background(), res.Stops)
	require.NoError(t, err)
	require.Len(t, snap.Stops, 6)
	origin := snap.Stops[0].ID
	before := snap.TotalRiders
	deleted := snap.Stops[2]

	snap, err = f.session.Delete(2)
	require.NoError(t, err)

	require.Len(t, snap.Stops, 5)
	assert.Equal(t, origin, snap.Stops[0].ID)
	assert.Equal(t, origin, snap.Stops[4].ID)
	assert.Equal(t, before-deleted.RiderCount, snap.TotalRiders)
	assert.NotContains(t, ids(snap.Stops), deleted.ID)
}

func TestDeleteProtectsOrigin(t *testing.T) {
	f := newFixture(t, Options{})
	before, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)
	last := len(before.Stops) - 1

	for _, idx := range []int{0, last} {
		_, err := f.session.Delete(idx)
		var protected *ErrProtectedStop
		require.ErrorAs(t, err, &protected)
		assert.Equal(t, idx, protected.Index)
	}

	for _, idx := range []int{-1, last + 1} {
		_, err := f.session.Delete(idx)
		var outOfRange *ErrIndexOutOfRange
		require.ErrorAs(t, err, &outOfRange)
	}

	assert.Equal(t, ids(before.Stops), ids(f.session.Snapshot().Stops))
}

func TestDeleteEveryRiderEmptiesRoute(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	var snap *models.Snapshot
	for i := 0; i < 4; i++ {
		snap, err = f.session.Delete(1)
		require.NoError(t, err)
	}

	assert.Equal(t, models.RouteStateEmpty, snap.State)
	assert.Empty(t, snap.Stops)
	assert.Equal(t, 0, snap.TotalRiders)
	assert.NotEmpty(t, snap.Warnings)

	_, err = f.session.Delete(1)
	assert.ErrorIs(t, err, ErrNoRoute)
	_, err = f.session.Reoptimize(context.Background())
	assert.ErrorIs(t, err, ErrNoRoute)

	snap, err = f.session.Reset()
	require.NoError(t, err)
	assert.Equal(t, []string{"o", "b", "d", "a", "c", "o"}, ids(snap.Stops))
}

func TestMoveRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	before, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	moved, err := f.session.Move(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"o", "d", "a", "b", "c", "o"}, ids(moved.Stops))
	assert.True(t, moved.CostKnown)
	assert.Greater(t, moved.TotalCost, before.TotalCost)

	back, err := f.session.Move(3, 1)
	require.NoError(t, err)
	assert.Equal(t, ids(before.Stops), ids(back.Stops))
	assert.InDelta(t, before.TotalCost, back.TotalCost, 0.0001)
}

func TestMoveRejectsOrigin(t *testing.T) {
	f := newFixture(t, Options{})
	before, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)
	last := len(before.Stops) - 1

	for _, pair := range [][2]int{{0, 2}, {2, 0}, {last, 1}, {1, last}} {
		_, err := f.session.Move(pair[0], pair[1])
		var protected *ErrProtectedStop
		assert.ErrorAs(t, err, &protected, "move %v", pair)
	}
	_, err = f.session.Move(1, 99)
	var outOfRange *ErrIndexOutOfRange
	assert.ErrorAs(t, err, &outOfRange)

	assert.Equal(t, ids(before.Stops), ids(f.session.Snapshot().Stops))
}

func TestSetRiderCountClamps(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	snap, err := f.session.SetRiderCount(3, 2) // "a" has 2
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Stops[3].RiderCount)
	assert.Equal(t, 9, snap.TotalRiders)

	snap, err = f.session.SetRiderCount(3, -10)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Stops[3].RiderCount)
	assert.Equal(t, 6, snap.TotalRiders)

	snap, err = f.session.SetRiderCount(0, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Stops[0].RiderCount)
	assert.Equal(t, 0, snap.Stops[len(snap.Stops)-1].RiderCount)
	assert.Equal(t, 6, snap.TotalRiders)

	_, err = f.session.SetRiderCount(42, 1)
	var outOfRange *ErrIndexOutOfRange
	assert.ErrorAs(t, err, &outOfRange)
}

func TestFilterByCategory(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	snap, err := f.session.FilterByCategory(context.Background(), "9AM")
	require.NoError(t, err)
	assert.Equal(t, []string{"o", "a", "c", "o"}, ids(snap.Stops))
	assert.Equal(t, "9AM", snap.Filter)
	assert.Empty(t, snap.Warnings)

	snap, err = f.session.FilterByCategory(context.Background(), "all")
	require.NoError(t, err)
	assert.Len(t, snap.Stops, 6)
	assert.Equal(t, "", snap.Filter)
}

func TestFilterWithNoMatchesFallsBackToEveryStop(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	snap, err := f.session.FilterByCategory(context.Background(), "midnight")

	require.NoError(t, err)
	assert.Equal(t, []string{"o", "b", "d", "a", "c", "o"}, ids(snap.Stops))
	require.Len(t, snap.Warnings, 1)
	assert.Contains(t, snap.Warnings[0], "midnight")
}

func TestLoadFilteredBuildsOnce(t *testing.T) {
	f := newFixture(t, Options{})

	snap, err := f.session.LoadFiltered(context.Background(), f.roster(), "11")

	require.NoError(t, err)
	assert.Equal(t, []string{"o", "b", "d", "c", "o"}, ids(snap.Stops))
	assert.Equal(t, 1, f.gw.CallCount())
}

func TestPendingDecisionProceed(t *testing.T) {
	f := newFixture(t, Options{})
	stops := f.roster()
	stops = append(stops, models.Stop{
		ID:         "bad",
		Address:    models.Address{Street: "1 Nowhere", City: "Olathe", State: "KS", Zip: "66061"},
		RiderCount: 1,
	})

	snap, err := f.session.Load(context.Background(), stops)
	require.NoError(t, err)
	assert.Equal(t, models.RouteStatePendingDecision, snap.State)
	assert.Empty(t, snap.Stops)
	require.Len(t, snap.Rejected, 1)
	assert.Equal(t, "bad", snap.Rejected[0].ID)
	assert.Equal(t, models.ValidationInvalid, snap.Rejected[0].Validation.State)
	assert.Equal(t, 0, f.gw.CallCount())

	_, err = f.session.Delete(1)
	assert.ErrorIs(t, err, ErrNoRoute)

	snap, err = f.session.Decide(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, models.RouteStateReady, snap.State)
	assert.Len(t, snap.Stops, 6)
	assert.Empty(t, snap.Rejected)

	_, err = f.session.Decide(context.Background(), true)
	assert.ErrorIs(t, err, ErrNoDecisionPending)
}

func TestPendingDecisionAbort(t *testing.T) {
	f := newFixture(t, Options{})
	stops := append(f.roster(), models.Stop{ID: "bad", Address: models.Address{Street: "x", City: "y", State: "z", Zip: "0"}})

	_, err := f.session.Load(context.Background(), stops)
	require.NoError(t, err)

	snap, err := f.session.Decide(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, models.RouteStateEmpty, snap.State)
	assert.Empty(t, snap.Rejected)
	assert.Empty(t, snap.Stops)
}

func TestInsertAppendPolicy(t *testing.T) {
	f := newFixture(t, Options{InsertPolicy: InsertAppend})
	_, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)
	calls := f.gw.CallCount()

	snap, err := f.session.Insert(context.Background(), f.stop("e", 0.005, 2, "9am"))

	require.NoError(t, err)
	assert.Equal(t, []string{"o", "b", "d", "a", "c", "e", "o"}, ids(snap.Stops))
	assert.False(t, snap.CostKnown)
	assert.Equal(t, 9, snap.TotalRiders)
	assert.Equal(t, calls, f.gw.CallCount())

	snap, err = f.session.Reoptimize(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.CostKnown)
	assert.Equal(t, []string{"o", "e", "b", "d", "a", "c", "o"}, ids(snap.Stops))
}

func TestInsertReoptimizePolicy(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	snap, err := f.session.Insert(context.Background(), f.stop("e", 0.005, 0, "9am"))

	require.NoError(t, err)
	assert.Equal(t, []string{"o", "e", "b", "d", "a", "c", "o"}, ids(snap.Stops))
	assert.True(t, snap.CostKnown)
	assert.Equal(t, 1, snap.Stops[1].RiderCount)
}

func TestInsertRejectsUnresolvableAddress(t *testing.T) {
	f := newFixture(t, Options{})
	before, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	_, err = f.session.Insert(context.Background(), models.Stop{
		Address: models.Address{Street: "1 Nowhere", City: "Olathe", State: "KS", Zip: "66061"},
	})

	var gerr *geocoding.ErrGeocodingFailed
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, ids(before.Stops), ids(f.session.Snapshot().Stops))

	// session is still editable
	_, err = f.session.Move(1, 2)
	assert.NoError(t, err)
}

func TestInsertWithoutRoute(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.session.Insert(context.Background(), f.stop("e", 0.005, 1, ""))
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestReoptimizeRestoresTourAfterMoves(t *testing.T) {
	f := newFixture(t, Options{})
	before, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)
	_, err = f.session.Move(1, 4)
	require.NoError(t, err)

	snap, err := f.session.Reoptimize(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ids(before.Stops), ids(snap.Stops))
}

func TestResetRestoresLastBuild(t *testing.T) {
	f := newFixture(t, Options{})
	before, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	_, err = f.session.Delete(2)
	require.NoError(t, err)
	_, err = f.session.SetRiderCount(1, 5)
	require.NoError(t, err)

	snap, err := f.session.Reset()

	require.NoError(t, err)
	assert.Equal(t, ids(before.Stops), ids(snap.Stops))
	assert.Equal(t, before.TotalRiders, snap.TotalRiders)
}

func TestResetDropsStopsInsertedAfterBuild(t *testing.T) {
	f := newFixture(t, Options{InsertPolicy: InsertAppend})
	before, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	_, err = f.session.Insert(context.Background(), f.stop("e", 0.005, 2, "9am"))
	require.NoError(t, err)

	snap, err := f.session.Reset()
	require.NoError(t, err)
	assert.Equal(t, ids(before.Stops), ids(snap.Stops))
	assert.Equal(t, 7, snap.TotalRiders)

	// a rebuild over every stop must not bring the undone insert back
	snap, err = f.session.FilterByCategory(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, ids(before.Stops), ids(snap.Stops))
	assert.Equal(t, 7, snap.TotalRiders)
}

func TestResetRestoresDeletedStopForLaterFilters(t *testing.T) {
	f := newFixture(t, Options{})
	before, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	_, err = f.session.Delete(1)
	require.NoError(t, err)
	_, err = f.session.Reset()
	require.NoError(t, err)

	snap, err := f.session.FilterByCategory(context.Background(), "all")
	require.NoError(t, err)
	assert.Equal(t, ids(before.Stops), ids(snap.Stops))
}

func TestSingleStopRosterIsInsufficient(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.session.Load(context.Background(), []models.Stop{f.stop("o", 0, 1, "")})

	var insufficient *tour.ErrInsufficientStops
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Have)
	assert.Equal(t, models.RouteStateEmpty, f.session.State())
}

func TestGatewayFailureLeavesRouteUnchanged(t *testing.T) {
	f := newFixture(t, Options{})
	before, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	f.gw.Err = &distance.ErrDistanceCalculationFailed{Reason: "denied"}
	_, err = f.session.Reoptimize(context.Background())

	var buildErr *distance.ErrMatrixBuildFailed
	require.ErrorAs(t, err, &buildErr)
	after := f.session.Snapshot()
	assert.Equal(t, ids(before.Stops), ids(after.Stops))
	assert.Equal(t, models.RouteStateReady, after.State)
}

func TestSecondBuildIsRejectedWhileOneIsOutstanding(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)
	calls := f.gw.CallCount()

	block := make(chan struct{})
	f.gw.Block = block

	done := make(chan error, 1)
	go func() {
		_, err := f.session.Reoptimize(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return f.gw.CallCount() > calls }, time.Second, time.Millisecond)

	_, err = f.session.Reoptimize(context.Background())
	assert.ErrorIs(t, err, ErrBuildInProgress)
	_, err = f.session.FilterByCategory(context.Background(), "9am")
	assert.ErrorIs(t, err, ErrBuildInProgress)
	_, err = f.session.Delete(1)
	assert.ErrorIs(t, err, ErrBuildInProgress)

	// snapshots stay readable and consistent during the build
	assert.Len(t, f.session.Snapshot().Stops, 6)

	close(block)
	require.NoError(t, <-done)

	_, err = f.session.Delete(1)
	assert.NoError(t, err)
}

func TestNewLoadSupersedesRunningBuild(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)
	calls := f.gw.CallCount()

	block := make(chan struct{})
	f.gw.Block = block

	reopt := make(chan error, 1)
	go func() {
		_, err := f.session.Reoptimize(context.Background())
		reopt <- err
	}()
	require.Eventually(t, func() bool { return f.gw.CallCount() > calls }, time.Second, time.Millisecond)

	newRoster := []models.Stop{f.stop("x", 0, 1, ""), f.stop("y", 0.05, 4, "")}
	loaded := make(chan error, 1)
	go func() {
		_, err := f.session.Load(context.Background(), newRoster)
		loaded <- err
	}()
	require.Eventually(t, func() bool { return f.gw.CallCount() > calls+1 }, time.Second, time.Millisecond)

	close(block)
	assert.ErrorIs(t, <-reopt, ErrSuperseded)
	require.NoError(t, <-loaded)

	snap := f.session.Snapshot()
	assert.Equal(t, []string{"x", "y", "x"}, ids(snap.Stops))
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Equal(t, 4, snap.TotalRiders)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	f := newFixture(t, Options{})
	snap, err := f.session.Load(context.Background(), f.roster())
	require.NoError(t, err)

	snap.Stops[1].RiderCount = 99
	snap.Stops[1].Coordinates.Lat = 50

	again := f.session.Snapshot()
	assert.Equal(t, 1, again.Stops[1].RiderCount)
	assert.Equal(t, 0.01, again.Stops[1].Coordinates.Lat)
}
