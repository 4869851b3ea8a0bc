package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisview/pkg/filter"
	"aisview/pkg/model"
	"aisview/pkg/vessel"
)

var now = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

func position(mmsi, typ int, ts time.Time, lat, lon float64, src model.Source) *model.Message {
	return &model.Message{Type: typ, MMSI: mmsi, Timestamp: ts, Source: src, Lat: &lat, Lon: &lon}
}

func static(mmsi, typ int, ts time.Time, name, flag string) *model.Message {
	return &model.Message{Type: typ, MMSI: mmsi, Timestamp: ts, Name: name, Flag: flag, IMO: 9000001}
}

func seed(t *testing.T) *Registry {
	t.Helper()
	r := New()
	dk := model.Source{Country: "DNK", Region: "808", BaseStation: 2190047, Type: model.SourceLive}
	sat := model.Source{Country: "NOR", Type: model.SourceSat}

	require.NoError(t, r.Update(position(1, model.TypePositionA1, now, 55.7, 12.6, dk)))
	require.NoError(t, r.Update(static(1, model.TypeStaticA, now, "NORDIC STAR", "DNK")))
	require.NoError(t, r.Update(position(2, model.TypePositionB, now.Add(-time.Minute), 56.1, 10.2, dk)))
	require.NoError(t, r.Update(position(3, model.TypePositionA1, now.Add(-2*time.Hour), 70.0, 20.0, sat)))
	return r
}

func TestRegistry_Find(t *testing.T) {
	r := seed(t)

	tests := []struct {
		name string
		src  filter.Predicate[model.Source]
		tgt  filter.Predicate[*model.Target]
		want []int
	}{
		{"NoFilter", nil, nil, []int{1, 2, 3}},
		{"SourceType", filter.SourceOfType(model.SourceSat), nil, []int{3}},
		{"Alive", nil, filter.Alive(now, 30*time.Minute), []int{1, 2}},
		{"ClassAndAlive", filter.SourceCountry("DNK"), filter.Alive(now, time.Hour).And(filter.VesselClass(model.ClassA)), []int{1}},
		{"Static", nil, filter.StaticReport(true), []int{1}},
		{"Search", nil, filter.Search("star"), []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Find(tt.src, tt.tgt)
			assert.ElementsMatch(t, tt.want, keys(got))
			assert.Equal(t, len(tt.want), r.Count(tt.src, tt.tgt))
		})
	}
}

func TestRegistry_SnapshotCopies(t *testing.T) {
	r := seed(t)

	got, ok := r.Get(1)
	require.True(t, ok)
	got.Pos.Lat = 0
	got.Name = "CHANGED"

	again, _ := r.Get(1)
	assert.Equal(t, 55.7, again.Pos.Lat)
	assert.Equal(t, "NORDIC STAR", again.Name)

	_, ok = r.Get(999)
	assert.False(t, ok)
}

func TestRegistry_RejectsClassMismatch(t *testing.T) {
	r := seed(t)
	err := r.Update(position(1, model.TypePositionB, now, 0, 0, model.Source{}))
	assert.ErrorIs(t, err, vessel.ErrClassMismatch)

	got, _ := r.Get(1)
	assert.Equal(t, 55.7, got.Pos.Lat)
}

func TestRegistry_LatePositionKeepsCurrent(t *testing.T) {
	r := seed(t)
	rate := r.RateCount(now.Add(-3 * time.Hour))

	err := r.Update(position(1, model.TypePositionA1, now.Add(-10*time.Minute), 54.0, 11.0, model.Source{}))
	assert.ErrorIs(t, err, vessel.ErrOutOfOrder)

	got, _ := r.Get(1)
	assert.Equal(t, 55.7, got.Pos.Lat)
	assert.Equal(t, now, got.PositionTime)
	assert.Equal(t, rate, r.RateCount(now.Add(-3*time.Hour)), "ignored reports are not counted")
}

func TestRegistry_UnsupportedNotStored(t *testing.T) {
	r := New()
	err := r.Update(&model.Message{Type: 27, MMSI: 5, Timestamp: now})
	assert.ErrorIs(t, err, vessel.ErrUnsupported)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Prune(t *testing.T) {
	r := seed(t)
	assert.Equal(t, 1, r.Prune(now, time.Hour))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_RateCount(t *testing.T) {
	r := seed(t)

	// Four reports were recorded; the two-hour old one fell out of the window.
	assert.Equal(t, 3, r.RateCount(now.Add(-time.Hour)))
	assert.Equal(t, 2, r.RateCount(now.Add(-30*time.Second)))
	assert.Equal(t, 0, r.RateCount(now))
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(mmsi int) {
			defer wg.Done()
			_ = r.Update(position(mmsi, model.TypePositionA1, now, 55, 12, model.Source{}))
			_ = r.Count(nil, nil)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, r.Len())
}

func keys(m map[int]*model.Target) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
