package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"aisview/pkg/cluster"
	"aisview/pkg/filter"
	"aisview/pkg/geo"
	"aisview/pkg/logging"
	"aisview/pkg/model"
	"aisview/pkg/pasttrack"
	"aisview/pkg/store"
)

// maxIngestBody bounds the size of one POST /api/messages body.
const maxIngestBody = 8 << 20

// TargetSource is the live vessel population.
type TargetSource interface {
	Find(src filter.Predicate[model.Source], tgt filter.Predicate[*model.Target]) map[int]*model.Target
	Count(src filter.Predicate[model.Source], tgt filter.Predicate[*model.Target]) int
	Get(mmsi int) (*model.Target, bool)
	RateCount(since time.Time) int
	Update(m *model.Message) error
}

// TrackSource reconstructs past tracks.
type TrackSource interface {
	PastTrack(ctx context.Context, mmsi int, now time.Time, timeBack time.Duration, minDist float64) (pasttrack.Result, error)
}

// VesselSettings are the server-side defaults for vessel queries.
type VesselSettings struct {
	TTL          time.Duration
	ClusterLimit int
	ClusterSize  float64
	TimeBack     time.Duration
	MinDist      float64
}

// VesselHandler serves the vessel list, cluster, details and search endpoints.
type VesselHandler struct {
	targets  TargetSource
	tracks   TrackSource
	archive  store.MessageWriter
	agg      *cluster.Aggregator
	settings VesselSettings
	now      func() time.Time
}

// NewVesselHandler creates a VesselHandler. archive may be nil, in which case
// ingested messages only update the live registry.
func NewVesselHandler(targets TargetSource, tracks TrackSource, archive store.MessageWriter, agg *cluster.Aggregator, settings VesselSettings) *VesselHandler {
	return &VesselHandler{
		targets:  targets,
		tracks:   tracks,
		archive:  archive,
		agg:      agg,
		settings: settings,
		now:      time.Now,
	}
}

// ClusterDTO is one grid cell of the cluster response.
type ClusterDTO struct {
	CellID  int64           `json:"cellId"`
	From    geo.Point       `json:"from"`
	To      geo.Point       `json:"to"`
	Count   int             `json:"count"`
	Density float64         `json:"density"`
	Vessels []*model.Target `json:"vessels"`
}

// ClusterResponse is returned by /api/vessel_clusters.
type ClusterResponse struct {
	RequestID    int          `json:"requestId"`
	InWorldCount int          `json:"inWorldCount"`
	Clusters     []ClusterDTO `json:"clusters"`
}

// VesselListResponse is returned by /api/vessel_list.
type VesselListResponse struct {
	RequestID    int             `json:"requestId"`
	InWorldCount int             `json:"inWorldCount"`
	VesselCount  int             `json:"vesselCount"`
	Vessels      []*model.Target `json:"vessels"`
}

// VesselDetailsResponse is returned by /api/vessel_target_details.
type VesselDetailsResponse struct {
	Target    *model.Target     `json:"target"`
	PastTrack *pasttrack.Result `json:"pastTrack,omitempty"`
}

// SearchResponse is returned by /api/vessel_search.
type SearchResponse struct {
	Argument string          `json:"argument"`
	Count    int             `json:"count"`
	Vessels  []*model.Target `json:"vessels"`
}

// IngestResponse is returned by POST /api/messages.
type IngestResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Archived int `json:"archived"`
}

// selection is the parsed filter part shared by the list and cluster endpoints.
type selection struct {
	requestID int
	sources   filter.Predicate[model.Source]
	vessels   filter.Predicate[*model.Target]
	alive     filter.Predicate[*model.Target]
}

func (h *VesselHandler) parseSelection(r *http.Request) (selection, error) {
	q := r.URL.Query()
	requestID, err := intParam(q, "requestId", -1)
	if err != nil {
		return selection{}, err
	}
	crit := parseCriteria(q)
	src, err := crit.Sources()
	if err != nil {
		return selection{}, err
	}
	vp, err := crit.Vessels()
	if err != nil {
		return selection{}, err
	}
	box, err := boxParam(q)
	if err != nil {
		return selection{}, err
	}
	alive := filter.Alive(h.now(), h.settings.TTL)
	return selection{
		requestID: requestID,
		sources:   src,
		vessels:   filter.All(alive, vp, filter.InBox(box)),
		alive:     alive,
	}, nil
}

// HandleClusters groups the matching vessels into grid cells.
func (h *VesselHandler) HandleClusters(w http.ResponseWriter, r *http.Request) {
	sel, err := h.parseSelection(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	q := r.URL.Query()
	limit, err := intParam(q, "clusterLimit", h.settings.ClusterLimit)
	if err != nil {
		badRequest(w, err)
		return
	}
	size, err := floatParam(q, "clusterSize", h.settings.ClusterSize)
	if err != nil {
		badRequest(w, err)
		return
	}
	grid, err := geo.NewGrid(size)
	if err != nil {
		badRequest(w, err)
		return
	}

	targets := h.targets.Find(sel.sources, sel.vessels)
	candidates := make([]cluster.Candidate, 0, len(targets))
	for _, t := range targets {
		candidates = append(candidates, t)
	}

	start := time.Now()
	cells, err := h.agg.Aggregate(r.Context(), candidates, limit, grid)
	if err != nil {
		if errors.Is(err, cluster.ErrInvalidLimit) {
			badRequest(w, err)
			return
		}
		slog.Warn("Clustering aborted", "error", err)
		http.Error(w, "clustering aborted", http.StatusServiceUnavailable)
		return
	}
	slog.Debug("Clustered vessels", "vessels", len(candidates), "cells", len(cells), "duration", time.Since(start))

	resp := ClusterResponse{
		RequestID:    sel.requestID,
		InWorldCount: h.targets.Count(sel.sources, sel.alive),
		Clusters:     make([]ClusterDTO, 0, len(cells)),
	}
	for id, c := range cells {
		dto := ClusterDTO{
			CellID:  id,
			From:    c.From,
			To:      c.To,
			Count:   c.Count,
			Density: c.Density,
			Vessels: make([]*model.Target, 0, len(c.Members)),
		}
		for _, m := range c.Members {
			if t, ok := m.(*model.Target); ok {
				dto.Vessels = append(dto.Vessels, t)
			}
		}
		sortTargets(dto.Vessels)
		resp.Clusters = append(resp.Clusters, dto)
	}
	slices.SortFunc(resp.Clusters, func(a, b ClusterDTO) int {
		switch {
		case a.CellID < b.CellID:
			return -1
		case a.CellID > b.CellID:
			return 1
		}
		return 0
	})

	writeJSON(w, resp)
}

// HandleList returns the matching vessels.
func (h *VesselHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sel, err := h.parseSelection(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	targets := h.targets.Find(sel.sources, sel.vessels)
	resp := VesselListResponse{
		RequestID:    sel.requestID,
		InWorldCount: h.targets.Count(sel.sources, sel.alive),
		VesselCount:  len(targets),
		Vessels:      sortedTargets(targets),
	}
	writeJSON(w, resp)
}

// HandleDetails returns one vessel and, with past_track set, its recent track.
func (h *VesselHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := "mmsi"
	if q.Get(key) == "" {
		key = "id"
	}
	mmsi, err := intParam(q, key, 0)
	if err != nil || mmsi <= 0 {
		http.Error(w, "missing or invalid mmsi", http.StatusBadRequest)
		return
	}

	t, ok := h.targets.Get(mmsi)
	if !ok {
		http.Error(w, "unknown vessel", http.StatusNotFound)
		return
	}
	resp := VesselDetailsResponse{Target: t}

	if q.Has("past_track") {
		now := t.PositionTime
		if now.IsZero() {
			now = t.LastReport
		}
		res, err := h.tracks.PastTrack(r.Context(), mmsi, now, h.settings.TimeBack, h.settings.MinDist)
		if err != nil {
			badRequest(w, err)
			return
		}
		resp.PastTrack = &res
	}
	writeJSON(w, resp)
}

// HandleSearch matches the argument against MMSI, name and IMO.
func (h *VesselHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	arg := r.URL.Query().Get("argument")
	if arg == "" {
		http.Error(w, "missing argument", http.StatusBadRequest)
		return
	}
	targets := h.targets.Find(nil, filter.Search(arg))
	writeJSON(w, SearchResponse{
		Argument: arg,
		Count:    len(targets),
		Vessels:  sortedTargets(targets),
	})
}

// HandleRateCount returns the number of reports received in the last second,
// or in the last "window" seconds when given.
func (h *VesselHandler) HandleRateCount(w http.ResponseWriter, r *http.Request) {
	window, err := intParam(r.URL.Query(), "window", 1)
	if err != nil || window <= 0 {
		http.Error(w, "invalid window", http.StatusBadRequest)
		return
	}
	n := h.targets.RateCount(h.now().Add(-time.Duration(window) * time.Second))
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(strconv.Itoa(n)))
}

// HandleRate reports "status=ok" when the per-second rate exceeds "expected".
func (h *VesselHandler) HandleRate(w http.ResponseWriter, r *http.Request) {
	expected, err := floatParam(r.URL.Query(), "expected", 0)
	if err != nil {
		badRequest(w, err)
		return
	}
	status := "nok"
	if float64(h.targets.RateCount(h.now().Add(-time.Second))) > expected {
		status = "ok"
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("status=" + status))
}

// HandleIngest accepts a JSON array of decoded messages, applies them to the
// live registry and appends them to the archive.
func (h *VesselHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var msgs []model.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody)).Decode(&msgs); err != nil {
		http.Error(w, "invalid message batch: "+err.Error(), http.StatusBadRequest)
		return
	}

	var resp IngestResponse
	raws := make([]model.RawMessage, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		if m.MMSI <= 0 {
			resp.Rejected++
			continue
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = h.now()
		}
		if err := h.targets.Update(m); err != nil {
			resp.Rejected++
			logging.TraceVessel(m.MMSI, "Message rejected by registry", "type", m.Type, "error", err)
		} else {
			resp.Accepted++
		}
		if raw, err := m.Encode(); err == nil {
			raws = append(raws, raw)
		}
	}

	if h.archive != nil && len(raws) > 0 {
		if err := h.archive.Append(r.Context(), raws...); err != nil {
			slog.Error("Failed to archive messages", "count", len(raws), "error", err)
			http.Error(w, "archive unavailable", http.StatusServiceUnavailable)
			return
		}
		resp.Archived = len(raws)
	}

	writeJSON(w, resp)
}

func sortedTargets(m map[int]*model.Target) []*model.Target {
	out := make([]*model.Target, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sortTargets(out)
	return out
}

func sortTargets(ts []*model.Target) {
	slices.SortFunc(ts, func(a, b *model.Target) int { return a.MMSI - b.MMSI })
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func badRequest(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}
