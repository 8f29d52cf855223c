package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"sap2d/internal/metrics"
	"sap2d/internal/render"
	"sap2d/internal/service"
	"sap2d/internal/spatial"
)

// routerHandlers holds the dependencies used by the HTTP handlers.
type routerHandlers struct {
	svc *service.Service
}

// proxyRegistry maps the integer ids this API hands out to the *spatial.Proxy
// pointers Command.Apply requires. The broadphase's own ProxyID is unstable
// across a Remove's swap-with-last (see spatial.ProxyID's doc comment), so
// the API's external id is a separate, permanent handle issued at creation
// time and never reused.
type proxyRegistry struct {
	mu     sync.Mutex
	byID   map[uint64]*spatial.Proxy
	nextID uint64
}

// registry is shared by every routerHandlers instance in the process; it
// holds no broadphase state of its own, only the id <-> Proxy mapping, so a
// single instance is safe to reuse across requests and tests.
var registry = newProxyRegistry()

func newProxyRegistry() *proxyRegistry {
	return &proxyRegistry{byID: make(map[uint64]*spatial.Proxy)}
}

func (r *proxyRegistry) create() (uint64, *spatial.Proxy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	p := spatial.NewProxy()
	r.byID[id] = p
	return id, p
}

func (r *proxyRegistry) get(id uint64) (*spatial.Proxy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	return p, ok
}

func (r *proxyRegistry) delete(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

func (r *proxyRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[uint64]*spatial.Proxy)
}

type aabbJSON struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	W int32 `json:"w"`
	H int32 `json:"h"`
}

func (a aabbJSON) toAABB() spatial.AABB {
	return spatial.AABB{X: a.X, Y: a.Y, W: a.W, H: a.H}
}

func fromAABB(a spatial.AABB) aabbJSON {
	return aabbJSON{X: a.X, Y: a.Y, W: a.W, H: a.H}
}

type filterJSON struct {
	Group uint16 `json:"group"`
	Mask  uint16 `json:"mask"`
}

func (h *routerHandlers) handleCreateProxy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AABB   aabbJSON   `json:"aabb"`
		Filter filterJSON `json:"filter"`
		Wake   bool       `json:"wake"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, p := registry.create()
	p.Filter = spatial.Filter{Group: req.Filter.Group, Mask: req.Filter.Mask}

	ok := h.svc.Submit(spatial.Command{
		Kind:  spatial.CommandAdd,
		Proxy: p,
		AABB:  req.AABB.toAABB(),
		Wake:  req.Wake,
	})
	if !ok {
		registry.delete(id)
		writeError(w, "command queue full", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]interface{}{"id": id})
}

func (h *routerHandlers) handleUpdateProxy(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}
	p, ok := registry.get(id)
	if !ok {
		writeError(w, "unknown proxy id", http.StatusNotFound)
		return
	}

	var req struct {
		AABB aabbJSON `json:"aabb"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !h.svc.Submit(spatial.Command{Kind: spatial.CommandUpdate, Proxy: p, AABB: req.AABB.toAABB()}) {
		writeError(w, "command queue full", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleDeleteProxy(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}
	p, ok := registry.get(id)
	if !ok {
		writeError(w, "unknown proxy id", http.StatusNotFound)
		return
	}

	if !h.svc.Submit(spatial.Command{Kind: spatial.CommandRemove, Proxy: p}) {
		writeError(w, "command queue full", http.StatusServiceUnavailable)
		return
	}
	registry.delete(id)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleGetProxy(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, "invalid id", http.StatusBadRequest)
		return
	}
	p, ok := registry.get(id)
	if !ok {
		writeError(w, "unknown proxy id", http.StatusNotFound)
		return
	}

	var resp map[string]interface{}
	h.svc.View(func(bp *spatial.Broadphase) {
		registered := p.ID != spatial.InvalidProxyID
		resp = map[string]interface{}{
			"id":         id,
			"registered": registered,
			"aabb":       fromAABB(p.AABB),
			"filter":     filterJSON{Group: p.Filter.Group, Mask: p.Filter.Mask},
		}
	})
	writeJSON(w, resp)
}

func (h *routerHandlers) handleGetPairs(w http.ResponseWriter, r *http.Request) {
	words := h.svc.Pairs()
	pairs := make([]pairJSON, len(words))
	for i, word := range words {
		pairs[i] = pairJSON{
			A: uint32(spatial.FirstEntityFromPair(word)),
			B: uint32(spatial.SecondEntityFromPair(word)),
		}
	}
	writeJSON(w, map[string]interface{}{"pairs": pairs})
}

func (h *routerHandlers) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, _ := strconv.Atoi(q.Get("x"))
	y, _ := strconv.Atoi(q.Get("y"))
	width, _ := strconv.Atoi(q.Get("w"))
	height, _ := strconv.Atoi(q.Get("h"))

	box := spatial.AABB{X: int32(x), Y: int32(y), W: int32(width), H: int32(height)}

	var ids []spatial.ProxyID
	h.svc.View(func(bp *spatial.Broadphase) {
		ids = bp.QueryAABB(box, ids[:0])
	})

	out := make([]int32, len(ids))
	for i, id := range ids {
		out[i] = int32(id)
	}
	writeJSON(w, map[string]interface{}{"ids": out})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.svc.Stats()
	writeJSON(w, map[string]interface{}{
		"numEntities":              stats.NumEntities,
		"numPairs":                 stats.NumPairs,
		"maxOverlapsPerEntityUsed": stats.MaxOverlapsPerEntityUsed,
	})
}

func (h *routerHandlers) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var (
		png []byte
		err error
	)
	h.svc.View(func(bp *spatial.Broadphase) {
		png, err = render.Snapshot(bp, render.DefaultConfig())
	})
	metrics.RecordRender(time.Since(start))
	if err != nil {
		writeError(w, "failed to render snapshot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (h *routerHandlers) handleAdminClear(w http.ResponseWriter, r *http.Request) {
	h.svc.Clear()
	registry.reset()
	writeJSON(w, map[string]bool{"success": true})
}

func parseIDParam(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
