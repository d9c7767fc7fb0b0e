package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"robot-arena/internal/arena"
	"robot-arena/internal/game"
)

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Snapshot())
}

func (h *routerHandlers) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"robots": h.engine.Describe(),
		"stats":  h.engine.Stats(),
	})
}

func (h *routerHandlers) handleFrame(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap := h.engine.Snapshot()

	var buf bytes.Buffer
	if err := h.renderer.EncodePNG(&buf, snap.Snapshot); err != nil {
		h.log.Error("render frame", zap.Error(err))
		writeError(w, "render failed", http.StatusInternalServerError)
		return
	}
	RecordRender(time.Since(start))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (h *routerHandlers) handleAddRobot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	kind, err := arena.ParseKind(req.Kind)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	rs, err := h.engine.AddRobot(kind)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, rs)
}

func (h *routerHandlers) handleRemoveRobot(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.engine.RemoveRobot(id); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *routerHandlers) handleDirection(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.engine.SetDirection(id, req.Key); err != nil {
		writeEngineError(w, err)
		return
	}

	rs, _ := h.engine.Snapshot().Robot(id)
	writeJSON(w, rs)
}

func (h *routerHandlers) handleWheels(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.engine.SetWheels(id, req.Mode); err != nil {
		writeEngineError(w, err)
		return
	}

	rs, _ := h.engine.Snapshot().Robot(id)
	writeJSON(w, rs)
}

// handleRobotAt hit-tests a point, e.g. a click on the rendered frame.
func (h *routerHandlers) handleRobotAt(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, "x and y must be numbers", http.StatusBadRequest)
		return
	}
	rs, ok := h.engine.RobotAt(x, y)
	if !ok {
		writeError(w, "no robot at point", http.StatusNotFound)
		return
	}
	writeJSON(w, rs)
}

func (h *routerHandlers) handleAddObstacle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Radius float64 `json:"radius"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	o, err := h.engine.AddObstacle(req.Radius)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, obstacleJSON(o))
}

func (h *routerHandlers) handleRemoveObstacle(w http.ResponseWriter, r *http.Request) {
	index, ok := intParam(w, r, "index")
	if !ok {
		return
	}
	o, err := h.engine.RemoveObstacle(index)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, obstacleJSON(o))
}

// handleResize takes the raw text of the width and height fields; parsing
// and validation happen in the engine.
func (h *routerHandlers) handleResize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  string `json:"width"`
		Height string `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.engine.Resize(req.Width, req.Height); err != nil {
		writeEngineError(w, err)
		return
	}
	snap := h.engine.Snapshot()
	writeJSON(w, map[string]float64{"width": snap.Width, "height": snap.Height})
}

func (h *routerHandlers) handleMaze(w http.ResponseWriter, r *http.Request) {
	on := h.engine.ToggleMaze()
	writeJSON(w, map[string]interface{}{
		"maze":      on,
		"obstacles": len(h.engine.Snapshot().Obstacles),
	})
}

func (h *routerHandlers) handleStart(w http.ResponseWriter, r *http.Request) {
	h.engine.Start()
	h.engine.Resume()
	writeJSON(w, h.engine.Stats())
}

func (h *routerHandlers) handlePause(w http.ResponseWriter, r *http.Request) {
	h.engine.Pause()
	writeJSON(w, h.engine.Stats())
}

func (h *routerHandlers) handleStep(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Step())
}

func (h *routerHandlers) handleSave(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.engine.Save(&buf); err != nil {
		h.log.Error("save", zap.Error(err))
		writeError(w, "save failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="arena.txt"`)
	w.Write(buf.Bytes())
}

func (h *routerHandlers) handleLoad(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, h.maxLoadBytes)
	res, err := h.engine.Load(body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, res)
}

// =============================================================================
// HELPERS
// =============================================================================

func obstacleJSON(o arena.Obstacle) arena.ObstacleSnapshot {
	return arena.ObstacleSnapshot{X: o.X, Y: o.Y, Radius: o.Radius}
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeError(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// errorStatus maps engine and arena errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, arena.ErrRobotNotFound), errors.Is(err, arena.ErrObstacleNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrRobotLimit),
		errors.Is(err, arena.ErrNotUserControlled),
		errors.Is(err, arena.ErrNoWheels):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidInput),
		errors.Is(err, arena.ErrUnknownWheels),
		errors.Is(err, arena.ErrInvalidSize),
		errors.Is(err, arena.ErrInvalidRadius),
		errors.Is(err, arena.ErrUnknownKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, err.Error(), errorStatus(err))
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, code, map[string]string{"error": message})
}
