// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"poi-miner/internal/category"
	"poi-miner/internal/export"
	"poi-miner/internal/geo"
	"poi-miner/internal/logger"
	"poi-miner/internal/miner"
	"poi-miner/internal/poi"
	"poi-miner/internal/store"
)

// 请求体上限：多边形顶点数一般在数百以内
const maxBodyBytes = 4 << 20

// startRunBody：POST /runs 请求体；polygon 可为顶点数组或 GeoJSON
type startRunBody struct {
	Name       string          `json:"name"`
	Polygon    json.RawMessage `json:"polygon"`
	Categories []string        `json:"categories"`
	Keywords   string          `json:"keywords"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusFor 将领域错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, miner.ErrInvalidGeometry), errors.Is(err, miner.ErrTooManyCells),
		errors.Is(err, miner.ErrNoCategorySelected), errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, miner.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTooManyRuns):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRunNotFinished):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// 文档注释：构建并返回 API 路由
// 背景：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀；st 为空时统计接口返回 503。
func BuildRoutes(m *Manager, st *store.Store) *http.ServeMux {
	apiMux := http.NewServeMux()

	apiMux.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, category.All())
	})

	apiMux.HandleFunc("POST /runs", func(w http.ResponseWriter, r *http.Request) {
		var body startRunBody
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
			return
		}
		ring, err := geo.ParsePolygon(body.Polygon)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		run, err := m.Start(StartRequest{Name: body.Name, Polygon: ring, Categories: body.Categories, Keywords: strings.TrimSpace(body.Keywords)})
		if err != nil {
			logger.L().Warn("run_start_rejected", "err", err)
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusAccepted, run.View())
	})

	apiMux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.List())
	})

	apiMux.HandleFunc("GET /runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		run, err := m.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, run.View())
	})

	apiMux.HandleFunc("GET /runs/{id}/records", func(w http.ResponseWriter, r *http.Request) {
		run, err := m.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		recs, err := run.Result()
		if errors.Is(err, ErrRunNotFinished) {
			writeError(w, statusFor(err), err)
			return
		}
		// 取消或失败的任务仍返回已接受的部分结果
		if recs == nil {
			recs = []poi.Record{}
		}
		writeJSON(w, http.StatusOK, recs)
	})

	apiMux.HandleFunc("GET /runs/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		run, err := m.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		recs, err := run.Result()
		if errors.Is(err, ErrRunNotFinished) {
			writeError(w, statusFor(err), err)
			return
		}
		name := export.Filename(run.Name, format, time.Now())
		w.Header().Set("content-type", format.ContentType())
		w.Header().Set("content-disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
		w.Header().Set("cache-control", "no-store")
		if err := export.Write(w, format, recs); err != nil {
			logger.L().Error("export_error", "id", run.ID, "format", format, "err", err)
		}
	})

	apiMux.HandleFunc("DELETE /runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := m.Cancel(r.PathValue("id")); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	apiMux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("stats store not configured"))
			return
		}
		t, err := st.GetTotals(r.Context())
		if err != nil {
			logger.L().Error("stats_error", "err", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	})

	apiMux.HandleFunc("GET /stats/runs", func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("stats store not configured"))
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		runs, err := st.RecentRuns(r.Context(), limit)
		if err != nil {
			logger.L().Error("stats_runs_error", "err", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if runs == nil {
			runs = []store.RunSummary{}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	return apiMux
}
