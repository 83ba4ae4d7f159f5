package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-miner/internal/logger"
	"poi-miner/internal/miner"
	"poi-miner/internal/poi"
	"poi-miner/internal/provider"
	"poi-miner/internal/store"
)

const squareJSON = `[[116.30,39.90],[116.34,39.90],[116.34,39.92],[116.30,39.92]]`

// staticProvider 每个格子返回同一家店，用于检验跨格去重
func staticProvider() provider.Func {
	return func(_ context.Context, req provider.Request) (provider.Page, error) {
		loc := orb.Point{116.31, 39.91}
		return provider.Page{Status: provider.StatusSuccess, Total: 1, Records: []poi.Candidate{{
			ID: "B0001", Name: "便利店", Type: "购物服务;便民商店/便利店;便民商店/便利店", TypeCode: "060200",
			Location: &loc, Address: []string{"学院路"}, CityName: "北京市",
		}}}, nil
	}
}

// blockingProvider 在 release 关闭前阻塞，ctx 取消时立即返回
func blockingProvider(release <-chan struct{}) provider.Func {
	return func(ctx context.Context, req provider.Request) (provider.Page, error) {
		select {
		case <-release:
			return provider.Page{Status: provider.StatusNoData}, nil
		case <-ctx.Done():
			return provider.Page{}, ctx.Err()
		}
	}
}

type unavailableProvider struct{ provider.Func }

func (unavailableProvider) Available() error { return errors.New("missing key") }

type memRecorder struct {
	mu   sync.Mutex
	runs []store.RunSummary
}

func (r *memRecorder) RecordRun(_ context.Context, s store.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, s)
	return nil
}

func (r *memRecorder) all() []store.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.RunSummary(nil), r.runs...)
}

func newManager(p provider.Provider, rec RunRecorder, maxActive int) *Manager {
	eng := miner.New(miner.Options{Logger: logger.Discard()})
	return NewManager(eng, p, rec, maxActive, time.Hour)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rr
}

func startRun(t *testing.T, h http.Handler, body string) RunView {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/runs", body)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	var v RunView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	require.NotEmpty(t, v.ID)
	return v
}

func waitDone(t *testing.T, m *Manager, id string) {
	t.Helper()
	r, err := m.Get(id)
	require.NoError(t, err)
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestCategories(t *testing.T) {
	h := BuildRoutes(newManager(staticProvider(), nil, 1), nil)
	rr := do(t, h, http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var cats []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cats))
	assert.Len(t, cats, 23)
	assert.Equal(t, "01", cats[0]["code"])
}

func TestStartRunValidation(t *testing.T) {
	h := BuildRoutes(newManager(staticProvider(), nil, 1), nil)
	cases := []struct {
		body string
		code int
	}{
		{`{`, http.StatusBadRequest},
		{`{"polygon":[[1,1],[2,2]],"categories":["05"]}`, http.StatusBadRequest},
		{`{"polygon":` + squareJSON + `,"categories":[]}`, http.StatusBadRequest},
		{`{"polygon":[[0,0],[1e9,0],[1e9,1e9]],"categories":["05"]}`, http.StatusBadRequest},
		{`{"polygon":[[-180,-90],[180,-90],[180,90],[-180,90]],"categories":["05"]}`, http.StatusBadRequest},
	}
	for _, c := range cases {
		rr := do(t, h, http.MethodPost, "/runs", c.body)
		assert.Equal(t, c.code, rr.Code, c.body)
	}

	h = BuildRoutes(newManager(unavailableProvider{staticProvider()}, nil, 1), nil)
	rr := do(t, h, http.MethodPost, "/runs", `{"polygon":`+squareJSON+`,"categories":["06"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "missing key")
}

func TestRunLifecycle(t *testing.T) {
	rec := &memRecorder{}
	m := newManager(staticProvider(), rec, 2)
	h := BuildRoutes(m, nil)

	v := startRun(t, h, `{"name":"海淀","polygon":`+squareJSON+`,"categories":["06"]}`)
	waitDone(t, m, v.ID)

	rr := do(t, h, http.MethodGet, "/runs/"+v.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got RunView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, miner.StatusComplete, got.Progress.Status)
	assert.Equal(t, 2, got.Progress.TotalCells)
	assert.Equal(t, 1, got.Progress.TotalFound)
	assert.NotNil(t, got.FinishedAt)

	rr = do(t, h, http.MethodGet, "/runs/"+v.ID+"/records", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var recs []poi.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "学院路", recs[0].Address)

	rr = do(t, h, http.MethodGet, "/runs/"+v.ID+"/export?format=geojson", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/geo+json", rr.Header().Get("content-type"))
	assert.Contains(t, rr.Header().Get("content-disposition"), ".geojson")
	fc, err := geojson.UnmarshalFeatureCollection(rr.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 1)

	rr = do(t, h, http.MethodGet, "/runs/"+v.ID+"/export?format=csv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, bytes.Contains(rr.Body.Bytes(), []byte("便利店")))

	rr = do(t, h, http.MethodGet, "/runs/"+v.ID+"/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), v.ID)

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	sum := rec.all()[0]
	assert.Equal(t, v.ID, sum.ID)
	assert.Equal(t, "complete", sum.Status)
	assert.Equal(t, 1, sum.Found)
	assert.Equal(t, []string{"06"}, sum.Categories)
}

func TestRunNotFound(t *testing.T) {
	h := BuildRoutes(newManager(staticProvider(), nil, 1), nil)
	for _, path := range []string{"/runs/nope", "/runs/nope/records", "/runs/nope/export"} {
		assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, path, "").Code, path)
	}
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/runs/nope", "").Code)
}

func TestActiveLimitAndCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	m := newManager(blockingProvider(release), nil, 1)
	h := BuildRoutes(m, nil)
	body := `{"polygon":` + squareJSON + `,"categories":["05"]}`

	v := startRun(t, h, body)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/runs", body).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodGet, "/runs/"+v.ID+"/records", "").Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/runs/"+v.ID, "").Code)
	waitDone(t, m, v.ID)

	r, err := m.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, miner.StatusError, r.Snapshot().Status)
	_, err = r.Result()
	assert.ErrorIs(t, err, context.Canceled)

	rr := do(t, h, http.MethodGet, "/runs/"+v.ID+"/records", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	// 名额释放后可再次发起
	v2 := startRun(t, h, body)
	require.NoError(t, m.Cancel(v2.ID))
	waitDone(t, m, v2.ID)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestFinishedRunsExpire(t *testing.T) {
	c := &clock{t: time.Unix(1700000000, 0)}
	m := newManager(staticProvider(), nil, 1)
	m.now = c.Now
	h := BuildRoutes(m, nil)

	v := startRun(t, h, `{"polygon":`+squareJSON+`,"categories":["06"]}`)
	waitDone(t, m, v.ID)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/runs/"+v.ID, "").Code)

	c.Add(2 * time.Hour)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/runs/"+v.ID, "").Code)
}

func TestStats(t *testing.T) {
	h := BuildRoutes(newManager(staticProvider(), nil, 1), nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/stats", "").Code)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"runs", "records", "requests"}).AddRow(3, 40, 12))
	mock.ExpectQuery("WHERE day=current_date").
		WillReturnRows(sqlmock.NewRows([]string{"runs", "records"}).AddRow(1, 10))

	h = BuildRoutes(newManager(staticProvider(), nil, 1), store.AttachDB(db))
	rr := do(t, h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"runs":3,"records":40,"requests":12,"todayRuns":1,"todayRecords":10}`, rr.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRecentRuns(t *testing.T) {
	h := BuildRoutes(newManager(staticProvider(), nil, 1), nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/stats/runs", "").Code)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	started := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM _poi_runs ORDER BY started_at DESC").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "categories", "keywords", "total_cells", "failed_cells", "found", "requests", "message", "started_at", "finished_at"}).
			AddRow("r1", "complete", "05", "", 4, 0, 7, 4, "完成！共挖掘到 7 条数据。", started, started.Add(time.Minute)))
	mock.ExpectQuery("FROM _poi_runs ORDER BY started_at DESC").
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "categories", "keywords", "total_cells", "failed_cells", "found", "requests", "message", "started_at", "finished_at"}))

	h = BuildRoutes(newManager(staticProvider(), nil, 1), store.AttachDB(db))
	rr := do(t, h, http.MethodGet, "/stats/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var runs []store.RunSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
	assert.Equal(t, []string{"05"}, runs[0].Categories)

	rr = do(t, h, http.MethodGet, "/stats/runs", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
