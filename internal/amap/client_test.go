package amap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-miner/internal/provider"
)

const okBody = `{"status":"1","info":"OK","infocode":"10000","count":"2","pois":[
 {"id":"B000A1","name":"天安门","type":"风景名胜;风景名胜;国家级景点","typecode":"110202",
  "address":"长安街","location":"116.397455,39.909187","tel":"010-1;010-2","pname":"北京市","cityname":"北京市","adname":"东城区"},
 {"id":"B000A2","name":"无地址","type":"餐饮服务","typecode":50100,
  "address":[],"location":[],"tel":["010-3","010-4"],"pname":"北京市","cityname":[],"adname":"东城区"}]}`

func newTestServer(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testRequest() provider.Request {
	return provider.Request{
		Types:    "05|11",
		Keywords: "",
		Bounds:   orb.Bound{Min: orb.Point{116.38, 39.9}, Max: orb.Point{116.4, 39.92}},
		Page:     2,
		PageSize: 50,
	}
}

func TestSearchSuccess(t *testing.T) {
	var got *http.Request
	srv := newTestServer(t, okBody, func(r *http.Request) { got = r })
	c := New("k1", WithBaseURL(srv.URL+"/"))

	p, err := c.Search(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/v3/place/polygon", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "k1", q.Get("key"))
	assert.Equal(t, "116.380000,39.900000|116.400000,39.920000", q.Get("polygon"))
	assert.Equal(t, "05|11", q.Get("types"))
	assert.Equal(t, "50", q.Get("offset"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "all", q.Get("extensions"))

	assert.Equal(t, provider.StatusSuccess, p.Status)
	assert.Equal(t, 2, p.Total)
	require.Len(t, p.Records, 2)

	a := p.Records[0]
	assert.Equal(t, "B000A1", a.ID)
	require.NotNil(t, a.Location)
	assert.InDelta(t, 116.397455, a.Location.Lon(), 1e-9)
	assert.InDelta(t, 39.909187, a.Location.Lat(), 1e-9)
	assert.Equal(t, []string{"长安街"}, a.Address)
	assert.Equal(t, []string{"010-1;010-2"}, a.Tel)

	b := p.Records[1]
	assert.Equal(t, "50100", b.TypeCode)
	assert.Nil(t, b.Location)
	assert.Nil(t, b.Address)
	assert.Equal(t, []string{"010-3", "010-4"}, b.Tel)
	assert.Equal(t, "", b.CityName)
}

func TestSearchNoData(t *testing.T) {
	srv := newTestServer(t, `{"status":"1","info":"OK","infocode":"10000","count":"0","pois":[]}`, nil)
	p, err := New("k", WithBaseURL(srv.URL)).Search(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, provider.StatusNoData, p.Status)
	assert.Empty(t, p.Records)
}

func TestSearchProviderError(t *testing.T) {
	srv := newTestServer(t, `{"status":"0","info":"DAILY_QUERY_OVER_LIMIT","infocode":"10003"}`, nil)
	p, err := New("k", WithBaseURL(srv.URL)).Search(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, provider.StatusError, p.Status)
	assert.Equal(t, "DAILY_QUERY_OVER_LIMIT (10003)", p.Info)
}

func TestSearchHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err := New("k", WithBaseURL(srv.URL)).Search(context.Background(), testRequest())
	assert.Error(t, err)

	bad := newTestServer(t, `{"status":`, nil)
	_, err = New("k", WithBaseURL(bad.URL)).Search(context.Background(), testRequest())
	assert.Error(t, err)
}

func TestSearchMissingKey(t *testing.T) {
	called := false
	srv := newTestServer(t, okBody, func(*http.Request) { called = true })
	c := New("  ", WithBaseURL(srv.URL))
	assert.ErrorIs(t, c.Available(), ErrMissingKey)
	_, err := c.Search(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.False(t, called)
}

func TestSearchLimiterHonoursContext(t *testing.T) {
	srv := newTestServer(t, okBody, nil)
	c := New("k", WithBaseURL(srv.URL), WithQPS(0.001))
	_, err := c.Search(context.Background(), testRequest())
	require.NoError(t, err, "first token is available immediately")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Search(ctx, testRequest())
	assert.Error(t, err)
}

func TestFlexFields(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexList   `json:"c"`
		D flexList   `json:"d"`
		E flexList   `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":[],"b":12,"c":"","d":["x",1,"y"],"e":null}`), &v))
	assert.Equal(t, flexString(""), v.A)
	assert.Equal(t, flexString("12"), v.B)
	assert.Nil(t, v.C)
	assert.Equal(t, flexList{"x", "y"}, v.D)
	assert.Nil(t, v.E)
}

func TestParseLocation(t *testing.T) {
	assert.Nil(t, parseLocation(""))
	assert.Nil(t, parseLocation("abc"))
	assert.Nil(t, parseLocation("1,x"))
	p := parseLocation(" 116.1 , 39.2 ")
	require.NotNil(t, p)
	assert.Equal(t, orb.Point{116.1, 39.2}, *p)
}
