// 包 amap：高德 Web 服务多边形 POI 检索客户端
package amap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/time/rate"

	"poi-miner/internal/logger"
	"poi-miner/internal/metrics"
	"poi-miner/internal/poi"
	"poi-miner/internal/provider"
)

const DefaultBaseURL = "https://restapi.amap.com"

// ErrMissingKey 未配置 Web 服务密钥
var ErrMissingKey = errors.New("amap: missing key")

// Client：高德 v3/place/polygon 检索客户端，实现 provider.Provider
type Client struct {
	key     string
	baseURL string
	hc      *http.Client
	limiter *rate.Limiter
}

// Option 客户端可选项
type Option func(*Client)

// WithHTTPClient 使用共享 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithBaseURL 替换服务地址（测试或代理）
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithQPS 为每次请求加上令牌桶限速；qps <= 0 表示不限速
func WithQPS(qps float64) Option {
	return func(c *Client) {
		if qps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(qps), 1)
		}
	}
}

// 文档注释：创建检索客户端
// 约束：未传 HTTP 客户端时使用 5s 超时的默认客户端；key 为空时客户端仍可创建，但 Available 返回错误。
func New(key string, opts ...Option) *Client {
	c := &Client{key: strings.TrimSpace(key), baseURL: DefaultBaseURL}
	for _, o := range opts {
		o(c)
	}
	if c.hc == nil {
		c.hc = &http.Client{Timeout: 5 * time.Second}
	}
	return c
}

// Available 未配置密钥时返回 ErrMissingKey
func (c *Client) Available() error {
	if c.key == "" {
		return ErrMissingKey
	}
	return nil
}

// placeResponse：高德多边形检索响应，仅解析用到的字段
type placeResponse struct {
	Status   string     `json:"status"`
	Info     string     `json:"info"`
	Infocode string     `json:"infocode"`
	Count    string     `json:"count"`
	Pois     []placePOI `json:"pois"`
}

type placePOI struct {
	ID       flexString `json:"id"`
	Name     flexString `json:"name"`
	Type     flexString `json:"type"`
	TypeCode flexString `json:"typecode"`
	Address  flexList   `json:"address"`
	Location flexString `json:"location"`
	Tel      flexList   `json:"tel"`
	PName    flexString `json:"pname"`
	CityName flexString `json:"cityname"`
	AdName   flexString `json:"adname"`
}

// 文档注释：检索单个矩形的一页 POI
// 参数：req.Bounds 转为 "minLng,minLat|maxLng,maxLat" 矩形；req.Types 原样透传。
// 返回：status="1" 且有 pois 为 success，status="1" 无 pois 为 no_data；其余为 error 页并附带 info/infocode。
// 约束：传输、解码错误通过 error 返回，不区分重试；是否继续翻页由调用方决定。
func (c *Client) Search(ctx context.Context, req provider.Request) (provider.Page, error) {
	if err := c.Available(); err != nil {
		return provider.Page{}, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return provider.Page{}, err
		}
	}
	q := url.Values{}
	q.Set("key", c.key)
	q.Set("polygon", formatRect(req.Bounds))
	q.Set("keywords", req.Keywords)
	q.Set("types", req.Types)
	q.Set("offset", strconv.Itoa(req.PageSize))
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("extensions", "all")
	u := c.baseURL + "/v3/place/polygon?" + q.Encode()
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return provider.Page{}, err
	}
	t0 := time.Now()
	logger.L().Debug("amap_req", "rect", q.Get("polygon"), "types", req.Types, "page", req.Page)
	resp, err := c.hc.Do(hreq)
	if err != nil {
		logger.L().Error("amap_http_error", "err", err)
		metrics.ProviderRequestsTotal.WithLabelValues("transport_error").Inc()
		return provider.Page{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequestsTotal.WithLabelValues("transport_error").Inc()
		return provider.Page{}, fmt.Errorf("amap: http status %d", resp.StatusCode)
	}
	var r placeResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		logger.L().Error("amap_decode_error", "err", err)
		metrics.ProviderRequestsTotal.WithLabelValues("decode_error").Inc()
		return provider.Page{}, err
	}
	dur := time.Since(t0).Milliseconds()
	metrics.ProviderDurationMs.Observe(float64(dur))
	page := toPage(r)
	metrics.ProviderRequestsTotal.WithLabelValues(string(page.Status)).Inc()
	logger.L().Debug("amap_resp", "status", r.Status, "infocode", r.Infocode, "count", r.Count, "pois", len(r.Pois), "duration_ms", dur)
	return page, nil
}

func toPage(r placeResponse) provider.Page {
	if r.Status != "1" {
		info := r.Info
		if r.Infocode != "" {
			info += " (" + r.Infocode + ")"
		}
		return provider.Page{Status: provider.StatusError, Info: info}
	}
	total, _ := strconv.Atoi(strings.TrimSpace(r.Count))
	if len(r.Pois) == 0 {
		return provider.Page{Status: provider.StatusNoData, Total: total}
	}
	out := make([]poi.Candidate, 0, len(r.Pois))
	for _, p := range r.Pois {
		out = append(out, poi.Candidate{
			ID:       string(p.ID),
			Name:     string(p.Name),
			Type:     string(p.Type),
			TypeCode: string(p.TypeCode),
			Location: parseLocation(string(p.Location)),
			Address:  []string(p.Address),
			Tel:      []string(p.Tel),
			PName:    string(p.PName),
			CityName: string(p.CityName),
			AdName:   string(p.AdName),
		})
	}
	return provider.Page{Status: provider.StatusSuccess, Records: out, Total: total}
}

func formatRect(b orb.Bound) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return f(b.Min.Lon()) + "," + f(b.Min.Lat()) + "|" + f(b.Max.Lon()) + "," + f(b.Max.Lat())
}

// parseLocation 解析 "lng,lat"；缺失或非法时返回 nil
func parseLocation(s string) *orb.Point {
	lng, lat, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return nil
	}
	x, err1 := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	y, err2 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &orb.Point{x, y}
}
