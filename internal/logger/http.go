// 包 logger：挖掘 API 的访问日志中间件
package logger

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// accessRecorder 记录响应状态码与写出字节数；导出接口体积较大，不缓存响应体
type accessRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *accessRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *accessRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// 文档注释：生成访问日志中间件
// 背景：轮询进度的请求数量远多于发起与导出，默认级别下只需要看到失败请求。
// 约束：
// - 5xx 记 error，4xx 记 warn，其余记 debug；
// - 以 /metrics 结尾的抓取请求不记录；
// - 路径形如 .../runs/{id}[/...] 时附带 run_id，导出请求附带 format。
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/metrics") {
				next.ServeHTTP(w, r)
				return
			}
			rec := &accessRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int64("bytes", rec.bytes),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("ip", r.RemoteAddr),
			}
			if id, sub := runPath(r.URL.Path); id != "" {
				attrs = append(attrs, slog.String("run_id", id))
				if sub == "export" {
					attrs = append(attrs, slog.String("format", r.URL.Query().Get("format")))
				}
			}
			l.LogAttrs(context.Background(), accessLevel(rec.status), "http_access", attrs...)
		})
	}
}

func accessLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	return slog.LevelDebug
}

// runPath 从 .../runs/{id}[/sub] 中取出任务 id 与子资源名
func runPath(p string) (id, sub string) {
	i := strings.Index(p, "/runs/")
	if i < 0 {
		return "", ""
	}
	rest := p[i+len("/runs/"):]
	id, sub, _ = strings.Cut(rest, "/")
	return id, sub
}
