package middleware

import (
	"net/http"
	"os"
	"strconv"

	"golang.org/x/time/rate"

	"poi-miner/internal/logger"
)

// 文档注释：令牌桶限流中间件（每秒）
// 背景：挖掘与导出都较重，入口限速避免单个调用方把服务商配额与内存打满；按环境变量开关与速率配置。
// 约束：不做排队，超出时直接返回 429；突发容量等于每秒速率。
func RateLimit(qps int) func(http.Handler) http.Handler {
	lim := rate.NewLimiter(rate.Limit(qps), qps)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				logger.L().Debug("rate_limited", "path", r.URL.Path, "ip", r.RemoteAddr)
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Wrap：入口统一包装，访问日志在外层，限流由 RATE_LIMIT_ENABLED / RATE_LIMIT_QPS 控制
func Wrap(next http.Handler) http.Handler {
	h := next
	if os.Getenv("RATE_LIMIT_ENABLED") == "true" {
		qps := 200
		if s := os.Getenv("RATE_LIMIT_QPS"); s != "" {
			if n, e := strconv.Atoi(s); e == nil && n > 0 {
				qps = n
			}
		}
		h = RateLimit(qps)(h)
	}
	return logger.AccessMiddleware(logger.L())(h)
}
