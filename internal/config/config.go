// 包 config：集中读取环境变量（可由 .env 提供），为服务端与命令行提供同一份运行参数
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config：挖掘任务与服务运行参数
// 约束：全部字段均有默认值；非法数值静默回退到默认，与历史脚本行为一致
type Config struct {
	AMapKey     string
	AMapBaseURL string
	AMapTimeout time.Duration
	AMapQPS     float64

	GridStep    float64
	PageSize    int
	MaxPages    int
	PageDelay   time.Duration
	CellDelay   time.Duration
	Concurrency int
	MaxCells    int

	CacheTTL  time.Duration
	CacheSize int

	Addr          string
	APIBase       string
	RunsMaxActive int
	RunResultTTL  time.Duration
}

// LoadEnvFiles：按顺序加载 .env 文件，缺失文件忽略
func LoadEnvFiles(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Load：从环境变量构造配置
func Load() Config {
	return Config{
		AMapKey:     os.Getenv("AMAP_SERVER_KEY"),
		AMapBaseURL: envString("AMAP_BASE_URL", "https://restapi.amap.com"),
		AMapTimeout: envMillis("AMAP_TIMEOUT_MS", 5000),
		AMapQPS:     envFloat("AMAP_QPS", 0),

		GridStep:    envFloat("GRID_STEP", 0.02),
		PageSize:    envInt("PAGE_SIZE", 50),
		MaxPages:    envInt("MAX_PAGES", 20),
		PageDelay:   envMillis("PAGE_DELAY_MS", 50),
		CellDelay:   envMillis("CELL_DELAY_MS", 50),
		Concurrency: envInt("FETCH_CONCURRENCY", 1),
		MaxCells:    envInt("MAX_CELLS", 40000),

		CacheTTL:  time.Duration(envInt("POI_CACHE_TTL_S", 86400)) * time.Second,
		CacheSize: envInt("POI_CACHE_SIZE", 4096),

		Addr:          envString("ADDR", ":8080"),
		APIBase:       strings.TrimSuffix(envString("API_BASE", "/api"), "/"),
		RunsMaxActive: envInt("RUNS_MAX_ACTIVE", 2),
		RunResultTTL:  time.Duration(envInt("RUN_RESULT_TTL_S", 3600)) * time.Second,
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, e := strconv.Atoi(v); e == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, e := strconv.ParseFloat(v, 64); e == nil && f >= 0 {
			return f
		}
	}
	return def
}

func envMillis(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Millisecond
}
