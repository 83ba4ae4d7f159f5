// 包 logger：统一初始化与获取日志器，避免各模块重复配置；通过环境变量控制日志级别、输出格式与文件落盘
package logger

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 默认日志器：在进程级复用，避免多处初始化导致输出不一致
var defaultLogger *slog.Logger

// Setup：初始化默认日志器
// 背景：集中化日志配置，便于按环境统一调整级别与格式；长时间挖掘任务需要落盘以便事后排查配额问题
// 约束：始终输出到标准错误；设置 LOG_FILE 时额外写入滚动文件（LOG_MAX_SIZE_MB / LOG_MAX_BACKUPS）
func Setup() *slog.Logger {
	var w io.Writer = os.Stderr
	if path := os.Getenv("LOG_FILE"); path != "" {
		maxSize := 50
		if v := os.Getenv("LOG_MAX_SIZE_MB"); v != "" {
			if n, e := strconv.Atoi(v); e == nil && n > 0 {
				maxSize = n
			}
		}
		backups := 3
		if v := os.Getenv("LOG_MAX_BACKUPS"); v != "" {
			if n, e := strconv.Atoi(v); e == nil && n >= 0 {
				backups = n
			}
		}
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{Filename: path, MaxSize: maxSize, MaxBackups: backups})
	}
	defaultLogger = New(w, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	return defaultLogger
}

// New：按级别与格式构造日志器，供 Setup 与测试复用
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel：解析级别文本，未知值回退到 info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Discard 返回丢弃全部输出的日志器
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// L：获取默认日志器
// 背景：为业务代码提供快捷访问；若未初始化则回退到 Setup
func L() *slog.Logger {
	if defaultLogger == nil {
		return Setup()
	}
	return defaultLogger
}
