// poi-mine：命令行单次挖掘，读取多边形文件并写出导出文件
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"poi-miner/internal/bootstrap"
	"poi-miner/internal/category"
	"poi-miner/internal/config"
	"poi-miner/internal/export"
	"poi-miner/internal/geo"
	"poi-miner/internal/logger"
	"poi-miner/internal/miner"
	"poi-miner/internal/utils"
)

type runFlags struct {
	polygon     string
	categories  string
	keywords    string
	format      string
	out         string
	name        string
	step        float64
	concurrency int
	qps         float64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "poi-mine",
		Short:         "Enumerate AMap POIs inside a polygon",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnvFiles(envFile)
			logger.Setup()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load before reading the environment")
	root.AddCommand(newRunCmd(), newCategoriesCmd())
	return root
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the AMap top-level category table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCategories(cmd.OutOrStdout())
		},
	}
}

func printCategories(w io.Writer) error {
	for _, c := range category.All() {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", c.Code, c.Label()); err != nil {
			return err
		}
	}
	return nil
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Mine POIs inside a polygon and write an export file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			path, err := runMine(ctx, f, cmd.InOrStdin())
			if path != "" {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&f.polygon, "polygon", "", "polygon file: [[lng,lat],...] or GeoJSON; - reads stdin (required)")
	cmd.Flags().StringVar(&f.categories, "categories", "", "comma separated two-digit category codes, e.g. 05,06 (required)")
	cmd.Flags().StringVar(&f.keywords, "keywords", "", "optional provider keywords")
	cmd.Flags().StringVar(&f.format, "format", "xlsx", "export format: xlsx|geojson|csv")
	cmd.Flags().StringVar(&f.out, "out", ".", "output directory")
	cmd.Flags().StringVar(&f.name, "name", export.DefaultBase, "export file name prefix")
	cmd.Flags().Float64Var(&f.step, "step", 0, "grid step in degrees (default GRID_STEP or 0.02)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "parallel cell fetches (default FETCH_CONCURRENCY or 1)")
	cmd.Flags().Float64Var(&f.qps, "qps", 0, "engine-wide provider requests per second, 0 = unlimited")
	_ = cmd.MarkFlagRequired("polygon")
	_ = cmd.MarkFlagRequired("categories")
	return cmd
}

// 文档注释：执行一次挖掘并写出导出文件
// 约束：被中断时仍写出已接受的部分结果，并返回中断错误；返回值为导出文件路径。
func runMine(ctx context.Context, f *runFlags, stdin io.Reader) (string, error) {
	l := logger.L()
	format, err := export.ParseFormat(f.format)
	if err != nil {
		return "", err
	}
	raw, err := readPolygon(f.polygon, stdin)
	if err != nil {
		return "", err
	}
	ring, err := geo.ParsePolygon(raw)
	if err != nil {
		return "", err
	}
	codes := splitCodes(f.categories)

	cfg := config.Load()
	opts := bootstrap.EngineOptions(cfg)
	if f.step > 0 {
		opts.Step = f.step
	}
	if f.concurrency > 0 {
		opts.Concurrency = f.concurrency
	}
	opts.Keywords = strings.TrimSpace(f.keywords)
	opts.Limiter = bootstrap.Limiter(f.qps)

	rc := utils.OpenRedisFromEnv()
	if rc != nil {
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Warn("redis_ping_error", "err", err)
			rc = nil
		}
	}
	p := bootstrap.Provider(cfg, rc)

	last := -1
	rep := miner.ReporterFunc(func(s miner.Snapshot) {
		if s.CompletedCells == last && s.Status == miner.StatusFetching {
			return
		}
		last = s.CompletedCells
		l.Info("progress", "status", s.Status, "done", s.CompletedCells, "total", s.TotalCells, "found", s.TotalFound, "msg", s.Message)
	})
	recs, runErr := miner.New(opts).Run(ctx, ring, codes, p, rep)
	if recs == nil && runErr != nil {
		return "", runErr
	}

	if err := os.MkdirAll(f.out, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(f.out, export.Filename(f.name, format, time.Now()))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := export.Write(out, format, recs); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	l.Info("export_written", "path", path, "records", len(recs), "format", format)
	return path, runErr
}

func readPolygon(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func splitCodes(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
