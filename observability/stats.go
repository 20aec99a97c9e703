package observability

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/process"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/benz9527/xordered/xlog"
)

const (
	AppStatsName = "xordered/app"
)

var (
	once sync.Once
)

type appStats struct {
	ctx              context.Context
	logger           xlog.XLogger
	proc             *process.Process
	shutdownCallback func(ctx context.Context) error
	goroutines       metric.Int64ObservableUpDownCounter
	processes        metric.Int64ObservableUpDownCounter
	rss              metric.Int64ObservableGauge
}

func (stats *appStats) waitForShutdown() {
	if stats == nil || stats.shutdownCallback == nil {
		return
	}
	go func() {
		<-stats.ctx.Done()
		if err := stats.shutdownCallback(context.Background()); err != nil {
			stats.logger.Error(err, "[observability] meter provider shutdown")
		}
	}()
}

func appStatsName(name string) string {
	builder := &strings.Builder{}
	builder.WriteString(AppStatsName)
	builder.WriteByte('/')
	if name = strings.TrimSpace(name); len(name) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// InitAppStats registers the process level instruments once per process:
// goroutines, GOMAXPROCS (aligned to the container CPU quota first) and
// resident memory, next to the otel runtime instrumentation.
// The shutdown callback, usually returned by one of the exporters,
// runs when ctx is done.
func InitAppStats(ctx context.Context, name string, logger xlog.XLogger, shutdown func(ctx context.Context) error) {
	once.Do(func() {
		if logger == nil {
			logger = xlog.NewNopXLogger()
		}
		if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			logger.Info(fmt.Sprintf(format, args...))
		})); err != nil {
			logger.Warn("[observability] unable to align GOMAXPROCS", zap.Error(err))
		}

		name = appStatsName(name)
		stats := &appStats{
			ctx:              ctx,
			logger:           logger,
			shutdownCallback: shutdown,
		}
		if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
			stats.proc = proc
		}
		meter := otel.Meter(
			name,
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		stats.goroutines = lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.goroutines",
			metric.WithDescription(`The application goroutines' info.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				ob.Observe(int64(runtime.NumGoroutine()))
				return nil
			}),
		))
		stats.processes = lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.processes",
			metric.WithDescription(`The application processes' info.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				ob.Observe(int64(runtime.GOMAXPROCS(0)))
				return nil
			}),
		))
		stats.rss = lo.Must[metric.Int64ObservableGauge](meter.Int64ObservableGauge(
			"app.core.memory.rss",
			metric.WithDescription(`The resident memory of the application process.`),
			metric.WithUnit("By"),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				if stats.proc == nil {
					return nil
				}
				info, err := stats.proc.MemoryInfoWithContext(ctx)
				if err != nil {
					stats.logger.Warn("[observability] unable to read process memory", zap.Error(err))
					return nil
				}
				ob.Observe(int64(info.RSS))
				return nil
			}),
		))
		if err := otelruntime.Start(); err != nil {
			logger.Warn("[observability] unable to start runtime instrumentation", zap.Error(err))
		}
		stats.waitForShutdown()
		logger.Debug("[observability] app stats initialized", zap.String("meter", name))
	})
}
