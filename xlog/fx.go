package xlog

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type FxXLogger struct {
	logger XLogger
}

// LogEvent reports the events of the graph that owns the logger and the
// collections built in it. Hook and provide noise stays at debug level.
func (l *FxXLogger) LogEvent(event fxevent.Event) {
	if l == nil || l.logger == nil {
		return
	}

	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		l.hookExecuted("start", e.FunctionName, e.Runtime.Nanoseconds(), e.Err)
	case *fxevent.OnStopExecuted:
		l.hookExecuted("stop", e.FunctionName, e.Runtime.Nanoseconds(), e.Err)
	case *fxevent.Provided:
		if e.Err != nil {
			l.logger.Error(e.Err, "[xlog/fx] provide failed", zap.String("constructor", e.ConstructorName))
			return
		}
		l.logger.Debug("[xlog/fx] provided",
			zap.Strings("types", e.OutputTypeNames),
			zap.String("module", e.ModuleName),
		)
	case *fxevent.Invoked:
		if e.Err != nil {
			l.logger.Error(e.Err, "[xlog/fx] invoke failed",
				zap.String("function", e.FunctionName),
				zap.String("trace", e.Trace),
			)
		}
	case *fxevent.RollingBack:
		l.logger.Warn("[xlog/fx] start failed, rolling back", zap.Error(e.StartErr))
	case *fxevent.Started:
		if e.Err != nil {
			l.logger.Error(e.Err, "[xlog/fx] start failed")
			return
		}
		l.logger.Debug("[xlog/fx] started")
	case *fxevent.Stopped:
		if e.Err != nil {
			l.logger.Error(e.Err, "[xlog/fx] stop failed")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			l.logger.Error(e.Err, "[xlog/fx] logger initialization failed")
		}
	}
}

func (l *FxXLogger) hookExecuted(phase, function string, runtimeNs int64, err error) {
	if err != nil {
		l.logger.Error(err, "[xlog/fx] "+phase+" hook failed",
			zap.String("function", function),
			zap.Int64("ns", runtimeNs),
		)
		return
	}
	l.logger.Debug("[xlog/fx] "+phase+" hook done",
		zap.String("function", function),
		zap.Int64("ns", runtimeNs),
	)
}

func NewFxXLogger(logger XLogger) *FxXLogger {
	if logger == nil {
		return &FxXLogger{}
	}
	return &FxXLogger{logger: logger.Named("Fx")}
}

// Module provides a shared XLogger to the fx graph, so the ordered
// collections built inside the graph log through the same sink.
// The logger is synced when the application stops.
func Module(opts ...XLoggerOption) fx.Option {
	return fx.Module("xlog",
		fx.Provide(func(lc fx.Lifecycle) XLogger {
			logger := NewXLogger(opts...)
			lc.Append(fx.StopHook(logger.Sync))
			return logger
		}),
		fx.WithLogger(func(logger XLogger) fxevent.Logger {
			return NewFxXLogger(logger)
		}),
	)
}
