package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

const (
	ScriptNamespace   = "SCRIPT"
	CompileNamespace  = "COMPILE"
	TimeslotNamespace = "TIMESLOT"
	DeliveryNamespace = "DELIVERY"
	LibraryNamespace  = "LIBRARY"
	APINamespace      = "API"
)

// SetupLogger builds a console logger with the given parameters and installs it as the global zap logger.
func SetupLogger(params Parameters) (*zap.Logger, *zap.SugaredLogger) {
	return setupLogger(params, os.Stdout)
}

func setupLogger(params Parameters, w io.Writer) (*zap.Logger, *zap.SugaredLogger) {
	al := zap.NewAtomicLevelAt(params.Level)
	ec := zap.NewProductionEncoderConfig()
	if params.Development {
		ec = zap.NewDevelopmentEncoderConfig()
	}
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.Lock(zapcore.AddSync(w)), al)
	if params.filter != nil {
		core = zapfilter.NewFilteringCore(core, params.filter)
	}
	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if params.Development {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}
	logger := zap.New(core, opts...)
	zap.ReplaceGlobals(logger)
	return logger, logger.Sugar()
}
