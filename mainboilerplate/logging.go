package mainboilerplate

import (
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/grpclog"
)

// LogConfig configures handling of application log events.
type LogConfig struct {
	Level  string `long:"level" env:"LEVEL" default:"warn" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal" description:"Logging level"`
	Format string `long:"format" env:"FORMAT" default:"text" choice:"json" choice:"text" choice:"color" description:"Logging output format"`
}

// InitLog configures the logger. gRPC's internal logging is routed to it,
// with gRPC informational events logged at debug level.
func InitLog(cfg LogConfig) {
	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text":
		log.SetFormatter(&log.TextFormatter{})
	case "color":
		log.SetFormatter(&log.TextFormatter{ForceColors: true})
	}

	if lvl, err := log.ParseLevel(cfg.Level); err != nil {
		log.WithField("err", err).Fatal("unrecognized log level")
	} else {
		log.SetLevel(lvl)
	}
	grpclog.SetLoggerV2(grpcLogger{log.WithField("component", "grpc")})
}

// grpcLogger adapts a logrus Entry to grpclog.LoggerV2.
type grpcLogger struct{ *log.Entry }

func (l grpcLogger) Info(args ...interface{})                 { l.Entry.Debug(args...) }
func (l grpcLogger) Infoln(args ...interface{})               { l.Entry.Debugln(args...) }
func (l grpcLogger) Infof(format string, args ...interface{}) { l.Entry.Debugf(format, args...) }

// V reports whether gRPC verbosity |level| is enabled. Only level zero is,
// unless logging at trace level.
func (l grpcLogger) V(level int) bool {
	return level <= 0 || l.Logger.IsLevelEnabled(log.TraceLevel)
}

var _ grpclog.LoggerV2 = grpcLogger{}
