// Package log centralizes the per-subsystem btclog.Logger instances shared
// by every daemon (lnpd, channeld, connectiond, gossipd, routed), mirroring
// the teacher pack's daemon/log.go: a single rotating backend, one
// four-letter subsystem tag per package, and a setLogLevel(s) pair for CLI
// wiring.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter fans writes out to stdout and, once initialized, to the
// rotating log file. It implements io.Writer, same role as the teacher's
// build.LogWriter.
type logWriter struct {
	RotatorPipe *io.PipeWriter
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if w.RotatorPipe != nil {
		return w.RotatorPipe.Write(p)
	}
	return len(p), nil
}

var (
	writer     = &logWriter{}
	backendLog = btclog.NewBackend(writer)
	logRotator *rotator.Rotator

	// Subsystem loggers. Each daemon imports this package and logs through
	// its own exported logger; library packages (esb, chanfunding,
	// storage) likewise use their exported logger directly.
	LnpdLog        = backendLog.Logger("LNPD")
	ChanneldLog    = backendLog.Logger("CHND")
	ConnectiondLog = backendLog.Logger("CNCT")
	GossipdLog     = backendLog.Logger("GOSS")
	RoutedLog      = backendLog.Logger("RUTD")
	EsbLog         = backendLog.Logger("ESB ")
	ChanfundingLog = backendLog.Logger("CHFN")
	StorageLog     = backendLog.Logger("STOR")
)

var subsystemLoggers = map[string]btclog.Logger{
	"LNPD": LnpdLog,
	"CHND": ChanneldLog,
	"CNCT": ConnectiondLog,
	"GOSS": GossipdLog,
	"RUTD": RoutedLog,
	"ESB":  EsbLog,
	"CHFN": ChanfundingLog,
	"STOR": StorageLog,
}

// InitLogRotator initializes the logging rotator to write logs to logFile
// and create roll files alongside it. It must be called once, early during
// daemon startup, before any subsystem logger is used for file output.
func InitLogRotator(logFile string, maxLogFileSize, maxLogFiles int) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("log: failed to create log directory: %v", err)
	}
	r, err := rotator.New(logFile, int64(maxLogFileSize*1024), false, maxLogFiles)
	if err != nil {
		return fmt.Errorf("log: failed to create file rotator: %v", err)
	}

	pr, pw := io.Pipe()
	go r.Run(pr)

	writer.RotatorPipe = pw
	logRotator = r
	return nil
}

// SetLogLevel sets the logging level for the named subsystem. Invalid
// subsystem names are ignored; invalid levels default to Info.
func SetLogLevel(subsystemID, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets every subsystem logger to the given level, for a
// daemon's single --debuglevel flag.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// Close flushes and closes the log rotator, if one was initialized. Daemons
// call this during shutdown.
func Close() {
	if logRotator != nil {
		logRotator.Close()
	}
}
