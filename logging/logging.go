package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/argussoc/console/config"
)

var (
	CommsComponent = "ArgusComms"
	StoreComponent = "ArgusStore"
	APIComponent   = "ArgusAPI"
	GUIComponent   = "ArgusGUI"
	ToolComponent  = "ArgusTool"

	mu       sync.Mutex
	managers = make(map[string]*LogContext)
)

// A component scoped logger. All components share one logrus
// backend; the component name is attached as a field so log streams
// can be filtered per subsystem.
type LogContext struct {
	logger    *logrus.Logger
	component string
}

func (self *LogContext) entry() *logrus.Entry {
	return self.logger.WithField("component", self.component)
}

func (self *LogContext) Debug(format string, v ...interface{}) {
	self.entry().Debugf(format, v...)
}

func (self *LogContext) Info(format string, v ...interface{}) {
	self.entry().Infof(format, v...)
}

func (self *LogContext) Warn(format string, v ...interface{}) {
	self.entry().Warnf(format, v...)
}

func (self *LogContext) Error(format string, v ...interface{}) {
	self.entry().Errorf(format, v...)
}

func (self *LogContext) WithFields(fields logrus.Fields) *logrus.Entry {
	return self.entry().WithFields(fields)
}

func GetLogger(config_obj *config.Config, component *string) *LogContext {
	mu.Lock()
	defer mu.Unlock()

	ctx, pres := managers[*component]
	if pres {
		return ctx
	}

	logger := logrus.New()
	logger.Out = os.Stderr
	logger.Level = logrus.InfoLevel
	if config_obj != nil && config_obj.Verbose {
		logger.Level = logrus.DebugLevel
	}
	logger.Formatter = &logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	}

	ctx = &LogContext{
		logger:    logger,
		component: *component,
	}
	managers[*component] = ctx
	return ctx
}

// Used by tests to direct logs at a buffer.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	managers = make(map[string]*LogContext)
}
