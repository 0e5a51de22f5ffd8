package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Settings stores config for Logger
type Settings struct {
	Path  string `yaml:"path"`
	Name  string `yaml:"name"`
	Ext   string `yaml:"ext"`
	Level string `yaml:"level"`
	// MaxSize is the size in megabytes of a log file before it gets rotated
	MaxSize    int `yaml:"max-size"`
	MaxBackups int `yaml:"max-backups"`
	// MaxAge is the number of days to retain rotated files
	MaxAge int `yaml:"max-age"`
}

type LogLevel int

// Output levels
const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	FATAL
)

const (
	defaultCallerDepth = 2
	timeFormat         = "2006/01/02 15:04:05.000"
)

var zapLevels = []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel, zapcore.FatalLevel}

// ILogger defines the methods that any logger should implement
type ILogger interface {
	Output(level LogLevel, callerDepth int, msg string)
}

// Logger writes through zap, to stdout and optionally to a rotated file
type Logger struct {
	zl   *zap.Logger
	file *lumberjack.Logger
}

var DefaultLogger ILogger = NewStdoutLogger()

// ParseLevel converts a level name, unknown names fall back to info
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(name) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

func newLogger(level LogLevel, file *lumberjack.Logger) *Logger {
	enabler := zap.NewAtomicLevelAt(zapLevels[level])
	encoder := zapcore.NewConsoleEncoder(encoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), enabler),
	}
	if file != nil {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), enabler))
	}
	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(defaultCallerDepth))
	return &Logger{
		zl:   zl,
		file: file,
	}
}

// NewStdoutLogger creates a logger which print msg to stdout
func NewStdoutLogger() *Logger {
	return newLogger(DEBUG, nil)
}

// NewFileLogger creates a logger which print msg to stdout and log file
func NewFileLogger(settings *Settings) (*Logger, error) {
	if settings.Path != "" {
		if err := os.MkdirAll(settings.Path, 0755); err != nil {
			return nil, fmt.Errorf("create log dir %s failed: %v", settings.Path, err)
		}
	}
	ext := strings.TrimPrefix(settings.Ext, ".")
	if ext == "" {
		ext = "log"
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(settings.Path, settings.Name+"."+ext),
		MaxSize:    settings.MaxSize,
		MaxBackups: settings.MaxBackups,
		MaxAge:     settings.MaxAge,
		LocalTime:  true,
	}
	return newLogger(ParseLevel(settings.Level), file), nil
}

// Setup initializes DefaultLogger
func Setup(settings *Settings) {
	logger, err := NewFileLogger(settings)
	if err != nil {
		panic(err)
	}
	DefaultLogger = logger
}

// Sync flushes DefaultLogger and closes its log file
func Sync() {
	if logger, ok := DefaultLogger.(*Logger); ok {
		_ = logger.Close()
	}
}

// Close flushes buffered entries and closes the log file if any
func (logger *Logger) Close() error {
	_ = logger.zl.Sync()
	if logger.file != nil {
		return logger.file.Close()
	}
	return nil
}

// Output sends a msg to logger
func (logger *Logger) Output(level LogLevel, callerDepth int, msg string) {
	zl := logger.zl
	if callerDepth != defaultCallerDepth {
		zl = zl.WithOptions(zap.AddCallerSkip(callerDepth - defaultCallerDepth))
	}
	msg = strings.TrimSuffix(msg, "\n")
	switch level {
	case DEBUG:
		zl.Debug(msg)
	case INFO:
		zl.Info(msg)
	case WARNING:
		zl.Warn(msg)
	case ERROR:
		zl.Error(msg)
	case FATAL:
		zl.Fatal(msg)
	}
}

// Debug logs debug message through DefaultLogger
func Debug(v ...interface{}) {
	msg := fmt.Sprintln(v...)
	DefaultLogger.Output(DEBUG, defaultCallerDepth, msg)
}

// Debugf logs debug message through DefaultLogger
func Debugf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	DefaultLogger.Output(DEBUG, defaultCallerDepth, msg)
}

// Info logs message through DefaultLogger
func Info(v ...interface{}) {
	msg := fmt.Sprintln(v...)
	DefaultLogger.Output(INFO, defaultCallerDepth, msg)
}

// Infof logs message through DefaultLogger
func Infof(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	DefaultLogger.Output(INFO, defaultCallerDepth, msg)
}

// Warn logs warning message through DefaultLogger
func Warn(v ...interface{}) {
	msg := fmt.Sprintln(v...)
	DefaultLogger.Output(WARNING, defaultCallerDepth, msg)
}

// Warnf logs warning message through DefaultLogger
func Warnf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	DefaultLogger.Output(WARNING, defaultCallerDepth, msg)
}

// Error logs error message through DefaultLogger
func Error(v ...interface{}) {
	msg := fmt.Sprintln(v...)
	DefaultLogger.Output(ERROR, defaultCallerDepth, msg)
}

// Errorf logs error message through DefaultLogger
func Errorf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	DefaultLogger.Output(ERROR, defaultCallerDepth, msg)
}

// Fatal prints error message then stop the program
func Fatal(v ...interface{}) {
	msg := fmt.Sprintln(v...)
	DefaultLogger.Output(FATAL, defaultCallerDepth, msg)
}
