// Package logger 提供统一的日志工具
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level 日志级别
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel 解析日志级别字符串
func ParseLevel(s string) Level {
	switch s {
	case "DEBUG", "debug":
		return DEBUG
	case "INFO", "info":
		return INFO
	case "WARN", "warn", "WARNING", "warning":
		return WARN
	case "ERROR", "error":
		return ERROR
	default:
		return INFO
	}
}

// Hook 每条输出的日志都会回调一次（在级别过滤之后）
type Hook func(level Level, msg string)

// 文件轮转参数
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
)

// Logger 日志记录器
type Logger struct {
	mu       sync.Mutex
	level    Level
	enabled  bool
	console  bool
	consoleW io.Writer
	filePath string
	fileOut  *lumberjack.Logger
	logger   *log.Logger
	hooks    []Hook
}

// 全局默认 logger
var defaultLogger = New()

// New 创建新的 Logger 实例
func New() *Logger {
	return &Logger{
		level:    INFO,
		enabled:  true,
		console:  true,
		consoleW: os.Stdout,
		logger:   log.New(os.Stdout, "", 0),
	}
}

// Default 获取默认 logger
func Default() *Logger {
	return defaultLogger
}

// SetLevel 设置日志级别
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetEnabled 设置是否启用日志
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// SetConsole 设置是否输出到控制台
func (l *Logger) SetConsole(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = enabled
	l.updateOutput()
}

// SetOutput 替换控制台输出目标（测试时常用 bytes.Buffer）
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consoleW = w
	l.updateOutput()
}

// SetFile 设置是否输出到文件，文件按大小轮转
func (l *Logger) SetFile(enabled bool, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 关闭旧文件
	if l.fileOut != nil {
		l.fileOut.Close()
		l.fileOut = nil
	}
	l.filePath = path

	if enabled && path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("无法创建日志目录: %w", err)
		}
		l.fileOut = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
			LocalTime:  true,
		}
	}

	l.updateOutput()
	return nil
}

// AddHook 注册日志回调
func (l *Logger) AddHook(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, h)
}

func (l *Logger) updateOutput() {
	var writers []io.Writer

	if l.console && l.consoleW != nil {
		writers = append(writers, l.consoleW)
	}
	if l.fileOut != nil {
		writers = append(writers, l.fileOut)
	}

	if len(writers) == 0 {
		l.logger.SetOutput(io.Discard)
	} else if len(writers) == 1 {
		l.logger.SetOutput(writers[0])
	} else {
		l.logger.SetOutput(io.MultiWriter(writers...))
	}
}

// log 内部日志方法
func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	if !l.enabled || level < l.level {
		l.mu.Unlock()
		return
	}

	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("%s | %-5s | %s", timestamp, level.String(), msg)
	hooks := l.hooks
	l.mu.Unlock()

	// 回调放在锁外，允许 hook 内部再次写日志
	for _, h := range hooks {
		h(level, msg)
	}
}

// Debug 输出 DEBUG 级别日志
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info 输出 INFO 级别日志
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn 输出 WARN 级别日志
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error 输出 ERROR 级别日志
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// LogEvent 记录带分类的事件日志
func (l *Logger) LogEvent(category string, ok bool, elapsedMs float64, detail string) {
	status := "OK"
	if !ok {
		status = "NG"
	}

	if ok {
		l.Info("%-4s | %s | %6.1fms | %s", category, status, elapsedMs, detail)
	} else {
		l.Error("%-4s | %s | %6.1fms | %s", category, status, elapsedMs, detail)
	}
}

// Close 关闭 logger，释放资源
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileOut != nil {
		err := l.fileOut.Close()
		l.fileOut = nil
		l.updateOutput()
		return err
	}
	return nil
}

// 包级别便捷函数
func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }
func Info(format string, args ...interface{})  { defaultLogger.Info(format, args...) }
func Warn(format string, args ...interface{})  { defaultLogger.Warn(format, args...) }
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }
func LogEvent(category string, ok bool, elapsedMs float64, detail string) {
	defaultLogger.LogEvent(category, ok, elapsedMs, detail)
}
