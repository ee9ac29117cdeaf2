package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 定义日志接口
type Logger interface {
	// Debug 记录调试信息
	Debug(msg string, fields ...any)

	// Info 记录一般信息
	Info(msg string, fields ...any)

	// Warn 记录警告信息
	Warn(msg string, fields ...any)

	// Error 记录错误信息
	Error(msg string, fields ...any)

	// Err 记录错误信息
	Err(err error, msg string, fields ...any)

	// With 返回附带固定字段的子日志
	With(fields ...any) Logger
}

// Options 日志配置
type Options struct {
	Level   string   // debug / info / warn / error，无法识别时为 info
	Writers []string // console / file / none
	File    string   // 日志文件路径，为空时使用 DefaultLogPath
}

// ZeroLogger 基于 zerolog 的实现
type ZeroLogger struct {
	logger zerolog.Logger
}

const timeLayout = "2006-01-02 15:04:05"

// New 按配置创建日志组件，没有可用输出时返回空日志
func New(opts Options) Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	writers := buildWriters(opts)
	if len(writers) == 0 {
		return NewNop()
	}
	return NewWithWriter(zerolog.MultiLevelWriter(writers...), level)
}

func buildWriters(opts Options) []io.Writer {
	var out []io.Writer
	for _, name := range opts.Writers {
		switch strings.TrimSpace(name) {
		case "console":
			out = append(out, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeLayout})
		case "file":
			path := opts.File
			if path == "" {
				p, err := DefaultLogPath()
				if err != nil {
					continue
				}
				path = p
			}
			out = append(out, &lumberjack.Logger{
				Filename:   path,
				MaxSize:    5,
				MaxAge:     14,
				MaxBackups: 3,
				LocalTime:  true,
			})
		}
	}
	return out
}

// NewWithWriter 使用指定输出创建日志组件
func NewWithWriter(w io.Writer, level zerolog.Level) *ZeroLogger {
	zerolog.TimeFieldFormat = timeLayout
	return &ZeroLogger{
		logger: zerolog.New(w).Level(level).With().Timestamp().Caller().Logger(),
	}
}

// NewNop 创建一个空的日志记录器
func NewNop() Logger { return &ZeroLogger{logger: zerolog.Nop()} }

func (z *ZeroLogger) Debug(msg string, fields ...any) { z.emit(z.logger.Debug(), msg, fields) }

func (z *ZeroLogger) Info(msg string, fields ...any) { z.emit(z.logger.Info(), msg, fields) }

func (z *ZeroLogger) Warn(msg string, fields ...any) { z.emit(z.logger.Warn(), msg, fields) }

func (z *ZeroLogger) Error(msg string, fields ...any) { z.emit(z.logger.Error(), msg, fields) }

func (z *ZeroLogger) Err(err error, msg string, fields ...any) {
	z.emit(z.logger.Err(err), msg, fields)
}

// emit 跳过两层调用，caller 指向业务代码
func (z *ZeroLogger) emit(e *zerolog.Event, msg string, fields []any) {
	e.CallerSkipFrame(2).Fields(fields).Msg(msg)
}

// With 返回附带字段的子日志
func (z *ZeroLogger) With(fields ...any) Logger {
	return &ZeroLogger{logger: z.logger.With().Fields(fields).Logger()}
}

// DefaultLogPath 数据目录下的 netmodifier/logs/netmodifier.log，与数据库文件同级
func DefaultLogPath() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = dir
	}
	return filepath.Join(base, "netmodifier", "logs", "netmodifier.log"), nil
}
