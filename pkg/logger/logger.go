package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel 把配置里的日志级别转换为 zapcore.Level，空字符串视为 info
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("logger: invalid level %q: %w", level, err)
	}
	return l, nil
}

// New 创建 JSON 格式的 zap logger，输出到 stderr。
// 返回的 AtomicLevel 可以在配置热更新时调整级别。
func New(level string) (*zap.Logger, zap.AtomicLevel, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	atom := zap.NewAtomicLevelAt(l)

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		atom,
	)
	return zap.New(core, zap.AddCaller()), atom, nil
}
