package logging

import (
	"io"
	"os"

	"go.uber.org/zap/zapcore"
)

// Appender is an output for log entries. zapcore.Core values satisfy it, which is how the test
// observer is attached.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

type writerAppender struct {
	encoder zapcore.Encoder
	out     io.Writer
}

// NewStdoutAppender returns an appender writing console formatted, tab separated entries to stdout.
func NewStdoutAppender() Appender {
	return NewWriterAppender(os.Stdout)
}

// NewWriterAppender returns an appender writing console formatted entries to w.
func NewWriterAppender(w io.Writer) Appender {
	return &writerAppender{encoder: zapcore.NewConsoleEncoder(consoleEncoderConfig()), out: w}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(DefaultTimeFormatStr),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func (wa *writerAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := wa.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	_, err = wa.out.Write(buf.Bytes())
	return err
}

func (wa *writerAppender) Sync() error {
	if syncer, ok := wa.out.(interface{ Sync() error }); ok && wa.out != os.Stdout {
		return syncer.Sync()
	}
	return nil
}
