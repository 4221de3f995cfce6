package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb      testing.TB
	encoder zapcore.Encoder
}

// NewTestAppender returns an appender that writes console formatted entries through tb.Log, so
// output stays attached to the test that produced it.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb: tb, encoder: zapcore.NewConsoleEncoder(consoleEncoderConfig())}
}

func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	buf, err := tapp.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	tapp.tb.Log(strings.TrimSuffix(buf.String(), "\n"))
	return nil
}

func (tapp *testAppender) Sync() error {
	return nil
}
