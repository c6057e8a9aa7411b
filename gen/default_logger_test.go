package gen

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestDefaultLoggerJSON(t *testing.T) {
	var buf bytes.Buffer

	jsonLogger := CreateDefaultLogger(DefaultLoggerOptions{
		EnableJSON:    true,
		IncludeFields: true,
		Output:        &buf,
		TimeFormat:    "2006-01-02T15:04:05",
	})

	testTime := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	id := NewProcessID()

	msg := MessageLog{
		Time:   testTime,
		Level:  LogLevelInfo,
		Format: "Test message with %s",
		Args:   []any{"arguments"},
		Source: MessageLogProcess{ID: id},
		Fields: []LogField{
			{Name: "key1", Value: "value1"},
			{Name: "key2", Value: 42},
		},
	}

	jsonLogger.Log(msg)

	output := buf.String()

	if !strings.Contains(output, `"time":"2023-01-01T12:00:00"`) {
		t.Errorf("Expected formatted time in JSON output, got: %s", output)
	}

	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("Expected level in JSON output, got: %s", output)
	}

	if !strings.Contains(output, `"message":"Test message with arguments"`) {
		t.Errorf("Expected formatted message in JSON output, got: %s", output)
	}

	if !strings.Contains(output, `"type":"process"`) {
		t.Errorf("Expected process type in source, got: %s", output)
	}

	if !strings.Contains(output, `"id":"`+id.String()+`"`) {
		t.Errorf("Expected process id in source, got: %s", output)
	}

	if !strings.Contains(output, `"fields":{"key1":"value1","key2":"42"}`) {
		t.Errorf("Expected fields in JSON output, got: %s", output)
	}
}

func TestDefaultLoggerPlainText(t *testing.T) {
	var buf bytes.Buffer

	logger := CreateDefaultLogger(DefaultLoggerOptions{
		Output:     &buf,
		TimeFormat: "15:04:05",
	})

	msg := MessageLog{
		Time:   time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
		Level:  LogLevelWarning,
		Format: "dropped %d messages",
		Args:   []any{3},
		Source: MessageLogVM{Release: "test"},
		Fields: []LogField{{Name: "ignored", Value: true}},
	}
	logger.Log(msg)

	expected := "12:00:00 [warning] vm: dropped 3 messages\n"
	if buf.String() != expected {
		t.Fatalf("expected %q, got %q", expected, buf.String())
	}
}

func TestDefaultLoggerColored(t *testing.T) {
	var buf bytes.Buffer

	logger := CreateDefaultLogger(DefaultLoggerOptions{
		Output:        &buf,
		Colored:       true,
		IncludeFields: true,
	})

	logger.Log(MessageLog{
		Time:   time.Now(),
		Level:  LogLevelError,
		Format: "boom",
		Source: MessageLogVM{},
		Fields: []LogField{{Name: "attempt", Value: 2}},
	})

	output := buf.String()
	if !strings.Contains(output, "\x1b[31merror\x1b[0m") {
		t.Errorf("Expected colored level, got: %q", output)
	}
	if !strings.HasSuffix(output, "boom attempt=2\n") {
		t.Errorf("Expected fields at the end, got: %q", output)
	}
}

func TestDefaultLoggerUnknownSource(t *testing.T) {
	logger := CreateDefaultLogger(DefaultLoggerOptions{Output: &bytes.Buffer{}})

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on unknown source")
		}
	}()
	logger.Log(MessageLog{Time: time.Now(), Source: 42})
}
