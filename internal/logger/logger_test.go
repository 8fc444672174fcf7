package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		logFunc   func(l *slog.Logger)
		checkFunc func(t *testing.T, output string)
	}{
		{
			name:    "Text Logger Info Level",
			config:  Config{Level: "info", Format: "text", Output: "stdout"},
			logFunc: func(l *slog.Logger) { l.Info("test message", "commit", "abc123") },
			checkFunc: func(t *testing.T, output string) {
				if !bytes.Contains([]byte(output), []byte("level=INFO")) ||
					!bytes.Contains([]byte(output), []byte("msg=\"test message\"")) ||
					!bytes.Contains([]byte(output), []byte("commit=abc123")) {
					t.Errorf("Expected text log output with info level and message, got: %s", output)
				}
			},
		},
		{
			name:    "JSON Logger Debug Level",
			config:  Config{Level: "debug", Format: "json", Output: "stdout"},
			logFunc: func(l *slog.Logger) { l.Debug("test message") },
			checkFunc: func(t *testing.T, output string) {
				var logEntry map[string]interface{}
				if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
					t.Fatalf("Failed to unmarshal JSON log: %v, output: %s", err, output)
				}
				if logEntry["level"] != "DEBUG" || logEntry["msg"] != "test message" {
					t.Errorf("Expected JSON log output with debug level and message, got: %v", logEntry)
				}
			},
		},
		{
			name:    "Unknown level falls back to info",
			config:  Config{Level: "verbose", Format: "text"},
			logFunc: func(l *slog.Logger) { l.Debug("hidden"); l.Info("shown") },
			checkFunc: func(t *testing.T, output string) {
				if bytes.Contains([]byte(output), []byte("hidden")) || !bytes.Contains([]byte(output), []byte("shown")) {
					t.Errorf("Expected only info output, got: %s", output)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(NewLogger(tt.config, &buf))
			tt.checkFunc(t, buf.String())
		})
	}
}

func TestWriter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w := Writer(Config{Output: "file", Path: path})
	f, ok := w.(*os.File)
	if !ok {
		t.Fatalf("expected *os.File writer, got %T", w)
	}
	defer f.Close()

	NewLogger(Config{Level: "info"}, w).Info("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("written to file")) {
		t.Errorf("log file does not contain message: %s", data)
	}
}
