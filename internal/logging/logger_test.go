package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew_WritesStdoutAndDailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	var stdout bytes.Buffer
	day := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)

	logger, closer, err := New(Options{
		Dir:    dir,
		Level:  "debug",
		Stdout: &stdout,
		Now:    func() time.Time { return day },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hello", slog.String("alias", "svc"))
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "2024-03-09.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Equal(data, stdout.Bytes()) {
		t.Errorf("file and stdout differ:\nfile=%s\nstdout=%s", data, stdout.Bytes())
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if last["msg"] != "hello" || last["alias"] != "svc" {
		t.Errorf("unexpected record %v", last)
	}
}

func TestNew_AppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	now := func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	path := filepath.Join(dir, "2024-01-01.log")
	if err := os.WriteFile(path, []byte("previous\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger, closer, err := New(Options{Dir: dir, Stdout: &bytes.Buffer{}, Now: now})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("next")
	closer.Close()

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "previous\n") {
		t.Errorf("existing content was truncated: %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel() error = %v", err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}
