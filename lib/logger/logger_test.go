package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warn":    WARNING,
		"Warning": WARNING,
		"error":   ERROR,
		"":        INFO,
		"verbose": INFO,
	}
	for name, expected := range cases {
		if actual := ParseLevel(name); actual != expected {
			t.Errorf("%q: expected %d, actual %d", name, expected, actual)
		}
	}
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	l, err := NewFileLogger(&Settings{
		Path:  dir,
		Name:  "minidis",
		Ext:   ".log",
		Level: "info",
	})
	if err != nil {
		t.Fatal(err)
	}
	previous := DefaultLogger
	DefaultLogger = l
	defer func() {
		DefaultLogger = previous
	}()

	Debugf("hidden %d", 1)
	Infof("visible %d", 2)
	Error("broken")
	if err = l.Close(); err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "minidis.log"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(content)
	if strings.Contains(text, "hidden 1") {
		t.Error("debug entry should be filtered at info level")
	}
	if !strings.Contains(text, "visible 2") || !strings.Contains(text, "broken") {
		t.Errorf("missing entries in %q", text)
	}
	if !strings.Contains(text, "logger_test.go") {
		t.Errorf("caller should point at the test file: %q", text)
	}
}
