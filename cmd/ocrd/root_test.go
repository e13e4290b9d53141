package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func execute(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := &app{stdout: &stdout, stderr: &stderr, lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}
	root := a.rootCommand()
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestPresetEnvForVRAM(t *testing.T) {
	out, err := execute(t, nil, "preset", "--mode", "Gundam", "--vram-mib", "6144", "--format", "env")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	for _, want := range []string{"BASE_SIZE=1024", "IMAGE_SIZE=640", "CROP_MODE=true", "MAX_CROPS=4", "MAX_CONCURRENCY=4", "NUM_WORKERS=4"} {
		if !strings.Contains(out, want+"\n") {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPresetFormats(t *testing.T) {
	out, err := execute(t, nil, "preset", "--mode", "tiny", "--format", "json")
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(out, `"base_size": 512`) || !strings.Contains(out, `"crop_mode": false`) {
		t.Fatalf("json:\n%s", out)
	}
	out, err = execute(t, nil, "preset", "--mode", "Large", "--format", "toml")
	if err != nil {
		t.Fatalf("toml: %v", err)
	}
	if !strings.Contains(out, "base_size = 1280") {
		t.Fatalf("toml:\n%s", out)
	}
	if _, err := execute(t, nil, "preset", "--format", "ini"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, err := execute(t, nil, "preset", "--mode", "Huge"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocrd.yaml")
	if err := os.WriteFile(path, []byte("runner:\n  base_size: 1280\n  image_size: 1280\n  crop_mode: false\n  num_workers: 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// file sets Large sizes and 8 workers, the environment overrides workers.
	out, err := execute(t, map[string]string{"OCRD_CONFIG": path, "NUM_WORKERS": "3"}, "preset", "--format", "env")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	for _, want := range []string{"BASE_SIZE=1280", "CROP_MODE=false", "NUM_WORKERS=3"} {
		if !strings.Contains(out, want+"\n") {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestBadEnvironmentFails(t *testing.T) {
	if _, err := execute(t, map[string]string{"NUM_WORKERS": "many"}, "preset"); err == nil {
		t.Fatalf("expected error for non-numeric NUM_WORKERS")
	}
	if _, err := execute(t, nil, "--log-level", "loud", "preset"); err == nil {
		t.Fatalf("expected error for bad log level")
	}
}

func TestRunRequiresPaths(t *testing.T) {
	_, err := execute(t, nil, "run", "--service-url", "http://127.0.0.1:1")
	if err == nil || !strings.Contains(err.Error(), "INPUT_PATH") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatal(err)
	}
	if l.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("level = %s", l.GetLevel())
	}
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"message":"shown"`) {
		t.Fatalf("log output: %s", buf.String())
	}

	l, err = newLogger(&buf, "", "")
	if err != nil || l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("default level = %s err=%v", l.GetLevel(), err)
	}
	if _, err := newLogger(&buf, "info", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
