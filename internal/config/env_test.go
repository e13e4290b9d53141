package config

import (
	"reflect"
	"strings"
	"testing"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, mapLookup(map[string]string{
		"OCRD_ADDR":           ":9000",
		"OCRD_BACKEND":        "stub",
		"OCRD_CORS_ORIGINS":   "http://a, http://b,,",
		"OCRD_MAX_BODY_BYTES": "1024",
		"BASE_SIZE":           "1280",
		"IMAGE_SIZE":          "1280",
		"CROP_MODE":           "false",
		"MAX_CROPS":           "9",
		"PROMPT":              "<image>\nFree OCR.",
	}))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.Backend != BackendStub || cfg.MaxBodyBytes != 1024 {
		t.Fatalf("service vars not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://a", "http://b"}) {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
	r := cfg.Runner
	if r.BaseSize != 1280 || r.ImageSize != 1280 || r.CropMode || r.MaxCrops != 9 || r.Prompt != "<image>\nFree OCR." {
		t.Fatalf("runner vars not applied: %+v", r)
	}
	if r.MinCrops != 2 {
		t.Fatalf("unset key changed: MIN_CROPS=%d", r.MinCrops)
	}
}

func TestApplyEnvErrors(t *testing.T) {
	cases := map[string]string{
		"NUM_WORKERS":         "many",
		"CROP_MODE":           "maybe",
		"OCRD_MAX_BODY_BYTES": "1e6",
	}
	for k, v := range cases {
		cfg := Default()
		err := ApplyEnv(&cfg, mapLookup(map[string]string{k: v}))
		if err == nil || !strings.Contains(err.Error(), k) {
			t.Fatalf("%s=%s: expected error naming key, got %v", k, v, err)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	if got := SplitCSV("  "); got != nil {
		t.Fatalf("blank input = %v", got)
	}
	if got := SplitCSV(" a ,b,, c"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("got %v", got)
	}
}
