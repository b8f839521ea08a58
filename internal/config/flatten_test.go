package config

import (
	"testing"
)

func TestFlatten_Simple(t *testing.T) {
	m := map[string]any{
		"a": "hello",
		"b": 42.0,
	}
	got := Flatten(m)
	if got["a"] != "hello" {
		t.Errorf("expected a=hello, got %v", got["a"])
	}
	if got["b"] != 42.0 {
		t.Errorf("expected b=42, got %v", got["b"])
	}
	if len(got) != 2 {
		t.Errorf("expected 2 keys, got %d", len(got))
	}
}

func TestFlatten_Nested(t *testing.T) {
	m := map[string]any{
		"ncbi": map[string]any{
			"email":   "a@b.org",
			"api_key": "sk-test123",
		},
		"log_level": "info",
	}
	got := Flatten(m)
	if got["ncbi.email"] != "a@b.org" {
		t.Errorf("expected ncbi.email=a@b.org, got %v", got["ncbi.email"])
	}
	if got["ncbi.api_key"] != "sk-test123" {
		t.Errorf("expected ncbi.api_key=sk-test123, got %v", got["ncbi.api_key"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
	if len(got) != 3 {
		t.Errorf("expected 3 keys, got %d", len(got))
	}
}

func TestFlatten_DeeplyNested(t *testing.T) {
	m := map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": "deep",
			},
		},
	}
	got := Flatten(m)
	if got["a.b.c"] != "deep" {
		t.Errorf("expected a.b.c=deep, got %v", got["a.b.c"])
	}
	if len(got) != 1 {
		t.Errorf("expected 1 key, got %d", len(got))
	}
}

func TestFlatten_EmptyMap(t *testing.T) {
	got := Flatten(map[string]any{})
	if len(got) != 0 {
		t.Errorf("expected 0 keys, got %d", len(got))
	}
}

func TestFlatten_EmptyNestedMap(t *testing.T) {
	m := map[string]any{
		"a": map[string]any{},
	}
	got := Flatten(m)
	if len(got) != 0 {
		t.Errorf("expected 0 keys (empty nested map produces nothing), got %d", len(got))
	}
}

func TestUnflatten_Simple(t *testing.T) {
	flat := map[string]any{
		"a": "hello",
		"b": 42.0,
	}
	got := Unflatten(flat)
	if got["a"] != "hello" {
		t.Errorf("expected a=hello, got %v", got["a"])
	}
	if got["b"] != 42.0 {
		t.Errorf("expected b=42, got %v", got["b"])
	}
}

func TestUnflatten_Nested(t *testing.T) {
	flat := map[string]any{
		"ncbi.email":   "a@b.org",
		"ncbi.api_key": "key-test123",
		"log_level":    "info",
	}
	got := Unflatten(flat)
	ncbi, ok := got["ncbi"].(map[string]any)
	if !ok {
		t.Fatalf("expected ncbi to be map, got %T", got["ncbi"])
	}
	if ncbi["email"] != "a@b.org" {
		t.Errorf("expected ncbi.email=a@b.org, got %v", ncbi["email"])
	}
	if ncbi["api_key"] != "key-test123" {
		t.Errorf("expected ncbi.api_key=key-test123, got %v", ncbi["api_key"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
}

func TestUnflatten_DeeplyNested(t *testing.T) {
	flat := map[string]any{
		"a.b.c": "deep",
	}
	got := Unflatten(flat)
	a, ok := got["a"].(map[string]any)
	if !ok {
		t.Fatalf("expected a to be map, got %T", got["a"])
	}
	b, ok := a["b"].(map[string]any)
	if !ok {
		t.Fatalf("expected a.b to be map, got %T", a["b"])
	}
	if b["c"] != "deep" {
		t.Errorf("expected a.b.c=deep, got %v", b["c"])
	}
}

func TestUnflatten_EmptyMap(t *testing.T) {
	got := Unflatten(map[string]any{})
	if len(got) != 0 {
		t.Errorf("expected 0 keys, got %d", len(got))
	}
}

func TestRoundTrip_FlattenUnflatten(t *testing.T) {
	original := map[string]any{
		"log_file":  "/home/test/.dbbuddy/dbbuddy.log",
		"log_level": "debug",
		"ncbi": map[string]any{
			"email":   "a@b.org",
			"api_key": "key-test123456",
		},
		"uniprot": map[string]any{
			"max_concurrent": 10.0,
		},
	}

	flat := Flatten(original)
	restored := Unflatten(flat)

	if restored["log_file"] != original["log_file"] {
		t.Errorf("log_file mismatch: %v != %v", restored["log_file"], original["log_file"])
	}
	if restored["log_level"] != original["log_level"] {
		t.Errorf("log_level mismatch: %v != %v", restored["log_level"], original["log_level"])
	}

	ncbi := restored["ncbi"].(map[string]any)
	origNCBI := original["ncbi"].(map[string]any)
	if ncbi["email"] != origNCBI["email"] {
		t.Errorf("ncbi.email mismatch: %v != %v", ncbi["email"], origNCBI["email"])
	}
	if ncbi["api_key"] != origNCBI["api_key"] {
		t.Errorf("ncbi.api_key mismatch: %v != %v", ncbi["api_key"], origNCBI["api_key"])
	}

	up := restored["uniprot"].(map[string]any)
	if up["max_concurrent"] != 10.0 {
		t.Errorf("uniprot.max_concurrent mismatch: %v", up["max_concurrent"])
	}
}

func TestMaskSecrets_AllSecrets(t *testing.T) {
	flat := map[string]any{
		"ncbi.email":   "a@b.org",
		"ncbi.api_key": "key-abcdef1234",
		"log_level":    "info",
	}
	got := MaskSecrets(flat)

	if got["ncbi.email"] != "a@b.org" {
		t.Errorf("expected ncbi.email=a@b.org, got %v", got["ncbi.email"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
	if got["ncbi.api_key"] != "***1234" {
		t.Errorf("expected ncbi.api_key=***1234, got %v", got["ncbi.api_key"])
	}
}

func TestMaskSecrets_EmptySecret(t *testing.T) {
	flat := map[string]any{
		"ncbi.api_key": "",
	}
	got := MaskSecrets(flat)
	if got["ncbi.api_key"] != "" {
		t.Errorf("expected empty string to remain empty, got %v", got["ncbi.api_key"])
	}
}

func TestMaskSecrets_ShortSecret(t *testing.T) {
	flat := map[string]any{
		"ncbi.api_key": "ab",
	}
	got := MaskSecrets(flat)
	if got["ncbi.api_key"] != "***ab" {
		t.Errorf("expected ***ab for short secret, got %v", got["ncbi.api_key"])
	}
}

func TestMaskSecrets_ExactlyFourChars(t *testing.T) {
	flat := map[string]any{
		"ncbi.api_key": "abcd",
	}
	got := MaskSecrets(flat)
	if got["ncbi.api_key"] != "***abcd" {
		t.Errorf("expected ***abcd for 4-char secret, got %v", got["ncbi.api_key"])
	}
}

func TestMaskSecrets_NoSecretKeys(t *testing.T) {
	flat := map[string]any{
		"log_level":  "debug",
		"log_file":   "/tmp",
		"ncbi.email": "a@b.org",
	}
	got := MaskSecrets(flat)
	if got["log_level"] != "debug" {
		t.Errorf("expected log_level=debug, got %v", got["log_level"])
	}
	if got["log_file"] != "/tmp" {
		t.Errorf("expected log_file=/tmp, got %v", got["log_file"])
	}
	if got["ncbi.email"] != "a@b.org" {
		t.Errorf("expected ncbi.email=a@b.org, got %v", got["ncbi.email"])
	}
}

func TestFlatten_MixedTypes(t *testing.T) {
	m := map[string]any{
		"str":   "hello",
		"num":   42.0,
		"bool":  true,
		"float": 3.14,
		"nested": map[string]any{
			"val": "inside",
		},
	}
	got := Flatten(m)
	if got["str"] != "hello" {
		t.Errorf("expected str=hello, got %v", got["str"])
	}
	if got["num"] != 42.0 {
		t.Errorf("expected num=42, got %v", got["num"])
	}
	if got["bool"] != true {
		t.Errorf("expected bool=true, got %v", got["bool"])
	}
	if got["float"] != 3.14 {
		t.Errorf("expected float=3.14, got %v", got["float"])
	}
	if got["nested.val"] != "inside" {
		t.Errorf("expected nested.val=inside, got %v", got["nested.val"])
	}
}

func TestEnvNames(t *testing.T) {
	got := EnvNames("ncbi.email")
	if len(got) != 2 || got[0] != "DBBUDDY_NCBI_EMAIL" || got[1] != "NCBI_EMAIL" {
		t.Errorf("EnvNames(ncbi.email) = %v", got)
	}
	got = EnvNames("uniprot.max_concurrent")
	if len(got) != 1 || got[0] != "DBBUDDY_UNIPROT_MAX_CONCURRENT" {
		t.Errorf("EnvNames(uniprot.max_concurrent) = %v", got)
	}
}

func TestKnownKey(t *testing.T) {
	for _, k := range []string{"log_level", "ncbi.api_key", "ensembl.species", "data_dir"} {
		if !KnownKey(k) {
			t.Errorf("expected %q to be known", k)
		}
	}
	for _, k := range []string{"", "ncbi", "ncbi.tool", "telegram.token"} {
		if KnownKey(k) {
			t.Errorf("expected %q to be unknown", k)
		}
	}
}

func TestSortedKeys(t *testing.T) {
	got := SortedKeys(map[string]any{"ncbi.email": 1, "data_dir": 2, "log_level": 3})
	want := []string{"data_dir", "log_level", "ncbi.email"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortedKeys = %v, want %v", got, want)
		}
	}
}
