package config

import (
	"sort"
	"strings"
)

// secretKeys lists the dot-separated keys whose values are masked on output.
var secretKeys = map[string]bool{
	"ncbi.api_key": true,
}

// envAliases maps keys to the conventional variables NCBI tooling reads,
// honoured alongside the DBBUDDY_ form.
var envAliases = map[string]string{
	"ncbi.api_key": "NCBI_API_KEY",
	"ncbi.email":   "NCBI_EMAIL",
}

// IsSecretKey returns true if the given dot-separated key is a secret.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// EnvNames returns the environment variables that override key, the
// DBBUDDY_ form first. "ncbi.email" gives DBBUDDY_NCBI_EMAIL and NCBI_EMAIL.
func EnvNames(key string) []string {
	names := []string{"DBBUDDY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
	if alias, ok := envAliases[key]; ok {
		names = append(names, alias)
	}
	return names
}

// KnownKey reports whether key names a leaf of the config schema.
func KnownKey(key string) bool {
	m, err := ToMap(Defaults())
	if err != nil {
		return false
	}
	_, ok := Flatten(m)[key]
	return ok
}

// Flatten converts a nested map into a flat map with dot-separated keys.
// For example, {"ncbi": {"email": "a@b.org"}} becomes {"ncbi.email": "a@b.org"}.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if prefix != "" {
				k = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(k, child)
				continue
			}
			out[k] = v
		}
	}
	walk("", m)
	return out
}

// Unflatten converts a flat map with dot-separated keys back into a nested map.
// For example, {"uniprot.max_concurrent": 10} becomes {"uniprot": {"max_concurrent": 10}}.
// A scalar in the way of a deeper key is replaced by a map.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range flat {
		setPath(out, strings.Split(k, "."), v)
	}
	return out
}

func setPath(m map[string]any, parts []string, v any) {
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

// SortedKeys returns the keys of a flat map in lexical order.
func SortedKeys(flat map[string]any) []string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MaskSecrets returns a copy of the flat map with secret values masked.
// Secrets such as ncbi.api_key are shown as "***xxxx" where xxxx is the
// last 4 characters of the value. Empty and non-string values are kept.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		if s, ok := v.(string); ok && secretKeys[k] && s != "" {
			v = maskSecret(s)
		}
		out[k] = v
	}
	return out
}

func maskSecret(s string) string {
	if len(s) > 4 {
		s = s[len(s)-4:]
	}
	return "***" + s
}
