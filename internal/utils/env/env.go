package env

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/slok/stackrun/internal/model"
)

var envKeyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Lookup looks up an environment variable.
type Lookup func(key string) (string, bool)

// OSLookup is the process environment lookup.
var OSLookup Lookup = os.LookupEnv

// MapLookup returns a lookup over a static env snapshot.
func MapLookup(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// FirstOf returns the first non empty value of the keys, in order.
func FirstOf(lookup Lookup, keys ...string) string {
	if lookup == nil {
		return ""
	}
	for _, k := range keys {
		if v, ok := lookup(k); ok && v != "" {
			return v
		}
	}
	return ""
}

// Environ applies the overrides on a base environment (KEY=VALUE list).
// Nil override values remove the key. The result is sorted by key.
func Environ(base []string, overrides model.Env) []string {
	env := ToMap(base)
	for k, v := range overrides {
		if v == nil {
			delete(env, k)
			continue
		}
		env[k] = *v
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := make([]string, 0, len(keys))
	for _, k := range keys {
		res = append(res, k+"="+env[k])
	}

	return res
}

// ToMap returns the KEY=VALUE list as a map, malformed entries are ignored.
func ToMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}

// MergeMaps merges two maps with the override keys replacing the base ones.
func MergeMaps(base map[string]string, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return map[string]string{}
	}

	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}

	return merged
}

// ParseDotenv parses dotenv content: KEY=VALUE lines, `#` comments, optional
// `export ` prefix and optional single or double quotes around the value.
func ParseDotenv(r io.Reader) (map[string]string, error) {
	env := map[string]string{}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		l := strings.TrimSpace(scanner.Text())
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		l = strings.TrimPrefix(l, "export ")

		key, value, ok := strings.Cut(l, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '=': %w", line, model.ErrNotValid)
		}

		key = strings.TrimSpace(key)
		if !isValidKey(key) {
			return nil, fmt.Errorf("line %d: invalid environment variable key %q: %w", line, key, model.ErrNotValid)
		}

		env[key] = parseDotenvValue(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read dotenv: %w", err)
	}

	return env, nil
}

func parseDotenvValue(v string) string {
	if len(v) >= 2 {
		switch {
		case v[0] == '"' && v[len(v)-1] == '"':
			return strings.ReplaceAll(v[1:len(v)-1], `\n`, "\n")
		case v[0] == '\'' && v[len(v)-1] == '\'':
			return v[1 : len(v)-1]
		}
	}

	// Unquoted values support trailing comments.
	if i := strings.Index(v, " #"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}

	return v
}

var substRegexp = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// Expand substitutes `${VAR}` and `${VAR:-default}` references using the lookup.
// Unset (or empty, when a default is given) variables expand to the default or to empty.
func Expand(s string, lookup Lookup) string {
	if !strings.Contains(s, "${") {
		return s
	}

	return substRegexp.ReplaceAllStringFunc(s, func(m string) string {
		sub := substRegexp.FindStringSubmatch(m)
		key, hasDefault, def := sub[1], sub[2] != "", sub[3]

		v, ok := "", false
		if lookup != nil {
			v, ok = lookup(key)
		}
		if hasDefault && (!ok || v == "") {
			return def
		}
		return v
	})
}

func isValidKey(k string) bool {
	return envKeyRegexp.MatchString(k)
}
