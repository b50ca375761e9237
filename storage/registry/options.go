package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Options are backend-specific key/value settings, e.g. {"dir": "/var/npk"}.
type Options map[string]string

// ParseOptions turns "key=value" pairs into Options.
func ParseOptions(pairs []string) (Options, error) {
	out := Options{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("registry: option %q must be key=value", pair)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok && v != "" {
		return v
	}
	return def
}

func (o Options) Require(key string) (string, error) {
	v := strings.TrimSpace(o[key])
	if v == "" {
		return "", fmt.Errorf("registry: missing option %q", key)
	}
	return v, nil
}

func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("registry: option %q: %w", key, err)
	}
	return b, nil
}

func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("registry: option %q: %w", key, err)
	}
	return n, nil
}

func (o Options) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := o[key]
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("registry: option %q: %w", key, err)
	}
	return d, nil
}

// checkKnown rejects keys the backend does not document.
func (o Options) checkKnown(backend string, known []Option) error {
	allowed := make(map[string]struct{}, len(known))
	for _, opt := range known {
		allowed[opt.Key] = struct{}{}
	}
	var unknown []string
	for k := range o {
		if _, ok := allowed[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("registry: backend %q does not accept option(s) %s", backend, strings.Join(unknown, ", "))
}
