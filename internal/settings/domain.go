// Package settings stores site-wide key/value configuration edited from the admin panel.
package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/newsroom-cms/newsroom/internal/shared"
)

// Type tells how a setting value is interpreted.
type Type string

const (
	TypeString  Type = "string"
	TypeBoolean Type = "boolean"
	TypeDate    Type = "date"
	TypeNumber  Type = "number"
	TypeJSON    Type = "json"
)

// DateLayout is the storage format of date settings.
const DateLayout = "2006-01-02"

// Well-known keys seeded by the migrations.
const (
	KeySiteName         = "site_name"
	KeyAboutContent     = "about_content"
	KeyContactContent   = "contact_content"
	KeyTickerEnabled    = "ticker_enabled"
	KeyTrendingArticles = "trending_articles"
	KeyHotNews          = "hot_news"
	KeyMaintenanceMode  = "maintenance_mode"
)

// Setting is one stored key.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Type      Type      `json:"type"`
	IsPublic  bool      `json:"is_public"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that value parses as t.
func (t Type) Validate(value string) error {
	value = strings.TrimSpace(value)
	var err error
	switch t {
	case TypeString:
	case TypeBoolean:
		_, err = strconv.ParseBool(value)
	case TypeDate:
		if value != "" {
			_, err = time.Parse(DateLayout, value)
		}
	case TypeNumber:
		_, err = strconv.ParseFloat(value, 64)
	case TypeJSON:
		if !json.Valid([]byte(value)) {
			err = fmt.Errorf("invalid json")
		}
	default:
		return fmt.Errorf("%w: unknown setting type %q", shared.ErrValidation, t)
	}
	if err != nil {
		return fmt.Errorf("%w: value %q is not a valid %s", shared.ErrValidation, value, t)
	}
	return nil
}

// Typed converts the stored string into its JSON-native form.
func (s Setting) Typed() any {
	value := strings.TrimSpace(s.Value)
	switch s.Type {
	case TypeBoolean:
		b, _ := strconv.ParseBool(value)
		return b
	case TypeNumber:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil
		}
		return f
	case TypeJSON:
		if !json.Valid([]byte(value)) {
			return nil
		}
		return json.RawMessage(value)
	case TypeDate:
		if value == "" {
			return nil
		}
		return value
	default:
		return s.Value
	}
}

// Set is a keyed collection of settings with typed accessors.
type Set map[string]Setting

// NewSet indexes a slice by key.
func NewSet(items []Setting) Set {
	set := make(Set, len(items))
	for _, it := range items {
		set[it.Key] = it
	}
	return set
}

// String returns the raw value or fallback when missing.
func (s Set) String(key, fallback string) string {
	if it, ok := s[key]; ok {
		return it.Value
	}
	return fallback
}

// Bool parses a boolean setting.
func (s Set) Bool(key string, fallback bool) bool {
	it, ok := s[key]
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(it.Value))
	if err != nil {
		return fallback
	}
	return b
}

// Date parses a date setting; ok is false when missing or malformed.
func (s Set) Date(key string) (time.Time, bool) {
	it, ok := s[key]
	if !ok {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, strings.TrimSpace(it.Value))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Lines splits a multi-line setting such as hot_news into trimmed, non-empty entries.
func (s Set) Lines(key string) []string {
	it, ok := s[key]
	if !ok {
		return nil
	}
	var out []string
	for _, line := range strings.Split(it.Value, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Public renders the public subset as key -> typed value.
func (s Set) Public() map[string]any {
	out := make(map[string]any)
	for key, it := range s {
		if it.IsPublic {
			out[key] = it.Typed()
		}
	}
	return out
}
