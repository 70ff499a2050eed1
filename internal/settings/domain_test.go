package settings

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsroom-cms/newsroom/internal/shared"
)

func TestTypeValidate(t *testing.T) {
	cases := []struct {
		typ   Type
		value string
		ok    bool
	}{
		{TypeString, "anything at all", true},
		{TypeBoolean, "true", true},
		{TypeBoolean, " false ", true},
		{TypeBoolean, "yes", false},
		{TypeDate, "2024-05-06", true},
		{TypeDate, "", true},
		{TypeDate, "06/05/2024", false},
		{TypeNumber, "12.5", true},
		{TypeNumber, "twelve", false},
		{TypeJSON, `{"a":[1,2]}`, true},
		{TypeJSON, `{"a":`, false},
		{Type("color"), "red", false},
	}
	for _, tc := range cases {
		err := tc.typ.Validate(tc.value)
		if tc.ok {
			assert.NoError(t, err, "%s %q", tc.typ, tc.value)
			continue
		}
		assert.True(t, errors.Is(err, shared.ErrValidation), "%s %q: %v", tc.typ, tc.value, err)
	}
}

func TestSetAccessors(t *testing.T) {
	set := NewSet([]Setting{
		{Key: KeySiteName, Value: "Local News", Type: TypeString, IsPublic: true},
		{Key: KeyTickerEnabled, Value: "true", Type: TypeBoolean, IsPublic: true},
		{Key: KeyMaintenanceMode, Value: "not-a-bool", Type: TypeBoolean},
		{Key: KeyHotNews, Value: " Storm update \n\n  Road closures\n", Type: TypeString, IsPublic: true},
		{Key: "election_day", Value: "2024-11-05", Type: TypeDate},
	})

	assert.Equal(t, "Local News", set.String(KeySiteName, "x"))
	assert.Equal(t, "fallback", set.String("missing", "fallback"))
	assert.True(t, set.Bool(KeyTickerEnabled, false))
	assert.True(t, set.Bool(KeyMaintenanceMode, true))
	assert.False(t, set.Bool("missing", false))
	assert.Equal(t, []string{"Storm update", "Road closures"}, set.Lines(KeyHotNews))
	assert.Nil(t, set.Lines(KeyTrendingArticles))

	d, ok := set.Date("election_day")
	require.True(t, ok)
	assert.Equal(t, 11, int(d.Month()))
	_, ok = set.Date(KeySiteName)
	assert.False(t, ok)
}

func TestPublicRendersTypedValues(t *testing.T) {
	set := NewSet([]Setting{
		{Key: KeySiteName, Value: "Local News", Type: TypeString, IsPublic: true},
		{Key: KeyTickerEnabled, Value: "false", Type: TypeBoolean, IsPublic: true},
		{Key: "front_page_slots", Value: "6", Type: TypeNumber, IsPublic: true},
		{Key: "layout", Value: `{"columns":3}`, Type: TypeJSON, IsPublic: true},
		{Key: KeyMaintenanceMode, Value: "true", Type: TypeBoolean},
	})

	raw, err := json.Marshal(set.Public())
	require.NoError(t, err)
	assert.JSONEq(t, `{"site_name":"Local News","ticker_enabled":false,"front_page_slots":6,"layout":{"columns":3}}`, string(raw))
}
