package secretstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"string", "value", "value", true},
		{"bytes", []byte("raw"), "raw", true},
		{"int", 8080, "8080", true},
		{"int64", int64(-3), "-3", true},
		{"float", 1.5, "1.5", true},
		{"whole float", float64(42), "42", true},
		{"bool", true, "true", true},
		{"nested map", map[string]any{"a": 1}, `{"a":1}`, true},
		{"slice", []any{"x", "y"}, `["x","y"]`, true},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := StringValue(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	bundle, err := DecodeJSON([]byte(`{"ConnectionStringsDefault":"Host=db","Port":5432,"Big":12345678901234567890}`))
	require.NoError(t, err)

	port, _ := StringValue(bundle["Port"])
	big, _ := StringValue(bundle["Big"])
	assert.Equal(t, "5432", port)
	assert.Equal(t, "12345678901234567890", big)
	assert.ElementsMatch(t, []string{"ConnectionStringsDefault", "Port", "Big"}, bundle.Keys())

	_, err = DecodeJSON([]byte(`"plain string"`))
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	t.Parallel()

	loc := Location{Mount: "/secret/", Path: "/myapp/prod"}
	assert.Equal(t, "secret/myapp/prod", loc.String())
	assert.Equal(t, "secret_myapp/prod", loc.Joined("_"))
}
