package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleBytes(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  string
	}{
		{
			name:  "csv in a string",
			input: json.RawMessage(`"a,b\n1,2\n"`),
			want:  "a,b\n1,2\n",
		},
		{
			name:  "inline array",
			input: json.RawMessage(`[{"a": 1}, {"a": 2}]`),
			want:  `[{"a": 1}, {"a": 2}]`,
		},
		{
			name:  "json embedded in a string",
			input: json.RawMessage(`"[{\"a\": 1}]"`),
			want:  `[{"a": 1}]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlexibleBytes(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestFlexibleBytesNullAndEmpty(t *testing.T) {
	got, err := FlexibleBytes(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = FlexibleBytes(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFlexibleBytesInvalidString(t *testing.T) {
	_, err := FlexibleBytes(json.RawMessage(`"unterminated`))
	assert.Error(t, err)
}
