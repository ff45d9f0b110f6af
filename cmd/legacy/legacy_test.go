package legacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visitprep/internal/errors"
)

func TestParseRecords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantKeys []string
		wantErr  bool
	}{
		{
			name:     "array keyed by id",
			input:    `[{"id":"a","title":"A"},{"id":"b","title":"B"}]`,
			wantKeys: []string{"a", "b"},
		},
		{
			name:     "object keyed by list id",
			input:    ` {"x":{"id":"x"},"y":{"broken":true}} `,
			wantKeys: []string{"x", "y"},
		},
		{
			name:    "array entry without id",
			input:   `[{"title":"no id"}]`,
			wantErr: true,
		},
		{
			name:    "scalar",
			input:   `42`,
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "  \n",
			wantErr: true,
		},
		{
			name:    "truncated",
			input:   `[{"id":"a"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			records, err := ParseRecords([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
				return
			}
			require.NoError(t, err)

			keys := make([]string, 0, len(records))
			for _, r := range records {
				keys = append(keys, r.Key)
			}
			assert.ElementsMatch(t, tt.wantKeys, keys)
		})
	}
}
