package exchange

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripJSONP(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "sse style envelope",
			input:    `jsonpCallback1700000000000({"result":[]});`,
			expected: `{"result":[]}`,
		},
		{
			name:     "jquery style envelope",
			input:    `jQuery1234567890_1700000000000([{"listInfo":{}}])`,
			expected: `[{"listInfo":{}}]`,
		},
		{
			name:     "plain json object passes through",
			input:    `{"data":[]}`,
			expected: `{"data":[]}`,
		},
		{
			name:     "plain json array passes through",
			input:    `[1,2,3]`,
			expected: `[1,2,3]`,
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripJSONP(tt.input))
		})
	}
}

func TestStripJSONP_MultilinePayload(t *testing.T) {
	input := "jsonpCallback42({\"result\":\n[]})"
	assert.Equal(t, "{\"result\":\n[]}", stripJSONP(input))
}

func TestCallbackTokensAreFresh(t *testing.T) {
	a := newBSECallback()
	b := newBSECallback()
	assert.True(t, strings.HasPrefix(a, "jQuery"))
	// Random digits make collisions vanishingly unlikely.
	assert.NotEqual(t, a, b)

	sse := newSSECallback()
	assert.True(t, strings.HasPrefix(sse, "jsonpCallback"))
}
