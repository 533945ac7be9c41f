package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"charts": []}`, `{"charts": []}`},
		{"python tags", "[PYTHON]\n[{\"chart\": \"bar\"}]\n[/PYTHON]", `[{"chart": "bar"}]`},
		{"json fence", "```json\n{\"charts\": []}\n```", `{"charts": []}`},
		{"bare fence with json token", "```\njson\n{\"a\": 1}\n```", `{"a": 1}`},
		{"leading json token", `json {"a": 1}`, `{"a": 1}`},
		{"surrounding prose", "Here is your spec:\n{\"charts\": [{\"chart\": \"pie\"}]}\nEnjoy!", `{"charts": [{"chart": "pie"}]}`},
		{"keeps json inside values", `{"title": "json stats"}`, `{"title": "json stats"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitize_NoJSON(t *testing.T) {
	for _, in := range []string{"", "sorry, I cannot help", "{not: json}", "[PYTHON][/PYTHON]"} {
		_, err := Sanitize(in)
		var ge *GenerationError
		require.ErrorAs(t, err, &ge, in)
		assert.Equal(t, StageSanitize, ge.Stage)
	}
}
