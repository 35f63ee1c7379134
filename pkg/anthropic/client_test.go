package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *MessageResponse
		want string
	}{
		{
			name: "single text block",
			resp: &MessageResponse{Content: []ContentBlock{{Type: "text", Text: `{"status":"YES"}`}}},
			want: `{"status":"YES"}`,
		},
		{
			name: "multiple blocks concatenated",
			resp: &MessageResponse{Content: []ContentBlock{
				{Type: "text", Text: "part one "},
				{Type: "text", Text: "part two"},
			}},
			want: "part one part two",
		},
		{
			name: "non-text blocks skipped",
			resp: &MessageResponse{Content: []ContentBlock{
				{Type: "tool_use", Text: "ignored"},
				{Type: "text", Text: "kept"},
			}},
			want: "kept",
		},
		{
			name: "empty content",
			resp: &MessageResponse{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractText(tt.resp))
		})
	}
}

func TestToSDKMessages_Roles(t *testing.T) {
	t.Parallel()

	out := toSDKMessages([]Message{
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "answer"},
	})
	assert.Len(t, out, 2)
	assert.Equal(t, "user", string(out[0].Role))
	assert.Equal(t, "assistant", string(out[1].Role))
}
