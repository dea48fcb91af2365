package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain input passes through",
			in:   "Hello world",
			want: "Hello world",
		},
		{
			name: "line breaks and paragraphs",
			in:   "Line1<br>Line2<p>Para</p>",
			want: "Line1\nLine2Para",
		},
		{
			name: "self-closing break",
			in:   "a<br/>b<br />c",
			want: "a\nb\nc",
		},
		{
			name: "paragraph close yields blank line between paragraphs",
			in:   "<p>one</p><p>two</p>",
			want: "one\n\ntwo",
		},
		{
			name: "remaining tags stripped",
			in:   "<div><strong>bold</strong> and <em>italic</em></div>",
			want: "bold and italic",
		},
		{
			name: "malformed markup left as literal text",
			in:   "price < 100 and x > 2",
			want: "price < 100 and x > 2",
		},
		{
			name: "leading and trailing whitespace trimmed",
			in:   "  <p>hi</p>  ",
			want: "hi",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPlainText(tt.in))
		})
	}
}
