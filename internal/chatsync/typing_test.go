package chatsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypingIndicator(t *testing.T) {
	tests := []struct {
		names []string
		want  string
	}{
		{nil, ""},
		{[]string{"A"}, "A đang nhập…"},
		{[]string{"A", "B"}, "A và B đang nhập…"},
		{[]string{"A", "B", "C"}, "A và 2 người khác đang nhập…"},
		{[]string{"A", "B", "C", "D", "E"}, "A và 4 người khác đang nhập…"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TypingIndicator(tt.names))
	}
}
