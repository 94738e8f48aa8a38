package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "blank", input: "  ", expected: nil},
		{name: "single", input: "kafka-1:9092", expected: []string{"kafka-1:9092"}},
		{name: "trims parts", input: " a , b,c ", expected: []string{"a", "b", "c"}},
		{name: "drops empty parts", input: "a,,b,", expected: []string{"a", "b"}},
		{name: "dedupes keeping first position", input: "b,a,b,c,a", expected: []string{"b", "a", "c"}},
		{name: "only separators", input: ",,,", expected: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input, ","))
		})
	}
}
