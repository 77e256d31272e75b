package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.0/12"},
		DedupeAndTrim([]string{" 10.0.0.0/8 ", "", "10.0.0.0/8", "172.16.0.0/12", "  "}))
	assert.Empty(t, DedupeAndTrim(nil))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList("a, b,,a "))
	assert.Nil(t, SplitList("   "))
}
