package heapguard

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHere(t *testing.T) {
	site := Here()

	assert.True(t, strings.HasPrefix(site, "site_test.go:"), "got %q", site)
	assert.Regexp(t, regexp.MustCompile(`^site_test\.go:\d+$`), site)
}
