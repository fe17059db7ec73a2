package buildconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	origCommit, origDate := commit, buildDate
	defer func() { commit, buildDate = origCommit, origDate }()

	commit = "0123456789abcdef"
	buildDate = ""
	assert.Equal(t, "axiom dev (0123456789ab)", String())

	commit = "abc"
	buildDate = "2026-01-02"
	assert.Equal(t, "axiom dev (abc) built 2026-01-02", String())
}
