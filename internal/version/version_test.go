package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldVersion, oldGit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldGit })

	Version, GitCommit = "1.2.3", ""
	assert.Equal(t, "1.2.3", String())

	GitCommit = "abc123"
	assert.Equal(t, "1.2.3 (git: abc123)", String())
}

func TestBuild(t *testing.T) {
	_, goVer := Build()
	assert.Equal(t, runtime.Version(), goVer)
}
