package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/gitradar/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	s := version.String()
	assert.Contains(t, s, "gitradar ")
	assert.Contains(t, s, "commit: ")
	assert.Contains(t, s, "built: ")
}
