package taprootthreshold

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestVersion checks the rendered version string.
func TestVersion(t *testing.T) {
	require.Equal(t, "0.1.0-alpha", SemanticVersion())
	require.True(t, strings.HasPrefix(Version(), SemanticVersion()+" "))
}
