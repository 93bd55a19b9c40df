package extension_test

import (
	"testing"

	"CDRGo/internal/extension"

	"github.com/stretchr/testify/require"
)

func TestIsExtension_Ranges(t *testing.T) {
	t.Parallel()

	c := extension.New()
	c.Load([]string{"5000-5099"})

	require.True(t, c.IsExtension("5050"))
	require.True(t, c.IsExtension("15050"))
	require.False(t, c.IsExtension("16000"))
	require.False(t, c.IsExtension(""))
}

func TestIsExtension_ExactAndStripRetry(t *testing.T) {
	t.Parallel()

	c := extension.New()
	c.Load([]string{"5050", "999-999"})

	require.True(t, c.IsExtension("5050"))
	require.True(t, c.IsExtension("15050"))
	// 11-digit number starting with 1: strip leading 1 and retry.
	require.False(t, c.IsExtension("15055551234"))
}

func TestIsEmpty(t *testing.T) {
	t.Parallel()

	c := extension.New()
	require.True(t, c.IsEmpty())
	c.Load([]string{"100-200"})
	require.False(t, c.IsEmpty())
}

func TestDiscoveryMode(t *testing.T) {
	t.Parallel()

	c := extension.New()
	require.True(t, c.IsEmpty())

	c.RecordCandidate("5001", true)
	c.RecordCandidate("5001", true)
	c.RecordCandidate("5002", false)

	cands := c.DiscoveredCandidates()
	require.Equal(t, 2, cands["5001"].AsCaller)
	require.Equal(t, 1, cands["5002"].AsDest)
}
