package observability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOTLPHeaders(t *testing.T) {
	require.Nil(t, ParseOTLPHeaders(""))
	require.Nil(t, ParseOTLPHeaders("broken, =x"))
	require.Equal(t,
		map[string]string{"api-key": "abc", "x-tenant": "t1"},
		ParseOTLPHeaders(" api-key=abc , x-tenant=t1,junk"),
	)
}

func TestClampRatio(t *testing.T) {
	require.Equal(t, 0.0, clampRatio(-1))
	require.Equal(t, 1.0, clampRatio(3))
	require.Equal(t, 0.25, clampRatio(0.25))
}
