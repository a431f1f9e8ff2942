package network

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTransport(t *testing.T) {
	for _, tr := range []Transport{FramedTCP, UDP, WS} {
		parsed, err := ParseTransport(tr.String())
		require.NoError(t, err)
		require.Equal(t, tr, parsed)
	}

	parsed, err := ParseTransport("WS")
	require.NoError(t, err)
	require.Equal(t, WS, parsed)

	_, err = ParseTransport("sctp")
	require.Error(t, err)
}

func TestTransportFlagValue(t *testing.T) {
	tr := FramedTCP
	require.NoError(t, tr.Set("udp"))
	require.Equal(t, UDP, tr)
	require.Equal(t, "udp", tr.String())
	require.Equal(t, "transport", tr.Type())

	require.Error(t, tr.Set("carrier-pigeon"))
	require.Equal(t, UDP, tr)
}

func TestTransportIsConnectionOriented(t *testing.T) {
	require.True(t, FramedTCP.IsConnectionOriented())
	require.True(t, WS.IsConnectionOriented())
	require.False(t, UDP.IsConnectionOriented())
}
