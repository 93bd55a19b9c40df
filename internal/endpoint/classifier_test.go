package endpoint_test

import (
	"testing"

	"CDRGo/internal/endpoint"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"1.2.3.4:5060", "1.2.3.4"},
		{"1.2.3.4", "1.2.3.4"},
		{"a,b,c", "c"},
		{"::1", "::1"},
		{"  Gateway1.example.com  ", "gateway1.example.com"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, endpoint.Normalize(tt.in), tt.in)
	}
}

func TestClassifier_LoadAndClassify(t *testing.T) {
	t.Parallel()

	c := endpoint.New()
	require.False(t, c.IsLoaded())

	c.Load([]endpoint.Entry{
		{Type: "NNITypePSTNGateway", Name: "gw1", IPFqdn: "10.0.0.1:5060"},
		{Type: "Internal", Name: "pbx1", IPFqdn: "10.0.0.2"},
	})
	require.True(t, c.IsLoaded())
	require.Equal(t, 1, c.PSTNCount())

	require.Equal(t, endpoint.PSTN, c.Classify("10.0.0.1"))
	require.Equal(t, endpoint.Internal, c.Classify("10.0.0.2"))
	require.Equal(t, endpoint.Unknown, c.Classify("10.0.0.99"))

	require.Contains(t, c.UnknownEndpoints(), "10.0.0.99")
}

func TestParseDocument(t *testing.T) {
	t.Parallel()

	xmlDoc := []byte(`<SipEndpoints>
		<SipEndpoint><Type>NNITypePSTNGateway</Type><Name>gw1</Name><IpFqdn>10.0.0.1</IpFqdn></SipEndpoint>
		<SipEndpoint><Type>Other</Type><Name>pbx1</Name><IpFqdn>10.0.0.2</IpFqdn></SipEndpoint>
	</SipEndpoints>`)

	entries, err := endpoint.Parse(xmlDoc)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "NNITypePSTNGateway", entries[0].Type)
}
