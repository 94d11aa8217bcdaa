package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	u, err := ParseURL("ldap://ldap.example.com:10389/dc=example,dc=com?cn,sn?sub?(objectClass=person)?!bindname=cn=admin,x-extra=1")
	require.NoError(t, err)
	assert.Equal(t, "ldap", u.Scheme)
	assert.Equal(t, "ldap.example.com:10389", u.Host)
	assert.Equal(t, "dc=example,dc=com", u.DN)
	assert.Equal(t, []string{"cn", "sn"}, u.Attrs)
	assert.Equal(t, ScopeWholeSubtree, u.Scope)
	assert.Equal(t, "(objectClass=person)", u.Filter)
	require.Len(t, u.Extensions, 2)
	assert.True(t, u.Extensions[0].Critical)
	assert.Equal(t, "bindname", u.Extensions[0].Name)
	assert.Equal(t, "cn=admin", u.Extensions[0].Value)
	assert.Equal(t, "x-extra", u.Extensions[1].Name)
}

func TestParseURLDefaults(t *testing.T) {
	u, err := ParseURL("ldap://host")
	require.NoError(t, err)
	assert.Equal(t, "", u.DN)
	assert.Equal(t, ScopeBaseObject, u.Scope)
	assert.Empty(t, u.Attrs)
	assert.Equal(t, "", u.Filter)

	addr, err := u.Address()
	require.NoError(t, err)
	assert.Equal(t, "host:389", addr)

	network, err := u.Network()
	require.NoError(t, err)
	assert.Equal(t, "tcp", network)
}

func TestParseURLPercentEncoding(t *testing.T) {
	u, err := ParseURL("ldap:///o=University%20of%20Michigan,c=US??sub?(cn=Babs%20Jensen)")
	require.NoError(t, err)
	assert.Equal(t, "o=University of Michigan,c=US", u.DN)
	assert.Equal(t, "(cn=Babs Jensen)", u.Filter)
}

func TestParseURLSchemeNetworks(t *testing.T) {
	cases := []struct {
		uri     string
		network string
		address string
	}{
		{"ldap://h", "tcp", "h:389"},
		{"ldaps://h", "tcp", "h:636"},
		{"cldap://h", "udp", "h:389"},
		{"ldapi://%2Fvar%2Frun%2Fldapi", "unix", "/var/run/ldapi"},
	}
	for _, c := range cases {
		u, err := ParseURL(c.uri)
		require.NoError(t, err, c.uri)
		network, err := u.Network()
		require.NoError(t, err, c.uri)
		assert.Equal(t, c.network, network, c.uri)
		address, err := u.Address()
		require.NoError(t, err, c.uri)
		assert.Equal(t, c.address, address, c.uri)
	}
}

func TestParseURLRejectsUnknownScheme(t *testing.T) {
	_, err := ParseURL("http://example.com/")
	require.Error(t, err)
	_, err = ParseURL("not a url")
	require.Error(t, err)
}

func TestParseURLBadScope(t *testing.T) {
	_, err := ParseURL("ldap://h/dc=x??everything")
	require.Error(t, err)
}

func TestURLString(t *testing.T) {
	in := "ldap://h:1389/dc=example?cn?sub?(cn=a)?!x-ext=v"
	u, err := ParseURL(in)
	require.NoError(t, err)
	out := u.String()
	u2, err := ParseURL(out)
	require.NoError(t, err)
	assert.Equal(t, u, u2)
}

func TestParseURLIPv6HostPort(t *testing.T) {
	u, err := ParseURL("ldap://[::1]:1389/dc=x")
	require.NoError(t, err)
	addr, err := u.Address()
	require.NoError(t, err)
	assert.Equal(t, "[::1]:1389", addr)

	u, err = ParseURL("ldap://[::1]/dc=x")
	require.NoError(t, err)
	addr, err = u.Address()
	require.NoError(t, err)
	assert.Equal(t, "[::1]:389", addr)
}
