package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDN(t *testing.T) {
	dn, err := ParseDN("uid=jdoe, ou=People,dc=example,dc=com", 0)
	require.NoError(t, err)
	require.Len(t, dn, 4)
	assert.Equal(t, RDN{{Type: "uid", Value: "jdoe", Flags: AVAString}}, dn[0])
	assert.Equal(t, "ou", dn[1][0].Type)
	assert.Equal(t, "People", dn[1][0].Value)
	assert.Equal(t, "dc", dn[3][0].Type)
	assert.Equal(t, "com", dn[3][0].Value)
}

func TestParseDNEmpty(t *testing.T) {
	dn, err := ParseDN("", 0)
	require.NoError(t, err)
	assert.NotNil(t, dn)
	assert.Len(t, dn, 0)
}

func TestParseDNMultiValuedRDN(t *testing.T) {
	dn, err := ParseDN("cn=Jane Doe+mail=jane@example.com,dc=example", 0)
	require.NoError(t, err)
	require.Len(t, dn, 2)
	require.Len(t, dn[0], 2)
	assert.Equal(t, "cn", dn[0][0].Type)
	assert.Equal(t, "Jane Doe", dn[0][0].Value)
	assert.Equal(t, "mail", dn[0][1].Type)
	assert.Equal(t, "jane@example.com", dn[0][1].Value)
}

func TestParseDNEscapes(t *testing.T) {
	dn, err := ParseDN(`cn=Doe\, Jane,o=Acme \3D Co`, 0)
	require.NoError(t, err)
	require.Len(t, dn, 2)
	assert.Equal(t, "Doe, Jane", dn[0][0].Value)
	assert.Equal(t, "Acme = Co", dn[1][0].Value)
}

func TestParseDNHexValue(t *testing.T) {
	dn, err := ParseDN("cn=#04024869,dc=example", 0)
	require.NoError(t, err)
	require.Len(t, dn, 2)
	assert.Equal(t, AVABinary, dn[0][0].Flags)
	assert.Equal(t, "\x04\x02Hi", dn[0][0].Value)
}

func TestParseDNNonPrintableFlags(t *testing.T) {
	dn, err := ParseDN(`cn=j\c3\bcrgen`, 0)
	require.NoError(t, err)
	require.Len(t, dn, 1)
	assert.Equal(t, "jürgen", dn[0][0].Value)
	assert.NotZero(t, dn[0][0].Flags&AVANonPrintable)

	dn, err = ParseDN(`cn=tab\09here`, 0)
	require.NoError(t, err)
	assert.NotZero(t, dn[0][0].Flags&AVANonPrintable)
}

func TestParseDNErrors(t *testing.T) {
	for _, s := range []string{
		"cn",            // no =
		"cn=a,",         // trailing separator
		"=value",        // empty type
		"cn=#123",       // odd hex digits
		"1a=non-oid",    // type starting with digit must be an OID
		`cn=a\q`,        // bad escape
		"cn=val,+b=c",   // empty AVA before +
	} {
		_, err := ParseDN(s, 0)
		require.Errorf(t, err, "input %q", s)
		assert.True(t, IsResultCode(err, ResultInvalidDNSyntax), "input %q got %v", s, err)
	}
}

func TestParseDNPedantic(t *testing.T) {
	_, err := ParseDN("cn=a, dc=b", DNPedantic)
	require.Error(t, err)
	_, err = ParseDN("cn=a,dc=b", DNPedantic)
	require.NoError(t, err)
}

func TestParseDNLDAPv2(t *testing.T) {
	dn, err := ParseDN(`cn="Doe, Jane";dc=example`, DNFormatLDAPv2)
	require.NoError(t, err)
	require.Len(t, dn, 2)
	assert.Equal(t, "Doe, Jane", dn[0][0].Value)

	// v2 separators are rejected in v3
	_, err = ParseDN("cn=a;dc=b", 0)
	require.Error(t, err)
}

func TestParseDNDCE(t *testing.T) {
	dn, err := ParseDN("/dc=com/dc=example/cn=Jane", DNFormatDCE)
	require.NoError(t, err)
	require.Len(t, dn, 3)
	// DCE order is root first, parsed DNs are leaf first
	assert.Equal(t, "cn", dn[0][0].Type)
	assert.Equal(t, "Jane", dn[0][0].Value)
	assert.Equal(t, "com", dn[2][0].Value)

	_, err = ParseDN("dc=com/dc=example", DNFormatDCE)
	require.Error(t, err)
}

func TestParseDNRejectsOutputOnlyFormats(t *testing.T) {
	for _, f := range []DNFlags{DNFormatUFN, DNFormatADCanonical} {
		_, err := ParseDN("cn=a", f)
		require.Error(t, err)
		assert.True(t, IsResultCode(err, ResultParamError))
	}
}

func TestFormatDNRoundTrip(t *testing.T) {
	for _, s := range []string{
		"uid=jdoe,ou=People,dc=example,dc=com",
		`cn=Doe\, Jane,o=Acme`,
		"cn=Jane+mail=j@example.com,dc=example",
		"cn=#0402abcd,dc=example",
		"",
	} {
		dn, err := ParseDN(s, 0)
		require.NoError(t, err)
		out, err := FormatDN(dn, 0)
		require.NoError(t, err)
		dn2, err := ParseDN(out, 0)
		require.NoError(t, err)
		assert.Equal(t, dn, dn2, "input %q serialized as %q", s, out)
	}
}

func TestFormatDNEscaping(t *testing.T) {
	dn := DN{
		{{Type: "cn", Value: ` leading and trailing `, Flags: AVAString}},
		{{Type: "o", Value: `#sharp<>;+"back\slash`, Flags: AVAString}},
	}
	s, err := FormatDN(dn, 0)
	require.NoError(t, err)
	assert.Equal(t, `cn=\ leading and trailing\ ,o=\#sharp\<\>\;\+\"back\\slash`, s)

	dn2, err := ParseDN(s, 0)
	require.NoError(t, err)
	assert.Equal(t, dn, dn2)
}

func TestFormatDNNonASCII(t *testing.T) {
	dn := DN{{{Type: "cn", Value: "J\xc3\xbcrgen", Flags: AVAString}}}
	s, err := FormatDN(dn, 0)
	require.NoError(t, err)
	assert.Equal(t, `cn=J\c3\bcrgen`, s)

	dn2, err := ParseDN(s, 0)
	require.NoError(t, err)
	assert.Equal(t, "Jürgen", dn2[0][0].Value)
}

func TestFormatDNFormats(t *testing.T) {
	dn, err := ParseDN("cn=Jane Doe,ou=People,dc=example,dc=com", 0)
	require.NoError(t, err)

	dce, err := FormatDN(dn, DNFormatDCE)
	require.NoError(t, err)
	assert.Equal(t, "/dc=com/dc=example/ou=People/cn=Jane Doe", dce)

	ufn, err := FormatDN(dn, DNFormatUFN)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe, People, example, com", ufn)

	ad, err := FormatDN(dn, DNFormatADCanonical)
	require.NoError(t, err)
	assert.Equal(t, "example.com/People/Jane Doe", ad)
}

func TestFormatDNInvalidAVA(t *testing.T) {
	_, err := FormatDN(DN{{{Type: "", Value: "x"}}}, 0)
	require.Error(t, err)
	assert.True(t, IsResultCode(err, ResultEncodingError))

	_, err = FormatDN(DN{{{Type: "cn", Value: "ok", Flags: AVAString}}, {{Type: "bad type", Value: "x"}}}, 0)
	require.Error(t, err)
	assert.True(t, IsResultCode(err, ResultEncodingError))
}

func TestFormatDNPretty(t *testing.T) {
	dn := DN{{{Type: "CN", Value: "Jane", Flags: AVAString}}}
	s, err := FormatDN(dn, DNPretty)
	require.NoError(t, err)
	assert.Equal(t, "cn=Jane", s)
}

func TestEscapeDNChars(t *testing.T) {
	assert.Equal(t, `a\,b\+c\"d\\e`, EscapeDNChars(`a,b+c"d\e`))
	assert.Equal(t, `\ x\ `, EscapeDNChars(" x "))
	assert.Equal(t, `\#x`, EscapeDNChars("#x"))
	assert.Equal(t, "abc", EscapeDNChars("abc"))
}

func TestExplodeDN(t *testing.T) {
	parts, err := ExplodeDN("uid=jdoe,ou=People,dc=example", false, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"uid=jdoe", "ou=People", "dc=example"}, parts)

	vals, err := ExplodeDN("uid=jdoe,ou=People", true, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"jdoe", "People"}, vals)

	empty, err := ExplodeDN("", false, 0)
	require.NoError(t, err)
	assert.Len(t, empty, 0)
}

func TestExplodeRDN(t *testing.T) {
	parts, err := ExplodeRDN("cn=Jane+mail=j@example.com", false, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"cn=Jane", "mail=j@example.com"}, parts)

	vals, err := ExplodeRDN("cn=Jane", true, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane"}, vals)
}

func TestIsDN(t *testing.T) {
	assert.True(t, IsDN("cn=a,dc=b", 0))
	assert.True(t, IsDN("", 0))
	assert.False(t, IsDN("not a dn", 0))
}
