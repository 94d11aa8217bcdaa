package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlEncodeDecodeRoundTrip(t *testing.T) {
	in := []Control{
		{OID: "1.2.3.4", Criticality: true, Value: Berval{0x01, 0x02}},
		{OID: "1.2.840.113556.1.4.319"},
	}
	pkt := encodeControls(in)
	out, err := decodeControls(pkt)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "1.2.3.4", out[0].OID)
	assert.True(t, out[0].Criticality)
	assert.Equal(t, Berval{0x01, 0x02}, out[0].Value)
	assert.Equal(t, "1.2.840.113556.1.4.319", out[1].OID)
	assert.False(t, out[1].Criticality)
	assert.True(t, out[1].Value.IsAbsent())
}

func TestDecodeControlsNil(t *testing.T) {
	ctrls, err := decodeControls(nil)
	require.NoError(t, err)
	assert.NotNil(t, ctrls)
	assert.Len(t, ctrls, 0)
}

func TestEncodeControlsOmitsDefaultCriticality(t *testing.T) {
	pkt := encodeControls([]Control{{OID: "1.2.3"}})
	require.Len(t, pkt.Items, 1)
	// only the OID; false criticality and absent value are omitted
	assert.Len(t, pkt.Items[0].Items, 1)

	pkt = encodeControls([]Control{{OID: "1.2.3", Value: Berval{}}})
	require.Len(t, pkt.Items, 1)
	// explicit empty value is kept
	assert.Len(t, pkt.Items[0].Items, 2)
}

func TestNewControlFromObject(t *testing.T) {
	c, err := NewControlFromObject([]interface{}{"1.2.3.4", 1, []byte{0xab}})
	require.NoError(t, err)
	assert.Equal(t, Control{OID: "1.2.3.4", Criticality: true, Value: Berval{0xab}}, c)

	_, err = NewControlFromObject([]interface{}{42, true, nil})
	var tme *TypeMismatchError
	require.ErrorAs(t, err, &tme)

	_, err = NewControlFromObject("not a tuple")
	require.ErrorAs(t, err, &tme)
}

func TestPagedResultsRoundTrip(t *testing.T) {
	value, err := EncodePagedResultsValue(100, []byte("abc"))
	require.NoError(t, err)
	size, cookie, err := DecodePagedResultsValue(value)
	require.NoError(t, err)
	assert.Equal(t, 100, size)
	assert.Equal(t, []byte("abc"), cookie)
}

func TestPagedResultsEmptyCookieExplicit(t *testing.T) {
	value, err := EncodePagedResultsValue(0, nil)
	require.NoError(t, err)
	// SEQUENCE { INTEGER 0, OCTET STRING "" }: the empty cookie must be
	// present as 0x04 0x00, never omitted.
	assert.Equal(t, []byte{0x30, 0x05, 0x02, 0x01, 0x00, 0x04, 0x00}, value)

	size, cookie, err := DecodePagedResultsValue(value)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
	assert.NotNil(t, cookie)
	assert.Len(t, cookie, 0)
}

func TestNewPagedResultsControl(t *testing.T) {
	c, err := NewPagedResultsControl(10, nil, false)
	require.NoError(t, err)
	assert.Equal(t, OIDPagedResultsControl, c.OID)
	assert.False(t, c.Value.IsAbsent())
}

func TestMatchedValuesControl(t *testing.T) {
	c, err := NewMatchedValuesControl("((cn=fred)(sn>=b))", false)
	require.NoError(t, err)
	assert.Equal(t, OIDMatchedValuesControl, c.OID)

	pkt, _, err := ParsePacket(c.Value)
	require.NoError(t, err)
	require.Equal(t, TagSequence, pkt.Tag)
	assert.Len(t, pkt.Items, 2)

	_, err = NewMatchedValuesControl("(((", false)
	require.Error(t, err)
	assert.True(t, IsResultCode(err, ResultFilterError))
}

func TestAssertionControl(t *testing.T) {
	c, err := NewAssertionControl("(objectClass=*)", true)
	require.NoError(t, err)
	assert.Equal(t, OIDAssertionControl, c.OID)
	assert.True(t, c.Criticality)

	pkt, _, err := ParsePacket(c.Value)
	require.NoError(t, err)
	// bare filter encoding: context tag 7 is a present filter
	assert.Equal(t, ClassContext, pkt.Class)
	assert.Equal(t, filterTagPresent, pkt.Tag)
}

func TestManageDsaITControl(t *testing.T) {
	c := NewManageDsaITControl(true)
	assert.Equal(t, OIDManageDsaITControl, c.OID)
	assert.True(t, c.Value.IsAbsent())
}

func TestFindControl(t *testing.T) {
	ctrls := []Control{{OID: "1.1"}, {OID: "2.2", Criticality: true}}
	require.NotNil(t, FindControl(ctrls, "2.2"))
	assert.True(t, FindControl(ctrls, "2.2").Criticality)
	assert.Nil(t, FindControl(ctrls, "9.9"))
}
