package ldap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsIntAndBool(t *testing.T) {
	o := defaultOptions()
	require.NoError(t, o.set(OptionSizeLimit, 100))
	v, err := o.get(OptionSizeLimit)
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	// strings coerce
	require.NoError(t, o.set(OptionTimeLimit, "30"))
	v, err = o.get(OptionTimeLimit)
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	// ints work for bool options
	require.NoError(t, o.set(OptionReferrals, 0))
	v, err = o.get(OptionReferrals)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	require.NoError(t, o.set(OptionRestart, true))
	v, err = o.get(OptionRestart)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestOptionsTypeMismatchBeforeStateChange(t *testing.T) {
	o := defaultOptions()
	require.NoError(t, o.set(OptionSizeLimit, 7))
	err := o.set(OptionSizeLimit, struct{}{})
	var tme *TypeMismatchError
	require.ErrorAs(t, err, &tme)
	v, err := o.get(OptionSizeLimit)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	// bool is not an int
	err = o.set(OptionSizeLimit, true)
	require.ErrorAs(t, err, &tme)
}

func TestOptionsReadOnly(t *testing.T) {
	o := defaultOptions()
	err := o.set(OptionResultCode, 5)
	assert.Equal(t, ErrOptionReadOnly, err)
	err = o.set(OptionDiagnosticMessage, "x")
	assert.Equal(t, ErrOptionReadOnly, err)
}

func TestOptionsUnknown(t *testing.T) {
	o := defaultOptions()
	err := o.set(Option(0x7777), 1)
	require.Error(t, err)
	assert.True(t, IsResultCode(err, ResultParamError))
	_, err = o.get(Option(0x7777))
	assert.True(t, IsResultCode(err, ResultParamError))
}

func TestOptionsTimeval(t *testing.T) {
	o := defaultOptions()

	// float seconds, truncated to microseconds
	require.NoError(t, o.set(OptionTimeout, 1.5000009))
	v, err := o.get(OptionTimeout)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v.(float64), 0.000001)

	// nil means no timeout and reads back as nil
	require.NoError(t, o.set(OptionTimeout, nil))
	v, err = o.get(OptionTimeout)
	require.NoError(t, err)
	assert.Nil(t, v)

	// negative means no timeout too
	require.NoError(t, o.set(OptionNetworkTimeout, -1))
	v, err = o.get(OptionNetworkTimeout)
	require.NoError(t, err)
	assert.Nil(t, v)

	// durations are accepted directly
	require.NoError(t, o.set(OptionTimeout, 250*time.Millisecond))
	v, err = o.get(OptionTimeout)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, v.(float64), 0.000001)

	err = o.set(OptionTimeout, "not a number")
	var tme *TypeMismatchError
	require.ErrorAs(t, err, &tme)
}

func TestOptionsProtocolVersion(t *testing.T) {
	o := defaultOptions()
	require.NoError(t, o.set(OptionProtocolVersion, 2))
	err := o.set(OptionProtocolVersion, 4)
	require.Error(t, err)
	assert.True(t, IsResultCode(err, ResultParamError))
	v, err := o.get(OptionProtocolVersion)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestOptionsControls(t *testing.T) {
	o := defaultOptions()
	require.NoError(t, o.set(OptionServerControls, []Control{{OID: "1.2.3"}}))
	v, err := o.get(OptionServerControls)
	require.NoError(t, err)
	ctrls := v.([]Control)
	require.Len(t, ctrls, 1)
	assert.Equal(t, "1.2.3", ctrls[0].OID)

	// loose tuples convert too
	require.NoError(t, o.set(OptionClientControls, []interface{}{
		[]interface{}{"2.3.4", true, nil},
	}))
	v, err = o.get(OptionClientControls)
	require.NoError(t, err)
	ctrls = v.([]Control)
	require.Len(t, ctrls, 1)
	assert.True(t, ctrls[0].Criticality)

	err = o.set(OptionServerControls, 42)
	var tme *TypeMismatchError
	require.ErrorAs(t, err, &tme)
}

func TestOptionsClone(t *testing.T) {
	o := defaultOptions()
	require.NoError(t, o.set(OptionSizeLimit, 9))
	require.NoError(t, o.set(OptionServerControls, []Control{{OID: "1.2.3"}}))
	c := o.clone()
	require.NoError(t, c.set(OptionSizeLimit, 10))
	v, err := o.get(OptionSizeLimit)
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	v, err = c.get(OptionSizeLimit)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}

func TestOptionsCloneControlsIndependent(t *testing.T) {
	o := defaultOptions()
	require.NoError(t, o.set(OptionServerControls, []Control{{OID: "1.2.3"}}))
	c := o.clone()
	require.NoError(t, o.set(OptionServerControls, nil))
	v, err := c.get(OptionServerControls)
	require.NoError(t, err)
	require.Len(t, v.([]Control), 1)
	assert.Equal(t, "1.2.3", v.([]Control)[0].OID)
}

func TestGlobalOptions(t *testing.T) {
	prev, err := GlobalOption(OptionSizeLimit)
	require.NoError(t, err)
	defer func() { _ = SetGlobalOption(OptionSizeLimit, prev) }()

	require.NoError(t, SetGlobalOption(OptionSizeLimit, 55))
	v, err := GlobalOption(OptionSizeLimit)
	require.NoError(t, err)
	assert.Equal(t, 55, v)

	// per-connection state cannot be read globally
	_, err = GlobalOption(OptionResultCode)
	require.Error(t, err)
	assert.True(t, IsResultCode(err, ResultParamError))
}
