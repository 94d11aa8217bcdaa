package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBervalAbsentVsEmpty(t *testing.T) {
	var absent Berval
	assert.True(t, absent.IsAbsent())
	assert.Nil(t, absent.Object())

	empty := Berval{}
	assert.False(t, empty.IsAbsent())
	require.NotNil(t, empty.Object())
	assert.Len(t, empty.Object().([]byte), 0)
}

func TestBervalObjectCopies(t *testing.T) {
	bv := Berval("abc")
	o := bv.Object().([]byte)
	o[0] = 'x'
	assert.Equal(t, Berval("abc"), bv)
}

func TestBervalFromObject(t *testing.T) {
	bv, err := BervalFromObject(nil, "test")
	require.NoError(t, err)
	assert.True(t, bv.IsAbsent())

	// a typed nil slice is the absent value too
	bv, err = BervalFromObject([]byte(nil), "test")
	require.NoError(t, err)
	assert.True(t, bv.IsAbsent())

	bv, err = BervalFromObject([]byte("ab"), "test")
	require.NoError(t, err)
	assert.Equal(t, Berval("ab"), bv)

	bv, err = BervalFromObject("cd", "test")
	require.NoError(t, err)
	assert.Equal(t, Berval("cd"), bv)

	bv, err = BervalFromObject(Berval("ef"), "test")
	require.NoError(t, err)
	assert.Equal(t, Berval("ef"), bv)

	_, err = BervalFromObject(42, "answer")
	var tme *TypeMismatchError
	require.ErrorAs(t, err, &tme)
	assert.Equal(t, "answer", tme.Role)
}
