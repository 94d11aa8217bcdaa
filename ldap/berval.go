package ldap

// Berval is an opaque BER-encoded byte string. A nil Berval is the
// NULL/absent value and is distinct from an empty one; both survive a
// round trip through BervalFromObject and Object unchanged, including
// embedded NUL bytes. No character encoding is applied at this layer.
type Berval []byte

// IsAbsent reports whether bv is the NULL value rather than a present
// (possibly empty) byte string.
func (bv Berval) IsAbsent() bool {
	return bv == nil
}

// Object returns the loosely-typed form of bv: nil for the absent
// value, otherwise a copy of the bytes.
func (bv Berval) Object() interface{} {
	if bv == nil {
		return nil
	}
	out := make([]byte, len(bv))
	copy(out, bv)
	return out
}

// BervalFromObject converts a loosely-typed value into a Berval.
// nil maps to the absent value, []byte and string are copied as-is.
// Anything else fails with a TypeMismatchError naming role, before any
// encoding takes place.
func BervalFromObject(v interface{}, role string) (Berval, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		if v == nil {
			return nil, nil
		}
		out := make(Berval, len(v))
		copy(out, v)
		return out, nil
	case Berval:
		if v == nil {
			return nil, nil
		}
		out := make(Berval, len(v))
		copy(out, v)
		return out, nil
	case string:
		return Berval(v), nil
	default:
		return nil, &TypeMismatchError{Role: role, Value: v}
	}
}
