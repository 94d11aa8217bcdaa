package ldap

import (
	"github.com/pkg/errors"
)

// Control is an LDAP protocol extension attached to a request or
// response, identified by OID. A nil Value is a control without a
// value, which is distinct from a control with an empty value.
type Control struct {
	OID         string
	Criticality bool
	Value       Berval
}

// NewControlFromObject converts the loose 3-tuple shape
// (oid string, criticality bool or int, value bytes or nil) into a
// Control. Shape errors are reported as TypeMismatchError before
// anything is encoded.
func NewControlFromObject(v interface{}) (Control, error) {
	tup, ok := v.([]interface{})
	if !ok {
		return Control{}, &TypeMismatchError{Role: "control: expected a (oid, criticality, value) tuple", Value: v}
	}
	if len(tup) != 3 {
		return Control{}, &TypeMismatchError{Role: "control: expected a 3-element tuple", Value: v}
	}
	oid, ok := tup[0].(string)
	if !ok {
		return Control{}, &TypeMismatchError{Role: "control oid", Value: tup[0]}
	}
	var criticality bool
	switch c := tup[1].(type) {
	case bool:
		criticality = c
	case int:
		criticality = c != 0
	default:
		return Control{}, &TypeMismatchError{Role: "control criticality", Value: tup[1]}
	}
	value, err := BervalFromObject(tup[2], "control value")
	if err != nil {
		return Control{}, err
	}
	return Control{OID: oid, Criticality: criticality, Value: value}, nil
}

// ControlsFromObjects converts a slice of loose control tuples,
// preserving order. The whole conversion fails on the first bad
// element, before anything is encoded.
func ControlsFromObjects(list []interface{}) ([]Control, error) {
	ctrls := make([]Control, 0, len(list))
	for _, v := range list {
		c, err := NewControlFromObject(v)
		if err != nil {
			return nil, err
		}
		ctrls = append(ctrls, c)
	}
	return ctrls, nil
}

// encodeControls builds the controls element of a request envelope
// (context tag 0, RFC 4511 section 4.1.11). Criticality is emitted only
// when true, per the wire DEFAULT FALSE rule. A present-but-empty value
// encodes an explicit empty OCTET STRING; only a nil value is omitted.
func encodeControls(ctrls []Control) *Packet {
	pkt := NewPacket(ClassContext, false, 0, nil)
	for _, c := range ctrls {
		cp := pkt.AddItem(NewPacket(ClassUniversal, false, TagSequence, nil))
		cp.AddItem(NewPacket(ClassUniversal, true, TagOctetString, c.OID))
		if c.Criticality {
			cp.AddItem(NewPacket(ClassUniversal, true, TagBoolean, true))
		}
		if !c.Value.IsAbsent() {
			cp.AddItem(NewPacket(ClassUniversal, true, TagOctetString, []byte(c.Value)))
		}
	}
	return pkt
}

// decodeControls parses a response controls element. A nil packet
// yields an empty slice, never nil, and wire order is preserved.
func decodeControls(pkt *Packet) ([]Control, error) {
	ctrls := []Control{}
	if pkt == nil {
		return ctrls, nil
	}
	for _, it := range pkt.Items {
		if len(it.Items) < 1 || len(it.Items) > 3 {
			return nil, ProtocolError("control should have 1 to 3 items")
		}
		var c Control
		var ok bool
		if c.OID, ok = it.Items[0].Str(); !ok {
			return nil, ProtocolError("invalid control oid")
		}
		for _, sub := range it.Items[1:] {
			if b, isBool := sub.Bool(); isBool {
				c.Criticality = b
				continue
			}
			v, isBytes := sub.Bytes()
			if !isBytes {
				if s, isStr := sub.Str(); isStr {
					v = []byte(s)
				} else {
					return nil, ProtocolError("invalid control value")
				}
			}
			c.Value = make(Berval, len(v))
			copy(c.Value, v)
		}
		ctrls = append(ctrls, c)
	}
	return ctrls, nil
}

// FindControl returns the first control with the given OID, or nil.
func FindControl(ctrls []Control, oid string) *Control {
	for i := range ctrls {
		if ctrls[i].OID == oid {
			return &ctrls[i]
		}
	}
	return nil
}

// EncodePagedResultsValue produces the RFC 2696 control value: a
// SEQUENCE of the page size and the paging cookie. An empty cookie is
// encoded as an explicit empty OCTET STRING, never omitted; servers
// distinguish "no more pages" from "first page" by it.
func EncodePagedResultsValue(pageSize int, cookie []byte) ([]byte, error) {
	pkt := NewPacket(ClassUniversal, false, TagSequence, nil)
	pkt.AddItem(NewPacket(ClassUniversal, true, TagInteger, pageSize))
	if cookie == nil {
		cookie = []byte{}
	}
	pkt.AddItem(NewPacket(ClassUniversal, true, TagOctetString, cookie))
	b, err := pkt.Encode()
	if err != nil {
		re := errFromCode(ResultEncodingError)
		re.Err = err
		return nil, re
	}
	return b, nil
}

// DecodePagedResultsValue is the inverse of EncodePagedResultsValue.
// The returned count is the server's size estimate; the cookie is empty
// (but non-nil) on the final page.
func DecodePagedResultsValue(value []byte) (int, []byte, error) {
	pkt, _, err := ParsePacket(value)
	if err != nil {
		re := errFromCode(ResultDecodingError)
		re.Err = err
		return 0, nil, re
	}
	if pkt.Primitive || pkt.Tag != TagSequence || len(pkt.Items) != 2 {
		re := errFromCode(ResultDecodingError)
		re.Err = errors.New("paged results value is not a two element sequence")
		return 0, nil, re
	}
	count, ok := pkt.Items[0].Int()
	if !ok {
		re := errFromCode(ResultDecodingError)
		re.Err = errors.New("paged results count is not an integer")
		return 0, nil, re
	}
	cookie, ok := pkt.Items[1].Bytes()
	if !ok {
		re := errFromCode(ResultDecodingError)
		re.Err = errors.New("paged results cookie is not an octet string")
		return 0, nil, re
	}
	out := make([]byte, len(cookie))
	copy(out, cookie)
	return count, out, nil
}

// NewPagedResultsControl builds a ready-to-send RFC 2696 control.
func NewPagedResultsControl(pageSize int, cookie []byte, criticality bool) (Control, error) {
	value, err := EncodePagedResultsValue(pageSize, cookie)
	if err != nil {
		return Control{}, err
	}
	return Control{OID: OIDPagedResultsControl, Criticality: criticality, Value: Berval(value)}, nil
}

// EncodeValuesReturnFilterValue compiles an RFC 3876 filter string into
// the matched-values control value: a SEQUENCE of the item filters.
// Both a single filter "(a=b)" and a parenthesized list "((a=b)(c=d))"
// are accepted.
func EncodeValuesReturnFilterValue(filter string) ([]byte, error) {
	filters, err := ParseFilterList(filter)
	if err != nil {
		re := errFromCode(ResultFilterError)
		re.Err = err
		return nil, re
	}
	pkt := NewPacket(ClassUniversal, false, TagSequence, nil)
	for _, f := range filters {
		fp, err := f.Encode()
		if err != nil {
			re := errFromCode(ResultFilterError)
			re.Err = err
			return nil, re
		}
		pkt.AddItem(fp)
	}
	b, err := pkt.Encode()
	if err != nil {
		re := errFromCode(ResultEncodingError)
		re.Err = err
		return nil, re
	}
	return b, nil
}

// NewMatchedValuesControl builds an RFC 3876 values-return-filter control.
func NewMatchedValuesControl(filter string, criticality bool) (Control, error) {
	value, err := EncodeValuesReturnFilterValue(filter)
	if err != nil {
		return Control{}, err
	}
	return Control{OID: OIDMatchedValuesControl, Criticality: criticality, Value: Berval(value)}, nil
}

// EncodeAssertionValue compiles an RFC 4528 assertion control value,
// which is the bare encoding of the filter itself.
func EncodeAssertionValue(filter string) ([]byte, error) {
	f, err := ParseFilter(filter)
	if err != nil {
		re := errFromCode(ResultFilterError)
		re.Err = err
		return nil, re
	}
	fp, err := f.Encode()
	if err != nil {
		re := errFromCode(ResultFilterError)
		re.Err = err
		return nil, re
	}
	b, err := fp.Encode()
	if err != nil {
		re := errFromCode(ResultEncodingError)
		re.Err = err
		return nil, re
	}
	return b, nil
}

// NewAssertionControl builds an RFC 4528 assertion control. Assertion
// controls are critical unless the caller says otherwise.
func NewAssertionControl(filter string, criticality bool) (Control, error) {
	value, err := EncodeAssertionValue(filter)
	if err != nil {
		return Control{}, err
	}
	return Control{OID: OIDAssertionControl, Criticality: criticality, Value: Berval(value)}, nil
}

// NewManageDsaITControl builds an RFC 3296 ManageDsaIT control, which
// has no value.
func NewManageDsaITControl(criticality bool) Control {
	return Control{OID: OIDManageDsaITControl, Criticality: criticality}
}
