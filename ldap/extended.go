package ldap

import "io"

type ExtendedRequest struct {
	Name     string
	Value    Berval
	Controls []Control
}

type ExtendedResponse struct {
	BaseResult
	Name  string
	Value Berval
}

func (r *ExtendedRequest) WritePackets(w io.Writer, msgID int) error {
	pkt := NewPacket(ClassApplication, false, ApplicationExtendedRequest, nil)
	pkt.AddItem(NewPacket(ClassContext, true, 0, r.Name))
	if !r.Value.IsAbsent() {
		pkt.AddItem(NewPacket(ClassContext, true, 1, []byte(r.Value)))
	}
	return writeRequest(w, msgID, pkt, r.Controls)
}

func parseExtendedResponse(op *Packet) (*ExtendedResponse, error) {
	res := &ExtendedResponse{}
	if err := parseBaseResult(op, &res.BaseResult); err != nil {
		return nil, err
	}
	var ok bool
	for _, it := range op.Items[3:] {
		if it.Class != ClassContext {
			continue
		}
		switch it.Tag {
		case 10:
			if res.Name, ok = it.Str(); !ok {
				return nil, ProtocolError("invalid responseName in extended response")
			}
		case 11:
			b, ok := it.Bytes()
			if !ok {
				return nil, ProtocolError("invalid responseValue in extended response")
			}
			res.Value = Berval(b)
		}
	}
	return res, nil
}

// IntermediateResponse is one intermediate message of an operation
// still in progress (RFC 4511 section 4.13), such as a sync info
// message. Both fields are optional on the wire.
type IntermediateResponse struct {
	Name     string
	Value    Berval
	Controls []Control
}

func parseIntermediateResponse(op *Packet) (*IntermediateResponse, error) {
	res := &IntermediateResponse{}
	var ok bool
	for _, it := range op.Items {
		if it.Class != ClassContext {
			continue
		}
		switch it.Tag {
		case 0:
			if res.Name, ok = it.Str(); !ok {
				return nil, ProtocolError("invalid responseName in intermediate response")
			}
		case 1:
			b, ok := it.Bytes()
			if !ok {
				return nil, ProtocolError("invalid responseValue in intermediate response")
			}
			res.Value = Berval(b)
		}
	}
	return res, nil
}

// EncodePasswordModifyValue builds the request value for the password
// modify extended operation (RFC 3062). Every field is optional; a nil
// userIdentity means the authenticated identity, a nil newPassword
// asks the server to generate one.
func EncodePasswordModifyValue(userIdentity string, oldPassword, newPassword []byte) ([]byte, error) {
	pkt := NewPacket(ClassUniversal, false, TagSequence, nil)
	if userIdentity != "" {
		pkt.AddItem(NewPacket(ClassContext, true, 0, userIdentity))
	}
	if oldPassword != nil {
		pkt.AddItem(NewPacket(ClassContext, true, 1, oldPassword))
	}
	if newPassword != nil {
		pkt.AddItem(NewPacket(ClassContext, true, 2, newPassword))
	}
	return pkt.Encode()
}

// DecodePasswordModifyValue extracts the generated password from a
// password modify response value, if the server sent one.
func DecodePasswordModifyValue(value []byte) ([]byte, error) {
	if len(value) == 0 {
		return nil, nil
	}
	pkt, _, err := ParsePacket(value)
	if err != nil {
		re := errFromCode(ResultDecodingError)
		re.Err = err
		return nil, re
	}
	for _, it := range pkt.Items {
		if it.Class == ClassContext && it.Tag == 0 {
			pw, ok := it.Bytes()
			if !ok {
				return nil, ProtocolError("invalid genPasswd in password modify response")
			}
			return pw, nil
		}
	}
	return nil, nil
}

// EncodeCancelValue builds the request value for the cancel extended
// operation (RFC 3909).
func EncodeCancelValue(msgID int) ([]byte, error) {
	pkt := NewPacket(ClassUniversal, false, TagSequence, nil)
	pkt.AddItem(NewPacket(ClassUniversal, true, TagInteger, msgID))
	return pkt.Encode()
}
