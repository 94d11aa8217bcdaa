package ldap

import "io"

// Request is a protocol operation that can be written as an
// LDAPMessage with the given message ID.
type Request interface {
	WritePackets(w io.Writer, msgID int) error
}

func NewRequestPacket(msgID int) *Packet {
	pkt := NewPacket(ClassUniversal, false, TagSequence, nil)
	pkt.AddItem(NewPacket(ClassUniversal, true, TagInteger, msgID))
	return pkt
}

// writeRequest assembles and writes the LDAPMessage envelope: message
// ID, the protocol op, and the optional controls sequence.
func writeRequest(w io.Writer, msgID int, op *Packet, ctrls []Control) error {
	req := NewRequestPacket(msgID)
	req.AddItem(op)
	if len(ctrls) > 0 {
		req.AddItem(encodeControls(ctrls))
	}
	tracePacket("send", req)
	return req.Write(w)
}

// BaseResult is the LDAPResult component common to all terminal
// responses: code, matched DN, diagnostic message and any referral
// URIs, plus the response controls from the enclosing message.
type BaseResult struct {
	MessageID   int
	MessageType int
	Code        ResultCode
	MatchedDN   string
	Message     string
	Referrals   []string
	Controls    []Control
}

// Err maps the result onto the error taxonomy. Success and the two
// compare verdicts are not errors.
func (r *BaseResult) Err() error {
	switch r.Code {
	case ResultSuccess, ResultCompareTrue, ResultCompareFalse:
		return nil
	}
	return resultError(r.Code, r.MatchedDN, r.Message, r.Referrals, r.Controls, r.MessageID, r.MessageType)
}

func parseBaseResult(op *Packet, res *BaseResult) error {
	if len(op.Items) < 3 {
		return ProtocolError("response should have at least 3 values")
	}
	code, ok := op.Items[0].Int()
	if !ok {
		return ProtocolError("invalid code in response")
	}
	res.MessageType = op.Tag
	res.Code = ResultCode(code)
	if res.MatchedDN, ok = op.Items[1].Str(); !ok {
		return ProtocolError("invalid matchedDN in response")
	}
	if res.Message, ok = op.Items[2].Str(); !ok {
		return ProtocolError("invalid message in response")
	}
	for _, it := range op.Items[3:] {
		if it.Class == ClassContext && it.Tag == 3 {
			for _, u := range it.Items {
				uri, ok := u.Str()
				if !ok {
					return ProtocolError("invalid referral URI in response")
				}
				res.Referrals = append(res.Referrals, uri)
			}
		}
	}
	return nil
}

// envelope is one received LDAPMessage split into its parts.
type envelope struct {
	msgID    int
	op       *Packet
	controls []Control
}

func parseEnvelope(pkt *Packet) (*envelope, error) {
	if pkt.Class != ClassUniversal || pkt.Primitive || pkt.Tag != TagSequence || len(pkt.Items) < 2 {
		return nil, ProtocolError("invalid response packet")
	}
	msgID, ok := pkt.Items[0].Int()
	if !ok {
		return nil, ProtocolError("failed to parse msgID from response")
	}
	env := &envelope{msgID: msgID, op: pkt.Items[1]}
	for _, it := range pkt.Items[2:] {
		if it.Class == ClassContext && it.Tag == 0 {
			ctrls, err := decodeControls(it)
			if err != nil {
				return nil, err
			}
			env.controls = ctrls
		}
	}
	return env, nil
}
