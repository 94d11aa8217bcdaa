package ldap

import "io"

// Attribute is one attribute description with its values, in the
// order they should be sent.
type Attribute struct {
	Name   string
	Values [][]byte
}

type AddRequest struct {
	DN         string
	Attributes []Attribute
	Controls   []Control
}

type AddResponse struct {
	BaseResult
}

func (r *AddRequest) WritePackets(w io.Writer, msgID int) error {
	pkt := NewPacket(ClassApplication, false, ApplicationAddRequest, nil)
	pkt.AddItem(NewPacket(ClassUniversal, true, TagOctetString, r.DN))
	attrs := pkt.AddItem(NewPacket(ClassUniversal, false, TagSequence, nil))
	for _, at := range r.Attributes {
		p := attrs.AddItem(NewPacket(ClassUniversal, false, TagSequence, nil))
		p.AddItem(NewPacket(ClassUniversal, true, TagOctetString, at.Name))
		vals := p.AddItem(NewPacket(ClassUniversal, false, TagSet, nil))
		for _, v := range at.Values {
			vals.AddItem(NewPacket(ClassUniversal, true, TagOctetString, v))
		}
	}
	return writeRequest(w, msgID, pkt, r.Controls)
}
