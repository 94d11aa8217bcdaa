package ldap

import "io"

// Modification operation types per RFC 4511, plus the increment
// extension from RFC 4525.
const (
	ModAdd       = 0
	ModDelete    = 1
	ModReplace   = 2
	ModIncrement = 3
)

// Mod is one change of a modify request. Order is significant and is
// preserved on the wire.
type Mod struct {
	Op     int
	Name   string
	Values [][]byte
}

type ModifyRequest struct {
	DN       string
	Mods     []*Mod
	Controls []Control
}

type ModifyResponse struct {
	BaseResult
}

func (r *ModifyRequest) WritePackets(w io.Writer, msgID int) error {
	pkt := NewPacket(ClassApplication, false, ApplicationModifyRequest, nil)
	pkt.AddItem(NewPacket(ClassUniversal, true, TagOctetString, r.DN))
	changes := pkt.AddItem(NewPacket(ClassUniversal, false, TagSequence, nil))
	for _, m := range r.Mods {
		ch := changes.AddItem(NewPacket(ClassUniversal, false, TagSequence, nil))
		ch.AddItem(NewPacket(ClassUniversal, true, TagEnumerated, m.Op))
		pa := ch.AddItem(NewPacket(ClassUniversal, false, TagSequence, nil))
		pa.AddItem(NewPacket(ClassUniversal, true, TagOctetString, m.Name))
		vals := pa.AddItem(NewPacket(ClassUniversal, false, TagSet, nil))
		for _, v := range m.Values {
			vals.AddItem(NewPacket(ClassUniversal, true, TagOctetString, v))
		}
	}
	return writeRequest(w, msgID, pkt, r.Controls)
}
