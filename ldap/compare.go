package ldap

import "io"

// CompareRequest asks the server whether the entry named by DN carries
// Value for Attribute. The answer arrives as the CompareTrue or
// CompareFalse result code.
type CompareRequest struct {
	DN        string
	Attribute string
	Value     []byte
	Controls  []Control
}

type CompareResponse struct {
	BaseResult
}

// Matched reports the compare verdict.
func (r *CompareResponse) Matched() bool {
	return r.Code == ResultCompareTrue
}

func (r *CompareRequest) WritePackets(w io.Writer, msgID int) error {
	pkt := NewPacket(ClassApplication, false, ApplicationCompareRequest, nil)
	pkt.AddItem(NewPacket(ClassUniversal, true, TagOctetString, r.DN))
	ava := pkt.AddItem(NewPacket(ClassUniversal, false, TagSequence, nil))
	ava.AddItem(NewPacket(ClassUniversal, true, TagOctetString, r.Attribute))
	ava.AddItem(NewPacket(ClassUniversal, true, TagOctetString, r.Value))
	return writeRequest(w, msgID, pkt, r.Controls)
}
