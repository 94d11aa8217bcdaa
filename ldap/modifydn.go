package ldap

import "io"

type ModifyDNRequest struct {
	DN           string
	NewRDN       string
	DeleteOldRDN bool
	NewSuperior  string
	Controls     []Control
}

type ModifyDNResponse struct {
	BaseResult
}

func (r *ModifyDNRequest) WritePackets(w io.Writer, msgID int) error {
	pkt := NewPacket(ClassApplication, false, ApplicationModifyDNRequest, nil)
	pkt.AddItem(NewPacket(ClassUniversal, true, TagOctetString, r.DN))
	pkt.AddItem(NewPacket(ClassUniversal, true, TagOctetString, r.NewRDN))
	pkt.AddItem(NewPacket(ClassUniversal, true, TagBoolean, r.DeleteOldRDN))
	if r.NewSuperior != "" {
		pkt.AddItem(NewPacket(ClassContext, true, 0, r.NewSuperior))
	}
	return writeRequest(w, msgID, pkt, r.Controls)
}
