package ldap

import "io"

type DeleteRequest struct {
	DN       string
	Controls []Control
}

type DeleteResponse struct {
	BaseResult
}

func (r *DeleteRequest) WritePackets(w io.Writer, msgID int) error {
	pkt := NewPacket(ClassApplication, true, ApplicationDelRequest, r.DN)
	return writeRequest(w, msgID, pkt, r.Controls)
}
