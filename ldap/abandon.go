package ldap

import "io"

// AbandonRequest tells the server to stop working on a message. It has
// no response; any results already in flight are dropped client-side.
type AbandonRequest struct {
	MessageID int
	Controls  []Control
}

type UnbindRequest struct {
	Controls []Control
}

func (r *AbandonRequest) WritePackets(w io.Writer, msgID int) error {
	pkt := NewPacket(ClassApplication, true, ApplicationAbandonRequest, r.MessageID)
	return writeRequest(w, msgID, pkt, r.Controls)
}

func (r *UnbindRequest) WritePackets(w io.Writer, msgID int) error {
	pkt := NewPacket(ClassApplication, true, ApplicationUnbindRequest, []byte{})
	return writeRequest(w, msgID, pkt, r.Controls)
}
