package ldap

import "io"

// BindRequest authenticates a connection. With an empty SASLMechanism
// it is a simple bind carrying Password; otherwise Password is ignored
// and the SASL credentials are sent.
type BindRequest struct {
	Version         int
	DN              string
	Password        []byte
	SASLMechanism   string
	SASLCredentials Berval
	Controls        []Control
}

type BindResponse struct {
	BaseResult
	// ServerSASLCredentials carries the server challenge during a SASL
	// exchange; absent for simple binds.
	ServerSASLCredentials Berval
}

func (r *BindRequest) WritePackets(w io.Writer, msgID int) error {
	ver := r.Version
	if ver == 0 {
		ver = protocolVersionDefault
	}
	pkt := NewPacket(ClassApplication, false, ApplicationBindRequest, nil)
	pkt.AddItem(NewPacket(ClassUniversal, true, TagInteger, ver))
	pkt.AddItem(NewPacket(ClassUniversal, true, TagOctetString, r.DN))
	if r.SASLMechanism == "" {
		pkt.AddItem(NewPacket(ClassContext, true, 0, r.Password))
	} else {
		sasl := pkt.AddItem(NewPacket(ClassContext, false, 3, nil))
		sasl.AddItem(NewPacket(ClassUniversal, true, TagOctetString, r.SASLMechanism))
		if !r.SASLCredentials.IsAbsent() {
			sasl.AddItem(NewPacket(ClassUniversal, true, TagOctetString, []byte(r.SASLCredentials)))
		}
	}
	return writeRequest(w, msgID, pkt, r.Controls)
}

func parseBindResponse(op *Packet) (*BindResponse, error) {
	res := &BindResponse{}
	if err := parseBaseResult(op, &res.BaseResult); err != nil {
		return nil, err
	}
	for _, it := range op.Items[3:] {
		if it.Class == ClassContext && it.Tag == 7 {
			creds, ok := it.Bytes()
			if !ok {
				return nil, ProtocolError("invalid serverSaslCreds in bind response")
			}
			res.ServerSASLCredentials = Berval(creds)
		}
	}
	return res, nil
}
