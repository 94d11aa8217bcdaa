package ldap

import (
	"github.com/pkg/errors"
)

// SASLClient drives the client side of a SASL mechanism. Start
// produces the optional initial response; Step answers a server
// challenge. done stops the exchange once the mechanism has nothing
// further to send.
type SASLClient interface {
	Mechanism() string
	Start() (initial []byte, done bool, err error)
	Step(challenge []byte) (response []byte, done bool, err error)
}

// SASLPlain implements the PLAIN mechanism (RFC 4616).
type SASLPlain struct {
	AuthorizationID  string
	AuthenticationID string
	Password         string
}

func (p *SASLPlain) Mechanism() string { return "PLAIN" }

func (p *SASLPlain) Start() ([]byte, bool, error) {
	if p.AuthenticationID == "" {
		return nil, false, errors.New("ldap: PLAIN requires an authentication identity")
	}
	msg := make([]byte, 0, len(p.AuthorizationID)+len(p.AuthenticationID)+len(p.Password)+2)
	msg = append(msg, p.AuthorizationID...)
	msg = append(msg, 0)
	msg = append(msg, p.AuthenticationID...)
	msg = append(msg, 0)
	msg = append(msg, p.Password...)
	return msg, true, nil
}

func (p *SASLPlain) Step(challenge []byte) ([]byte, bool, error) {
	return nil, true, errors.New("ldap: unexpected challenge for PLAIN")
}

// SASLExternal implements the EXTERNAL mechanism (RFC 4422 appendix A):
// authentication is taken from the lower layer, typically a TLS client
// certificate or the peer credentials of a Unix socket.
type SASLExternal struct {
	AuthorizationID string
}

func (e *SASLExternal) Mechanism() string { return "EXTERNAL" }

func (e *SASLExternal) Start() ([]byte, bool, error) {
	return []byte(e.AuthorizationID), true, nil
}

func (e *SASLExternal) Step(challenge []byte) ([]byte, bool, error) {
	return nil, true, errors.New("ldap: unexpected challenge for EXTERNAL")
}

// saslError wraps a mechanism callback failure in the operations-error
// taxonomy entry so it is distinguishable from server-signaled codes.
func saslError(err error) error {
	re := errFromCode(ResultOperationsError)
	re.Message = "SASL mechanism failure"
	re.Err = err
	return re
}
