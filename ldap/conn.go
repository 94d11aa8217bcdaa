package ldap

import (
	"bufio"
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrConnectionInvalid is returned by every operation on a connection
// that was unbound or torn down.
var ErrConnectionInvalid = errors.New("ldap: LDAP connection invalid")

// ErrAlreadyTLS is returned when trying to start a TLS connection when the connection is already using TLS
var ErrAlreadyTLS = errors.New("ldap: connection already using TLS")

// OIDNoticeOfDisconnection is the unsolicited notification a server
// sends before dropping the connection.
const OIDNoticeOfDisconnection = "1.3.6.1.4.1.1466.20036"

// MessageAny makes Result return the next response for any
// outstanding message.
const MessageAny = -1

// pendingOp queues the responses received for one outstanding message
// until the caller collects them with Result. partial holds entries
// already accumulated by a collection that timed out, so the next call
// resumes instead of losing them.
type pendingOp struct {
	queue   []*envelope
	partial *Result
}

// Conn is a client connection to a directory server. Operations are
// asynchronous: each Send* method writes the request and returns its
// message ID, and Result collects the responses. The internal mutex
// only guards bookkeeping state and is never held across network I/O.
type Conn struct {
	opts  *options
	msgID uint32
	cn    net.Conn
	wr    *bufio.Writer
	isTLS bool

	// sendMu serializes request writers.
	sendMu sync.Mutex

	mu             sync.Mutex
	cond           *sync.Cond
	valid          bool
	readErr        error
	pending        map[int]*pendingOp
	lastCode       ResultCode
	lastMatchedDN  string
	lastMessage    string
	waitNextRecvCh chan chan struct{}
}

// NewConn returns an initialized connection using the provided
// transport. The transport is owned by the Conn and must not be used
// after this call. Option state is copied from the global defaults.
func NewConn(cn net.Conn, isTLS bool) *Conn {
	c := &Conn{
		opts:           globalOptions.clone(),
		cn:             cn,
		wr:             bufio.NewWriter(cn),
		isTLS:          isTLS,
		valid:          true,
		pending:        make(map[int]*pendingOp),
		waitNextRecvCh: make(chan chan struct{}, 1),
	}
	c.cond = sync.NewCond(&c.mu)
	go c.readLoop()
	return c
}

// Dial connects to a server that is not using TLS.
func Dial(network, address string) (*Conn, error) {
	cn, err := net.Dial(network, address)
	if err != nil {
		return nil, connectError(err)
	}
	return NewConn(cn, false), nil
}

// DialTLS connects to a server that is using TLS.
func DialTLS(network, address string, config *tls.Config) (*Conn, error) {
	cn, err := tls.Dial(network, address, config)
	if err != nil {
		return nil, connectError(err)
	}
	return NewConn(cn, true), nil
}

// Initialize opens a connection to the server named by an LDAP URL.
// The scheme picks the transport: ldap and ldaps dial TCP, ldapi
// dials the Unix socket named by the host part, cldap dials UDP. Any
// other scheme fails before dialing. The global network timeout
// option bounds the dial.
func Initialize(uri string) (*Conn, error) {
	u, err := ParseURL(uri)
	if err != nil {
		return nil, err
	}
	network, err := u.Network()
	if err != nil {
		return nil, err
	}
	address, err := u.Address()
	if err != nil {
		return nil, err
	}
	var timeout time.Duration
	if v, err := GlobalOption(OptionNetworkTimeout); err == nil && v != nil {
		timeout = time.Duration(v.(float64) * float64(time.Second))
	}
	cn, err := net.DialTimeout(network, address, timeout)
	if err != nil {
		return nil, connectError(err)
	}
	if u.Scheme == "ldaps" {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			host = address
		}
		tlsCn := tls.Client(cn, &tls.Config{ServerName: host})
		if err := tlsCn.Handshake(); err != nil {
			cn.Close()
			return nil, connectError(err)
		}
		return NewConn(tlsCn, true), nil
	}
	return NewConn(cn, false), nil
}

func connectError(err error) error {
	re := errFromCode(ResultConnectError)
	re.Err = err
	return re
}

func serverDown(err error) error {
	re := errFromCode(ResultServerDown)
	re.Err = err
	return re
}

func (c *Conn) readLoop() {
	for {
		pkt, _, err := ReadPacket(c.cn)
		if err != nil {
			c.fail(err)
			return
		}
		tracePacket("recv", pkt)
		env, err := parseEnvelope(pkt)
		if err != nil {
			c.fail(err)
			return
		}
		if env.msgID == 0 {
			if c.handleUnsolicited(env) {
				return
			}
		} else {
			c.mu.Lock()
			if op := c.pending[env.msgID]; op != nil {
				op.queue = append(op.queue, env)
				c.cond.Broadcast()
			} else {
				logger.WithField("msgid", env.msgID).Debug("response for unknown message ID")
			}
			c.mu.Unlock()
		}

		select {
		case ch := <-c.waitNextRecvCh:
			<-ch
		default:
		}
	}
}

// handleUnsolicited processes a message ID 0 notification. It reports
// whether the read loop should stop.
func (c *Conn) handleUnsolicited(env *envelope) bool {
	res, err := parseExtendedResponse(env.op)
	if err != nil {
		c.fail(err)
		return true
	}
	logger.WithFields(logrus.Fields{"oid": res.Name, "code": int(res.Code)}).Debug("unsolicited notification")
	if res.Name == OIDNoticeOfDisconnection {
		c.fail(resultError(res.Code, res.MatchedDN, res.Message, res.Referrals, env.controls, 0, ApplicationExtendedResponse))
		return true
	}
	return false
}

// fail invalidates the connection, wakes every waiter and tears down
// the transport.
func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.valid {
		c.valid = false
		c.readErr = err
	}
	c.cond.Broadcast()
	c.mu.Unlock()
	c.cn.Close()
}

func (c *Conn) newID() int {
	return int(atomic.AddUint32(&c.msgID, 1))
}

// Send writes a request and returns its message ID. Responses are
// collected with Result.
func (c *Conn) Send(req Request) (int, error) {
	c.mu.Lock()
	if !c.valid {
		c.mu.Unlock()
		return 0, ErrConnectionInvalid
	}
	id := c.newID()
	c.pending[id] = &pendingOp{}
	c.mu.Unlock()

	c.sendMu.Lock()
	err := req.WritePackets(c.wr, id)
	if err == nil {
		err = c.wr.Flush()
	}
	c.sendMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		if _, ok := err.(*ResultError); ok {
			return 0, err
		}
		return 0, serverDown(err)
	}
	return id, nil
}

// Result holds the collected responses for one message: the final
// result fields, plus any search entries and continuation references
// that arrived before it.
type Result struct {
	MessageID int
	// Type is the application tag of the last absorbed response.
	Type            int
	Code            ResultCode
	MatchedDN       string
	Message         string
	Referrals       []string
	Controls        []Control
	Entries         []*SearchResult
	References      [][]string
	Intermediates   []*IntermediateResponse
	Name            string
	Value           Berval
	SASLCredentials Berval
}

// Err maps the result onto the error taxonomy. Success, the compare
// verdicts and an in-progress SASL exchange are not errors.
func (r *Result) Err() error {
	switch r.Code {
	case ResultSuccess, ResultCompareTrue, ResultCompareFalse, ResultSaslBindInProgress:
		return nil
	}
	return resultError(r.Code, r.MatchedDN, r.Message, r.Referrals, r.Controls, r.MessageID, r.Type)
}

// Result collects responses for msgID, or for any outstanding message
// when msgID is MessageAny. With all set it accumulates search entries
// and references until the final response. A zero timeout polls: when
// the answer is not already buffered it returns (nil, nil). A negative
// timeout blocks indefinitely. When the timeout elapses first, the
// operation is left outstanding, entries already received are kept for
// the next collection, and a Timed Out error is returned.
// A non-success final result surfaces as a *ResultError.
func (c *Conn) Result(msgID int, all bool, timeout time.Duration) (*Result, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		t := time.AfterFunc(timeout, func() {
			c.mu.Lock()
			c.cond.Broadcast()
			c.mu.Unlock()
		})
		defer t.Stop()
	}
	res := &Result{MessageID: msgID, Code: ResultSuccess}

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		id, op, err := c.lookupLocked(msgID)
		if err != nil {
			return nil, err
		}
		if op != nil && len(op.queue) > 0 {
			if timeout == 0 && all && !queueHasFinal(op) {
				return nil, nil
			}
			if all && op.partial != nil {
				res = op.partial
				op.partial = nil
			}
			env := op.queue[0]
			op.queue = op.queue[1:]
			// pin a wildcard to the first message consumed
			msgID = env.msgID
			res.MessageID = env.msgID
			final, err := absorb(res, env)
			if err != nil {
				delete(c.pending, id)
				return nil, err
			}
			if final {
				delete(c.pending, id)
				c.lastCode = res.Code
				c.lastMatchedDN = res.MatchedDN
				c.lastMessage = res.Message
				if err := res.Err(); err != nil {
					return nil, err
				}
				return res, nil
			}
			if !all {
				return res, nil
			}
			continue
		}
		if !c.valid {
			if c.readErr == nil {
				return nil, ErrConnectionInvalid
			}
			return nil, serverDown(c.readErr)
		}
		if timeout == 0 {
			return nil, nil
		}
		if timeout > 0 && !time.Now().Before(deadline) {
			if all && op != nil && (len(res.Entries) > 0 || len(res.References) > 0 || len(res.Intermediates) > 0) {
				op.partial = res
			}
			return nil, errFromCode(ResultTimeout)
		}
		c.cond.Wait()
	}
}

// lookupLocked resolves msgID to its pending op, preferring one with
// buffered responses when the caller asked for any message.
func (c *Conn) lookupLocked(msgID int) (int, *pendingOp, error) {
	if msgID == MessageAny {
		if len(c.pending) == 0 {
			re := errFromCode(ResultParamError)
			re.Message = "no outstanding operation"
			return 0, nil, re
		}
		for id, op := range c.pending {
			if len(op.queue) > 0 {
				return id, op, nil
			}
		}
		return 0, nil, nil
	}
	op := c.pending[msgID]
	if op == nil {
		re := errFromCode(ResultParamError)
		re.Message = "no outstanding operation for message ID"
		return 0, nil, re
	}
	return msgID, op, nil
}

func queueHasFinal(op *pendingOp) bool {
	for _, env := range op.queue {
		switch env.op.Tag {
		case ApplicationSearchResultEntry, ApplicationSearchResultReference, ApplicationIntermediateResponse:
		default:
			return true
		}
	}
	return false
}

// absorb folds one response message into res and reports whether it
// was the final response for the operation.
func absorb(res *Result, env *envelope) (bool, error) {
	res.Type = env.op.Tag
	switch env.op.Tag {
	case ApplicationSearchResultEntry:
		e, err := parseSearchResultEntry(env.op)
		if err != nil {
			return false, err
		}
		e.Controls = env.controls
		res.Entries = append(res.Entries, e)
		return false, nil
	case ApplicationSearchResultReference:
		uris, err := parseSearchResultReference(env.op)
		if err != nil {
			return false, err
		}
		res.References = append(res.References, uris)
		return false, nil
	case ApplicationIntermediateResponse:
		ir, err := parseIntermediateResponse(env.op)
		if err != nil {
			return false, err
		}
		ir.Controls = env.controls
		res.Intermediates = append(res.Intermediates, ir)
		return false, nil
	case ApplicationBindResponse:
		r, err := parseBindResponse(env.op)
		if err != nil {
			return false, err
		}
		setBase(res, &r.BaseResult, env)
		res.SASLCredentials = r.ServerSASLCredentials
		return true, nil
	case ApplicationExtendedResponse:
		r, err := parseExtendedResponse(env.op)
		if err != nil {
			return false, err
		}
		setBase(res, &r.BaseResult, env)
		res.Name = r.Name
		res.Value = r.Value
		return true, nil
	case ApplicationSearchResultDone, ApplicationAddResponse, ApplicationDelResponse,
		ApplicationModifyResponse, ApplicationModifyDNResponse, ApplicationCompareResponse:
		var base BaseResult
		if err := parseBaseResult(env.op, &base); err != nil {
			return false, err
		}
		setBase(res, &base, env)
		return true, nil
	}
	return false, UnsupportedRequestTagError(env.op.Tag)
}

func setBase(res *Result, base *BaseResult, env *envelope) {
	res.Code = base.Code
	res.MatchedDN = base.MatchedDN
	res.Message = base.Message
	res.Referrals = base.Referrals
	res.Controls = env.controls
}

// timeout returns the session poll timeout for synchronous wrappers.
func (c *Conn) timeout() time.Duration {
	c.opts.mu.Lock()
	defer c.opts.mu.Unlock()
	return c.opts.timeout
}

// sessionControls prepends the session server controls set via
// OptionServerControls to the per-request controls.
func (c *Conn) sessionControls(ctrls []Control) []Control {
	c.opts.mu.Lock()
	session := c.opts.serverControls
	c.opts.mu.Unlock()
	if len(session) == 0 {
		return ctrls
	}
	return append(append([]Control(nil), session...), ctrls...)
}

// SetOption sets a session option.
func (c *Conn) SetOption(opt Option, value interface{}) error {
	return c.opts.set(opt, value)
}

// Option reads a session option. The read-only options report the
// components of the last final result seen on the connection.
func (c *Conn) Option(opt Option) (interface{}, error) {
	switch opt {
	case OptionResultCode:
		c.mu.Lock()
		defer c.mu.Unlock()
		return int(c.lastCode), nil
	case OptionDiagnosticMessage:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.lastMessage, nil
	case OptionMatchedDN:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.lastMatchedDN, nil
	case OptionDesc:
		re := errFromCode(ResultNotSupported)
		re.Message = "file descriptors are not exposed"
		return nil, re
	}
	return c.opts.get(opt)
}

// SimpleBind starts a simple bind and returns its message ID.
func (c *Conn) SimpleBind(dn string, password []byte, ctrls []Control) (int, error) {
	c.opts.mu.Lock()
	version := c.opts.protocolVersion
	c.opts.mu.Unlock()
	id, err := c.Send(&BindRequest{
		Version:  version,
		DN:       dn,
		Password: password,
		Controls: c.sessionControls(ctrls),
	})
	if err != nil {
		return 0, err
	}
	traceRequest("bind", id, logrus.Fields{"dn": dn})
	return id, nil
}

// SearchExt starts a search and returns its message ID. Zero request
// limits are filled from the session options.
func (c *Conn) SearchExt(req *SearchRequest) (int, error) {
	c.opts.mu.Lock()
	if req.SizeLimit == 0 {
		req.SizeLimit = c.opts.sizeLimit
	}
	if req.TimeLimit == 0 {
		req.TimeLimit = c.opts.timeLimit
	}
	if req.DerefAliases == NeverDerefAliases {
		req.DerefAliases = DerefAliases(c.opts.deref)
	}
	c.opts.mu.Unlock()
	req.Controls = c.sessionControls(req.Controls)
	id, err := c.Send(req)
	if err != nil {
		return 0, err
	}
	traceRequest("search", id, logrus.Fields{"base": req.BaseDN, "scope": req.Scope.String()})
	return id, nil
}

// AddExt starts an add operation and returns its message ID.
func (c *Conn) AddExt(req *AddRequest) (int, error) {
	req.Controls = c.sessionControls(req.Controls)
	id, err := c.Send(req)
	if err != nil {
		return 0, err
	}
	traceRequest("add", id, logrus.Fields{"dn": req.DN})
	return id, nil
}

// DeleteExt starts a delete operation and returns its message ID.
func (c *Conn) DeleteExt(dn string, ctrls []Control) (int, error) {
	id, err := c.Send(&DeleteRequest{DN: dn, Controls: c.sessionControls(ctrls)})
	if err != nil {
		return 0, err
	}
	traceRequest("delete", id, logrus.Fields{"dn": dn})
	return id, nil
}

// ModifyExt starts a modify operation and returns its message ID.
func (c *Conn) ModifyExt(req *ModifyRequest) (int, error) {
	req.Controls = c.sessionControls(req.Controls)
	id, err := c.Send(req)
	if err != nil {
		return 0, err
	}
	traceRequest("modify", id, logrus.Fields{"dn": req.DN})
	return id, nil
}

// RenameExt starts a modify DN operation and returns its message ID.
func (c *Conn) RenameExt(req *ModifyDNRequest) (int, error) {
	req.Controls = c.sessionControls(req.Controls)
	id, err := c.Send(req)
	if err != nil {
		return 0, err
	}
	traceRequest("modifydn", id, logrus.Fields{"dn": req.DN, "newrdn": req.NewRDN})
	return id, nil
}

// CompareExt starts a compare operation and returns its message ID.
func (c *Conn) CompareExt(req *CompareRequest) (int, error) {
	req.Controls = c.sessionControls(req.Controls)
	id, err := c.Send(req)
	if err != nil {
		return 0, err
	}
	traceRequest("compare", id, logrus.Fields{"dn": req.DN, "attribute": req.Attribute})
	return id, nil
}

// ExtendedOp starts an extended operation and returns its message ID.
func (c *Conn) ExtendedOp(name string, value Berval, ctrls []Control) (int, error) {
	id, err := c.Send(&ExtendedRequest{Name: name, Value: value, Controls: c.sessionControls(ctrls)})
	if err != nil {
		return 0, err
	}
	traceRequest("extended", id, logrus.Fields{"oid": name})
	return id, nil
}

// Abandon tells the server to stop processing msgID and drops any of
// its responses still buffered or yet to arrive. Late responses are
// discarded silently.
func (c *Conn) Abandon(msgID int) error {
	c.mu.Lock()
	if !c.valid {
		c.mu.Unlock()
		return ErrConnectionInvalid
	}
	delete(c.pending, msgID)
	c.mu.Unlock()

	id := c.newID()
	c.sendMu.Lock()
	err := (&AbandonRequest{MessageID: msgID}).WritePackets(c.wr, id)
	if err == nil {
		err = c.wr.Flush()
	}
	c.sendMu.Unlock()
	if err != nil {
		return serverDown(err)
	}
	traceRequest("abandon", id, logrus.Fields{"abandoned": msgID})
	return nil
}

// Unbind invalidates the connection, notifies the server and closes
// the transport. Calling it on an already invalid connection is a
// no-op.
func (c *Conn) Unbind() error {
	c.mu.Lock()
	if !c.valid {
		c.mu.Unlock()
		return nil
	}
	c.valid = false
	c.cond.Broadcast()
	c.mu.Unlock()

	id := c.newID()
	c.sendMu.Lock()
	err := (&UnbindRequest{}).WritePackets(c.wr, id)
	if err == nil {
		err = c.wr.Flush()
	}
	c.sendMu.Unlock()
	cerr := c.cn.Close()
	if err != nil {
		return serverDown(err)
	}
	return cerr
}

// Close tears down the connection without notifying the server.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.valid = false
	c.cond.Broadcast()
	c.mu.Unlock()
	return c.cn.Close()
}

// Bind authenticates using the provided dn and password and waits for
// the response.
func (c *Conn) Bind(dn string, password []byte) error {
	id, err := c.SimpleBind(dn, password, nil)
	if err != nil {
		return err
	}
	_, err = c.Result(id, true, c.timeout())
	return err
}

// SASLInteractiveBind authenticates with a SASL mechanism, driving the
// challenge loop until the mechanism and the server both finish. A
// mechanism failure surfaces as an operations error.
func (c *Conn) SASLInteractiveBind(client SASLClient, ctrls []Control) error {
	creds, done, err := client.Start()
	if err != nil {
		return saslError(err)
	}
	c.opts.mu.Lock()
	version := c.opts.protocolVersion
	c.opts.mu.Unlock()
	for {
		id, err := c.Send(&BindRequest{
			Version:         version,
			SASLMechanism:   client.Mechanism(),
			SASLCredentials: Berval(creds),
			Controls:        c.sessionControls(ctrls),
		})
		if err != nil {
			return err
		}
		res, err := c.Result(id, true, c.timeout())
		if err != nil {
			return err
		}
		if res.Code == ResultSuccess {
			return nil
		}
		// SASL bind in progress
		if done {
			return saslError(errors.New("server expects another round after mechanism completed"))
		}
		creds, done, err = client.Step([]byte(res.SASLCredentials))
		if err != nil {
			return saslError(err)
		}
	}
}

// Search runs a search and waits for all results.
func (c *Conn) Search(req *SearchRequest) ([]*SearchResult, error) {
	id, err := c.SearchExt(req)
	if err != nil {
		return nil, err
	}
	res, err := c.Result(id, true, c.timeout())
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// Add creates an entry and waits for the response.
func (c *Conn) Add(req *AddRequest) error {
	id, err := c.AddExt(req)
	if err != nil {
		return err
	}
	_, err = c.Result(id, true, c.timeout())
	return err
}

// Delete removes an entry and waits for the response.
func (c *Conn) Delete(dn string) error {
	id, err := c.DeleteExt(dn, nil)
	if err != nil {
		return err
	}
	_, err = c.Result(id, true, c.timeout())
	return err
}

// Modify applies changes to an entry and waits for the response.
func (c *Conn) Modify(dn string, mods []*Mod) error {
	id, err := c.ModifyExt(&ModifyRequest{DN: dn, Mods: mods})
	if err != nil {
		return err
	}
	_, err = c.Result(id, true, c.timeout())
	return err
}

// Rename moves or renames an entry and waits for the response.
func (c *Conn) Rename(req *ModifyDNRequest) error {
	id, err := c.RenameExt(req)
	if err != nil {
		return err
	}
	_, err = c.Result(id, true, c.timeout())
	return err
}

// Compare reports whether the entry carries the attribute value.
func (c *Conn) Compare(dn, attribute string, value []byte) (bool, error) {
	id, err := c.CompareExt(&CompareRequest{DN: dn, Attribute: attribute, Value: value})
	if err != nil {
		return false, err
	}
	res, err := c.Result(id, true, c.timeout())
	if err != nil {
		return false, err
	}
	return res.Code == ResultCompareTrue, nil
}

// WhoAmI returns the authzId for the authenticated user on the connection.
// https://tools.ietf.org/html/rfc4532
func (c *Conn) WhoAmI() (string, error) {
	id, err := c.ExtendedOp(OIDWhoAmI, nil, nil)
	if err != nil {
		return "", err
	}
	res, err := c.Result(id, true, c.timeout())
	if err != nil {
		return "", err
	}
	if len(res.Value) == 0 {
		return "anonymous", nil
	}
	return string(res.Value), nil
}

// PasswordModify changes a password per RFC 3062 and returns the
// server-generated password when one was requested.
func (c *Conn) PasswordModify(userIdentity string, oldPassword, newPassword []byte) ([]byte, error) {
	value, err := EncodePasswordModifyValue(userIdentity, oldPassword, newPassword)
	if err != nil {
		return nil, err
	}
	id, err := c.ExtendedOp(OIDPasswordModify, value, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.Result(id, true, c.timeout())
	if err != nil {
		return nil, err
	}
	return DecodePasswordModifyValue(res.Value)
}

// Cancel asks the server to cancel an outstanding operation per RFC
// 3909 and drops its buffered responses.
func (c *Conn) Cancel(msgID int) error {
	value, err := EncodeCancelValue(msgID)
	if err != nil {
		return err
	}
	id, err := c.ExtendedOp(OIDCancel, value, nil)
	if err != nil {
		return err
	}
	_, err = c.Result(id, true, c.timeout())
	c.mu.Lock()
	delete(c.pending, msgID)
	c.mu.Unlock()
	return err
}

// StartTLS upgrades the connection to TLS. It must not be called
// concurrently with other requests.
func (c *Conn) StartTLS(config *tls.Config) error {
	if c.isTLS {
		return ErrAlreadyTLS
	}
	// Pause the read loop after the next packet, which is the
	// StartTLS response. The channel is buffered so resume never
	// blocks when the read loop already exited.
	ch := make(chan struct{}, 1)
	select {
	case c.waitNextRecvCh <- ch:
	default:
		// an earlier pause request was never consumed; the read
		// loop is gone
		return ErrConnectionInvalid
	}
	resume := func() { ch <- struct{}{} }

	id, err := c.ExtendedOp(OIDStartTLS, nil, nil)
	if err != nil {
		resume()
		return err
	}
	if _, err := c.Result(id, true, c.timeout()); err != nil {
		resume()
		return err
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	tlsCn := tls.Client(c.cn, config)
	if err := tlsCn.Handshake(); err != nil {
		resume()
		c.fail(err)
		return serverDown(err)
	}
	c.cn = tlsCn
	c.wr.Reset(c.cn)
	c.isTLS = true
	resume()
	return nil
}
