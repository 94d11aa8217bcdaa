package ldap

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Option identifies a session or global knob. The numeric values match
// the C API so code ported from other bindings keeps working.
type Option int

const (
	OptionDesc              Option = 0x0001
	OptionDeref             Option = 0x0002
	OptionSizeLimit         Option = 0x0003
	OptionTimeLimit         Option = 0x0004
	OptionReferrals         Option = 0x0008
	OptionRestart           Option = 0x0009
	OptionRefHopLimit       Option = 0x0010
	OptionProtocolVersion   Option = 0x0011
	OptionServerControls    Option = 0x0012
	OptionClientControls    Option = 0x0013
	OptionHostName          Option = 0x0030
	OptionResultCode        Option = 0x0031
	OptionDiagnosticMessage Option = 0x0032
	OptionMatchedDN         Option = 0x0033
	OptionDebugLevel        Option = 0x5001
	OptionTimeout           Option = 0x5002
	OptionNetworkTimeout    Option = 0x5005
	OptionURI               Option = 0x5006
)

type optionKind int

const (
	optBool optionKind = iota
	optInt
	optString
	optTimeval
	optControls
	optReadOnly
)

var optionKinds = map[Option]optionKind{
	OptionDesc:              optReadOnly,
	OptionDeref:             optInt,
	OptionSizeLimit:         optInt,
	OptionTimeLimit:         optInt,
	OptionReferrals:         optBool,
	OptionRestart:           optBool,
	OptionRefHopLimit:       optInt,
	OptionProtocolVersion:   optInt,
	OptionServerControls:    optControls,
	OptionClientControls:    optControls,
	OptionHostName:          optString,
	OptionResultCode:        optReadOnly,
	OptionDiagnosticMessage: optReadOnly,
	OptionMatchedDN:         optReadOnly,
	OptionDebugLevel:        optInt,
	OptionTimeout:           optTimeval,
	OptionNetworkTimeout:    optTimeval,
	OptionURI:               optString,
}

// ErrOptionReadOnly is returned by SetOption for options that only
// report state.
var ErrOptionReadOnly = errors.New("ldap: option is read-only")

func unknownOption(opt Option) error {
	re := errFromCode(ResultParamError)
	re.Message = "unknown option"
	re.Err = errors.Errorf("option 0x%04x", int(opt))
	return re
}

// timevalInfinite marks an unset timeval option. The C API expresses
// this as a NULL timeval or -1 seconds.
const timevalInfinite = time.Duration(-1)

// options holds the writable option state shared by the global
// registry and each connection. The mutex only guards this struct;
// it is never held across I/O.
type options struct {
	mu              sync.Mutex
	deref           int
	sizeLimit       int
	timeLimit       int
	refHopLimit     int
	protocolVersion int
	debugLevel      int
	referrals       bool
	restart         bool
	hostName        string
	uri             string
	timeout         time.Duration
	networkTimeout  time.Duration
	serverControls  []Control
	clientControls  []Control
}

func defaultOptions() *options {
	return &options{
		protocolVersion: protocolVersionDefault,
		referrals:       true,
		refHopLimit:     5,
		timeout:         timevalInfinite,
		networkTimeout:  timevalInfinite,
	}
}

// clone returns a copy suitable for seeding a new connection from the
// global defaults. Fields are copied one by one so the mutex is not.
func (o *options) clone() *options {
	o.mu.Lock()
	defer o.mu.Unlock()
	return &options{
		deref:           o.deref,
		sizeLimit:       o.sizeLimit,
		timeLimit:       o.timeLimit,
		refHopLimit:     o.refHopLimit,
		protocolVersion: o.protocolVersion,
		debugLevel:      o.debugLevel,
		referrals:       o.referrals,
		restart:         o.restart,
		hostName:        o.hostName,
		uri:             o.uri,
		timeout:         o.timeout,
		networkTimeout:  o.networkTimeout,
		serverControls:  append([]Control(nil), o.serverControls...),
		clientControls:  append([]Control(nil), o.clientControls...),
	}
}

// set validates and coerces value, then stores it. Coercion failures
// surface as *TypeMismatchError before any state changes.
func (o *options) set(opt Option, value interface{}) error {
	kind, ok := optionKinds[opt]
	if !ok {
		return unknownOption(opt)
	}
	switch kind {
	case optReadOnly:
		return ErrOptionReadOnly
	case optBool:
		v, err := coerceBool(value)
		if err != nil {
			return err
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		switch opt {
		case OptionReferrals:
			o.referrals = v
		case OptionRestart:
			o.restart = v
		}
	case optInt:
		v, err := coerceInt(value)
		if err != nil {
			return err
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		switch opt {
		case OptionDeref:
			o.deref = v
		case OptionSizeLimit:
			o.sizeLimit = v
		case OptionTimeLimit:
			o.timeLimit = v
		case OptionRefHopLimit:
			o.refHopLimit = v
		case OptionProtocolVersion:
			if v != 2 && v != 3 {
				re := errFromCode(ResultParamError)
				re.Message = "unsupported protocol version"
				return re
			}
			o.protocolVersion = v
		case OptionDebugLevel:
			o.debugLevel = v
			applyDebugLevel(v)
		}
	case optString:
		v, err := cast.ToStringE(value)
		if err != nil {
			return &TypeMismatchError{Role: "option value", Value: value}
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		switch opt {
		case OptionHostName:
			o.hostName = v
		case OptionURI:
			o.uri = v
		}
	case optTimeval:
		v, err := coerceTimeval(value)
		if err != nil {
			return err
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		switch opt {
		case OptionTimeout:
			o.timeout = v
		case OptionNetworkTimeout:
			o.networkTimeout = v
		}
	case optControls:
		var ctrls []Control
		switch v := value.(type) {
		case nil:
		case []Control:
			ctrls = append([]Control(nil), v...)
		case []interface{}:
			var err error
			if ctrls, err = ControlsFromObjects(v); err != nil {
				return err
			}
		default:
			return &TypeMismatchError{Role: "controls option value", Value: value}
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		switch opt {
		case OptionServerControls:
			o.serverControls = ctrls
		case OptionClientControls:
			o.clientControls = ctrls
		}
	}
	return nil
}

// get returns the stored value of a writable option. Read-only options
// are resolved by the caller, which owns the state they report.
func (o *options) get(opt Option) (interface{}, error) {
	if _, ok := optionKinds[opt]; !ok {
		return nil, unknownOption(opt)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	switch opt {
	case OptionDeref:
		return o.deref, nil
	case OptionSizeLimit:
		return o.sizeLimit, nil
	case OptionTimeLimit:
		return o.timeLimit, nil
	case OptionRefHopLimit:
		return o.refHopLimit, nil
	case OptionProtocolVersion:
		return o.protocolVersion, nil
	case OptionDebugLevel:
		return o.debugLevel, nil
	case OptionReferrals:
		return o.referrals, nil
	case OptionRestart:
		return o.restart, nil
	case OptionHostName:
		return o.hostName, nil
	case OptionURI:
		return o.uri, nil
	case OptionTimeout:
		return timevalObject(o.timeout), nil
	case OptionNetworkTimeout:
		return timevalObject(o.networkTimeout), nil
	case OptionServerControls:
		return append([]Control(nil), o.serverControls...), nil
	case OptionClientControls:
		return append([]Control(nil), o.clientControls...), nil
	}
	re := errFromCode(ResultParamError)
	re.Message = "option requires a connection"
	return nil, re
}

func coerceBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	}
	b, err := cast.ToBoolE(value)
	if err != nil {
		return false, &TypeMismatchError{Role: "option value", Value: value}
	}
	return b, nil
}

func coerceInt(value interface{}) (int, error) {
	if _, isBool := value.(bool); isBool {
		return 0, &TypeMismatchError{Role: "option value", Value: value}
	}
	v, err := cast.ToIntE(value)
	if err != nil {
		return 0, &TypeMismatchError{Role: "option value", Value: value}
	}
	return v, nil
}

// coerceTimeval accepts nil or a negative number for "no timeout",
// otherwise seconds as a float. Sub-microsecond precision is
// truncated, matching the C timeval.
func coerceTimeval(value interface{}) (time.Duration, error) {
	if value == nil {
		return timevalInfinite, nil
	}
	if d, ok := value.(time.Duration); ok {
		if d < 0 {
			return timevalInfinite, nil
		}
		return d.Truncate(time.Microsecond), nil
	}
	secs, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, &TypeMismatchError{Role: "timeout value", Value: value}
	}
	if secs < 0 {
		return timevalInfinite, nil
	}
	return time.Duration(secs * float64(time.Second)).Truncate(time.Microsecond), nil
}

// timevalObject converts a stored duration back to the float-seconds
// representation option readers expect; infinite reads back as nil.
func timevalObject(d time.Duration) interface{} {
	if d < 0 {
		return nil
	}
	return d.Seconds()
}

var globalOptions = defaultOptions()

// SetGlobalOption sets a process-wide default. New connections copy
// the global state at creation time.
func SetGlobalOption(opt Option, value interface{}) error {
	return globalOptions.set(opt, value)
}

// GlobalOption reads a process-wide default. Options that report
// per-connection state cannot be read globally.
func GlobalOption(opt Option) (interface{}, error) {
	if kind, ok := optionKinds[opt]; ok && kind == optReadOnly {
		re := errFromCode(ResultParamError)
		re.Message = "option requires a connection"
		return nil, re
	}
	return globalOptions.get(opt)
}
