package ldap

import (
	"fmt"
	"strconv"
)

// ResultCode is an LDAP result code. Positive values are the RFC 4511
// codes plus vendor extensions; negative values are the client-library
// codes used for local failures (timeouts, encoding problems, ...).
type ResultCode int

const (
	ResultSuccess                      ResultCode = 0
	ResultOperationsError              ResultCode = 1
	ResultProtocolError                ResultCode = 2
	ResultTimeLimitExceeded            ResultCode = 3
	ResultSizeLimitExceeded            ResultCode = 4
	ResultCompareFalse                 ResultCode = 5
	ResultCompareTrue                  ResultCode = 6
	ResultAuthMethodNotSupported       ResultCode = 7
	ResultStrongAuthRequired           ResultCode = 8
	ResultPartialResults               ResultCode = 9
	ResultReferral                     ResultCode = 10
	ResultAdminLimitExceeded           ResultCode = 11
	ResultUnavailableCriticalExtension ResultCode = 12
	ResultConfidentialityRequired      ResultCode = 13
	ResultSaslBindInProgress           ResultCode = 14
	ResultNoSuchAttribute              ResultCode = 16
	ResultUndefinedAttributeType       ResultCode = 17
	ResultInappropriateMatching        ResultCode = 18
	ResultConstraintViolation          ResultCode = 19
	ResultAttributeOrValueExists       ResultCode = 20
	ResultInvalidAttributeSyntax       ResultCode = 21
	ResultNoSuchObject                 ResultCode = 32
	ResultAliasProblem                 ResultCode = 33
	ResultInvalidDNSyntax              ResultCode = 34
	ResultAliasDereferencingProblem    ResultCode = 36
	ResultInappropriateAuthentication  ResultCode = 48
	ResultInvalidCredentials           ResultCode = 49
	ResultInsufficientAccessRights     ResultCode = 50
	ResultBusy                         ResultCode = 51
	ResultUnavailable                  ResultCode = 52
	ResultUnwillingToPerform           ResultCode = 53
	ResultLoopDetect                   ResultCode = 54
	ResultNamingViolation              ResultCode = 64
	ResultObjectClassViolation         ResultCode = 65
	ResultNotAllowedOnNonLeaf          ResultCode = 66
	ResultNotAllowedOnRDN              ResultCode = 67
	ResultEntryAlreadyExists           ResultCode = 68
	ResultObjectClassModsProhibited    ResultCode = 69
	ResultResultsTooLarge              ResultCode = 70
	ResultAffectsMultipleDSAs          ResultCode = 71
	ResultVirtualListViewError         ResultCode = 76
	ResultOther                        ResultCode = 80

	ResultCanceled                   ResultCode = 118
	ResultNoSuchOperation            ResultCode = 119
	ResultTooLate                    ResultCode = 120
	ResultCannotCancel               ResultCode = 121
	ResultAssertionFailed            ResultCode = 122
	ResultProxiedAuthorizationDenied ResultCode = 123

	// Client-side codes, matching the values used by the C libraries.
	ResultServerDown            ResultCode = -1
	ResultLocalError            ResultCode = -2
	ResultEncodingError         ResultCode = -3
	ResultDecodingError         ResultCode = -4
	ResultTimeout               ResultCode = -5
	ResultAuthUnknown           ResultCode = -6
	ResultFilterError           ResultCode = -7
	ResultUserCancelled         ResultCode = -8
	ResultParamError            ResultCode = -9
	ResultNoMemory              ResultCode = -10
	ResultConnectError          ResultCode = -11
	ResultNotSupported          ResultCode = -12
	ResultControlNotFound       ResultCode = -13
	ResultNoResultsReturned     ResultCode = -14
	ResultMoreResultsToReturn   ResultCode = -15
	ResultClientLoop            ResultCode = -16
	ResultReferralLimitExceeded ResultCode = -17
)

// ResultCodeMap holds a human-readable description per known code.
// Codes with no entry are formatted as their bare number and treated as
// the generic kind. The table is a sparse map rather than a contiguous
// array so that gaps and vendor codes need no range bookkeeping.
var ResultCodeMap = map[ResultCode]string{
	ResultSuccess:                      "Success",
	ResultOperationsError:              "Operations Error",
	ResultProtocolError:                "Protocol Error",
	ResultTimeLimitExceeded:            "Time Limit Exceeded",
	ResultSizeLimitExceeded:            "Size Limit Exceeded",
	ResultCompareFalse:                 "Compare False",
	ResultCompareTrue:                  "Compare True",
	ResultAuthMethodNotSupported:       "Auth Method Not Supported",
	ResultStrongAuthRequired:           "Strong Auth Required",
	ResultPartialResults:               "Partial Results And Referral Received",
	ResultReferral:                     "Referral",
	ResultAdminLimitExceeded:           "Admin Limit Exceeded",
	ResultUnavailableCriticalExtension: "Unavailable Critical Extension",
	ResultConfidentialityRequired:      "Confidentiality Required",
	ResultSaslBindInProgress:           "Sasl Bind In Progress",
	ResultNoSuchAttribute:              "No Such Attribute",
	ResultUndefinedAttributeType:       "Undefined Attribute Type",
	ResultInappropriateMatching:        "Inappropriate Matching",
	ResultConstraintViolation:          "Constraint Violation",
	ResultAttributeOrValueExists:       "Attribute Or Value Exists",
	ResultInvalidAttributeSyntax:       "Invalid Attribute Syntax",
	ResultNoSuchObject:                 "No Such Object",
	ResultAliasProblem:                 "Alias Problem",
	ResultInvalidDNSyntax:              "Invalid DN Syntax",
	ResultAliasDereferencingProblem:    "Alias Dereferencing Problem",
	ResultInappropriateAuthentication:  "Inappropriate Authentication",
	ResultInvalidCredentials:           "Invalid Credentials",
	ResultInsufficientAccessRights:     "Insufficient Access Rights",
	ResultBusy:                         "Busy",
	ResultUnavailable:                  "Unavailable",
	ResultUnwillingToPerform:           "Unwilling To Perform",
	ResultLoopDetect:                   "Loop Detect",
	ResultNamingViolation:              "Naming Violation",
	ResultObjectClassViolation:         "Object Class Violation",
	ResultNotAllowedOnNonLeaf:          "Not Allowed On Non Leaf",
	ResultNotAllowedOnRDN:              "Not Allowed On RDN",
	ResultEntryAlreadyExists:           "Entry Already Exists",
	ResultObjectClassModsProhibited:    "Object Class Mods Prohibited",
	ResultResultsTooLarge:              "Results Too Large",
	ResultAffectsMultipleDSAs:          "Affects Multiple DSAs",
	ResultVirtualListViewError:         "Virtual List View Error",
	ResultOther:                        "Other",

	ResultCanceled:                   "Canceled",
	ResultNoSuchOperation:            "No Operation To Cancel",
	ResultTooLate:                    "Too Late To Cancel",
	ResultCannotCancel:               "Cannot Cancel",
	ResultAssertionFailed:            "Assertion Failed",
	ResultProxiedAuthorizationDenied: "Proxied Authorization Denied",

	ResultServerDown:            "Can't Contact LDAP Server",
	ResultLocalError:            "Local Error",
	ResultEncodingError:         "Encoding Error",
	ResultDecodingError:         "Decoding Error",
	ResultTimeout:               "Timed Out",
	ResultAuthUnknown:           "Unknown Authentication Method",
	ResultFilterError:           "Bad Search Filter",
	ResultUserCancelled:         "User Cancelled Operation",
	ResultParamError:            "Bad Parameter",
	ResultNoMemory:              "Out Of Memory",
	ResultConnectError:          "Connect Error",
	ResultNotSupported:          "Not Supported",
	ResultControlNotFound:       "Control Not Found",
	ResultNoResultsReturned:     "No Results Returned",
	ResultMoreResultsToReturn:   "More Results To Return",
	ResultClientLoop:            "Client Loop",
	ResultReferralLimitExceeded: "Referral Limit Exceeded",
}

func (c ResultCode) String() string {
	s := ResultCodeMap[c]
	if s == "" {
		s = strconv.Itoa(int(c))
	}
	return s
}

// TypeMismatchError reports a value of the wrong shape handed to an
// encoding function. It is always produced before anything is encoded
// or sent.
type TypeMismatchError struct {
	Role  string
	Value interface{}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("ldap: %s: unexpected value of type %T", e.Role, e.Value)
}

// ResultError is the structured form of every protocol-level failure.
// Every non-success result code surfaces as a ResultError; raw codes
// are never returned to callers.
type ResultError struct {
	Code        ResultCode
	Description string
	// Message is the server-supplied diagnostic message, except for
	// referral results where it is overwritten with the first referral
	// URI (see resultError).
	Message     string
	MatchedDN   string
	Referrals   []string
	Controls    []Control
	MessageID   int // -1 when unknown
	MessageType int // 0 when unknown
	// Err holds the underlying transport or system error, if any.
	Err error
}

func (e *ResultError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ldap: %s: %s", e.Description, e.Message)
	}
	return fmt.Sprintf("ldap: %s", e.Description)
}

func (e *ResultError) Unwrap() error {
	return e.Err
}

// IsGeneric reports whether the code had no dedicated taxonomy entry
// and the error is the catch-all kind carrying the raw code.
func (e *ResultError) IsGeneric() bool {
	_, ok := ResultCodeMap[e.Code]
	return !ok
}

// IsResultCode reports whether err is a ResultError with the given code.
func IsResultCode(err error, code ResultCode) bool {
	re, ok := err.(*ResultError)
	return ok && re.Code == code
}

// IsTimeout reports whether err is the poll-deadline error.
func IsTimeout(err error) bool {
	return IsResultCode(err, ResultTimeout)
}

// errFromCode builds the bare error for a result code with no message
// context available.
func errFromCode(code ResultCode) *ResultError {
	return &ResultError{
		Code:        code,
		Description: code.String(),
		MessageID:   -1,
	}
}

// resultError assembles the error for a terminal result message. When
// the code is Referral and at least one referral URI is present, the
// diagnostic message is replaced with "Referral:\n<first-uri>".
func resultError(code ResultCode, matched, message string, referrals []string, controls []Control, msgID, msgType int) *ResultError {
	if code == ResultReferral && len(referrals) > 0 {
		message = "Referral:\n" + referrals[0]
	}
	if controls == nil {
		controls = []Control{}
	}
	return &ResultError{
		Code:        code,
		Description: code.String(),
		Message:     message,
		MatchedDN:   matched,
		Referrals:   referrals,
		Controls:    controls,
		MessageID:   msgID,
		MessageType: msgType,
	}
}
