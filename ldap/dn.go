package ldap

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AVA encoding flags, matching the values used by the C library so
// parsed trees can be compared across implementations.
const (
	AVANull         = 0x0
	AVAString       = 0x1 // value was in escaped string form
	AVABinary       = 0x2 // value was in #hexpair BER form
	AVANonPrintable = 0x4 // string value contains control bytes
)

// AVA is one attribute type and value assertion of an RDN. Flags
// records how the value was encoded on input so serialization can
// reproduce the escaping rules.
type AVA struct {
	Type  string
	Value string
	Flags int
}

// RDN is an ordered set of one or more AVAs. Multi-valued RDNs are
// legal and their order is preserved for round-trip equality.
type RDN []AVA

// DN is an ordered sequence of RDNs, outermost (leaf) first.
type DN []RDN

// DNFlags selects the DN string syntax and parsing strictness.
type DNFlags int

const (
	DNFormatLDAPv3      DNFlags = 0x0010
	DNFormatLDAPv2      DNFlags = 0x0020
	DNFormatDCE         DNFlags = 0x0030
	DNFormatUFN         DNFlags = 0x0040
	DNFormatADCanonical DNFlags = 0x0050
	DNFormatMask        DNFlags = 0x00F0

	// DNPretty lower-cases attribute types on output. It never rewrites
	// attribute values beyond the format's escaping rules.
	DNPretty DNFlags = 0x0100
	// DNPedantic rejects the whitespace laxness that the default
	// lenient mode skips over.
	DNPedantic DNFlags = 0x0200
)

func invalidDN(pos int, msg string) error {
	re := errFromCode(ResultInvalidDNSyntax)
	re.Message = fmt.Sprintf("at position %d: %s", pos, msg)
	return re
}

// ParseDN parses a distinguished name string into its AVA tree.
// The zero flags value selects lenient RFC 4514 (LDAPv3) parsing.
// LDAPv2 additionally accepts ';' RDN separators and quoted values;
// DCE parses the '/'-separated root-first form. UFN and AD-canonical
// are output-only formats and are rejected here with a parameter
// error, as in ldap_str2dn(3).
//
// An empty input yields an empty DN and no error. This deviates from
// the wrapped C parser on purpose; the empty DN names the root DSE.
func ParseDN(s string, flags DNFlags) (DN, error) {
	format := flags & DNFormatMask
	if format == 0 {
		format = DNFormatLDAPv3
	}
	switch format {
	case DNFormatLDAPv3, DNFormatLDAPv2, DNFormatDCE:
	default:
		return nil, errFromCode(ResultParamError)
	}
	if s == "" {
		return DN{}, nil
	}
	p := &dnParser{
		s:        s,
		v2:       format == DNFormatLDAPv2,
		dce:      format == DNFormatDCE,
		pedantic: flags&DNPedantic != 0,
	}
	if p.dce {
		return p.parseDCE()
	}
	return p.parse()
}

type dnParser struct {
	s        string
	i        int
	v2       bool
	dce      bool
	pedantic bool
}

func (p *dnParser) eof() bool {
	return p.i >= len(p.s)
}

func (p *dnParser) peek() byte {
	return p.s[p.i]
}

func (p *dnParser) skipSpaces() error {
	start := p.i
	for !p.eof() && p.peek() == ' ' {
		p.i++
	}
	if p.pedantic && p.i != start {
		return invalidDN(start, "unexpected whitespace")
	}
	return nil
}

func (p *dnParser) isRDNSeparator(c byte) bool {
	return c == ',' || (p.v2 && c == ';')
}

func (p *dnParser) parse() (DN, error) {
	dn := DN{}
	for {
		rdn, err := p.parseRDN(p.isRDNSeparator)
		if err != nil {
			return nil, err
		}
		dn = append(dn, rdn)
		if p.eof() {
			return dn, nil
		}
		// parseRDN stops on a separator
		p.i++
		if p.eof() {
			return nil, invalidDN(p.i, "trailing RDN separator")
		}
	}
}

func (p *dnParser) parseDCE() (DN, error) {
	if p.peek() != '/' {
		return nil, invalidDN(0, "DCE DN must start with /")
	}
	p.i++
	var dn DN
	sep := func(c byte) bool { return c == '/' }
	for {
		rdn, err := p.parseRDN(sep)
		if err != nil {
			return nil, err
		}
		dn = append(dn, rdn)
		if p.eof() {
			break
		}
		p.i++
		if p.eof() {
			return nil, invalidDN(p.i, "trailing RDN separator")
		}
	}
	// DCE is written root first; flip to the LDAP leaf-first order.
	for i, j := 0, len(dn)-1; i < j; i, j = i+1, j-1 {
		dn[i], dn[j] = dn[j], dn[i]
	}
	return dn, nil
}

// parseRDN consumes AVAs joined by '+' (',' for DCE) and leaves the
// cursor on the RDN separator or at end of input.
func (p *dnParser) parseRDN(isSep func(byte) bool) (RDN, error) {
	avaSep := byte('+')
	if p.dce {
		avaSep = ','
	}
	var rdn RDN
	for {
		ava, err := p.parseAVA(isSep, avaSep)
		if err != nil {
			return nil, err
		}
		rdn = append(rdn, ava)
		if p.eof() || isSep(p.peek()) {
			return rdn, nil
		}
		// the only other stop is the AVA separator
		p.i++
		if p.eof() {
			return nil, invalidDN(p.i, "trailing AVA separator")
		}
	}
}

func (p *dnParser) parseAVA(isSep func(byte) bool, avaSep byte) (AVA, error) {
	var ava AVA
	if err := p.skipSpaces(); err != nil {
		return ava, err
	}
	typ, err := p.parseAttributeType()
	if err != nil {
		return ava, err
	}
	ava.Type = typ
	if err := p.skipSpaces(); err != nil {
		return ava, err
	}
	if p.eof() || p.peek() != '=' {
		return ava, invalidDN(p.i, "expected =")
	}
	p.i++
	if err := p.skipSpaces(); err != nil {
		return ava, err
	}
	if !p.eof() && p.peek() == '#' {
		p.i++
		v, err := p.parseHexValue(isSep, avaSep)
		if err != nil {
			return ava, err
		}
		ava.Value = v
		ava.Flags = AVABinary
		return ava, nil
	}
	if p.v2 && !p.eof() && p.peek() == '"' {
		v, err := p.parseQuotedValue()
		if err != nil {
			return ava, err
		}
		ava.Value = v
		ava.Flags = stringFlags(v)
		return ava, nil
	}
	v, err := p.parseStringValue(isSep, avaSep)
	if err != nil {
		return ava, err
	}
	ava.Value = v
	ava.Flags = stringFlags(v)
	return ava, nil
}

// stringFlags marks values carrying bytes the string formats must
// escape as \XX: controls, DEL and anything outside ASCII.
func stringFlags(v string) int {
	flags := AVAString
	for i := 0; i < len(v); i++ {
		if v[i] < 0x20 || v[i] >= 0x7f {
			flags |= AVANonPrintable
			break
		}
	}
	return flags
}

func (p *dnParser) parseAttributeType() (string, error) {
	start := p.i
	if p.eof() {
		return "", invalidDN(p.i, "empty attribute type")
	}
	c := p.peek()
	switch {
	case c >= '0' && c <= '9':
		// numeric OID
		for !p.eof() {
			c := p.peek()
			if (c >= '0' && c <= '9') || c == '.' {
				p.i++
				continue
			}
			break
		}
	case isAlpha(c):
		for !p.eof() {
			c := p.peek()
			if isAlpha(c) || (c >= '0' && c <= '9') || c == '-' {
				p.i++
				continue
			}
			break
		}
	default:
		return "", invalidDN(p.i, "invalid attribute type")
	}
	return p.s[start:p.i], nil
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (p *dnParser) parseHexValue(isSep func(byte) bool, avaSep byte) (string, error) {
	start := p.i
	for !p.eof() && isHexDigit(p.peek()) {
		p.i++
	}
	hx := p.s[start:p.i]
	if len(hx) == 0 || len(hx)%2 != 0 {
		return "", invalidDN(start, "invalid hex string value")
	}
	if !p.eof() && !isSep(p.peek()) && p.peek() != avaSep && p.peek() != ' ' {
		return "", invalidDN(p.i, "garbage after hex string value")
	}
	if err := p.skipSpaces(); err != nil {
		return "", err
	}
	raw, err := hex.DecodeString(hx)
	if err != nil {
		return "", invalidDN(start, "invalid hex string value")
	}
	return string(raw), nil
}

func (p *dnParser) parseQuotedValue() (string, error) {
	p.i++ // opening quote
	var out []byte
	for {
		if p.eof() {
			return "", invalidDN(p.i, "unterminated quoted value")
		}
		c := p.peek()
		p.i++
		switch c {
		case '"':
			if err := p.skipSpaces(); err != nil {
				return "", err
			}
			return string(out), nil
		case '\\':
			b, err := p.parseEscape()
			if err != nil {
				return "", err
			}
			out = append(out, b)
		default:
			out = append(out, c)
		}
	}
}

func (p *dnParser) parseStringValue(isSep func(byte) bool, avaSep byte) (string, error) {
	var out []byte
	trailingSpaces := 0
	for !p.eof() {
		c := p.peek()
		if isSep(c) || c == avaSep {
			break
		}
		p.i++
		if c == '\\' {
			b, err := p.parseEscape()
			if err != nil {
				return "", err
			}
			out = append(out, b)
			trailingSpaces = 0
			continue
		}
		if c == '"' || c == '<' || c == '>' || c == ';' {
			return "", invalidDN(p.i-1, "unescaped special character")
		}
		out = append(out, c)
		if c == ' ' {
			trailingSpaces++
		} else {
			trailingSpaces = 0
		}
	}
	// Unescaped trailing spaces are not part of the value. The lenient
	// mode drops them; pedantic mode rejects them.
	if trailingSpaces > 0 {
		if p.pedantic {
			return "", invalidDN(p.i, "unescaped trailing space")
		}
		out = out[:len(out)-trailingSpaces]
	}
	return string(out), nil
}

func (p *dnParser) parseEscape() (byte, error) {
	if p.eof() {
		return 0, invalidDN(p.i, "truncated escape")
	}
	c := p.peek()
	if isHexDigit(c) {
		if p.i+1 >= len(p.s) || !isHexDigit(p.s[p.i+1]) {
			return 0, invalidDN(p.i, "truncated hex escape")
		}
		b, err := hex.DecodeString(p.s[p.i : p.i+2])
		if err != nil {
			return 0, invalidDN(p.i, "invalid hex escape")
		}
		p.i += 2
		return b[0], nil
	}
	switch c {
	case ' ', '#', '=', '"', '+', ',', ';', '<', '>', '\\', '/':
		p.i++
		return c, nil
	}
	return 0, invalidDN(p.i, "invalid escape")
}

// FormatDN serializes an AVA tree back into a DN string. The zero
// flags value produces the canonical RFC 4514 (LDAPv3) escaped form:
// re-serializing a parsed DN yields a string that parses back to an
// equal tree, though not necessarily the original bytes (whitespace
// between components is normalized away). Supported formats are
// LDAPv3, LDAPv2, DCE, UFN and AD-canonical.
func FormatDN(dn DN, flags DNFlags) (string, error) {
	format := flags & DNFormatMask
	if format == 0 {
		format = DNFormatLDAPv3
	}
	pretty := flags&DNPretty != 0
	switch format {
	case DNFormatLDAPv3, DNFormatLDAPv2:
		return formatLDAP(dn, format == DNFormatLDAPv2, pretty)
	case DNFormatDCE:
		return formatDCE(dn, pretty)
	case DNFormatUFN:
		return formatUFN(dn)
	case DNFormatADCanonical:
		return formatADCanonical(dn)
	}
	return "", errFromCode(ResultParamError)
}

func encodingFailed(rdnIdx, avaIdx int, msg string) error {
	re := errFromCode(ResultEncodingError)
	re.Message = fmt.Sprintf("rdn %d ava %d: %s", rdnIdx, avaIdx, msg)
	return re
}

func checkAVA(a AVA, rdnIdx, avaIdx int) error {
	if a.Type == "" {
		return encodingFailed(rdnIdx, avaIdx, "empty attribute type")
	}
	c := a.Type[0]
	if !isAlpha(c) && !(c >= '0' && c <= '9') {
		return encodingFailed(rdnIdx, avaIdx, "invalid attribute type")
	}
	for i := 1; i < len(a.Type); i++ {
		c := a.Type[i]
		if !isAlpha(c) && !(c >= '0' && c <= '9') && c != '-' && c != '.' {
			return encodingFailed(rdnIdx, avaIdx, "invalid attribute type")
		}
	}
	if a.Flags&AVABinary != 0 && a.Flags&AVAString != 0 {
		return encodingFailed(rdnIdx, avaIdx, "conflicting encoding flags")
	}
	return nil
}

func formatAVAType(a AVA, pretty bool) string {
	if pretty {
		return strings.ToLower(a.Type)
	}
	return a.Type
}

func formatLDAP(dn DN, v2, pretty bool) (string, error) {
	var b strings.Builder
	for i, rdn := range dn {
		if i > 0 {
			b.WriteByte(',')
		}
		for j, ava := range rdn {
			if j > 0 {
				b.WriteByte('+')
			}
			if err := checkAVA(ava, i, j); err != nil {
				return "", err
			}
			b.WriteString(formatAVAType(ava, pretty))
			b.WriteByte('=')
			if ava.Flags&AVABinary != 0 {
				b.WriteByte('#')
				b.WriteString(hex.EncodeToString([]byte(ava.Value)))
			} else if v2 && strings.ContainsAny(ava.Value, `,+;"<>=`) {
				b.WriteByte('"')
				b.WriteString(strings.ReplaceAll(strings.ReplaceAll(ava.Value, `\`, `\\`), `"`, `\"`))
				b.WriteByte('"')
			} else {
				b.WriteString(EscapeDNChars(ava.Value))
			}
		}
	}
	return b.String(), nil
}

func formatDCE(dn DN, pretty bool) (string, error) {
	var b strings.Builder
	for i := len(dn) - 1; i >= 0; i-- {
		b.WriteByte('/')
		for j, ava := range dn[i] {
			if j > 0 {
				b.WriteByte(',')
			}
			if err := checkAVA(ava, i, j); err != nil {
				return "", err
			}
			b.WriteString(formatAVAType(ava, pretty))
			b.WriteByte('=')
			if ava.Flags&AVABinary != 0 {
				b.WriteByte('#')
				b.WriteString(hex.EncodeToString([]byte(ava.Value)))
			} else {
				b.WriteString(escapeDCEValue(ava.Value))
			}
		}
	}
	return b.String(), nil
}

func escapeDCEValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '/' || c == ',' || c == '=' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func formatUFN(dn DN) (string, error) {
	parts := make([]string, 0, len(dn))
	for i, rdn := range dn {
		vals := make([]string, 0, len(rdn))
		for j, ava := range rdn {
			if err := checkAVA(ava, i, j); err != nil {
				return "", err
			}
			vals = append(vals, ava.Value)
		}
		parts = append(parts, strings.Join(vals, " + "))
	}
	return strings.Join(parts, ", "), nil
}

func formatADCanonical(dn DN) (string, error) {
	var domain []string
	var path []string
	for i, rdn := range dn {
		for j := range rdn {
			if err := checkAVA(rdn[j], i, j); err != nil {
				return "", err
			}
		}
		if len(rdn) == 1 && strings.EqualFold(rdn[0].Type, "dc") {
			domain = append(domain, rdn[0].Value)
			continue
		}
		// leaf-first in the DN, path is root-first
		path = append([]string{strings.Join(rdnValues(rdn), "+")}, path...)
	}
	var b strings.Builder
	b.WriteString(strings.Join(domain, "."))
	for _, p := range path {
		b.WriteByte('/')
		b.WriteString(p)
	}
	return b.String(), nil
}

func rdnValues(rdn RDN) []string {
	vals := make([]string, len(rdn))
	for i, ava := range rdn {
		vals[i] = ava.Value
	}
	return vals
}

// EscapeDNChars escapes a DN attribute value per RFC 4514 section 2.4:
// the specials ,+"\<>; and =, a leading space or '#', a trailing
// space, and control or non-ASCII bytes as \XX hex pairs. ParseDN's
// unescaping is the symmetric inverse.
func EscapeDNChars(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ',' || c == '+' || c == '"' || c == '\\' || c == '<' || c == '>' || c == ';' || c == '=':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 || c == 0x7f || c >= 0x80:
			fmt.Fprintf(&b, "\\%02x", c)
		case c == ' ' && (i == 0 || i == len(s)-1):
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '#' && i == 0:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ExplodeDN splits a DN string into its RDN strings. With noTypes only
// the attribute values are kept.
func ExplodeDN(s string, noTypes bool, flags DNFlags) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	dn, err := ParseDN(s, flags)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(dn))
	for _, rdn := range dn {
		parts := make([]string, 0, len(rdn))
		for _, ava := range rdn {
			if noTypes {
				parts = append(parts, EscapeDNChars(ava.Value))
			} else {
				parts = append(parts, ava.Type+"="+EscapeDNChars(ava.Value))
			}
		}
		out = append(out, strings.Join(parts, "+"))
	}
	return out, nil
}

// ExplodeRDN splits a (possibly multi-valued) RDN string into its AVA
// strings.
func ExplodeRDN(s string, noTypes bool, flags DNFlags) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	dn, err := ParseDN(s, flags)
	if err != nil {
		return nil, err
	}
	if len(dn) == 0 {
		return []string{}, nil
	}
	out := make([]string, 0, len(dn[0]))
	for _, ava := range dn[0] {
		if noTypes {
			out = append(out, EscapeDNChars(ava.Value))
		} else {
			out = append(out, ava.Type+"="+EscapeDNChars(ava.Value))
		}
	}
	return out, nil
}

// IsDN reports whether s parses as a distinguished name.
func IsDN(s string, flags DNFlags) bool {
	_, err := ParseDN(s, flags)
	return err == nil
}
