package ldap

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// URLExtension is one extension of an LDAP URL per RFC 4516.
type URLExtension struct {
	Critical bool
	Name     string
	Value    string
}

// URL is a parsed LDAP URL per RFC 4516.
type URL struct {
	Scheme     string
	Host       string // host or host:port; empty means the default host
	DN         string
	Attrs      []string
	Scope      Scope
	Filter     string
	Extensions []URLExtension
}

var schemeNetworks = map[string]string{
	"ldap":  "tcp",
	"ldaps": "tcp",
	"ldapi": "unix",
	"cldap": "udp",
}

// Network returns the transport network for the URL's scheme.
func (u *URL) Network() (string, error) {
	n, ok := schemeNetworks[u.Scheme]
	if !ok {
		return "", errors.Errorf("ldap: unsupported URL scheme %q", u.Scheme)
	}
	return n, nil
}

// Address returns the dial address for the URL, applying the scheme's
// default port when none is given. For ldapi URLs the host component
// is the socket path.
func (u *URL) Address() (string, error) {
	switch u.Scheme {
	case "ldapi":
		if u.Host == "" {
			return "", errors.New("ldap: ldapi URL without socket path")
		}
		return u.Host, nil
	case "ldap", "cldap":
		return withDefaultPort(u.Host, "389"), nil
	case "ldaps":
		return withDefaultPort(u.Host, "636"), nil
	}
	return "", errors.Errorf("ldap: unsupported URL scheme %q", u.Scheme)
}

func withDefaultPort(host, port string) string {
	if host == "" {
		host = "localhost"
	}
	if i := strings.LastIndexByte(host, ':'); i >= 0 && i > strings.LastIndexByte(host, ']') {
		return host
	}
	return host + ":" + port
}

// ParseURL parses an LDAP URL of the form
//
//	scheme://host:port/dn?attrs?scope?filter?extensions
//
// per RFC 4516. Every component after the scheme and host is optional.
// Percent-encoded bytes are decoded in each component. ldapi URLs
// carry a percent-encoded socket path in the host part.
func ParseURL(s string) (*URL, error) {
	i := strings.Index(s, "://")
	if i < 0 {
		return nil, errors.Errorf("ldap: not an LDAP URL: %q", s)
	}
	u := &URL{
		Scheme: strings.ToLower(s[:i]),
		Scope:  ScopeBaseObject,
	}
	if _, ok := schemeNetworks[u.Scheme]; !ok {
		return nil, errors.Errorf("ldap: unsupported URL scheme %q", u.Scheme)
	}
	rest := s[i+3:]

	hostPart := rest
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		hostPart = rest[:j]
		rest = rest[j+1:]
	} else {
		rest = ""
	}
	host, err := url.PathUnescape(hostPart)
	if err != nil {
		return nil, errors.Wrap(err, "ldap: invalid host in URL")
	}
	u.Host = host

	fields := strings.SplitN(rest, "?", 5)
	if dn, err := url.PathUnescape(fields[0]); err != nil {
		return nil, errors.Wrap(err, "ldap: invalid DN in URL")
	} else {
		u.DN = dn
	}
	if len(fields) > 1 && fields[1] != "" {
		for _, a := range strings.Split(fields[1], ",") {
			a, err := url.PathUnescape(a)
			if err != nil {
				return nil, errors.Wrap(err, "ldap: invalid attribute in URL")
			}
			u.Attrs = append(u.Attrs, a)
		}
	}
	if len(fields) > 2 && fields[2] != "" {
		scope, err := parseScope(fields[2])
		if err != nil {
			return nil, err
		}
		u.Scope = scope
	}
	if len(fields) > 3 && fields[3] != "" {
		f, err := url.PathUnescape(fields[3])
		if err != nil {
			return nil, errors.Wrap(err, "ldap: invalid filter in URL")
		}
		u.Filter = f
	}
	if len(fields) > 4 && fields[4] != "" {
		for _, e := range strings.Split(fields[4], ",") {
			ext, err := parseURLExtension(e)
			if err != nil {
				return nil, err
			}
			u.Extensions = append(u.Extensions, ext)
		}
	}
	return u, nil
}

func parseScope(s string) (Scope, error) {
	switch strings.ToLower(s) {
	case "base":
		return ScopeBaseObject, nil
	case "one":
		return ScopeSingleLevel, nil
	case "sub":
		return ScopeWholeSubtree, nil
	case "subordinates", "children":
		return ScopeChildren, nil
	}
	return 0, errors.Errorf("ldap: invalid URL scope %q", s)
}

func parseURLExtension(s string) (URLExtension, error) {
	var ext URLExtension
	if strings.HasPrefix(s, "!") {
		ext.Critical = true
		s = s[1:]
	}
	name := s
	value := ""
	if i := strings.IndexByte(s, '='); i >= 0 {
		name = s[:i]
		value = s[i+1:]
	}
	var err error
	if ext.Name, err = url.PathUnescape(name); err != nil {
		return ext, errors.Wrap(err, "ldap: invalid URL extension")
	}
	if ext.Value, err = url.PathUnescape(value); err != nil {
		return ext, errors.Wrap(err, "ldap: invalid URL extension")
	}
	if ext.Name == "" {
		return ext, errors.New("ldap: empty URL extension name")
	}
	return ext, nil
}

// String reassembles the URL in RFC 4516 form.
func (u *URL) String() string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(url.PathEscape(u.Host))
	wrote := 0
	writeUpTo := func(n int) {
		if wrote == 0 {
			b.WriteByte('/')
			b.WriteString(escapeURLComponent(u.DN))
			wrote = 1
		}
		for wrote < n {
			b.WriteByte('?')
			wrote++
		}
	}
	if u.DN != "" {
		writeUpTo(1)
	}
	if len(u.Attrs) > 0 {
		writeUpTo(2)
		for i, a := range u.Attrs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escapeURLComponent(a))
		}
	}
	if u.Scope != ScopeBaseObject {
		writeUpTo(3)
		b.WriteString(scopeString(u.Scope))
	}
	if u.Filter != "" {
		writeUpTo(4)
		b.WriteString(escapeURLComponent(u.Filter))
	}
	if len(u.Extensions) > 0 {
		writeUpTo(5)
		for i, e := range u.Extensions {
			if i > 0 {
				b.WriteByte(',')
			}
			if e.Critical {
				b.WriteByte('!')
			}
			b.WriteString(escapeURLComponent(e.Name))
			if e.Value != "" {
				b.WriteByte('=')
				b.WriteString(escapeURLComponent(e.Value))
			}
		}
	}
	return b.String()
}

func scopeString(scope Scope) string {
	switch scope {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	case ScopeChildren:
		return "subordinates"
	}
	return strconv.Itoa(int(scope))
}

// escapeURLComponent percent-encodes the characters that delimit URL
// components, leaving filter and DN syntax otherwise readable.
func escapeURLComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '?' || c == ',' || c == '%' || c < 0x20 || c >= 0x80 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
