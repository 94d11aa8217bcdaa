package ldap

import (
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

type Scope int

const (
	ScopeBaseObject   Scope = 0
	ScopeSingleLevel  Scope = 1
	ScopeWholeSubtree Scope = 2
	ScopeChildren     Scope = 3 // used by ldapsearch/ldaptools (-s children) but not part of the standard
)

var ScopeMap = map[Scope]string{
	ScopeBaseObject:   "Base Object",
	ScopeSingleLevel:  "Single Level",
	ScopeWholeSubtree: "Whole Subtree",
	ScopeChildren:     "Children",
}

func (sc Scope) String() string {
	if s := ScopeMap[sc]; s != "" {
		return s
	}
	return strconv.Itoa(int(sc))
}

type DerefAliases int

const (
	NeverDerefAliases   DerefAliases = 0
	DerefInSearching    DerefAliases = 1
	DerefFindingBaseObj DerefAliases = 2
	DerefAlways         DerefAliases = 3
)

var DerefMap = map[DerefAliases]string{
	NeverDerefAliases:   "NeverDerefAliases",
	DerefInSearching:    "DerefInSearching",
	DerefFindingBaseObj: "DerefFindingBaseObj",
	DerefAlways:         "DerefAlways",
}

func (d DerefAliases) String() string {
	if s := DerefMap[d]; s != "" {
		return s
	}
	return strconv.Itoa(int(d))
}

type SearchRequest struct {
	BaseDN       string
	Scope        Scope
	DerefAliases DerefAliases
	SizeLimit    int
	TimeLimit    int
	TypesOnly    bool
	Filter       Filter
	// Attributes to return, in request order. Empty means all user
	// attributes.
	Attributes []string
	Controls   []Control
}

// SearchResult is one returned entry with its attributes and any
// per-entry response controls.
type SearchResult struct {
	DN         string
	Attributes map[string][][]byte
	Controls   []Control
}

func IsPrintable(v []byte) bool {
	for i := 0; i < len(v); {
		r, s := utf8.DecodeRune(v[i:])
		if r == utf8.RuneError || r < 32 {
			return false
		}
		i += s
	}
	return true
}

func (r *SearchResult) ToLDIF(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "dn: %s\n", r.DN); err != nil {
		return err
	}
	for name, values := range r.Attributes {
		for _, v := range values {
			if IsPrintable(v) {
				if _, err := fmt.Fprintf(w, "%s: %s\n", name, string(v)); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprintf(w, "%s:: %s\n", name, base64.StdEncoding.EncodeToString(v)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *SearchRequest) WritePackets(w io.Writer, msgID int) error {
	pkt := NewPacket(ClassApplication, false, ApplicationSearchRequest, nil)
	pkt.AddItem(NewPacket(ClassUniversal, true, TagOctetString, r.BaseDN))
	pkt.AddItem(NewPacket(ClassUniversal, true, TagEnumerated, int(r.Scope)))
	pkt.AddItem(NewPacket(ClassUniversal, true, TagEnumerated, int(r.DerefAliases)))
	pkt.AddItem(NewPacket(ClassUniversal, true, TagInteger, r.SizeLimit))
	pkt.AddItem(NewPacket(ClassUniversal, true, TagInteger, r.TimeLimit))
	pkt.AddItem(NewPacket(ClassUniversal, true, TagBoolean, r.TypesOnly))
	if r.Filter == nil {
		r.Filter = &Present{Attribute: "objectClass"}
	}
	p, err := r.Filter.Encode()
	if err != nil {
		return err
	}
	pkt.AddItem(p)
	p = pkt.AddItem(NewPacket(ClassUniversal, false, TagSequence, nil))
	for _, a := range r.Attributes {
		p.AddItem(NewPacket(ClassUniversal, true, TagOctetString, a))
	}
	return writeRequest(w, msgID, pkt, r.Controls)
}

func parseSearchResultEntry(op *Packet) (*SearchResult, error) {
	if len(op.Items) != 2 {
		return nil, ProtocolError("search result entry should have 2 items")
	}
	var ok bool
	res := &SearchResult{}
	res.DN, ok = op.Items[0].Str()
	if !ok {
		return nil, ProtocolError("failed to parse dn for search result entry")
	}
	res.Attributes = make(map[string][][]byte)
	for _, p := range op.Items[1].Items {
		if len(p.Items) != 2 {
			return nil, ProtocolError("search result entry attribute should have 2 items")
		}
		name, ok := p.Items[0].Str()
		if !ok {
			return nil, ProtocolError("failed to parse attribute name in search result entry")
		}
		vals := [][]byte{}
		for _, p2 := range p.Items[1].Items {
			value, ok := p2.Bytes()
			if !ok {
				return nil, ProtocolError("failed to parse attribute value in search result entry")
			}
			vals = append(vals, value)
		}
		res.Attributes[name] = vals
	}
	return res, nil
}

// parseSearchResultReference parses a continuation reference: one or
// more URIs naming other servers to continue the search at.
func parseSearchResultReference(op *Packet) ([]string, error) {
	if len(op.Items) == 0 {
		return nil, ProtocolError("empty search result reference")
	}
	uris := make([]string, 0, len(op.Items))
	for _, it := range op.Items {
		uri, ok := it.Str()
		if !ok {
			return nil, ProtocolError("failed to parse URI in search result reference")
		}
		uris = append(uris, uri)
	}
	return uris, nil
}
