package ldap

import "testing"

func TestParseFilter(t *testing.T) {
	cases := []string{
		"(present=*)",
		"(less<=123)",
		"(greater>=123)",
		"(approx~=abc)",
		"(!(not=123))",
		"(&(abc=123)(easy<=hard))",
		"(|(abc=123)(easy<=hard))",
		"(escaped=\\28\\29)",
		"(substr=prefix*mid1*mid2*suffix)",
		"(prefix=prefix*)",
		"(suffix=*suffix)",
		"(middle=*middle*)",
		"(cn:caseExactMatch:=Fred)",
		"(sn:dn:2.4.6.8.10:=Barney)",
		"(:1.2.3:=wilma)",
	}
	for _, c := range cases {
		if f, err := ParseFilter(c); err != nil {
			t.Errorf("Failed to parse '%s': %s", c, err.Error())
		} else if f.String() != c {
			t.Errorf("Parse filter '%s' != '%s'", c, f.String())
		}
	}
}

func TestFilterEncoding(t *testing.T) {
	cases := []Filter{
		&Present{
			Attribute: "attr",
		},
		&GreaterOrEqual{
			Attribute: "foo",
			Value:     []byte("bar"),
		},
		&LessOrEqual{
			Attribute: "foo",
			Value:     []byte("bar"),
		},
		&ApproxMatch{
			Attribute: "foo",
			Value:     []byte{1, 2, 3},
		},
		&NOT{Filter: &EqualityMatch{
			Attribute: "abc",
			Value:     []byte("123"),
		}},
		&AND{
			Filters: []Filter{&EqualityMatch{
				Attribute: "abc",
				Value:     []byte("123"),
			}},
		},
		&OR{
			Filters: []Filter{&EqualityMatch{
				Attribute: "or",
				Value:     []byte("123"),
			}},
		},
		&Substrings{
			Attribute: "attr",
			Initial:   "init",
			Final:     "final",
			Any:       []string{"one", "two"},
		},
		&ExtensibleMatch{
			MatchingRule: "caseExactMatch",
			Attribute:    "cn",
			Value:        []byte("Fred"),
		},
		&ExtensibleMatch{
			Attribute:    "sn",
			Value:        []byte("Barney"),
			DNAttributes: true,
		},
	}
	for _, c := range cases {
		pkt, err := c.Encode()
		if err != nil {
			t.Fatal(err)
		}
		f, err := parseSearchFilter(pkt)
		if err != nil {
			t.Fatal(err)
		}
		if c.String() != f.String() {
			t.Errorf("'%s' != '%s'", f.String(), c.String())
		}
	}
}

func TestParseFilterRejectsTrailingGarbage(t *testing.T) {
	if _, err := ParseFilter("(a=b)(c=d)"); err == nil {
		t.Error("expected error for trailing garbage")
	}
}

func TestParseFilterList(t *testing.T) {
	fs, err := ParseFilterList("(a=b)")
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 1 {
		t.Fatalf("expected 1 filter, got %d", len(fs))
	}

	fs, err = ParseFilterList("((a=b)(c>=d))")
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(fs))
	}
	if fs[0].String() != "(a=b)" || fs[1].String() != "(c>=d)" {
		t.Errorf("unexpected filters %s %s", fs[0], fs[1])
	}
}
