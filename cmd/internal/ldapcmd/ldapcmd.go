package ldapcmd

import (
	"crypto/tls"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/howeyc/gopass"

	"github.com/dirwire/ldap/ldap"
)

var (
	flagBindDN     = flag.String("D", "", "bind DN")
	flagBindPass   = flag.String("w", "", "bind password (for simple authentication)")
	flagHost       = flag.String("h", "127.0.0.1", "LDAP server")
	flagInsecure   = flag.Bool("insecure", false, "Don't validate server certificate")
	flagPort       = flag.Int("p", 389, "port on LDAP server")
	flagPromptPass = flag.Bool("W", false, "prompt for bind password")
	flagSimpleAuth = flag.Bool("x", false, "Simple authentication")
	flagStartTLS   = flag.Bool("Z", false, "Start TLS request (-ZZ to require successful response)") // TODO: implement ZZ
	flagURI        = flag.String("H", "", "LDAP Uniform Resource Identifier(s)")
	flagDebug      = flag.Int("d", 0, "debug level")
)

// Connect connects to the LDAP server. flag.Parse must
// have been called first.
func Connect() (*ldap.Conn, error) {
	uri := *flagURI
	if uri == "" {
		addr := *flagHost
		if strings.IndexByte(addr, ':') < 0 {
			addr += ":" + strconv.Itoa(*flagPort)
		}
		uri = "ldap://" + addr
	}
	u, err := ldap.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URI %s: %w", uri, err)
	}
	if *flagDebug > 0 {
		if err := ldap.SetGlobalOption(ldap.OptionDebugLevel, *flagDebug); err != nil {
			return nil, err
		}
	}

	var cli *ldap.Conn
	if u.Scheme == "ldaps" {
		network, err := u.Network()
		if err != nil {
			return nil, err
		}
		addr, err := u.Address()
		if err != nil {
			return nil, err
		}
		cli, err = ldap.DialTLS(network, addr, &tls.Config{
			InsecureSkipVerify: *flagInsecure,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
	} else {
		cli, err = ldap.Initialize(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
	}

	if u.Scheme == "ldap" && *flagStartTLS {
		err := cli.StartTLS(&tls.Config{
			InsecureSkipVerify: *flagInsecure,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to StartTLS: %w", err)
		}
	}

	if *flagSimpleAuth {
		var pass []byte
		if *flagPromptPass {
			fmt.Printf("Enter LDAP Password: ")
			pass, err = gopass.GetPasswd()
			if err != nil {
				return nil, fmt.Errorf("getpasswd failed: %w", err)
			}
		} else {
			pass = []byte(*flagBindPass)
		}
		if err := cli.Bind(*flagBindDN, pass); err != nil {
			return nil, fmt.Errorf("bind failed: %w", err)
		}
	}

	return cli, nil
}
