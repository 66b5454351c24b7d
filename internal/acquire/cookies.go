package acquire

import (
	"fmt"
	"strings"
)

// SessionCookie is one browser cookie captured during session harvesting,
// carrying everything the acquisition tool's cookie-file format needs.
type SessionCookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  int64
	Secure   bool
	HTTPOnly bool
}

// serializeCookies renders cookies in the Netscape cookie-file format the
// acquisition tool expects. HttpOnly cookies get the conventional prefix so
// round-tripping tools preserve the flag.
func serializeCookies(cookies []SessionCookie) string {
	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	b.WriteString("# Generated for a single acquisition attempt; deleted afterwards.\n\n")

	for _, c := range cookies {
		domain := c.Domain
		includeSubdomains := "FALSE"
		if strings.HasPrefix(domain, ".") {
			includeSubdomains = "TRUE"
		}

		path := c.Path
		if path == "" {
			path = "/"
		}

		secure := "FALSE"
		if c.Secure {
			secure = "TRUE"
		}

		expires := c.Expires
		if expires < 0 {
			expires = 0
		}

		if c.HTTPOnly {
			domain = "#HttpOnly_" + domain
		}

		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain, includeSubdomains, path, secure, expires, c.Name, c.Value)
	}

	return b.String()
}
