package download

import "strings"

const upperhex = "0123456789ABCDEF"

// ContentDisposition returns the Content-Disposition value for a download
// named name. An empty name yields a bare "attachment". Otherwise the name
// is sent as an RFC 5987 extended value in which only ALPHA, DIGIT and
// "-._~" are left literal; every other UTF-8 octet is percent-encoded.
func ContentDisposition(name string) string {
	if name == "" {
		return "attachment"
	}

	const prefix = "attachment; filename*=UTF-8''"

	var b strings.Builder
	b.Grow(len(prefix) + 3*len(name))
	b.WriteString(prefix)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
