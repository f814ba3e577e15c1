package script

import "bytes"

// lineScanner walks one source line. The buffer always keeps a free byte in front of
// the cursor so that shorthand operators can be rewritten in place by growing the
// current token one byte to the left.
type lineScanner struct {
	buf []byte
	pos int
}

func newLineScanner(text string) *lineScanner {
	buf := make([]byte, 0, len(text)+1)
	buf = append(buf, ' ')
	buf = append(buf, text...)
	return &lineScanner{buf: buf, pos: 1}
}

func (s *lineScanner) at(i int) byte {
	if p := s.pos + i; p >= 0 && p < len(s.buf) {
		return s.buf[p]
	}
	return 0
}

// blankAt reports whether the byte at offset i ends a token.
func (s *lineScanner) blankAt(i int) bool {
	c := s.at(i)
	return c == 0 || isBlank(c)
}

func (s *lineScanner) skipBlanks() {
	for s.pos < len(s.buf) && isBlank(s.buf[s.pos]) {
		s.pos++
	}
}

func (s *lineScanner) atEnd() bool {
	rest := s.buf[s.pos:]
	return len(rest) == 0 || bytes.HasPrefix(rest, []byte("%%")) || bytes.HasPrefix(rest, []byte("//"))
}

// mark turns the operator at the cursor into a condition operator by writing '?' in front of it.
func (s *lineScanner) mark() bool {
	s.pos--
	s.buf[s.pos] = '?'
	return true
}

// sigil rewrites ">>%x", "<<%x", "++%x" and "--%x" into "$>>:x" and friends.
func (s *lineScanner) sigil() bool {
	c := s.at(0)
	if s.at(1) != c || s.at(2) != '%' {
		return false
	}
	s.buf[s.pos+2] = ':'
	s.pos--
	s.buf[s.pos] = '$'
	return true
}

// preparse normalizes the token at the cursor. It returns false if the token is malformed.
func (s *lineScanner) preparse() bool {
	s.skipBlanks()
	if s.atEnd() {
		s.buf = s.buf[:s.pos]
		return true
	}
	c := s.at(0)
	switch c {
	case ',', '`', '(', '[', ')', ']', ';', '_':
		return false
	case '=':
		if s.blankAt(1) || (s.at(1) == '=' && s.blankAt(2)) {
			return s.mark()
		}
		return false
	case '$':
		if s.blankAt(1) {
			return s.mark()
		}
		return true
	case '?', '~':
		if s.blankAt(1) {
			return s.mark()
		}
		return false
	case '>':
		if s.sigil() {
			return true
		}
		if s.blankAt(1) || (s.at(1) == '=' && s.blankAt(2)) {
			return s.mark()
		}
		return false
	case '<':
		if s.sigil() {
			return true
		}
		if s.blankAt(1) || ((s.at(1) == '=' || s.at(1) == '>') && s.blankAt(2)) {
			return s.mark()
		}
		return false
	case '!':
		switch s.at(1) {
		case '=', '?', '$', '~':
			if s.blankAt(2) {
				return s.mark()
			}
			return false
		}
		return isAlnum(s.at(1))
	case '&':
		if s.at(1) == '&' && s.blankAt(2) {
			return s.mark()
		}
		if isAlnum(s.at(1)) {
			s.buf[s.pos] = '%'
			return true
		}
		return false
	case '|':
		if s.at(1) == '|' && s.blankAt(2) {
			return s.mark()
		}
		return false
	case '+':
		if s.sigil() {
			return true
		}
		if isDigit(s.at(1)) || s.at(1) == '.' {
			s.pos++
			return true
		}
		return s.blankAt(1) || (s.at(1) == '=' && s.blankAt(2))
	case '-':
		if s.sigil() {
			return true
		}
		if isAlnum(s.at(1)) || s.at(1) == '.' {
			return true
		}
		return s.blankAt(1) || (s.at(1) == '=' && s.blankAt(2))
	case '*', '/':
		return s.blankAt(1) || (s.at(1) == '=' && s.blankAt(2))
	case '.':
		return isDigit(s.at(1))
	case ':':
		if s.at(1) == '=' && s.blankAt(2) {
			return true
		}
		return isAlnum(s.at(1))
	case '\'', '"', '{':
		s.buf[s.pos-1] = c
		s.buf[s.pos] = '&'
		s.pos--
		return true
	}
	return s.scan()
}

// scan splits compact "name=value" forms into a standalone "=name" token followed by the value.
func (s *lineScanner) scan() bool {
	ep := s.pos
	for ep < len(s.buf) && isName(s.buf[ep]) {
		ep++
	}
	if ep == s.pos || ep >= len(s.buf) || s.buf[ep] != '=' {
		return true
	}
	s.buf[ep] = ' '
	s.pos--
	s.buf[s.pos] = '='
	return true
}

func isName(c byte) bool {
	return isAlnum(c) || c == ':' || c == '.'
}

func quoteCloser(c byte) byte {
	switch c {
	case '\'', '"':
		return c
	case '{':
		return '}'
	}
	return 0
}

// token returns the next blank separated token. Quoted and braced tokens are returned without their delimiters.
func (s *lineScanner) token() (string, bool) {
	s.skipBlanks()
	if s.pos >= len(s.buf) {
		return "", false
	}
	start := s.pos
	if end := quoteCloser(s.buf[start]); end != 0 {
		i := bytes.IndexByte(s.buf[start+1:], end)
		if i < 0 {
			s.pos = len(s.buf)
			return string(s.buf[start+1:]), true
		}
		s.pos = start + 1 + i + 1
		return string(s.buf[start+1 : start+1+i]), true
	}
	for s.pos < len(s.buf) && !isBlank(s.buf[s.pos]) {
		s.pos++
	}
	return string(s.buf[start:s.pos]), true
}

// rest returns the unconsumed remainder of the line.
func (s *lineScanner) rest() string {
	s.skipBlanks()
	return string(s.buf[s.pos:])
}
