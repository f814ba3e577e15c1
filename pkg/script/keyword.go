package script

import "sync"

// Method executes an instruction for a call. Returning false stops stepping until
// an event resumes the interpreter.
type Method func(in *Interp, line *Line) bool

// Check validates an instruction while it is compiled. A non nil error is reported
// at the instruction's line and the instruction is discarded.
type Check func(img *Image, sec *Section, line *Line) error

// Keyword binds a command name to its runtime method and compile time check.
// Keywords without a method are compile time directives only.
type Keyword struct {
	Name   string
	Method Method
	Check  Check
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Keyword)
	initOnce   sync.Once
)

// Assign registers a set of keywords. Later registrations shadow earlier ones with the same name.
// Keyword sets are expected to be assigned at start up, before scripts are compiled.
func Assign(keywords []Keyword) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for i := range keywords {
		kw := keywords[i]
		registry[kw.Name] = &kw
	}
}

// Find returns the keyword registered under name, nil if there is none.
func Find(name string) *Keyword {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name]
}

// Init registers the core keyword set.
func Init() {
	initOnce.Do(func() {
		Assign(coreKeywords())
	})
}

func isKeyword(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '_' {
		s = s[1:]
		if s == "" {
			return false
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isAlpha(c) && c != '.' {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
