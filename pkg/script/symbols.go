package script

import "strings"

// symbolName strips reference and declaration prefixes from a symbol.
func symbolName(id string) string {
	return strings.TrimLeft(id, "%=$")
}

// ideq compares two symbol names up to the first ':'.
func ideq(a, b string) bool {
	if i := strings.IndexByte(a, ':'); i >= 0 {
		a = a[:i]
	}
	if i := strings.IndexByte(b, ':'); i >= 0 {
		b = b[:i]
	}
	return a == b
}

func contains(list []string, id string) bool {
	for _, s := range list {
		if ideq(s, id) {
			return true
		}
	}
	return false
}

// IsStrict reports whether symbol references are checked.
func (img *Image) IsStrict() bool {
	return img.strict
}

// EnableStrict turns on symbol checking for the rest of the compilation.
func (img *Image) EnableStrict() {
	img.strict = true
}

// Globals returns the names of the global symbols.
func (img *Image) Globals() []string {
	return img.global
}

// Scoped returns the names of the symbols local to the section.
func (s *Section) Scoped() []string {
	return s.scoped
}

// globalScope reports whether declarations made in sec are global. Label sections
// and the init section have no scope of their own.
func globalScope(sec *Section) bool {
	return sec == nil || sec.Kind == KindInit || sec.IsLabel()
}

// CreateVar declares a symbol in the section scope, or globally for label sections.
func (img *Image) CreateVar(sec *Section, id string) {
	if !img.strict {
		return
	}
	id = symbolName(id)
	if !globalScope(sec) {
		if !contains(sec.scoped, id) {
			sec.scoped = append(sec.scoped, id)
		}
		return
	}
	if !contains(img.global, id) {
		img.global = append(img.global, id)
	}
}

// CreateSym declares a global symbol unless it is already visible from the section.
func (img *Image) CreateSym(sec *Section, id string) {
	if !img.strict {
		return
	}
	id = symbolName(id)
	if img.visible(sec, id) {
		return
	}
	img.global = append(img.global, id)
}

// CreateAny declares a symbol unless it is already visible, in the section scope
// for non label sections and globally otherwise.
func (img *Image) CreateAny(sec *Section, id string) {
	if !img.strict {
		return
	}
	id = symbolName(id)
	if img.visible(sec, id) {
		return
	}
	if !globalScope(sec) {
		sec.scoped = append(sec.scoped, id)
		return
	}
	img.global = append(img.global, id)
}

// CreateGlobal declares a global symbol and enables strict checking.
func (img *Image) CreateGlobal(id string) {
	img.strict = true
	id = symbolName(id)
	if !contains(img.global, id) {
		img.global = append(img.global, id)
	}
}

func (img *Image) visible(sec *Section, id string) bool {
	if !globalScope(sec) && contains(sec.scoped, id) {
		return true
	}
	return contains(img.global, id)
}

// FindSymbol validates a reference against the declared symbols. Only "%" and "$"
// references are checked, and everything passes while strict checking is off.
func (img *Image) FindSymbol(sec *Section, id string) bool {
	if !img.strict || id == "" {
		return true
	}
	switch id[0] {
	case '%':
		name := id[1:]
		if name == "" {
			return true
		}
		return img.visible(sec, name)
	case '$':
		if strings.HasPrefix(id, "$map/") {
			base := id[5:]
			if i := strings.IndexByte(base, ':'); i >= 0 {
				base = base[:i]
			}
			switch {
			case base == "" || base[0] == '&':
			case base[0] == '%' || base[0] == '$':
				if !img.FindSymbol(sec, base) {
					return false
				}
			case !img.visible(sec, base):
				return false
			}
		}
		body := id[1:]
		if i := strings.IndexByte(body, ':'); i >= 0 {
			if img.visible(sec, body[i+1:]) {
				return true
			}
		}
		return body != "" && img.visible(sec, body)
	}
	return true
}
