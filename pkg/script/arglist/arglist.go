// Package arglist decodes comma separated argument lists as used by script
// variables and keyword parameters. Commas inside double quotes or
// parentheses do not separate items.
package arglist

import "strings"

// next returns the offset just past the separator that ends the item
// starting at pos, or -1 when the item is the last one. Quotes are not
// recognized inside parentheses.
func next(list string, pos int) int {
	quoted, depth := false, 0
	for i := pos; i < len(list); i++ {
		switch c := list[i]; {
		case quoted:
			quoted = c != '"'
		case c == '"' && depth == 0:
			quoted = true
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			return i + 1
		}
	}
	return -1
}

// balanced reports whether the parentheses of s close in order.
func balanced(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth--; depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// Count returns the number of top level items in the list.
// An empty list has no items, each separator adds one.
func Count(list string) int {
	if list == "" {
		return 0
	}
	n := 1
	for pos := next(list, 0); pos >= 0; pos = next(list, pos) {
		n++
	}
	return n
}

// Offset returns the byte offset where item index starts.
func Offset(list string, index int) (int, bool) {
	if index < 0 || list == "" {
		return 0, false
	}
	pos := 0
	for ; index > 0; index-- {
		pos = next(list, pos)
		if pos < 0 {
			return 0, false
		}
	}
	return pos, true
}

// Get returns the remainder of the list starting at item index.
func Get(list string, index int) (string, bool) {
	pos, ok := Offset(list, index)
	if !ok {
		return "", false
	}
	return list[pos:], true
}

// Copy extracts the first item of list. Leading blanks are skipped and one
// surrounding pair of quotes or parentheses is removed. The result is limited
// to size-1 bytes; a size of zero or less means unlimited.
func Copy(list string, size int) string {
	item := strings.TrimLeft(list, " \t")
	if end := next(item, 0); end >= 0 {
		item = item[:end-1]
	}
	item = strings.TrimRight(item, " \t")
	if len(item) >= 2 {
		switch first, last := item[0], item[len(item)-1]; {
		case first == '(' && last == ')',
			(first == '"' || first == '\'') && last == first:
			item = item[1 : len(item)-1]
		}
	}
	if size > 0 && len(item) > size-1 {
		item = item[:size-1]
	}
	return item
}

// Item returns item index of the list with Copy semantics.
func Item(list string, index int) (string, bool) {
	rest, ok := Get(list, index)
	if !ok {
		return "", false
	}
	return Copy(rest, 0), true
}

// Split returns all items of the list.
func Split(list string) []string {
	n := Count(list)
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		item, _ := Item(list, i)
		items = append(items, item)
	}
	return items
}

// Join packs items into a list. Items holding separators, quotes or
// parentheses are wrapped in double quotes, or in parentheses when they
// contain a double quote themselves.
func Join(items ...string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte(',')
		}
		switch {
		case !strings.ContainsAny(item, ",\"()") && !wrapped(item):
			sb.WriteString(item)
		case !strings.Contains(item, "\""):
			sb.WriteByte('"')
			sb.WriteString(item)
			sb.WriteByte('"')
		case balanced(item):
			sb.WriteByte('(')
			sb.WriteString(item)
			sb.WriteByte(')')
		default:
			sb.WriteString(item)
		}
	}
	return sb.String()
}

// wrapped reports whether Copy would strip the ends of item.
func wrapped(item string) bool {
	return len(item) >= 2 && item[0] == '\'' && item[len(item)-1] == '\''
}
