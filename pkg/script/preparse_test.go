package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func preparsed(text string) (bool, []string) {
	s := newLineScanner(text)
	var tokens []string
	for {
		if !s.preparse() {
			return false, nil
		}
		tok, ok := s.token()
		if !ok {
			return true, tokens
		}
		tokens = append(tokens, tok)
	}
}

func TestPreparse(t *testing.T) {
	for _, test := range []struct {
		text   string
		ok     bool
		tokens []string
	}{
		{"", true, nil},
		{"%% comment", true, nil},
		{"// comment", true, nil},
		{"nop %% trailing comment", true, []string{"nop"}},
		{"= 3", true, []string{"?=", "3"}},
		{"== 3", true, []string{"?==", "3"}},
		{"=3", false, nil},
		{"$ abc", true, []string{"?$", "abc"}},
		{"$ref", true, []string{"$ref"}},
		{"? a", true, []string{"??", "a"}},
		{"?a", false, nil},
		{"~ x", true, []string{"?~", "x"}},
		{"> 1", true, []string{"?>", "1"}},
		{">= 1", true, []string{"?>=", "1"}},
		{"< 1", true, []string{"?<", "1"}},
		{"<= 1", true, []string{"?<=", "1"}},
		{"<> 1", true, []string{"?<>", "1"}},
		{">x", false, nil},
		{">>%x", true, []string{"$>>:x"}},
		{"<<%list b", true, []string{"$<<:list", "b"}},
		{"++%n", true, []string{"$++:n"}},
		{"--%n", true, []string{"$--:n"}},
		{"!= 1", true, []string{"?!=", "1"}},
		{"!? a", true, []string{"?!?", "a"}},
		{"!$ a", true, []string{"?!$", "a"}},
		{"!~ a", true, []string{"?!~", "a"}},
		{"!flag", true, []string{"!flag"}},
		{"!", false, nil},
		{"!=x", false, nil},
		{"&& x", true, []string{"?&&", "x"}},
		{"&var", true, []string{"%var"}},
		{"&", false, nil},
		{"|| x", true, []string{"?||", "x"}},
		{"|x", false, nil},
		{"+5", true, []string{"5"}},
		{"+.5", true, []string{".5"}},
		{"+ 1", true, []string{"+", "1"}},
		{"+= 1", true, []string{"+=", "1"}},
		{"+x", false, nil},
		{"-5", true, []string{"-5"}},
		{"-x", true, []string{"-x"}},
		{"- 1", true, []string{"-", "1"}},
		{"-= 1", true, []string{"-=", "1"}},
		{"* 2", true, []string{"*", "2"}},
		{"*2", false, nil},
		{"/= 2", true, []string{"/=", "2"}},
		{".5", true, []string{".5"}},
		{".x", false, nil},
		{":= 1", true, []string{":=", "1"}},
		{":local", true, []string{":local"}},
		{":-", false, nil},
		{"'hello world'", true, []string{"&hello world"}},
		{"\"a b\" 'c'", true, []string{"&a b", "&c"}},
		{"{x y}", true, []string{"&x y"}},
		{",x", false, nil},
		{"`x", false, nil},
		{"(a", false, nil},
		{"[a", false, nil},
		{")", false, nil},
		{"]", false, nil},
		{";", false, nil},
		{"_x", false, nil},
		{"name=value", true, []string{"=name", "value"}},
		{"a.b=1 c", true, []string{"=a.b", "1", "c"}},
		{"a_b=1", true, []string{"a_b=1"}},
		{"x:y=2", true, []string{"=x:y", "2"}},
		{"plain", true, []string{"plain"}},
		{"%x = 3", true, []string{"%x", "?=", "3"}},
		{"if %a > 1 && %b < 2", true, []string{"if", "%a", "?>", "1", "?&&", "%b", "?<", "2"}},
		{"a,b,c", true, []string{"a,b,c"}},
	} {
		ok, tokens := preparsed(test.text)
		assert.Equal(t, test.ok, ok, "text %q", test.text)
		if test.ok {
			assert.Equal(t, test.tokens, tokens, "text %q", test.text)
		}
	}
}

func TestTokenQuotes(t *testing.T) {
	s := newLineScanner(`play {a b} 'c d' "e" f`)
	var tokens []string
	for {
		tok, ok := s.token()
		if !ok {
			break
		}
		tokens = append(tokens, tok)
	}
	assert.Equal(t, []string{"play", "a b", "c d", "e", "f"}, tokens)

	s = newLineScanner(`say 'unterminated text`)
	tok, _ := s.token()
	assert.Equal(t, "say", tok)
	tok, _ = s.token()
	assert.Equal(t, "unterminated text", tok)
}
