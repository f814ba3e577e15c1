package script

import (
	"testing"

	"github.com/ivrplatform/goivr/pkg/settings"
	"github.com/stretchr/testify/assert"
)

func TestIdeq(t *testing.T) {
	assert.True(t, ideq("x", "x"))
	assert.True(t, ideq("x:suffix", "x"))
	assert.True(t, ideq("x", "x:other"))
	assert.False(t, ideq("x", "xy"))
	assert.Equal(t, "name", symbolName("%name"))
	assert.Equal(t, "name", symbolName("=name"))
}

func TestSymbolScopes(t *testing.T) {
	img := NewImage(settings.DefaultScriptSettings(), nil)
	label := &Section{Key: "@main", Name: "main", Kind: KindLabel}
	def := &Section{Key: "greet", Name: "greet", Kind: KindDefine}
	initSec := &Section{Key: InitSection, Name: InitSection, Kind: KindInit}

	img.CreateVar(label, "%ignored")
	assert.Empty(t, img.Globals())
	assert.True(t, img.FindSymbol(label, "%anything"))

	img.CreateGlobal("%g")
	assert.True(t, img.IsStrict())
	img.CreateVar(label, "%x")
	img.CreateVar(label, "x")
	img.CreateVar(initSec, "%i")
	img.CreateVar(nil, "%n")
	assert.Equal(t, []string{"g", "x", "i", "n"}, img.Globals())

	img.CreateVar(def, "%y")
	img.CreateVar(def, "%y")
	assert.Equal(t, []string{"y"}, def.Scoped())
	assert.Empty(t, label.Scoped())

	assert.True(t, img.FindSymbol(def, "%y"))
	assert.True(t, img.FindSymbol(def, "%x"))
	assert.False(t, img.FindSymbol(label, "%y"))
	assert.False(t, img.FindSymbol(label, "%z"))
	assert.True(t, img.FindSymbol(label, "%"))
	assert.True(t, img.FindSymbol(label, "literal"))
	assert.True(t, img.FindSymbol(label, "&text"))
}

func TestFindSymbolReferences(t *testing.T) {
	img := NewImage(settings.DefaultScriptSettings(), nil)
	sec := &Section{Key: "@main", Kind: KindLabel}
	img.CreateGlobal("%x")
	img.CreateGlobal("%menu")
	img.CreateGlobal("%choice")

	for _, test := range []struct {
		ref string
		ok  bool
	}{
		{"$x", true},
		{"$z", false},
		{"$++:x", true},
		{"$--:z", false},
		{"$x:suffix", true},
		{"$map/key:menu", false},
		{"$map/choice:menu", true},
		{"$map/&key:menu", true},
		{"$map/%x:menu", true},
		{"$map/%nope:menu", false},
		{"$map/key:nope", false},
		{"$offset/2:menu", true},
		{"$find/abc:nope", false},
	} {
		assert.Equal(t, test.ok, img.FindSymbol(sec, test.ref), "reference %q", test.ref)
	}
}

func TestCreateSymAndAny(t *testing.T) {
	img := NewImage(settings.DefaultScriptSettings(), nil)
	img.EnableStrict()
	label := &Section{Key: "@main", Kind: KindLabel}
	def := &Section{Key: "greet", Kind: KindDefine}

	img.CreateVar(def, "%y")
	img.CreateSym(def, "%y")
	assert.Empty(t, img.Globals())
	img.CreateSym(label, "%c")
	img.CreateSym(label, "%c")
	img.CreateAny(def, "%w")
	img.CreateAny(def, "%c")
	img.CreateAny(label, "%v")
	assert.Equal(t, []string{"c", "v"}, img.Globals())
	assert.Equal(t, []string{"y", "w"}, def.Scoped())
}
