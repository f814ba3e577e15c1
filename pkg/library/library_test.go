package library

import (
	"testing"

	"github.com/ivrplatform/goivr/pkg/settings"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, fs afero.Fs, path, src string) {
	require.NoError(t, afero.WriteFile(fs, path, []byte(src), 0644))
}

func testLibrary(t *testing.T) (*Library, afero.Fs) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/scripts/defs.def", "define greet name=world\n  nop\n")
	writeFile(t, fs, "/scripts/a.scr", "@main\n  greet name=bob\n")
	writeFile(t, fs, "/scripts/sub/b.scr", "@other\n  nop\n")
	writeFile(t, fs, "/scripts/README.txt", "not a script\n")
	return New(fs, "/scripts", settings.DefaultScriptSettings()), fs
}

func TestLoad(t *testing.T) {
	l, _ := testLibrary(t)
	defer l.Close()
	assert.Nil(t, l.Acquire())

	changed, err := l.Load(false)
	require.NoError(t, err)
	assert.True(t, changed)

	h := l.Acquire()
	require.NotNil(t, h)
	defer h.Release()
	img := h.Image()
	assert.Empty(t, img.Errors())
	assert.Equal(t, "/scripts/a.scr", img.Filename())
	assert.NotNil(t, img.Lookup("main"))
	assert.NotNil(t, img.Lookup("other"))
	assert.Nil(t, img.Section("greet"))
	assert.NotNil(t, img.Lookup("greet"))
	assert.Same(t, img.Lookup("greet"), img.Lookup("main").Block.Lines[0].Sub)
}

func TestReload(t *testing.T) {
	defer goleak.VerifyNone(t)
	l, fs := testLibrary(t)
	_, err := l.Load(false)
	require.NoError(t, err)
	first := l.Acquire()

	changed, err := l.Load(false)
	require.NoError(t, err)
	assert.False(t, changed)
	same := l.Acquire()
	assert.Same(t, first, same)
	same.Release()

	writeFile(t, fs, "/scripts/sub/b.scr", "@other\n  nop\n@third\n  nop\n")
	changed, err = l.Load(false)
	require.NoError(t, err)
	assert.True(t, changed)
	second := l.Acquire()
	assert.NotEqual(t, first.Digest(), second.Digest())
	assert.NotEqual(t, first.Image().ID(), second.Image().ID())
	assert.NotNil(t, second.Image().Lookup("third"))

	// the replaced image stays usable until its last reference is gone
	assert.NotNil(t, first.Image().Lookup("main"))
	assert.Nil(t, first.Image().Lookup("third"))
	first.Release()
	assert.Empty(t, first.Image().Sections())

	changed, err = l.Load(true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotNil(t, second.Image().Lookup("third"))
	second.Release()
	assert.Empty(t, second.Image().Sections())

	l.Close()
	l.Close()
	assert.Nil(t, l.Acquire())
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := New(fs, "/missing", settings.DefaultScriptSettings())
	_, err := l.Load(false)
	assert.Error(t, err)

	require.NoError(t, fs.MkdirAll("/empty", 0755))
	l = New(fs, "/empty", settings.DefaultScriptSettings())
	_, err = l.Load(false)
	assert.EqualError(t, err, `no scripts in "/empty"`)
	assert.Nil(t, l.Acquire())
}

func TestLoadWithCompileErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	prev := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	defer zap.ReplaceGlobals(prev)

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/bad/main.scr", "@main\n  bogus\n")
	l := New(fs, "/bad", settings.DefaultScriptSettings())
	defer l.Close()
	changed, err := l.Load(false)
	require.NoError(t, err)
	assert.True(t, changed)
	h := l.Acquire()
	defer h.Release()
	require.Len(t, h.Image().Errors(), 1)
	assert.Equal(t, `unknown keyword "bogus"`, h.Image().Errors()[0].Message)
	assert.Equal(t, 1, logs.FilterMessage(`main:2: unknown keyword "bogus"`).Len())
}
