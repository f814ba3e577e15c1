package script

import (
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/ivrplatform/goivr/pkg/event"
	"github.com/ivrplatform/goivr/pkg/logging"
	"github.com/ivrplatform/goivr/pkg/settings"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// InitSection is the key of the section holding top level definitions.
const InitSection = "_init_"

var instances atomic.Uint64

type SectionKind byte

const (
	KindInit SectionKind = iota
	KindLabel
	KindLocal
	KindTemplate
	KindDefine
)

func (k SectionKind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindLabel:
		return "label"
	case KindLocal:
		return "local"
	case KindTemplate:
		return "template"
	case KindDefine:
		return "define"
	default:
		return "unknown"
	}
}

// Line is one compiled instruction.
type Line struct {
	Num    int
	Cmd    string
	Sub    *Section
	Method Method
	// Loop is the block nesting depth at the time the line was compiled.
	Loop int
	Args []string
	// Index is the position of the line within its block.
	Index int
	// Jump and Exit are block indexes resolved at compile time by structured keywords, -1 if unused.
	Jump int
	Exit int

	link *Line
}

// Block is an ordered run of instructions: a section body, or the body shared by event and method headers.
type Block struct {
	Lines []*Line
}

func (b *Block) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Lines)
}

type Branch struct {
	Name  string
	Block *Block

	// inherited marks branches copied from a template by apply.
	inherited bool
}

type Section struct {
	Key     string
	Name    string
	File    string
	Kind    SectionKind
	Block   *Block
	Events  []*Branch
	Methods []*Branch
	// Mask holds one bit per DTMF key code; masked keys do not select event branches.
	Mask uint16

	scoped []string
}

func (s *Section) IsLabel() bool {
	return s.Kind == KindLabel || s.Kind == KindLocal
}

// Ignores reports whether ev is a key the section masks.
func (s *Section) Ignores(ev *event.Event) bool {
	if s == nil || s.Mask == 0 || ev.ID != event.DTMFKeyUp {
		return false
	}
	d, ok := ev.DTMF()
	return ok && d.Digit < 16 && s.Mask&(1<<d.Digit) != 0
}

func (s *Section) Event(name string) *Branch {
	return findBranch(s.Events, name)
}

func (s *Section) Method(name string) *Branch {
	return findBranch(s.Methods, name)
}

// override removes the inherited branch with the given name.
func override(list []*Branch, name string) []*Branch {
	for i, b := range list {
		if b.inherited && b.Name == name {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

func findBranch(list []*Branch, name string) *Branch {
	for _, b := range list {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// arena hands out instructions from fixed size pages; pages are never reallocated
// so pointers stay valid until the whole image is released.
type arena struct {
	size  int
	page  []Line
	pages int
}

func (a *arena) alloc() *Line {
	if len(a.page) == cap(a.page) {
		a.page = make([]Line, 0, a.size)
		a.pages++
	}
	a.page = a.page[:len(a.page)+1]
	return &a.page[len(a.page)-1]
}

// Image is a compiled script. It is read only once compilation finished and may be
// shared by any number of interpreters.
type Image struct {
	id       uint64
	cfg      settings.ScriptSettings
	shared   *Image
	filename string
	serial   uint

	sections *orderedmap.OrderedMap[string, *Section]
	init     *Section
	errors   ErrorList
	global   []string
	strict   bool
	stack    []*Line
	lines    int
	arena    *arena
	defaults *orderedmap.OrderedMap[string, string]
}

func newImage(cfg settings.ScriptSettings, shared *Image) *Image {
	img := &Image{
		id:       instances.Inc(),
		cfg:      cfg,
		shared:   shared,
		sections: orderedmap.NewOrderedMap[string, *Section](),
		stack:    make([]*Line, 0, cfg.Stacking),
		arena:    &arena{size: cfg.Paging},
		defaults: orderedmap.NewOrderedMap[string, string](),
	}
	if img.id > 1 {
		zap.S().Named(logging.CompileNamespace).Debugf("Creating image instance %d", img.id)
	}
	return img
}

// NewImage creates an empty image.
func NewImage(cfg settings.ScriptSettings, shared *Image) *Image {
	return newImage(cfg, shared)
}

func (img *Image) ID() uint64 {
	return img.id
}

func (img *Image) Filename() string {
	return img.filename
}

func (img *Image) Shared() *Image {
	return img.shared
}

func (img *Image) Settings() settings.ScriptSettings {
	return img.cfg
}

func (img *Image) Errors() ErrorList {
	return img.errors
}

// Section returns the section with exactly the given key.
func (img *Image) Section(key string) *Section {
	if img == nil || img.sections == nil {
		return nil
	}
	s, _ := img.sections.Get(key)
	return s
}

// Lookup resolves a section by key, then as a label name, then in the shared image.
func (img *Image) Lookup(name string) *Section {
	if img == nil {
		return nil
	}
	if s := img.Section(name); s != nil {
		return s
	}
	if !strings.HasPrefix(name, "@") {
		if s := img.Section("@" + name); s != nil {
			return s
		}
	}
	return img.shared.Lookup(name)
}

// Sections returns all sections in definition order.
func (img *Image) Sections() []*Section {
	if img.sections == nil {
		return nil
	}
	res := make([]*Section, 0, img.sections.Len())
	for el := img.sections.Front(); el != nil; el = el.Next() {
		res = append(res, el.Value)
	}
	return res
}

// Defaults returns variable values declared by const and by var in the init section.
func (img *Image) Defaults() map[string]string {
	res := make(map[string]string)
	if img.shared != nil {
		for k, v := range img.shared.Defaults() {
			res[k] = v
		}
	}
	if img.defaults == nil {
		return res
	}
	for el := img.defaults.Front(); el != nil; el = el.Next() {
		res[el.Key] = el.Value
	}
	return res
}

// SetDefault records an initial variable value for interpreters attached to the image.
func (img *Image) SetDefault(name, value string) {
	img.defaults.Set(symbolName(name), value)
}

// Default returns the initial value of a variable.
func (img *Image) Default(name string) (string, bool) {
	return img.defaults.Get(symbolName(name))
}

// Line returns the source line currently compiled.
func (img *Image) Line() int {
	return img.lines
}

// Loop returns the current compile time nesting depth.
func (img *Image) Loop() int {
	return len(img.stack)
}

// Push records a block opening instruction. It fails once the stacking depth is reached.
func (img *Image) Push(line *Line) bool {
	if len(img.stack) >= img.cfg.Stacking {
		return false
	}
	img.stack = append(img.stack, line)
	return true
}

// Pull removes and returns the innermost open instruction, nil if there is none.
func (img *Image) Pull() *Line {
	if len(img.stack) == 0 {
		return nil
	}
	line := img.stack[len(img.stack)-1]
	img.stack[len(img.stack)-1] = nil
	img.stack = img.stack[:len(img.stack)-1]
	return line
}

// Looping returns the innermost open instruction without removing it.
func (img *Image) Looping() *Line {
	if len(img.stack) == 0 {
		return nil
	}
	return img.stack[len(img.stack)-1]
}

// innermost returns the closest open instruction whose command is one of cmds.
func (img *Image) innermost(cmds ...string) *Line {
	for i := len(img.stack) - 1; i >= 0; i-- {
		for _, c := range cmds {
			if img.stack[i].Cmd == c {
				return img.stack[i]
			}
		}
	}
	return nil
}

func (img *Image) alloc() *Line {
	return img.arena.alloc()
}

// Pages returns the number of arena pages allocated for instructions.
func (img *Image) Pages() int {
	if img.arena == nil {
		return 0
	}
	return img.arena.pages
}

// Release drops the image contents. Interpreters must not use the image afterwards.
func (img *Image) Release() {
	zap.S().Named(logging.CompileNamespace).Debugf("Releasing image instance %d", img.id)
	img.arena = nil
	img.sections = orderedmap.NewOrderedMap[string, *Section]()
	img.init = nil
	img.stack = nil
}

func (img *Image) errlog(file string, line int, msg string) {
	img.errors = append(img.errors, &Error{File: file, Line: line, Message: msg})
}
