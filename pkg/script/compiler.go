package script

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ivrplatform/goivr/pkg/logging"
	"github.com/ivrplatform/goivr/pkg/metrics"
	"github.com/ivrplatform/goivr/pkg/settings"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// serial numbers compile passes; local labels and names are qualified with it.
var serial atomic.Uint32

// Compiler turns script sources into images.
type Compiler struct {
	fs     afero.Fs
	cfg    settings.ScriptSettings
	logger *zap.SugaredLogger
}

func NewCompiler(fs afero.Fs, cfg settings.ScriptSettings) *Compiler {
	Init()
	return &Compiler{
		fs:     fs,
		cfg:    cfg,
		logger: zap.S().Named(logging.CompileNamespace),
	}
}

var defaultCompiler = NewCompiler(afero.NewOsFs(), settings.DefaultScriptSettings())

// Compile compiles a file from the OS file system with default settings.
func Compile(merge *Image, filename string, shared *Image) *Image {
	return defaultCompiler.Compile(merge, filename, shared)
}

// Compile compiles filename into merge, or into a new image when merge is nil.
// Compilation never fails: a file that cannot be read yields merge unchanged, or an
// empty image. Problems in the source are collected in the image's error list.
func (c *Compiler) Compile(merge *Image, filename string, shared *Image) *Image {
	f, err := c.fs.Open(filename)
	if err != nil {
		c.logger.Warnf("Failed to open script %q: %v", filename, err)
		if merge != nil {
			return merge
		}
		return newImage(c.cfg, shared)
	}
	defer func() {
		if err := f.Close(); err != nil {
			c.logger.Warnf("Failed to close script %q: %v", filename, err)
		}
	}()
	img, err := c.compile(merge, filename, f, shared)
	if err != nil {
		c.logger.Warnf("Failed to read script %q: %v", filename, err)
	}
	return img
}

// CompileString compiles source text; name is used as the file name in errors.
func (c *Compiler) CompileString(merge *Image, name, source string, shared *Image) *Image {
	img, _ := c.compile(merge, name, strings.NewReader(source), shared)
	return img
}

func (c *Compiler) compile(merge *Image, filename string, r io.Reader, shared *Image) (*Image, error) {
	img := merge
	if img == nil {
		img = newImage(c.cfg, shared)
	}
	if img.filename == "" {
		img.filename = filename
	}
	img.serial = uint(serial.Inc() & 0xffff)
	before := len(img.errors)
	cs := &compilation{
		img:    img,
		file:   sourceName(filename),
		serial: img.serial,
		merge:  merge != nil,
	}
	cs.open(InitSection, InitSection, KindInit)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		cs.line(sc.Text())
	}
	cs.close()
	errs := len(img.errors) - before
	metrics.ImageCompiled(errs)
	c.logger.Debugf("Compiled %q into image %d: %d sections, %d errors", filename, img.id, img.sections.Len(), errs)
	if err := sc.Err(); err != nil {
		return img, errors.Wrapf(err, "failed to scan %q", filename)
	}
	return img, nil
}

// sourceName strips directories and the extension from a script path.
func sourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// compilation holds the state of one compile pass.
type compilation struct {
	img    *Image
	file   string
	serial uint
	merge  bool
	num    int

	sec       *Section
	block     *Block
	inBranch  bool
	sectioned bool
	skipping  bool
	thenUsed  bool
}

func (c *compilation) errlog(format string, args ...interface{}) {
	c.img.errlog(c.file, c.num, fmt.Sprintf(format, args...))
}

func (c *compilation) line(text string) {
	c.num++
	c.img.lines = c.num
	c.thenUsed = false
	text = strings.TrimRight(text, " \t\r\n")
	body := strings.TrimLeft(text, " \t")
	if body == "" || strings.HasPrefix(body, "%%") || strings.HasPrefix(body, "//") {
		return
	}
	indented := len(body) < len(text)
	s := newLineScanner(text)
	if indented && !s.preparse() {
		if !c.skipping {
			c.errlog("malformed line")
		}
		return
	}
	tok, ok := s.token()
	if !ok {
		return
	}

	if tok == "endreq" || tok == "endrequires" {
		if indented {
			c.errlog("endreq cannot be indented")
			return
		}
		c.skipping = false
		return
	}
	if c.skipping {
		return
	}
	if tok == "requires" {
		if indented {
			c.errlog("requires cannot be indented")
			return
		}
		c.skipping = true
		for {
			name, ok := s.token()
			if !ok {
				break
			}
			if c.satisfied(name) {
				c.skipping = false
				break
			}
		}
		return
	}

	switch {
	case len(tok) > 1 && (tok[0] == '^' || tok[0] == '-') && !indented:
		if c.sec.Kind == KindInit {
			c.errlog("events cannot be in init segment")
			return
		}
		c.branch(tok[0] == '^', tok[1:])
		c.remainder(s)
		return
	case len(tok) > 1 && tok[0] == '@':
		c.sectioned = true
		c.open(tok, tok[1:], KindLabel)
		c.remainder(s)
		return
	case len(tok) > 1 && tok[0] == ':' && tok[1] != '=':
		c.sectioned = true
		c.open(fmt.Sprintf("@%04x:%s", c.serial, tok[1:]), tok[1:], KindLocal)
		c.remainder(s)
		return
	case tok == "template":
		c.template(s, indented)
		return
	case tok == "define":
		c.define(s, indented)
		return
	}

	if !indented {
		c.errlog("unindented statement")
		return
	}
	c.statement(tok, s)
}

// remainder compiles the rest of a header line as the first statement of the new body.
func (c *compilation) remainder(s *lineScanner) {
	if !s.preparse() {
		c.errlog("malformed line")
		return
	}
	if tok, ok := s.token(); ok {
		c.statement(tok, s)
	}
}

func (c *compilation) satisfied(name string) bool {
	negate := strings.HasPrefix(name, "!")
	if negate {
		name = name[1:]
	}
	found := Find(name) != nil || c.img.Lookup(name) != nil
	return found != negate
}

func (c *compilation) template(s *lineScanner, indented bool) {
	if c.sectioned {
		c.errlog("templates must be before named sections")
		return
	}
	if indented {
		c.errlog("templates cannot be indented")
		return
	}
	name, ok := s.token()
	if !ok {
		c.errlog("template must be named")
		return
	}
	c.open(name, name, KindTemplate)
}

func (c *compilation) define(s *lineScanner, indented bool) {
	if c.sectioned {
		c.errlog("defines must be before named sections")
		return
	}
	if indented {
		c.errlog("define cannot be indented")
		return
	}
	name, ok := s.token()
	if !ok || !isKeyword(name) {
		c.errlog("invalid keyword")
		return
	}
	if Find(name) != nil {
		c.errlog("cannot redefine existing command")
		return
	}
	kw := Find("_define")
	if kw == nil {
		c.errlog("define unsupported")
		return
	}
	c.open(name, name, KindDefine)
	c.emit(kw, name, nil, s)
}

// open closes the current section and starts a new one.
func (c *compilation) open(key, name string, kind SectionKind) {
	c.close()
	c.inBranch = false
	if kind == KindInit && c.merge && c.img.init != nil {
		c.sec = c.img.init
		c.block = c.sec.Block
		return
	}
	sec := &Section{
		Key:   key,
		Name:  name,
		File:  c.file,
		Kind:  kind,
		Block: &Block{},
	}
	c.img.sections.Set(key, sec)
	if kind == KindInit {
		c.img.init = sec
	}
	c.sec = sec
	c.block = sec.Block
}

// branch starts an event or method body. Consecutive headers share one body.
func (c *compilation) branch(event bool, name string) {
	c.unwind()
	if !c.inBranch || c.block.Len() > 0 {
		c.block = &Block{}
		c.inBranch = true
	}
	b := &Branch{Name: name, Block: c.block}
	if event {
		c.sec.Events = append(override(c.sec.Events, name), b)
	} else {
		c.sec.Methods = append(override(c.sec.Methods, name), b)
	}
}

// unwind reports every block left open in the current body.
func (c *compilation) unwind() {
	for {
		line := c.img.Pull()
		if line == nil {
			return
		}
		c.img.errlog(c.file, line.Num, fmt.Sprintf("%s never completed loop", line.Cmd))
	}
}

func (c *compilation) close() {
	if c.sec == nil {
		return
	}
	c.unwind()
	if kw := Find("_close"); kw != nil && kw.Check != nil {
		if err := kw.Check(c.img, c.sec, nil); err != nil {
			c.errlog("%s", err.Error())
		}
	}
	c.sec = nil
	c.block = nil
}

var exprOps = map[string]bool{":=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true, "#=": true}

func (c *compilation) statement(tok string, s *lineScanner) {
	var assigned, op string
	switch tok[0] {
	case '%':
		assigned = tok
		op, _ = s.token()
		switch {
		case exprOps[op]:
			tok = "expr"
		case op == "=" || op == "==" || op == "$=":
			tok, op = "set", ""
		case op == "." || op == ".=":
			tok, op = "add", ""
		case op == "," || op == ",=":
			tok, op = "pack", ""
		default:
			c.errlog("invalid assignment")
			return
		}
	case '$':
		assigned = tok
		tok = "_ref"
	}
	if !isKeyword(tok) {
		c.errlog("invalid keyword")
		return
	}
	kw := Find(tok)
	var sub *Section
	if kw == nil {
		sub = c.img.Section(tok)
		if sub == nil && c.img.shared != nil {
			sub = c.img.shared.Section(tok)
		}
		if sub != nil {
			kw = Find("_invoke")
		}
	}
	if kw == nil {
		c.errlog("unknown keyword %q", tok)
		return
	}
	var prefix []string
	if assigned != "" {
		prefix = append(prefix, assigned)
	}
	if op != "" {
		prefix = append(prefix, op)
	}
	c.emitArgs(kw, tok, sub, prefix, s)
}

func (c *compilation) emit(kw *Keyword, cmd string, sub *Section, s *lineScanner) {
	c.emitArgs(kw, cmd, sub, nil, s)
}

func (c *compilation) emitArgs(kw *Keyword, cmd string, sub *Section, args []string, s *lineScanner) {
	branching := cmd == "goto" || cmd == "gosub"
	var then string
	for len(args) < settings.MaxArgs {
		if !s.preparse() {
			c.errlog("malformed statement or argument")
			return
		}
		arg, ok := s.token()
		if !ok {
			break
		}
		if cmd == "if" {
			if arg == "if" {
				c.errlog("malformed statement or argument")
				return
			}
			if arg == "then" {
				if c.thenUsed || !s.preparse() {
					c.errlog("malformed statement or argument")
					return
				}
				next, ok := s.token()
				if !ok || next == "" || next[0] == '&' {
					c.errlog("malformed statement or argument")
					return
				}
				c.thenUsed = true
				kw = Find("_ifthen")
				then = next
				break
			}
		}
		args = append(args, c.rewrite(arg, branching))
	}

	line := c.img.alloc()
	*line = Line{
		Num:    c.num,
		Cmd:    cmd,
		Sub:    sub,
		Method: kw.Method,
		Loop:   c.img.Loop(),
		Args:   args,
		Index:  c.block.Len(),
		Jump:   -1,
		Exit:   -1,
	}
	if kw.Check != nil {
		if err := kw.Check(c.img, c.sec, line); err != nil {
			c.errlog("%s", err.Error())
			return
		}
	}
	if c.img.IsStrict() {
		for _, arg := range args {
			if !c.img.FindSymbol(c.sec, arg) {
				c.errlog("undefined symbol reference %s", arg)
			}
		}
	}
	if line.Method != nil {
		c.block.Lines = append(c.block.Lines, line)
	}
	if then != "" {
		c.statement(then, s)
		line.Jump = c.block.Len()
	}
}

// rewrite expands local names and indexed variable forms in an argument.
func (c *compilation) rewrite(arg string, branching bool) string {
	if arg == "" {
		return arg
	}
	switch arg[0] {
	case ':':
		if len(arg) == 1 {
			return arg
		}
		if branching {
			return fmt.Sprintf("@%04x:%s", c.serial, arg[1:])
		}
		return fmt.Sprintf("%%_%04x_.%s", c.serial, arg[1:])
	case '%':
		if i := strings.IndexByte(arg, '<'); i > 1 {
			return "$map/" + enclosed(arg[i+1:], '>') + ":" + arg[1:i]
		}
		if i := strings.IndexByte(arg, '['); i > 1 {
			key := enclosed(arg[i+1:], ']')
			if atoi(key) != 0 {
				return "$offset/" + key + ":" + arg[1:i]
			}
			return "$find/" + key + ":" + arg[1:i]
		}
		if i := strings.IndexByte(arg, '('); i > 1 {
			return "$index/" + enclosed(arg[i+1:], ')') + ":" + arg[1:i]
		}
	}
	return arg
}

func enclosed(s string, end byte) string {
	if i := strings.IndexByte(s, end); i >= 0 {
		return s[:i]
	}
	return s
}

// atoi parses leading decimal digits, ignoring anything that follows.
func atoi(s string) int {
	n, neg, i := 0, false, 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	for ; i < len(s) && isDigit(s[i]); i++ {
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}
