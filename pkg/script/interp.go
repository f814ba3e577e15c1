package script

import (
	"strconv"
	"strings"
	"time"

	"github.com/ivrplatform/goivr/pkg/event"
	"github.com/ivrplatform/goivr/pkg/logging"
	"github.com/ivrplatform/goivr/pkg/metrics"
	"github.com/ivrplatform/goivr/pkg/script/arglist"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Handler receives events while the interpreter waits. It returns true if the event was consumed.
type Handler func(in *Interp, ev *event.Event) bool

// Timer is implemented by the call data of interpreters that support timed waits.
//
//go:generate mockgen -destination=../mock/timer.go -package=mock github.com/ivrplatform/goivr/pkg/script Timer
type Timer interface {
	SetTimer(d time.Duration)
	ClearTimer()
}

type frameKind byte

const (
	callFrame frameKind = iota
	loopFrame
)

type frame struct {
	kind  frameKind
	sec   *Section
	block *Block
	pc    int
	line  *Line
	index int
}

// Interp runs an image for one call. It is not safe for concurrent use; the owner
// serializes Step, Post and Signal.
type Interp struct {
	img    *Image
	data   interface{}
	logger *zap.SugaredLogger

	cur   frame
	stack []frame
	vars  map[string]string
	wait  Handler
	call  *invocation

	moved     bool
	chained   bool
	chainNext bool
	exited    bool
	steps     uint64
}

func NewInterp(img *Image, data interface{}) *Interp {
	Init()
	return &Interp{
		img:    img,
		data:   data,
		logger: zap.S().Named(logging.ScriptNamespace),
		vars:   make(map[string]string),
		exited: true,
	}
}

// Attach resets the interpreter and positions it at the start of the named section.
func (in *Interp) Attach(name string) error {
	sec := in.img.Lookup(name)
	if sec == nil {
		return errors.Errorf("no section %q", name)
	}
	if sec.Kind == KindInit {
		return errors.New("init section cannot be executed")
	}
	in.vars = in.img.Defaults()
	in.stack = in.stack[:0]
	in.wait = nil
	in.exited = false
	in.chainNext = false
	in.cur = frame{sec: sec, block: sec.Block}
	in.vars["script.section"] = sec.Name
	return nil
}

func (in *Interp) Image() *Image {
	return in.img
}

// Data returns the call data given to NewInterp.
func (in *Interp) Data() interface{} {
	return in.data
}

// Section returns the section currently executed.
func (in *Interp) Section() *Section {
	return in.cur.sec
}

// Current returns the next instruction to execute, nil at the end of a block.
func (in *Interp) Current() *Line {
	if in.exited || in.cur.block == nil || in.cur.pc >= len(in.cur.block.Lines) {
		return nil
	}
	return in.cur.block.Lines[in.cur.pc]
}

func (in *Interp) Exited() bool {
	return in.exited
}

func (in *Interp) Waiting() bool {
	return !in.exited && in.wait != nil
}

// Steps returns the number of instructions executed since creation.
func (in *Interp) Steps() uint64 {
	return in.steps
}

// Step executes up to limit instructions; a limit of zero uses the configured stepping.
// It returns false once the script exited.
func (in *Interp) Step(limit int) bool {
	if limit <= 0 {
		limit = in.img.cfg.Stepping
	}
	n := 0
	for n < limit && !in.exited && in.wait == nil {
		line := in.Current()
		if line == nil {
			if !in.unwind() {
				in.Exit()
			}
			continue
		}
		in.moved = false
		in.chained, in.chainNext = in.chainNext, false
		n++
		cont := line.Method(in, line)
		if !in.moved {
			in.cur.pc++
		}
		if !cont {
			break
		}
	}
	in.steps += uint64(n)
	metrics.InstructionsStepped(n)
	return !in.exited
}

// unwind returns from the innermost subroutine call, dropping loops opened since.
func (in *Interp) unwind() bool {
	for len(in.stack) > 0 {
		f := in.pop()
		if f.kind == callFrame {
			in.cur = frame{sec: f.sec, block: f.block, pc: f.pc}
			in.moved = true
			return true
		}
	}
	return false
}

func (in *Interp) push(f frame) bool {
	if len(in.stack) >= in.img.cfg.Stacking {
		return false
	}
	in.stack = append(in.stack, f)
	return true
}

func (in *Interp) pop() frame {
	f := in.stack[len(in.stack)-1]
	in.stack = in.stack[:len(in.stack)-1]
	return f
}

func (in *Interp) top() *frame {
	if len(in.stack) == 0 {
		return nil
	}
	return &in.stack[len(in.stack)-1]
}

// loopOf returns the loop frame opened by line if it is the innermost frame.
func (in *Interp) loopOf(line *Line) *frame {
	if f := in.top(); f != nil && f.kind == loopFrame && f.line == line {
		return f
	}
	return nil
}

func (in *Interp) dropLoops() {
	for len(in.stack) > 0 && in.stack[len(in.stack)-1].kind == loopFrame {
		in.pop()
	}
}

// Depth returns the number of open loop and call frames.
func (in *Interp) Depth() int {
	return len(in.stack)
}

// jump continues at the given index of the current block.
func (in *Interp) jump(index int) {
	in.cur.pc = index
	in.moved = true
}

// jumpChain continues at the next link of an if or case chain, which then evaluates its condition.
func (in *Interp) jumpChain(index int) {
	in.jump(index)
	in.chainNext = true
}

// Skip advances past the current instruction without executing it.
func (in *Interp) Skip() {
	in.jump(in.cur.pc + 1)
}

// Goto transfers control to the start of a section, dropping open loops.
func (in *Interp) Goto(sec *Section) {
	in.dropLoops()
	in.cur = frame{sec: sec, block: sec.Block}
	in.moved = true
}

// Gosub calls a block; execution resumes after the current instruction when it ends.
func (in *Interp) Gosub(sec *Section, block *Block) bool {
	if !in.push(frame{kind: callFrame, sec: in.cur.sec, block: in.cur.block, pc: in.cur.pc + 1}) {
		return false
	}
	in.cur = frame{sec: sec, block: block}
	in.moved = true
	return true
}

// Return resumes after the innermost subroutine call, or exits when there is none.
func (in *Interp) Return() {
	if !in.unwind() {
		in.Exit()
	}
}

// Exit stops the script.
func (in *Interp) Exit() {
	in.clearWait()
	in.exited = true
	in.moved = true
	in.stack = in.stack[:0]
}

// Wait suspends stepping until the handler resumes the interpreter.
func (in *Interp) Wait(h Handler) {
	in.wait = h
}

// Resume clears the wait handler and stops the call timer.
func (in *Interp) Resume() {
	in.clearWait()
}

func (in *Interp) clearWait() {
	in.wait = nil
	if t, ok := in.data.(Timer); ok {
		t.ClearTimer()
	}
}

// SetTimer starts the call timer, if the call data provides one.
func (in *Interp) SetTimer(d time.Duration) bool {
	t, ok := in.data.(Timer)
	if !ok {
		return false
	}
	t.SetTimer(d)
	return true
}

// Post offers an event to the wait handler, then to the event branches of the current section.
func (in *Interp) Post(ev *event.Event) bool {
	if in.exited {
		return false
	}
	if in.wait != nil && in.wait(in, ev) {
		return true
	}
	if in.cur.sec.Ignores(ev) {
		return false
	}
	for _, name := range ev.Branches() {
		if in.Signal(name) {
			return true
		}
	}
	return false
}

// Signal transfers control to the named event branch of the current section.
func (in *Interp) Signal(name string) bool {
	if in.exited || in.cur.sec == nil {
		return false
	}
	br := in.cur.sec.Event(name)
	if br == nil {
		return false
	}
	in.logger.Debugf("Signal %q in section %q", name, in.cur.sec.Name)
	in.clearWait()
	in.dropLoops()
	in.cur.block = br.Block
	in.cur.pc = 0
	in.moved = true
	in.chainNext = false
	return true
}

// Error records a runtime error in %error and dispatches the error branch if there is one.
func (in *Interp) Error(msg string) {
	in.vars["error"] = msg
	line := 0
	if l := in.Current(); l != nil {
		line = l.Num
	}
	in.logger.Debugf("Script error in section %q at line %d: %s", in.sectionName(), line, msg)
	in.Signal("error")
}

func (in *Interp) sectionName() string {
	if in.cur.sec == nil {
		return ""
	}
	return in.cur.sec.Name
}

// Var returns a call variable; the name may carry a leading '%'.
func (in *Interp) Var(name string) string {
	return in.vars[symbolName(name)]
}

func (in *Interp) Lookup(name string) (string, bool) {
	v, ok := in.vars[symbolName(name)]
	return v, ok
}

// Set assigns a call variable; the name may carry a leading '%'.
func (in *Interp) Set(name, value string) {
	in.vars[symbolName(name)] = value
}

// Vars returns a copy of the call variables.
func (in *Interp) Vars() map[string]string {
	res := make(map[string]string, len(in.vars))
	for k, v := range in.vars {
		res[k] = v
	}
	return res
}

// Value resolves an argument: "&text" is a literal, "%name" a variable, "$op/param:name"
// an indexed reference. Anything else is taken literally.
func (in *Interp) Value(arg string) string {
	if arg == "" {
		return ""
	}
	switch arg[0] {
	case '&':
		return arg[1:]
	case '%':
		return in.Var(arg[1:])
	case '$':
		return in.ref(arg[1:])
	}
	return arg
}

// Values resolves and concatenates arguments.
func (in *Interp) Values(args []string) string {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(in.Value(a))
	}
	return sb.String()
}

func (in *Interp) ref(spec string) string {
	op, name, ok := strings.Cut(spec, ":")
	if !ok {
		return in.Var(spec)
	}
	kind, param, _ := strings.Cut(op, "/")
	list := in.Var(name)
	switch kind {
	case "map":
		v, _ := mapItem(list, in.mapKey(param))
		return v
	case "find":
		v, _ := findItem(list, in.key(param))
		return v
	case "offset":
		v, _ := arglist.Item(list, atoi(in.key(param))-1)
		return v
	case "index":
		v, _ := arglist.Item(list, atoi(in.key(param)))
		return v
	}
	return in.Var(op)
}

func (in *Interp) key(param string) string {
	if param != "" && (param[0] == '%' || param[0] == '&') {
		return in.Value(param)
	}
	return param
}

// mapKey resolves the key of a "%name<key>" reference. A bare key names a variable
// when one is set and is taken literally otherwise.
func (in *Interp) mapKey(param string) string {
	if param != "" && param[0] != '%' && param[0] != '&' {
		if v, ok := in.Lookup(param); ok {
			return v
		}
	}
	return in.key(param)
}

// mapItem returns the value of the "key=value" item with the given key.
func mapItem(list, key string) (string, bool) {
	for _, item := range arglist.Split(list) {
		if k, v, ok := strings.Cut(item, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// findItem matches either a bare item or the key of a "key=value" item.
func findItem(list, key string) (string, bool) {
	for _, item := range arglist.Split(list) {
		if item == key {
			return item, true
		}
		if k, v, ok := strings.Cut(item, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// Bool interprets a value as a condition result.
func Bool(s string) bool {
	switch strings.ToLower(s) {
	case "", "0", "false", "no", "off":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return true
}
