package script

import (
	"strconv"
	"strings"
	"time"

	"github.com/ivrplatform/goivr/pkg/event"
	"github.com/ivrplatform/goivr/pkg/script/arglist"
	"github.com/pkg/errors"
)

func coreKeywords() []Keyword {
	return []Keyword{
		{Name: "pause", Method: pauseMethod, Check: checkPause},
		{Name: "nop", Method: nopMethod, Check: checkNoArgs},
		{Name: "exit", Method: exitMethod, Check: checkNoArgs},
		{Name: "return", Method: returnMethod, Check: checkNoArgs},
		{Name: "restart", Method: restartMethod, Check: checkNoArgs},
		{Name: "goto", Method: gotoMethod, Check: checkBranch},
		{Name: "gosub", Method: gosubMethod, Check: checkBranch},
		{Name: "var", Method: varMethod, Check: checkVar},
		{Name: "const", Check: checkConst},
		{Name: "strict", Check: checkStrict},
		{Name: "error", Method: errorMethod, Check: checkArgs},
		{Name: "clear", Method: clearMethod, Check: checkRefs},
		{Name: "push", Method: pushMethod, Check: checkPush},
		{Name: "set", Method: setMethod, Check: checkAssign},
		{Name: "add", Method: addMethod, Check: checkAssign},
		{Name: "pack", Method: packMethod, Check: checkAssign},
		{Name: "expand", Method: expandMethod, Check: checkExpand},
		{Name: "expr", Method: exprMethod, Check: checkExpr},
		{Name: "do", Method: doMethod, Check: checkDo},
		{Name: "while", Method: whileMethod, Check: checkWhile},
		{Name: "for", Method: forMethod, Check: checkFor},
		{Name: "foreach", Method: foreachMethod, Check: checkFor},
		{Name: "loop", Method: loopMethod, Check: checkLoop},
		{Name: "until", Method: untilMethod, Check: checkUntil},
		{Name: "break", Method: breakMethod, Check: checkBreak},
		{Name: "continue", Method: continueMethod, Check: checkBreak},
		{Name: "previous", Method: previousMethod, Check: checkIterate},
		{Name: "repeat", Method: repeatMethod, Check: checkIterate},
		{Name: "index", Method: indexMethod, Check: checkIndex},
		{Name: "if", Method: ifMethod, Check: checkIf},
		{Name: "elif", Method: ifMethod, Check: checkElif},
		{Name: "else", Method: elseMethod, Check: checkElse},
		{Name: "endif", Method: nopMethod, Check: checkEndif},
		{Name: "case", Method: ifMethod, Check: checkCase},
		{Name: "otherwise", Method: elseMethod, Check: checkOtherwise},
		{Name: "endcase", Method: nopMethod, Check: checkEndcase},
		{Name: "apply", Check: checkApply},
		{Name: "ignore", Check: checkIgnore},
		{Name: "_ifthen", Method: ifthenMethod, Check: checkArgs},
		{Name: "_define", Method: defineMethod, Check: checkDefine},
		{Name: "_invoke", Method: invokeMethod, Check: checkInvoke},
		{Name: "_ref", Method: refMethod, Check: checkRef},
	}
}

func checkNoArgs(_ *Image, _ *Section, line *Line) error {
	if len(line.Args) > 0 {
		return errTooManyArgs
	}
	return nil
}

func checkArgs(_ *Image, _ *Section, line *Line) error {
	if len(line.Args) == 0 {
		return errMissingArgs
	}
	return nil
}

func checkPause(_ *Image, _ *Section, line *Line) error {
	if len(line.Args) > 1 {
		return errTooManyArgs
	}
	return nil
}

func checkBranch(_ *Image, _ *Section, line *Line) error {
	switch {
	case len(line.Args) == 0:
		return errMissingArgs
	case len(line.Args) > 1:
		return errTooManyArgs
	}
	return nil
}

func isRef(arg string) bool {
	return len(arg) > 1 && arg[0] == '%'
}

func checkRefs(_ *Image, _ *Section, line *Line) error {
	if len(line.Args) == 0 {
		return errMissingArgs
	}
	for _, a := range line.Args {
		if !isRef(a) {
			return errors.Errorf("%s is not a variable", a)
		}
	}
	return nil
}

func checkAssign(_ *Image, _ *Section, line *Line) error {
	if len(line.Args) == 0 {
		return errMissingArgs
	}
	if !isRef(line.Args[0]) {
		return errors.New("invalid assignment target")
	}
	return nil
}

func checkPush(_ *Image, _ *Section, line *Line) error {
	if len(line.Args) < 2 {
		return errMissingArgs
	}
	if !isRef(line.Args[0]) {
		return errors.New("invalid assignment target")
	}
	return nil
}

func checkExpand(_ *Image, _ *Section, line *Line) error {
	if len(line.Args) < 2 {
		return errMissingArgs
	}
	for _, a := range line.Args[1:] {
		if !isRef(a) {
			return errors.Errorf("%s is not a variable", a)
		}
	}
	return nil
}

func checkExpr(img *Image, sec *Section, line *Line) error {
	if err := checkAssign(img, sec, line); err != nil {
		return err
	}
	if len(line.Args) < 3 {
		return errMissingArgs
	}
	if !exprOps[line.Args[1]] {
		return errors.Errorf("invalid expression operator %s", line.Args[1])
	}
	return nil
}

// pairs splits declarations of the form "=name value" or "name".
func pairs(args []string) ([][2]string, error) {
	var res [][2]string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "=") {
			if i+1 >= len(args) {
				return nil, errors.Errorf("missing value of %s", a[1:])
			}
			res = append(res, [2]string{a[1:], args[i+1]})
			i++
			continue
		}
		res = append(res, [2]string{symbolName(a), ""})
	}
	return res, nil
}

func literal(arg string) string {
	if strings.HasPrefix(arg, "&") {
		return arg[1:]
	}
	return arg
}

func checkVar(img *Image, sec *Section, line *Line) error {
	decl, err := pairs(line.Args)
	if err != nil {
		return err
	}
	if len(decl) == 0 {
		return errMissingArgs
	}
	for _, d := range decl {
		img.CreateVar(sec, d[0])
		if sec.Kind == KindInit {
			img.SetDefault(d[0], literal(d[1]))
		}
	}
	return nil
}

func checkConst(img *Image, sec *Section, line *Line) error {
	decl, err := pairs(line.Args)
	if err != nil {
		return err
	}
	if len(decl) == 0 {
		return errMissingArgs
	}
	for _, d := range decl {
		img.CreateSym(sec, d[0])
		img.SetDefault(d[0], literal(d[1]))
	}
	return nil
}

func checkStrict(img *Image, _ *Section, line *Line) error {
	img.EnableStrict()
	for _, a := range line.Args {
		img.CreateGlobal(a)
	}
	return nil
}

func checkDo(img *Image, _ *Section, line *Line) error {
	if len(line.Args) > 0 {
		return errTooManyArgs
	}
	if !img.Push(line) {
		return errStackOverflow
	}
	return nil
}

func checkWhile(img *Image, _ *Section, line *Line) error {
	if len(line.Args) == 0 {
		return errMissingArgs
	}
	if !img.Push(line) {
		return errStackOverflow
	}
	return nil
}

func checkFor(img *Image, _ *Section, line *Line) error {
	if len(line.Args) < 2 {
		return errMissingArgs
	}
	if !isRef(line.Args[0]) {
		return errors.Errorf("%s is not a variable", line.Args[0])
	}
	if !img.Push(line) {
		return errStackOverflow
	}
	return nil
}

var loopCmds = []string{"do", "while", "for", "foreach"}

func isLoop(line *Line) bool {
	if line == nil {
		return false
	}
	for _, c := range loopCmds {
		if line.Cmd == c {
			return true
		}
	}
	return false
}

// closeLoop pairs a closing instruction with its opener.
func closeLoop(img *Image, line *Line) (*Line, error) {
	opener := img.Looping()
	if !isLoop(opener) {
		return nil, errUnexpected(line.Cmd)
	}
	img.Pull()
	opener.Exit = line.Index
	line.Jump = opener.Index
	return opener, nil
}

func checkLoop(img *Image, _ *Section, line *Line) error {
	if len(line.Args) > 0 {
		return errTooManyArgs
	}
	_, err := closeLoop(img, line)
	return err
}

func checkUntil(img *Image, _ *Section, line *Line) error {
	if len(line.Args) == 0 {
		return errMissingArgs
	}
	if opener := img.Looping(); opener == nil || opener.Cmd != "do" {
		return errUnexpected(line.Cmd)
	}
	_, err := closeLoop(img, line)
	return err
}

func checkBreak(img *Image, _ *Section, line *Line) error {
	if len(line.Args) > 0 {
		return errTooManyArgs
	}
	opener := img.innermost(loopCmds...)
	if opener == nil {
		return errUnexpected(line.Cmd)
	}
	line.Jump = opener.Index
	return nil
}

func checkIterate(img *Image, _ *Section, line *Line) error {
	if len(line.Args) > 0 {
		return errTooManyArgs
	}
	opener := img.innermost("for", "foreach")
	if opener == nil {
		return errUnexpected(line.Cmd)
	}
	line.Jump = opener.Index
	return nil
}

func checkIndex(img *Image, _ *Section, line *Line) error {
	switch {
	case len(line.Args) == 0:
		return errMissingArgs
	case len(line.Args) > 1:
		return errTooManyArgs
	}
	opener := img.innermost("for", "foreach")
	if opener == nil {
		return errUnexpected(line.Cmd)
	}
	line.Jump = opener.Index
	return nil
}

// checkApply copies the event and method branches of templates into the section.
// Branches the section declares itself take precedence.
func checkApply(img *Image, sec *Section, line *Line) error {
	if len(line.Args) == 0 {
		return errMissingArgs
	}
	if sec == nil || sec.Kind == KindInit {
		return errors.New("apply cannot be in init segment")
	}
	for _, name := range line.Args {
		tpl := img.Section(name)
		if tpl == nil {
			tpl = img.shared.Section(name)
		}
		if tpl == nil || tpl.Kind != KindTemplate {
			return errors.Errorf("unknown template %s", name)
		}
		if tpl == sec {
			return errors.Errorf("template %s cannot apply itself", name)
		}
		sec.Events = inherit(sec.Events, tpl.Events)
		sec.Methods = inherit(sec.Methods, tpl.Methods)
		sec.Mask |= tpl.Mask
	}
	return nil
}

func inherit(own, from []*Branch) []*Branch {
	for _, b := range from {
		if findBranch(own, b.Name) == nil {
			own = append(own, &Branch{Name: b.Name, Block: b.Block, inherited: true})
		}
	}
	return own
}

// checkIgnore masks DTMF keys so that they no longer select event branches of the section.
func checkIgnore(_ *Image, sec *Section, line *Line) error {
	if len(line.Args) == 0 {
		return errMissingArgs
	}
	if sec == nil || sec.Kind == KindInit {
		return errors.New("ignore cannot be in init segment")
	}
	for _, a := range line.Args {
		m, ok := keyMask(a)
		if !ok {
			return errors.Errorf("invalid key %s", a)
		}
		sec.Mask |= m
	}
	return nil
}

func keyMask(arg string) (uint16, bool) {
	if arg == "all" || arg == "dtmf" {
		return 0xffff, true
	}
	if len(arg) != 1 {
		return 0, false
	}
	d, ok := event.ParseDigit(arg[0])
	if !ok {
		return 0, false
	}
	return 1 << d, true
}

func checkIf(img *Image, _ *Section, line *Line) error {
	if len(line.Args) == 0 {
		return errMissingArgs
	}
	if !img.Push(line) {
		return errStackOverflow
	}
	return nil
}

// link appends line to the if or case chain open on top of the stack.
func link(img *Image, line *Line, cmds ...string) error {
	prev := img.Looping()
	if prev == nil {
		return errUnexpected(line.Cmd)
	}
	matched := false
	for _, c := range cmds {
		if prev.Cmd == c {
			matched = true
			break
		}
	}
	if !matched {
		return errUnexpected(line.Cmd)
	}
	img.Pull()
	prev.Jump = line.Index
	line.link = prev
	img.Push(line)
	return nil
}

// closeChain resolves the exit of every link of the chain ending on top of the stack.
func closeChain(img *Image, line *Line, cmds ...string) error {
	if len(line.Args) > 0 {
		return errTooManyArgs
	}
	prev := img.Looping()
	if prev == nil {
		return errUnexpected(line.Cmd)
	}
	matched := false
	for _, c := range cmds {
		if prev.Cmd == c {
			matched = true
			break
		}
	}
	if !matched {
		return errUnexpected(line.Cmd)
	}
	img.Pull()
	if prev.Jump < 0 {
		prev.Jump = line.Index
	}
	for l := prev; l != nil; l = l.link {
		l.Exit = line.Index
	}
	return nil
}

func checkElif(img *Image, _ *Section, line *Line) error {
	if len(line.Args) == 0 {
		return errMissingArgs
	}
	return link(img, line, "if", "elif")
}

func checkElse(img *Image, _ *Section, line *Line) error {
	if len(line.Args) > 0 {
		return errTooManyArgs
	}
	return link(img, line, "if", "elif")
}

func checkEndif(img *Image, _ *Section, line *Line) error {
	return closeChain(img, line, "if", "elif", "else")
}

// checkCase opens a case chain, or adds a link when a case chain is innermost.
func checkCase(img *Image, sec *Section, line *Line) error {
	if len(line.Args) == 0 {
		return errMissingArgs
	}
	if prev := img.Looping(); prev != nil && prev.Cmd == "case" {
		return link(img, line, "case")
	}
	return checkIf(img, sec, line)
}

func checkOtherwise(img *Image, _ *Section, line *Line) error {
	if len(line.Args) > 0 {
		return errTooManyArgs
	}
	return link(img, line, "case")
}

func checkEndcase(img *Image, _ *Section, line *Line) error {
	return closeChain(img, line, "case", "otherwise")
}

func checkDefine(img *Image, sec *Section, line *Line) error {
	decl, err := pairs(line.Args)
	if err != nil {
		return err
	}
	for _, d := range decl {
		img.CreateVar(sec, d[0])
	}
	return nil
}

func checkInvoke(_ *Image, _ *Section, line *Line) error {
	if line.Sub == nil {
		return errors.Errorf("unknown keyword %q", line.Cmd)
	}
	_, err := pairs(line.Args)
	return err
}

var refOps = map[string]bool{"++": true, "--": true, "<<": true, ">>": true}

func checkRef(_ *Image, _ *Section, line *Line) error {
	if len(line.Args) == 0 {
		return errMissingArgs
	}
	op, name, ok := strings.Cut(strings.TrimPrefix(line.Args[0], "$"), ":")
	if !ok || name == "" || !refOps[op] {
		return errors.Errorf("invalid reference %s", line.Args[0])
	}
	return nil
}

func nopMethod(_ *Interp, _ *Line) bool {
	return true
}

func exitMethod(in *Interp, _ *Line) bool {
	in.Exit()
	return false
}

func returnMethod(in *Interp, _ *Line) bool {
	in.Return()
	return true
}

func restartMethod(in *Interp, _ *Line) bool {
	in.Goto(in.cur.sec)
	return true
}

// ParseTimeout accepts Go durations and bare numbers of milliseconds.
func ParseTimeout(s string) (time.Duration, bool) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, d >= 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}

// WaitTimer is a wait handler that resumes on timer expiry.
func WaitTimer(in *Interp, ev *event.Event) bool {
	if ev.ID != event.TimerExpired {
		return false
	}
	in.Resume()
	return true
}

func pauseMethod(in *Interp, line *Line) bool {
	if len(line.Args) > 0 {
		d, ok := ParseTimeout(in.Value(line.Args[0]))
		if !ok {
			in.Error("invalid timeout")
			return true
		}
		if !in.SetTimer(d) {
			return true
		}
	}
	in.Wait(WaitTimer)
	return false
}

// target resolves a branch destination: "-name" is a method of the current section, anything else a section.
func (in *Interp) target(name string) (*Section, *Block) {
	if strings.HasPrefix(name, "-") {
		if br := in.cur.sec.Method(name[1:]); br != nil {
			return in.cur.sec, br.Block
		}
		return nil, nil
	}
	sec := in.img.Lookup(name)
	if sec == nil || sec.Kind == KindInit {
		return nil, nil
	}
	return sec, sec.Block
}

func gotoMethod(in *Interp, line *Line) bool {
	name := in.Value(line.Args[0])
	sec, block := in.target(name)
	if sec == nil {
		in.Error("unknown label " + name)
		return true
	}
	in.Goto(sec)
	in.cur.block = block
	return true
}

func gosubMethod(in *Interp, line *Line) bool {
	name := in.Value(line.Args[0])
	sec, block := in.target(name)
	if sec == nil {
		in.Error("unknown label " + name)
		return true
	}
	if !in.Gosub(sec, block) {
		in.Error("stack overflow")
	}
	return true
}

func varMethod(in *Interp, line *Line) bool {
	decl, _ := pairs(line.Args)
	for _, d := range decl {
		if _, ok := in.Lookup(d[0]); !ok {
			in.Set(d[0], in.Value(d[1]))
		}
	}
	return true
}

func errorMethod(in *Interp, line *Line) bool {
	parts := make([]string, len(line.Args))
	for i, a := range line.Args {
		parts[i] = in.Value(a)
	}
	in.Error(strings.Join(parts, " "))
	return true
}

func clearMethod(in *Interp, line *Line) bool {
	for _, a := range line.Args {
		in.Set(a, "")
	}
	return true
}

func setMethod(in *Interp, line *Line) bool {
	in.Set(line.Args[0], in.Values(line.Args[1:]))
	return true
}

func addMethod(in *Interp, line *Line) bool {
	in.Set(line.Args[0], in.Var(line.Args[0])+in.Values(line.Args[1:]))
	return true
}

func packMethod(in *Interp, line *Line) bool {
	items := arglist.Split(in.Var(line.Args[0]))
	for _, a := range line.Args[1:] {
		items = append(items, in.Value(a))
	}
	in.Set(line.Args[0], arglist.Join(items...))
	return true
}

// pushMethod stores a "key=value" item in a list, replacing an item with the same key.
func pushMethod(in *Interp, line *Line) bool {
	key := in.Value(line.Args[1])
	item := key + "=" + in.Values(line.Args[2:])
	items := arglist.Split(in.Var(line.Args[0]))
	replaced := false
	for i, v := range items {
		if k, _, ok := strings.Cut(v, "="); ok && k == key {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}
	in.Set(line.Args[0], arglist.Join(items...))
	return true
}

// expandMethod unpacks the items of a list into variables. Variables past the
// end of the list are cleared.
func expandMethod(in *Interp, line *Line) bool {
	list := in.Value(line.Args[0])
	for i, name := range line.Args[1:] {
		v, _ := arglist.Item(list, i)
		in.Set(name, v)
	}
	return true
}

func exprMethod(in *Interp, line *Line) bool {
	target, op, tokens := line.Args[0], line.Args[1], line.Args[2:]
	if op == "#=" {
		in.Set(target, strconv.Itoa(arglist.Count(in.Values(tokens))))
		return true
	}
	if op != ":=" {
		tokens = append([]string{target, op[:1]}, tokens...)
	}
	v, err := in.Calculate(tokens)
	if err != nil {
		in.Error(err.Error())
		return true
	}
	in.Set(target, v)
	return true
}

func doMethod(in *Interp, line *Line) bool {
	if in.loopOf(line) == nil && !in.push(frame{kind: loopFrame, line: line}) {
		in.Error("stack overflow")
	}
	return true
}

func whileMethod(in *Interp, line *Line) bool {
	f := in.loopOf(line)
	ok := in.Condition(line.Args)
	if in.moved {
		return true
	}
	if !ok {
		if f != nil {
			in.pop()
		}
		in.jump(line.Exit + 1)
		return true
	}
	if f == nil && !in.push(frame{kind: loopFrame, line: line}) {
		in.Error("stack overflow")
	}
	return true
}

// iterate advances a for or foreach loop, returning false once the items are exhausted.
func iterate(in *Interp, line *Line, item func(index int) (string, bool)) bool {
	f := in.loopOf(line)
	if f == nil {
		if !in.push(frame{kind: loopFrame, line: line}) {
			in.Error("stack overflow")
			return true
		}
		f = in.top()
	}
	v, ok := item(f.index)
	if !ok {
		in.pop()
		in.jump(line.Exit + 1)
		return true
	}
	f.index++
	in.Set(line.Args[0], v)
	return true
}

func forMethod(in *Interp, line *Line) bool {
	items := line.Args[1:]
	return iterate(in, line, func(i int) (string, bool) {
		if i >= len(items) {
			return "", false
		}
		return in.Value(items[i]), true
	})
}

func foreachMethod(in *Interp, line *Line) bool {
	list := in.Values(line.Args[1:])
	return iterate(in, line, func(i int) (string, bool) {
		return arglist.Item(list, i)
	})
}

func (in *Interp) opener(line *Line) *Line {
	if line.Jump < 0 || line.Jump >= in.cur.block.Len() {
		return nil
	}
	return in.cur.block.Lines[line.Jump]
}

// loopFrame drops frames opened inside the loop started by opener and returns its frame.
func (in *Interp) loopFrame(opener *Line) *frame {
	for i := len(in.stack) - 1; i >= 0; i-- {
		f := &in.stack[i]
		if f.kind == callFrame {
			return nil
		}
		if f.line == opener {
			in.stack = in.stack[:i+1]
			return f
		}
	}
	return nil
}

func loopMethod(in *Interp, line *Line) bool {
	in.jump(line.Jump)
	return true
}

func untilMethod(in *Interp, line *Line) bool {
	ok := in.Condition(line.Args)
	if in.moved {
		return true
	}
	if !ok {
		in.jump(line.Jump)
		return true
	}
	if opener := in.opener(line); opener != nil && in.loopFrame(opener) != nil {
		in.pop()
	}
	return true
}

func breakMethod(in *Interp, line *Line) bool {
	opener := in.opener(line)
	if opener == nil || in.loopFrame(opener) == nil {
		in.Error("break outside of loop")
		return true
	}
	in.pop()
	in.jump(opener.Exit + 1)
	return true
}

func continueMethod(in *Interp, line *Line) bool {
	opener := in.opener(line)
	if opener == nil || in.loopFrame(opener) == nil {
		in.Error("continue outside of loop")
		return true
	}
	in.jump(opener.Exit)
	return true
}

// reposition moves the loop started by the line's opener to the item chosen by
// next and restarts it from the opener.
func reposition(in *Interp, line *Line, next func(index int) int) bool {
	opener := in.opener(line)
	f := (*frame)(nil)
	if opener != nil {
		f = in.loopFrame(opener)
	}
	if f == nil {
		in.Error(line.Cmd + " outside of loop")
		return true
	}
	f.index = next(f.index)
	if f.index < 0 {
		f.index = 0
	}
	in.jump(opener.Index)
	return true
}

func previousMethod(in *Interp, line *Line) bool {
	return reposition(in, line, func(i int) int { return i - 2 })
}

func repeatMethod(in *Interp, line *Line) bool {
	return reposition(in, line, func(i int) int { return i - 1 })
}

// indexMethod continues the loop at the given item, counting from 1.
func indexMethod(in *Interp, line *Line) bool {
	n := atoi(in.Value(line.Args[0]))
	return reposition(in, line, func(int) int { return n - 1 })
}

// ifMethod runs the head of an if or case chain, and the links reached by a failed condition.
// A link reached after a body completed skips to the end of the chain.
func ifMethod(in *Interp, line *Line) bool {
	if line.link != nil && !in.chained {
		in.jump(line.Exit)
		return true
	}
	ok := in.Condition(line.Args)
	if in.moved {
		return true
	}
	if !ok {
		in.jumpChain(line.Jump)
	}
	return true
}

func elseMethod(in *Interp, line *Line) bool {
	if !in.chained {
		in.jump(line.Exit)
	}
	return true
}

func ifthenMethod(in *Interp, line *Line) bool {
	ok := in.Condition(line.Args)
	if in.moved {
		return true
	}
	if !ok {
		in.jump(line.Jump)
	}
	return true
}

// invocation carries the arguments of a defined command call to its _define instruction.
type invocation struct {
	named      map[string]string
	positional []string
}

// invokeMethod calls a defined command. Named "=name value" arguments and positional
// arguments are bound by the _define instruction heading the called section.
func invokeMethod(in *Interp, line *Line) bool {
	call := &invocation{named: make(map[string]string)}
	for i := 0; i < len(line.Args); i++ {
		a := line.Args[i]
		if strings.HasPrefix(a, "=") && i+1 < len(line.Args) {
			call.named[a[1:]] = in.Value(line.Args[i+1])
			i++
			continue
		}
		call.positional = append(call.positional, in.Value(a))
	}
	if !in.Gosub(line.Sub, line.Sub.Block) {
		in.Error("stack overflow")
		return true
	}
	in.call = call
	return true
}

func defineMethod(in *Interp, line *Line) bool {
	decl, _ := pairs(line.Args)
	call := in.call
	in.call = nil
	if call == nil {
		call = &invocation{}
	}
	for _, d := range decl {
		v, ok := call.named[d[0]]
		if !ok && len(call.positional) > 0 {
			v, ok = call.positional[0], true
			call.positional = call.positional[1:]
		}
		if !ok {
			v = in.Value(d[1])
		}
		in.Set(d[0], v)
	}
	return true
}

func refMethod(in *Interp, line *Line) bool {
	op, name, _ := strings.Cut(line.Args[0][1:], ":")
	switch op {
	case "++", "--":
		n := atoi(in.Var(name))
		if op == "++" {
			n++
		} else {
			n--
		}
		in.Set(name, strconv.Itoa(n))
	case "<<":
		items := arglist.Split(in.Var(name))
		for _, a := range line.Args[1:] {
			items = append(items, in.Value(a))
		}
		in.Set(name, arglist.Join(items...))
	case ">>":
		items := arglist.Split(in.Var(name))
		last := ""
		if len(items) > 0 {
			last = items[len(items)-1]
			items = items[:len(items)-1]
		}
		in.Set(name, arglist.Join(items...))
		if len(line.Args) > 1 {
			in.Set(line.Args[1], last)
		}
	default:
		in.Error("invalid reference " + line.Args[0])
	}
	return true
}
