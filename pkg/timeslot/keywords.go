package timeslot

import (
	"strconv"
	"sync"

	"github.com/ivrplatform/goivr/pkg/event"
	"github.com/ivrplatform/goivr/pkg/script"
	"github.com/pkg/errors"
)

var initOnce sync.Once

// Init registers the core keywords and the telephony keywords run by timeslots.
func Init() {
	initOnce.Do(func() {
		script.Init()
		script.Assign(keywords())
	})
}

func keywords() []script.Keyword {
	return []script.Keyword{
		{Name: "answer", Method: answerMethod, Check: checkNone},
		{Name: "hangup", Method: hangupMethod, Check: checkNone},
		{Name: "sleep", Method: sleepMethod, Check: checkSleep},
		{Name: "collect", Method: collectMethod, Check: checkCollect},
	}
}

func checkNone(_ *script.Image, _ *script.Section, line *script.Line) error {
	if len(line.Args) > 0 {
		return errors.New("too many arguments")
	}
	return nil
}

func checkSleep(_ *script.Image, _ *script.Section, line *script.Line) error {
	if len(line.Args) != 1 {
		return errors.New("sleep takes one timeout")
	}
	return nil
}

// collect %var count [timeout]
func checkCollect(_ *script.Image, _ *script.Section, line *script.Line) error {
	switch {
	case len(line.Args) < 2:
		return errors.New("missing arguments")
	case len(line.Args) > 3:
		return errors.New("too many arguments")
	case len(line.Args[0]) < 2 || line.Args[0][0] != '%':
		return errors.Errorf("%s is not a variable", line.Args[0])
	}
	return nil
}

func slot(in *script.Interp, line *script.Line) *Timeslot {
	ts, ok := in.Data().(*Timeslot)
	if !ok {
		in.Error(line.Cmd + " requires a timeslot")
		return nil
	}
	return ts
}

func answerMethod(in *script.Interp, line *script.Line) bool {
	ts := slot(in, line)
	if ts == nil {
		return true
	}
	if err := ts.line.Fire(answerTrigger); err != nil {
		in.Error("cannot answer in line mode " + ts.mode)
	}
	return true
}

func hangupMethod(in *script.Interp, line *script.Line) bool {
	ts := slot(in, line)
	if ts == nil {
		return true
	}
	if err := ts.line.Fire(hangupTrigger); err != nil {
		ts.logger.Debugf("Timeslot %d hangup in line mode %s: %v", ts.id, ts.mode, err)
	}
	in.Exit()
	return false
}

// sleepMethod waits for the timer. Digits are discarded, other events still reach the event branches.
func sleepMethod(in *script.Interp, line *script.Line) bool {
	d, ok := script.ParseTimeout(in.Value(line.Args[0]))
	if !ok {
		in.Error("invalid timeout")
		return true
	}
	if !in.SetTimer(d) {
		return true
	}
	in.Wait(func(in *script.Interp, ev *event.Event) bool {
		switch ev.ID {
		case event.TimerExpired:
			in.Resume()
			return true
		case event.DTMFKeyDown, event.DTMFKeyUp, event.DTMFSync:
			return true
		}
		return false
	})
	return false
}

// collectMethod gathers digits into a variable until the count is reached or the timer expires.
func collectMethod(in *script.Interp, line *script.Line) bool {
	count, err := strconv.Atoi(in.Value(line.Args[1]))
	if err != nil || count <= 0 {
		in.Error("invalid digit count")
		return true
	}
	target := line.Args[0]
	in.Set(target, "")
	if len(line.Args) > 2 {
		d, ok := script.ParseTimeout(in.Value(line.Args[2]))
		if !ok {
			in.Error("invalid timeout")
			return true
		}
		in.SetTimer(d)
	}
	in.Wait(func(in *script.Interp, ev *event.Event) bool {
		switch ev.ID {
		case event.DTMFKeyUp:
			d, _ := ev.DTMF()
			c, ok := event.DigitRune(d.Digit)
			if !ok {
				return true
			}
			digits := in.Var(target) + string(c)
			in.Set(target, digits)
			if len(digits) >= count {
				in.Resume()
			}
			return true
		case event.DTMFKeyDown, event.DTMFSync:
			return true
		case event.TimerExpired:
			in.Resume()
			return true
		}
		return false
	})
	return false
}
