package orchestrator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBadCommand is returned by ParseCommand for unrecognized input.
var ErrBadCommand = errors.New("orchestrator: bad command")

// Op is a control operation.
type Op int

const (
	OpToggle Op = iota
	OpPause
	OpResume
	OpSeekTime
	OpSeekFrame
	OpRestart
	OpQuit
)

// Command is one control request for a running session.
type Command struct {
	Op    Op
	Time  time.Duration // OpSeekTime target
	Frame int64         // OpSeekFrame target
}

func (c Command) String() string {
	switch c.Op {
	case OpToggle:
		return "toggle"
	case OpPause:
		return "pause"
	case OpResume:
		return "resume"
	case OpSeekTime:
		return "seek " + c.Time.String()
	case OpSeekFrame:
		return "frame " + strconv.FormatInt(c.Frame, 10)
	case OpRestart:
		return "restart"
	case OpQuit:
		return "quit"
	default:
		return fmt.Sprintf("op(%d)", int(c.Op))
	}
}

// ParseCommand parses one line of interactive input:
//
//	p | space        toggle pause
//	pause, resume    set the paused flag
//	s <seconds>      seek to a time, e.g. "s 1.5" or "s 90s"
//	f <frame>        seek to a frame index
//	r                restart from the first frame
//	q                quit
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		if line != "" {
			return Command{Op: OpToggle}, nil
		}
		return Command{}, fmt.Errorf("%w: empty", ErrBadCommand)
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "p", "toggle":
		return noArgs(Command{Op: OpToggle}, args)
	case "pause":
		return noArgs(Command{Op: OpPause}, args)
	case "resume", "play":
		return noArgs(Command{Op: OpResume}, args)
	case "r", "restart":
		return noArgs(Command{Op: OpRestart}, args)
	case "q", "quit", "exit":
		return noArgs(Command{Op: OpQuit}, args)
	case "s", "seek":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: seek takes one time argument", ErrBadCommand)
		}
		d, err := parseTime(args[0])
		if err != nil {
			return Command{}, err
		}
		return Command{Op: OpSeekTime, Time: d}, nil
	case "f", "frame":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: frame takes one index argument", ErrBadCommand)
		}
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || n < 0 {
			return Command{}, fmt.Errorf("%w: frame index %q", ErrBadCommand, args[0])
		}
		return Command{Op: OpSeekFrame, Frame: n}, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrBadCommand, name)
	}
}

func noArgs(c Command, args []string) (Command, error) {
	if len(args) > 0 {
		return Command{}, fmt.Errorf("%w: %s takes no arguments", ErrBadCommand, c)
	}
	return c, nil
}

// parseTime accepts plain seconds or a Go duration.
func parseTime(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("%w: negative time %q", ErrBadCommand, s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: time %q", ErrBadCommand, s)
	}
	return d, nil
}
