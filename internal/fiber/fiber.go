// Package fiber implements the cooperative Fiber scheduler.
//
// Go has no user-level stack switching, so each Fiber gets its own
// goroutine instead of its own machine stack. A pair of unbuffered
// channels (resumeCh/yieldCh) rendezvous the fiber's goroutine with
// whichever goroutine called Resume, so that at any instant exactly one
// of the two is actually running: Resume blocks on yieldCh the moment it
// hands off, and the fiber body blocks on resumeCh the moment it calls
// Yield. That invariant is what makes the package-level `current` stack
// below safe without a mutex: nothing ever reads or writes it from two
// goroutines at once.
package fiber

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"luby/internal/object"
)

// Status is one of four states: a fiber that has never run, one parked
// on a Yield, one whose body is currently executing, and one whose body
// has returned or raised.
type Status int

const (
	Created Status = iota
	Suspended
	Running
	Dead
)

// budget bounds the number of fiber goroutines live at once, a coarse
// defense against a script spawning fibers in a tight loop and never
// resuming them. Raised well above any legitimate script's needs.
var budget = semaphore.NewWeighted(4096)

// SetMaxFibers reconfigures the live-goroutine budget. The embedding API
// does not call it, so the budget stays at 4096 unless a host calls it.
func SetMaxFibers(n int64) {
	budget = semaphore.NewWeighted(n)
}

type resumeMsg struct {
	args []object.Value
}

type yieldMsg struct {
	value object.Value
	err   error
	done  bool
}

// State is one Fiber's runtime state: identity, the block it runs, and
// the channel pair used to hand control back and forth with whatever
// goroutine holds it.
type State struct {
	ID     uuid.UUID
	status Status

	caller object.Caller
	block  object.Value

	resumeCh chan resumeMsg
	yieldCh  chan yieldMsg
	started  bool
}

// current is the stack of fibers whose goroutine is the one actually
// running right now, innermost (most recently resumed) last. Yield
// consults its top to find "this" fiber; it is never touched from more
// than one goroutine concurrently (see package doc).
var current []*State

// New constructs a Fiber wrapping block, not yet started. caller is the
// VM (or any object.Caller) block's body will run against when resumed.
func New(caller object.Caller, block object.Value) *State {
	return &State{
		ID:       uuid.New(),
		status:   Created,
		caller:   caller,
		block:    block,
		resumeCh: make(chan resumeMsg),
		yieldCh:  make(chan yieldMsg),
	}
}

func (s *State) Status() Status { return s.status }

// Alive reports whether the fiber can still be resumed.
func (s *State) Alive() bool { return s.status != Dead }

// Resume hands control to the fiber, starting it on first call and
// waking it from its last Yield on every subsequent call, and blocks
// until the fiber yields again or finishes. args become the value(s) of
// the Fiber.new block's parameters on first resume, or of the paused
// Yield call on later ones.
func (s *State) Resume(args []object.Value) (object.Value, error) {
	if s.status == Dead {
		return nil, fmt.Errorf("dead fiber called")
	}
	if s.status == Running {
		return nil, fmt.Errorf("double resume of running fiber")
	}
	// Push onto the running stack before the fiber's goroutine can
	// possibly run: Yield looks up "this fiber" as the top of current,
	// and go s.run below may reach a Yield call before this goroutine
	// gets scheduled again, so the push must happen first, not after.
	current = append(current, s)

	if !s.started {
		s.started = true
		s.status = Running
		if err := budget.Acquire(context.Background(), 1); err != nil {
			current = current[:len(current)-1]
			s.status = Dead
			return nil, err
		}
		go s.run(args)
	} else {
		s.status = Running
		s.resumeCh <- resumeMsg{args: args}
	}

	msg := <-s.yieldCh
	current = current[:len(current)-1]

	if msg.done {
		s.status = Dead
		budget.Release(1)
	} else {
		s.status = Suspended
	}
	return msg.value, msg.err
}

func (s *State) run(args []object.Value) {
	val, err := s.caller.CallBlock(s.block, args)
	s.yieldCh <- yieldMsg{value: val, err: err, done: true}
}

// Yield suspends the innermost running fiber, handing value back to
// whoever called Resume, and blocks until the next Resume call, whose
// argument(s) become Yield's return value: zero args yield nil, one
// yields that value, more than one yields an Array of them.
func Yield(value object.Value) object.Value {
	if len(current) == 0 {
		return nil
	}
	s := current[len(current)-1]
	s.yieldCh <- yieldMsg{value: value, done: false}
	msg := <-s.resumeCh
	switch len(msg.args) {
	case 0:
		return nil
	case 1:
		return msg.args[0]
	default:
		return object.NewArray(msg.args...)
	}
}

// Current returns the innermost fiber currently running, or nil at the
// top level.
func Current() *State {
	if len(current) == 0 {
		return nil
	}
	return current[len(current)-1]
}
