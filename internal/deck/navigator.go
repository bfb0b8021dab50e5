package deck

import "fmt"

// Frame is a (profile, page) location.
type Frame struct {
	Profile string
	Page    string
}

func (f Frame) String() string {
	return fmt.Sprintf("%s/%s", f.Profile, f.Page)
}

// Navigator is the stack of visited frames. The top is the visible page.
//
// Navigator is not safe for concurrent use; Manager serializes access.
type Navigator struct {
	stack []Frame
}

// Goto pushes f unless it is already on top. It reports whether the stack
// changed.
func (n *Navigator) Goto(f Frame) bool {
	if top, ok := n.Current(); ok && top == f {
		return false
	}
	n.stack = append(n.stack, f)
	return true
}

// Back returns to the frame beneath the top. With fewer than two frames it
// does nothing. It reports whether the stack changed.
func (n *Navigator) Back() bool {
	if len(n.stack) < 2 {
		return false
	}
	prev := n.stack[len(n.stack)-2]
	n.stack = n.stack[:len(n.stack)-2]
	n.Goto(prev)
	return true
}

// Current returns the top frame.
func (n *Navigator) Current() (Frame, bool) {
	if len(n.stack) == 0 {
		return Frame{}, false
	}
	return n.stack[len(n.stack)-1], true
}

// Depth returns the number of frames on the stack.
func (n *Navigator) Depth() int {
	return len(n.stack)
}

// Reset empties the stack.
func (n *Navigator) Reset() {
	n.stack = nil
}
