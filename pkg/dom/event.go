package dom

import "golang.org/x/net/html"

// Event is a DOM event dispatched to listeners.
type Event struct {
	Type    string
	Key     string
	KeyCode int

	// Target is the node the event was fired at; CurrentTarget the node
	// whose listener is running.
	Target        *html.Node
	CurrentTarget *html.Node

	// Detail carries any extra fields supplied by the sender.
	Detail map[string]any

	stopped          bool
	defaultPrevented bool
}

// StopPropagation prevents the event from reaching further ancestors.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// PreventDefault marks the event's default action as cancelled.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// Handler handles a dispatched event.
type Handler func(*Event)

type listener struct {
	typ string
	fn  Handler
}

// AddEventListener registers fn for events of typ on n. The returned func
// removes the listener.
func (d *Document) AddEventListener(n *html.Node, typ string, fn Handler) func() {
	l := &listener{typ: typ, fn: fn}
	d.listeners[n] = append(d.listeners[n], l)
	return func() {
		list := d.listeners[n]
		for i, cur := range list {
			if cur == l {
				d.listeners[n] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(d.listeners[n]) == 0 {
			delete(d.listeners, n)
		}
	}
}

// Listeners returns the number of listeners registered on n.
func (d *Document) Listeners(n *html.Node) int {
	return len(d.listeners[n])
}

// Dispatch fires ev at target and bubbles it through the ancestors.
// Returns false if a listener called PreventDefault.
func (d *Document) Dispatch(target *html.Node, ev *Event) bool {
	ev.Target = target
	var path []*html.Node
	for n := target; n != nil; n = n.Parent {
		path = append(path, n)
	}
	for _, n := range path {
		// Copy so listeners added or removed during dispatch do not affect
		// this node's round.
		list := append([]*listener(nil), d.listeners[n]...)
		ev.CurrentTarget = n
		for _, l := range list {
			if l.typ == ev.Type {
				l.fn(ev)
			}
		}
		if ev.stopped {
			break
		}
	}
	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}
