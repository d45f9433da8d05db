package directive

import (
	"encoding/json"
	"errors"
	"strings"

	ierrors "github.com/vango-dev/interactivity/internal/errors"
	"github.com/vango-dev/interactivity/pkg/deep"
	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/expr"
	"github.com/vango-dev/interactivity/pkg/loop"
	"github.com/vango-dev/interactivity/pkg/reactive"
	"github.com/vango-dev/interactivity/pkg/render"
	"github.com/vango-dev/interactivity/pkg/scope"
	"github.com/vango-dev/interactivity/pkg/vdom"
)

// =============================================================================
// context
// =============================================================================

func (d *Dispatcher) contextScope(inst *instance, b Binding, reuse *scope.Scope) (*scope.Scope, error) {
	if reuse != nil {
		d.observer.OnDirective(KindContext, nil)
		return reuse, nil
	}
	var local map[string]any
	if err := json.Unmarshal([]byte(b.Value), &local); err != nil || local == nil {
		if err == nil {
			err = errors.New("not a JSON object")
		}
		ve := ierrors.New(ierrors.CodeInvalidDirectiveValue).
			WithDetailf("%s on <%s> is not a JSON object", b.Attr, inst.node.Data).
			Wrap(&ValueError{Attr: b.Attr, Value: b.Value, Err: err})
		d.report(inst, b, ve)
		return nil, ve
	}
	child, err := inst.parentScope.Child(d.rt, b.Value, local)
	if err != nil {
		code := ierrors.CodeInvalidDirectiveValue
		if errors.Is(err, deep.ErrShapeMismatch) {
			code = ierrors.CodeShapeMismatch
		}
		ve := ierrors.New(code).WithDetailf("%s on <%s>", b.Attr, inst.node.Data).Wrap(err)
		d.report(inst, b, ve)
		return nil, ve
	}
	d.observer.OnDirective(KindContext, nil)
	return child, nil
}

// =============================================================================
// body
// =============================================================================

// mountBody takes the node out of its position. While the guard is truthy
// the node lives in the document body and its content is mounted; when the
// guard turns falsy the content is disposed and the node removed again.
func (d *Dispatcher) mountBody(inst *instance, b Binding, errs *errList) {
	body := d.doc.Body()
	if body == nil {
		d.report(inst, b, ierrors.New(ierrors.CodeHydrationTarget).
			WithDetailf("%s on <%s> needs a body to portal into", b.Attr, inst.node.Data).
			Wrap(dom.ErrNoBody))
		return
	}

	if inst.origin == nil {
		inst.origin = inst.node.Parent
	}
	d.render(inst, nil)

	var (
		content *reactive.Owner
		portal  render.Portal
		first   = true
	)
	closeContent := func() {
		if content != nil {
			content.Dispose()
			content = nil
			inst.content = nil
		}
		if portal != nil {
			portal.Close()
			portal = nil
		}
	}

	d.rt.CreateEffect(inst.owner, func() reactive.Cleanup {
		v, ok := d.evaluate(inst, b, expr.Bindings{Ref: inst.node})
		show := ok && expr.Truthy(v)

		d.rt.Untracked(func() {
			switch {
			case show && content == nil:
				p, err := d.renderer.CreatePortal(vdom.FromNode(inst.node, inst.hid), body)
				if err != nil {
					d.report(inst, b, ierrors.New(ierrors.CodeHydrationTarget).Wrap(err))
					return
				}
				portal = p
				content = reactive.NewOwner(inst.owner)
				var list *errList
				if first {
					list = errs
				}
				d.mountContent(inst, content, list)
			case !show && content != nil:
				closeContent()
			}
		})
		first = false
		return nil
	})
	inst.owner.OnCleanup(closeContent)
	d.observer.OnDirective(KindBody, nil)
}

// =============================================================================
// bind, class (and ignore's pinned markup)
// =============================================================================

// mountElement installs the node's render effect. The first run corrects
// the server markup only where it disagrees with the evaluated state; later
// runs hand the updated props to the renderer.
func (d *Dispatcher) mountElement(inst *instance, owner *reactive.Owner) {
	binds := inst.set.Of(KindBind)
	classes := inst.set.Of(KindClass)

	if len(binds) == 0 && len(classes) == 0 {
		if inst.ignored {
			v := vdom.FromNode(inst.node, inst.hid)
			v.Props[vdom.InnerHTMLProp] = inst.inner
			inst.vnode = v
			d.render(inst, v)
		}
		return
	}

	first := true
	d.rt.CreateEffect(owner, func() reactive.Cleanup {
		var next *vdom.VNode
		if first || inst.vnode == nil {
			next = vdom.FromNode(inst.node, inst.hid)
			if inst.ignored {
				next.Props[vdom.InnerHTMLProp] = inst.inner
			}
		} else {
			next = inst.vnode.Clone()
		}

		for _, b := range binds {
			v, ok := d.evaluate(inst, b, expr.Bindings{Ref: inst.node})
			if !ok {
				continue
			}
			setProp(next.Props, b.Sub, v)
			if first {
				d.correctAttr(inst, b.Sub, v)
			}
		}
		for _, b := range classes {
			v, ok := d.evaluate(inst, b, expr.Bindings{
				Ref:    inst.node,
				Values: map[string]any{"className": b.Sub},
			})
			if !ok {
				continue
			}
			on := expr.Truthy(v)
			toggleClass(next.Props, b.Sub, on)
			if first {
				if on {
					d.doc.AddClass(inst.node, b.Sub)
				} else {
					d.doc.RemoveClass(inst.node, b.Sub)
				}
			}
		}

		first = false
		inst.vnode = next
		d.rt.Untracked(func() { d.render(inst, next) })
		return nil
	})

	for _, b := range binds {
		d.observer.OnDirective(b.Kind, nil)
	}
	for _, b := range classes {
		d.observer.OnDirective(b.Kind, nil)
	}
}

// setProp applies a bind result: false (or nil) removes the attribute, true
// sets it empty, anything else is stringified.
func setProp(props vdom.Props, name string, v any) {
	switch val := v.(type) {
	case nil:
		delete(props, name)
	case bool:
		if val {
			props[name] = ""
		} else {
			delete(props, name)
		}
	default:
		props[name] = expr.Stringify(v)
	}
}

func (d *Dispatcher) correctAttr(inst *instance, name string, v any) {
	switch val := v.(type) {
	case nil:
		d.doc.RemoveAttr(inst.node, name)
	case bool:
		if val {
			d.doc.SetAttr(inst.node, name, "")
		} else {
			d.doc.RemoveAttr(inst.node, name)
		}
	default:
		d.doc.SetAttr(inst.node, name, expr.Stringify(v))
	}
}

func toggleClass(props vdom.Props, name string, on bool) {
	current, _ := props["class"].(string)
	tokens := strings.Fields(current)
	has := false
	for _, t := range tokens {
		if t == name {
			has = true
			break
		}
	}
	switch {
	case on && !has:
		props["class"] = strings.Join(append(tokens, name), " ")
	case !on && has:
		props["class"] = dom.WithoutClass(tokens, name)
	}
}

// =============================================================================
// on
// =============================================================================

func (d *Dispatcher) mountOn(inst *instance, owner *reactive.Owner) {
	for _, b := range inst.set.Of(KindOn) {
		b := b
		remove := d.doc.AddEventListener(inst.node, b.Sub, func(ev *dom.Event) {
			d.rt.Untracked(func() {
				if v, ok := d.evaluate(inst, b, expr.Bindings{Event: ev, Ref: inst.node}); ok {
					d.settle(inst, b, v)
				}
			})
		})
		owner.OnCleanup(remove)
		d.observer.OnDirective(KindOn, nil)
	}
}

// =============================================================================
// effect, init
// =============================================================================

func (d *Dispatcher) mountEffects(inst *instance, owner *reactive.Owner) {
	for _, b := range inst.set.Of(KindEffect) {
		b := b
		d.rt.CreateEffect(owner, func() reactive.Cleanup {
			v, ok := d.evaluate(inst, b, expr.Bindings{Ref: inst.node})
			if !ok {
				return nil
			}
			return d.settle(inst, b, v)
		})
		d.observer.OnDirective(KindEffect, nil)
	}
}

func (d *Dispatcher) mountInits(inst *instance, owner *reactive.Owner) {
	for _, b := range inst.set.Of(KindInit) {
		var (
			v  any
			ok bool
		)
		d.rt.Untracked(func() {
			v, ok = d.evaluate(inst, b, expr.Bindings{Ref: inst.node})
		})
		if !ok {
			continue
		}
		if cleanup := d.settle(inst, b, v); cleanup != nil {
			owner.OnCleanup(cleanup)
		}
		d.observer.OnDirective(KindInit, nil)
	}
}

// settle handles a handler's result: a promise gets rejection reporting
// attached, a callable becomes the cleanup.
func (d *Dispatcher) settle(inst *instance, b Binding, v any) reactive.Cleanup {
	switch val := v.(type) {
	case *loop.Promise:
		val.Catch(func(err error) {
			d.report(inst, b, ierrors.New(ierrors.CodeAsyncRejected).Wrap(err))
		})
	case reactive.Cleanup:
		return val
	case func():
		return val
	}
	return nil
}

// =============================================================================
// evaluation and failures
// =============================================================================

func (d *Dispatcher) evaluate(inst *instance, b Binding, bindings expr.Bindings) (any, bool) {
	v, err := d.eval.Evaluate(b.Value, inst.scope, bindings)
	if err != nil {
		d.report(inst, b, classify(err))
		return nil, false
	}
	return v, true
}

func classify(err error) *ierrors.VangoError {
	switch {
	case errors.Is(err, expr.ErrUnresolvedPath):
		return ierrors.New(ierrors.CodeUnresolvedPath).Wrap(err)
	case errors.Is(err, expr.ErrInvalidPath):
		return ierrors.New(ierrors.CodeInvalidDirectiveValue).Wrap(err)
	default:
		return ierrors.FromError(err, ierrors.CodeHandlerThrow)
	}
}

// report logs a directive failure and tells the observer. Unresolved paths
// are expected during incremental hydration and log at debug.
func (d *Dispatcher) report(inst *instance, b Binding, ve *ierrors.VangoError) {
	attrs := append([]any{
		"directive", b.Kind.String(),
		"path", b.Value,
		"hid", inst.hid,
	}, ve.Attrs()...)

	switch ve.Code {
	case ierrors.CodeUnresolvedPath:
		d.logger.Debug("directive path unresolved", attrs...)
	case ierrors.CodeHandlerThrow, ierrors.CodeAsyncRejected:
		d.logger.Error("directive handler failed", attrs...)
	default:
		d.logger.Warn("directive failed", attrs...)
	}
	d.observer.OnDirective(b.Kind, ve)
}
