// Package lightbox provides the image lightbox handlers of the core
// namespace.
//
// Markup opts in through directives:
//
//	<figure data-wp-context='{"core":{"initialized":false,"lightboxEnabled":false}}'>
//	  <button data-wp-on-click="core::showLightbox">Enlarge</button>
//	  <div class="overlay"
//	       data-wp-class-active="core::lightboxEnabled"
//	       data-wp-on-keydown="core::handleKeydown"
//	       data-wp-effect="core::initLightbox">
//	    <button class="close-button" data-wp-on-click="core::hideLightbox">Close</button>
//	  </div>
//	</figure>
package lightbox

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"

	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/expr"
	"github.com/vango-dev/interactivity/pkg/store"
)

// Namespace is the namespace the handlers are registered under.
const Namespace = "core"

// CloseSelector selects the element focused once the lightbox has opened.
const CloseSelector = ".close-button"

// FrameWait is the number of animation frames initLightbox waits before
// moving focus, so the overlay has been painted.
const FrameWait = 2

const (
	keyInitialized = Namespace + ".initialized"
	keyEnabled     = Namespace + ".lightboxEnabled"
	keyLastFocused = Namespace + ".lastFocusedElement"
)

// ErrNoDocument is returned when a handler runs without a document.
var ErrNoDocument = errors.New("lightbox: handler needs a document")

// Register installs the lightbox handlers on st.
func Register(st *store.Store) error {
	return st.RegisterNamespace(Namespace, store.Namespace{
		Actions: map[string]store.Handler{
			"showLightbox":  showLightbox,
			"hideLightbox":  hideLightbox,
			"handleKeydown": handleKeydown,
		},
		Effects: map[string]store.Handler{
			"initLightbox": initLightbox,
		},
	})
}

func showLightbox(a store.Args) (any, error) {
	if a.Document == nil {
		return nil, ErrNoDocument
	}
	active := a.Document.ActiveElement()
	return nil, errors.Join(
		a.Context.Set(keyInitialized, true),
		a.Context.Set(keyEnabled, true),
		a.Context.Set(keyLastFocused, active),
	)
}

func hideLightbox(a store.Args) (any, error) {
	if err := a.Context.Set(keyEnabled, false); err != nil {
		return nil, err
	}
	last, _ := a.Context.Peek(keyLastFocused)
	if n, ok := last.(*html.Node); ok && a.Document != nil {
		a.Document.Focus(n)
	}
	return nil, nil
}

func handleKeydown(a store.Args) (any, error) {
	enabled, _ := a.Context.Peek(keyEnabled)
	if !expr.Truthy(enabled) || a.Event == nil {
		return nil, nil
	}
	if closes(a.Event) {
		return a.Call("hideLightbox")
	}
	return nil, nil
}

// closes reports whether ev is a key that dismisses the lightbox.
func closes(ev *dom.Event) bool {
	switch {
	case ev.Key == "Escape", ev.KeyCode == 27:
		return true
	case ev.Key == "Tab", ev.KeyCode == 9:
		return true
	}
	return false
}

// initLightbox moves focus to the close button once an opened lightbox has
// been painted. The returned promise lets failures surface as rejections.
func initLightbox(a store.Args) (any, error) {
	enabled, _ := a.Context.Get(keyEnabled)
	if !expr.Truthy(enabled) {
		return nil, nil
	}
	if a.Loop == nil || a.Document == nil {
		return nil, ErrNoDocument
	}
	ref, doc := a.Ref, a.Document
	return a.Loop.Tick(FrameWait).Then(func(any) (any, error) {
		btn, err := dom.Query(ref, CloseSelector)
		if err != nil {
			return nil, err
		}
		if btn == nil {
			return nil, fmt.Errorf("lightbox: no %s inside <%s>", CloseSelector, ref.Data)
		}
		doc.Focus(btn)
		return nil, nil
	}), nil
}
