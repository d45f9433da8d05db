package lightbox

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/net/html"

	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/interactivity"
)

const page = `<!doctype html><html><body>
<figure data-wp-interactive data-wp-context='{"core":{"initialized":false,"lightboxEnabled":false,"lastFocusedElement":null}}'>
	<button id="open" data-wp-on-click="core::showLightbox">Enlarge</button>
	<div id="overlay"
		data-wp-class-initialized="core::initialized"
		data-wp-class-active="core::lightboxEnabled"
		data-wp-on-keydown="core::handleKeydown"
		data-wp-effect="core::initLightbox">
		<button id="close" class="close-button" data-wp-on-click="core::hideLightbox">Close</button>
	</div>
</figure>
</body></html>`

type fixture struct {
	r       *interactivity.Runtime
	doc     *dom.Document
	open    *html.Node
	close   *html.Node
	overlay *html.Node
}

func setup(t *testing.T) *fixture {
	t.Helper()
	r := interactivity.New(interactivity.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err := Register(r.Store()); err != nil {
		t.Fatal(err)
	}
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Hydrate(context.Background(), doc); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	f := &fixture{r: r, doc: doc}
	f.open, _ = dom.Query(doc.Root(), "#open")
	f.close, _ = dom.Query(doc.Root(), "#close")
	f.overlay, _ = dom.Query(doc.Root(), "#overlay")
	return f
}

func (f *fixture) fire(t *testing.T, n *html.Node, typ string, init interactivity.EventInit) {
	t.Helper()
	if _, err := f.r.Fire(context.Background(), n, typ, init); err != nil {
		t.Fatalf("Fire(%s) error = %v", typ, err)
	}
}

func TestOpenFocusesCloseButtonAfterTwoFrames(t *testing.T) {
	f := setup(t)
	f.doc.Focus(f.open)

	f.fire(t, f.open, "click", interactivity.EventInit{})
	if !dom.HasClass(f.overlay, "active") || !dom.HasClass(f.overlay, "initialized") {
		t.Fatalf("overlay class = %v", dom.Classes(f.overlay))
	}
	if f.doc.ActiveElement() != f.open {
		t.Fatal("focus moved before any frame")
	}

	f.r.Settle(1)
	if f.doc.ActiveElement() == f.close {
		t.Fatal("focus moved after one frame")
	}
	f.r.Settle(5)
	if f.doc.ActiveElement() != f.close {
		t.Errorf("active element = %v, want the close button", f.doc.ActiveElement().Data)
	}
}

func TestEscapeRestoresFocus(t *testing.T) {
	f := setup(t)
	f.doc.Focus(f.open)
	f.fire(t, f.open, "click", interactivity.EventInit{})
	f.r.Settle(5)

	f.fire(t, f.close, "keydown", interactivity.EventInit{Key: "a"})
	if !dom.HasClass(f.overlay, "active") {
		t.Fatal("unrelated key closed the lightbox")
	}

	f.fire(t, f.close, "keydown", interactivity.EventInit{KeyCode: 27})
	if dom.HasClass(f.overlay, "active") {
		t.Error("Escape should close the lightbox")
	}
	if !dom.HasClass(f.overlay, "initialized") {
		t.Error("initialized should stay set")
	}
	if f.doc.ActiveElement() != f.open {
		t.Error("focus should return to the element focused before opening")
	}
}

func TestCloseButtonAndTab(t *testing.T) {
	f := setup(t)
	f.fire(t, f.open, "click", interactivity.EventInit{})
	f.fire(t, f.close, "click", interactivity.EventInit{})
	if dom.HasClass(f.overlay, "active") {
		t.Error("close button should close the lightbox")
	}

	f.fire(t, f.open, "click", interactivity.EventInit{})
	f.fire(t, f.overlay, "keydown", interactivity.EventInit{Key: "Tab"})
	if dom.HasClass(f.overlay, "active") {
		t.Error("Tab should close the lightbox")
	}
}

func TestKeydownWhileClosedIsIgnored(t *testing.T) {
	f := setup(t)
	f.doc.Focus(f.close)
	f.fire(t, f.overlay, "keydown", interactivity.EventInit{Key: "Escape"})
	if f.doc.ActiveElement() != f.close {
		t.Error("keydown on a closed lightbox should not move focus")
	}
}
