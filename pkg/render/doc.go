// Package render is the rendering layer the directive engine hands element
// state to.
//
// The engine never restructures the document itself. It describes each
// directive-bearing element as a vdom.VNode and calls a Renderer:
//
//	r := render.NewReconciler(doc)
//	r.Render(vnode, vnode.Node)        // adopt on first call, diff afterwards
//	p, err := r.CreatePortal(vnode, doc.Body())
//	p.Close()
//
// # Hydration
//
// The first Render of an element adopts the server markup as is: nothing is
// written, the vnode is stored as the baseline. Later renders compare props
// with vdom.DiffProps and apply only SetAttr/RemoveAttr patches. Rendering a
// nil tree detaches the element.
//
// # Preserved Markup
//
// A vnode carrying the dangerouslySetInnerHTML prop pins the element's inner
// markup. When the children drifted from it, they are restored.
package render
