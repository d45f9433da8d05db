// Package features holds store namespaces that ship with the runtime.
//
// Each feature lives in its own sub-package and exposes a Register function
// that installs its namespace on a store:
//
//   - lightbox: the image lightbox (namespace "core")
//
// Register features before hydrating:
//
//	rt := interactivity.New()
//	if err := lightbox.Register(rt.Store()); err != nil {
//	    return err
//	}
package features
