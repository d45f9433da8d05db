// Package store is the namespaced registry behind every directive
// expression.
//
// A Store holds three categories per namespace: actions (plain callables),
// effects (callables meant to run as reactive effects) and default state,
// which lives in the store's root context tree under the namespace key.
//
//	st := store.New(rt)
//	st.RegisterNamespace("core", store.Namespace{
//	    Actions: map[string]store.Handler{"toggle": toggle},
//	    Context: map[string]any{"open": false},
//	})
//
// Registration augments: calling RegisterNamespace again for the same
// namespace replaces same-named handlers, writes the given state leaves and
// keeps everything else. The store initializes itself on first use and is
// never torn down.
package store
