// Package native locates and binds the compiled audio engine library.
//
// A Loader runs an ordered list of strategies (installed plugin directory,
// bundled resource extraction, development checkout, system loader path)
// and keeps the first library that opens and exports every engine symbol:
//
//	loader, err := native.New(native.WithBundle(resources))
//	if err != nil {
//		return err
//	}
//	binding, err := loader.EnsureLoaded()
//
// Concurrent EnsureLoaded calls share one attempt. A failed load stays
// failed until Reset, and its error lists every strategy's failure.
package native
