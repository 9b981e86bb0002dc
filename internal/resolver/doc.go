// Package resolver answers the environment questions asked while filtering
// service declarations: whether a type identifier can be loaded through the
// installed packages' autoload rules, and whether the requirements a type
// declares about installed packages and platform extensions are met.
//
// A Resolver is a scoped resolution context. Open acquires an exclusive lock
// on the vendor directory and builds the autoload index; Close releases it
// and must be called on every exit path:
//
//	r, err := resolver.Open(ctx, resolver.WithFetchResult(result))
//	if err != nil {
//		return err
//	}
//	defer r.Close()
package resolver
