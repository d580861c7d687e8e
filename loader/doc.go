// Package loader is the public entry point: it resolves module identifiers
// through the cascade, runs each module at most once, and hands results back
// in the order they were requested within a group.
//
// A basic session:
//
//	l, err := loader.New(loader.Options{Fetcher: fetch.NewDir("modules")})
//	if err != nil {
//		return err
//	}
//	defer l.Close(ctx)
//
//	g := l.NewGroup()
//	l.Load(ctx, loader.Name("config.json"), g)
//	l.Load(ctx, loader.Name("server"), g)
//	results, err := l.Drain(ctx, g)
package loader
