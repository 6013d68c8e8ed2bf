// Package restcat validates and builds requests for a REST API described by
// a declarative endpoint catalog.
//
// A catalog maps URL templates such as data/inputs/monitor/{name} to the
// methods they support, each with typed parameters, validation expressions
// and a table of documented status codes. An Engine binds one loaded catalog
// and answers, for a template and method:
//
//   - which parameters are accepted, with INHERITED entries resolved against
//     ancestor endpoints (Schema, Describe)
//   - whether a set of values is acceptable (Validate)
//   - the concrete request to send (Prepare)
//   - what a response status means (Classify)
//
// Basic usage:
//
//	cat, err := restcat.LoadFile("catalog.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//	eng := restcat.New(cat).WithDefaults()
//	if err := eng.Check(ctx); err != nil {
//		log.Fatal(err)
//	}
//	req, err := eng.Prepare("apps/local/{name}", "POST",
//		map[string]string{"name": "search"},
//		url.Values{"description": {"Search app"}})
//
// A Catalog and the Engine built on it are immutable after construction and
// safe for concurrent use. To pick up a changed catalog, load a new one and
// build a new Engine.
package restcat
