// Package session runs live list pages.
//
// Every page view that opens the /live websocket gets a Live session. A
// session owns one event loop goroutine; the search and filter controllers,
// the in-process History and every timer callback run on it, so none of
// them need locks:
//
//	mgr := session.NewManager(session.Config{
//	    Selector: selector,
//	    Views:    views,
//	    Filters:  []filter.Config{{Key: "category", AllowedValues: categories}},
//	})
//	defer mgr.Shutdown()
//
//	live, err := mgr.Create(conn, "/products?search=shirt")
//	if err != nil {
//	    // ErrMaxSessionsReached
//	}
//	live.Start()
//
// # Wire protocol
//
// Browser to server, one JSON object per text frame:
//
//	{"t":"input","v":"shi"}              search box keystroke
//	{"t":"filter","k":"category","v":""} filter change, empty clears
//	{"t":"clear"}                        clear search and every filter
//	{"t":"pop","url":"/products"}        browser back or forward
//	{"t":"back"} {"t":"forward"}         server-side history moves
//	{"t":"retry"}                        re-run the last render
//
// Server to browser:
//
//	{"t":"url","url":"/products?search=shirt"}
//	{"t":"pending","v":true}
//	{"t":"value","v":"shirt"}
//	{"t":"html","v":"<ul>...</ul>"}
package session
