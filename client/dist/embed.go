package clientdist

import _ "embed"

// LiveJS is the list page's live client.
//
// It is served at "/_catalog/live.js". Pages work without it; the client
// upgrades the search form to debounced, in-place updates over /live.
//
//go:embed live.js
var LiveJS []byte
