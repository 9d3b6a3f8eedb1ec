package restapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// withMuxVars stamps path variables onto req the way mux's router would
// after matching a {placeholder} route, so handler unit tests can call
// handlers directly without standing up the full router.
func withMuxVars(req *http.Request, vars map[string]string) *http.Request {
	return mux.SetURLVars(req, vars)
}
