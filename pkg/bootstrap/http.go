package bootstrap

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/liscain-net/liscain/pkg/util"
)

// HTTPHandler serves staged adoption blobs over HTTP for switches that
// fetch with copy http:// instead of TFTP. Tokens are single-use-ish
// capabilities; anything else is a 404.
func (s *Server) HTTPHandler() http.Handler {
	r := chi.NewRouter()
	r.Get("/adopt/{token}", func(w http.ResponseWriter, req *http.Request) {
		data, ok := s.blobs.Get(chi.URLParam(req, "token"))
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(data))
	})
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	})
	return r
}

// RunHTTP serves HTTPHandler on addr. Blocks until the listener fails.
func (s *Server) RunHTTP(addr string) error {
	util.Infof("http blob server listening on %s", addr)
	return http.ListenAndServe(addr, s.HTTPHandler())
}
