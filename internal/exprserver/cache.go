package exprserver

import (
	"fmt"
	"net/http"
)

// file cache.go exposes admin routes over a Server's optional persistent
// exprstore.Store: seeding or overwriting a cached custom-function result
// and wiping the whole cache. Both routes 404 when the Server was built
// without a Store, rather than pretending the operation succeeded.

type cacheSetRequest struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func (s *Server) handleCacheSet() http.HandlerFunc {
	return s.endpoint(s.epCacheSet)
}

func (s *Server) epCacheSet(req *http.Request) result {
	if s.Store == nil {
		return notFound("no persistent cache is configured on this server")
	}

	var body cacheSetRequest
	if err := parseJSONBody(req, &body); err != nil {
		return badRequest(err.Error())
	}
	if body.Name == "" {
		return badRequest("name must not be empty")
	}

	s.Store.CacheSet(body.Name, body.Value)
	return ok(cacheSetRequest{Name: body.Name, Value: body.Value}, fmt.Sprintf("cache set %q", body.Name))
}

func (s *Server) handleCacheClear() http.HandlerFunc {
	return s.endpoint(s.epCacheClear)
}

func (s *Server) epCacheClear(req *http.Request) result {
	if s.Store == nil {
		return notFound("no persistent cache is configured on this server")
	}

	if err := s.Store.ClearChecked(); err != nil {
		return internalError(err.Error())
	}
	return ok(struct{}{}, "cache cleared")
}
