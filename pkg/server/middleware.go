package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/utils"
)

// requestID tags each request with an id (taken from the request if given)
// and puts a logger carrying it into the context.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		l := s.log.With(log.String("requestId", id))
		l.Debug("request",
			log.String("method", r.Method),
			log.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(log.AddToContext(r.Context(), l)))
	})
}

// clientVersion rejects api clients announcing an outdated version.
// Requests without the header (browsers) pass.
func (s *Server) clientVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := r.Header.Get(HeaderClientVersion)
		if v != "" && strings.HasPrefix(r.URL.Path, "/api/") && !utils.CheckClientVersion(v) {
			writeJSON(w, http.StatusUpgradeRequired, errorBody{
				Error: "client version " + v + " is not supported, required: " +
					utils.RequiredClientVersion,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
