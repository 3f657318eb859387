package middleware

import (
	"net/http"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/domain"
)

// MaxBodyBytes limits request body size. Multipart uploads get a small
// allowance on top of limit for form boundaries and fields.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			max := limit + multipartOverhead
			if r.ContentLength > max && r.ContentLength != -1 {
				api.HandleError(w, domain.ErrFileTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}

const multipartOverhead = 64 << 10
