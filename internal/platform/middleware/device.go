package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"securyflex/pkg/requestcontext"
)

// Device parses the User-Agent header into coarse device metadata. Tracking
// lifecycle audit events carry it so a data-subject export shows which device
// started a session, without storing the raw header.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := useragent.New(r.UserAgent())
		name, _ := ua.Browser()
		ctx := requestcontext.WithDevice(r.Context(), requestcontext.Device{
			Platform: name,
			OS:       ua.OS(),
			Mobile:   ua.Mobile(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
