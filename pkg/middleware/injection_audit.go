package middleware

import (
	"net/http"

	"github.com/preceptorhub/preceptor-engine/pkg/audit"
	"github.com/preceptorhub/preceptor-engine/pkg/sql"
)

// InjectionAudit reports query parameters that look like SQL injection to the
// security auditor. Requests are never blocked.
func InjectionAudit(auditor *audit.SecurityAuditor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.RawQuery != "" {
				for _, hit := range sql.CheckQuery(r.URL.Query()) {
					auditor.LogInjectionProbe(r.Method, r.URL.Path, r.RemoteAddr, audit.InjectionProbeDetails{
						ParamName:   hit.ParamName,
						ParamValue:  hit.ParamValue,
						Fingerprint: hit.Fingerprint,
					})
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
