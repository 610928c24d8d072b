package middleware

import (
	"context"
	"net/http"

	app_error "github.com/xenn00/classroom-chat/internal/errors"
)

type fingerprintKey string

const FingerprintKey fingerprintKey = "deviceFingerprint"

// Login sessions are keyed by user and fingerprint, so the value ends up in
// a Redis key.
const MaxFingerprintLength = 128

// GetDeviceFingerprint reads X-Device-Fingerprint. Browsers cannot set headers
// on a websocket handshake, so the fp query parameter is accepted as well.
func GetDeviceFingerprint(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fingerprint := r.Header.Get("X-Device-Fingerprint")
		if fingerprint == "" {
			fingerprint = r.URL.Query().Get("fp")
		}

		switch {
		case fingerprint == "":
			writeAppError(w, app_error.NewAppError(http.StatusBadRequest, "Missing device fingerprint", "fingerprint"))
			return
		case len(fingerprint) > MaxFingerprintLength:
			writeAppError(w, app_error.NewAppError(http.StatusBadRequest, "Device fingerprint too long", "fingerprint"))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), FingerprintKey, fingerprint)))
	})
}

// Fingerprint returns the value stored by GetDeviceFingerprint, or "".
func Fingerprint(ctx context.Context) string {
	fp, _ := ctx.Value(FingerprintKey).(string)
	return fp
}
