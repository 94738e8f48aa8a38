package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"scholarops/pkg/requestcontext"
)

func TestMiddlewarePinsOneNowPerRequest(t *testing.T) {
	fixed := time.Date(2030, 6, 1, 9, 30, 0, 0, time.FixedZone("PHT", 8*60*60))
	calls := 0
	clock := func() time.Time {
		calls++
		return fixed
	}

	var first, second time.Time
	handler := MiddlewareWithClock(clock)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first = requestcontext.Now(r.Context())
		second = requestcontext.Now(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, 1, calls)
	assert.True(t, first.Equal(fixed))
	assert.Equal(t, time.UTC, first.Location())
	assert.Equal(t, first, second)
}
