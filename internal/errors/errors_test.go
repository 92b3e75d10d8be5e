package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusCode(t *testing.T) {
	cases := map[*UnifiedError]int{
		NewValidation("op", "bad"):                       400,
		NewNotFound("op", "guideline"):                    404,
		NewUniqueConstraint("op", "tag"):                  409,
		NewPermissionDenied("op", "denied"):                403,
		NewRateLimited("op", time.Second):                 429,
		NewOperationTimeout("op"):                          504,
		NewDependencyUnavailable("op", "embedding"):        503,
		NewInternal("op", "boom", nil):                     500,
	}
	for err, want := range cases {
		require.Equal(t, want, err.HTTPStatusCode())
	}
}

func TestWrapPassthrough(t *testing.T) {
	ue := NewNotFound("op", "tool")
	require.Same(t, ue, Wrap("op2", ue))
}

func TestWrapClassifiesUnknown(t *testing.T) {
	wrapped := Wrap("op", fmt.Errorf("boom"))
	require.Equal(t, CodeInternal, wrapped.Code)
}

func TestIs(t *testing.T) {
	err := NewRateLimited("check", 2*time.Second)
	require.True(t, Is(err, CodeRateLimited))
	require.False(t, Is(err, CodeNotFound))
}

func TestSanitizeStripsPathsAndSecrets(t *testing.T) {
	msg := Sanitize("failed to open /var/lib/memoryd/db.sqlite: token=abc123XYZ")
	require.NotContains(t, msg, "/var/lib/memoryd")
	require.NotContains(t, msg, "abc123XYZ")
}
