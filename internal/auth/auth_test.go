package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/loyalty/internal/config"
)

const testSecret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()

	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}

	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)

	return s
}

func newVerifier(t *testing.T) *JWTVerifier {
	t.Helper()

	v, err := NewJWTVerifier(config.AuthConfig{
		JWTSecret: testSecret,
		Issuer:    "loyalty-test",
		Audience:  []string{"loyalty"},
		RoleClaim: "role",
	})
	require.NoError(t, err)

	return v
}

func TestJWTVerifier_Verify(t *testing.T) {
	t.Parallel()

	v := newVerifier(t)
	base := func(extra jwt.MapClaims) jwt.MapClaims {
		c := jwt.MapClaims{"iss": "loyalty-test", "aud": "loyalty"}
		for k, val := range extra {
			c[k] = val
		}

		return c
	}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		want    Principal
		wantErr bool
	}{
		{
			name: "user",
			token: func(t *testing.T) string {
				return sign(t, base(jwt.MapClaims{"sub": "42", "role": "user"}), jwt.SigningMethodHS256, []byte(testSecret))
			},
			want: Principal{Subject: "42", UserID: 42, Role: RoleUser},
		},
		{
			name: "role_defaults_to_user",
			token: func(t *testing.T) string {
				return sign(t, base(jwt.MapClaims{"sub": "7"}), jwt.SigningMethodHS256, []byte(testSecret))
			},
			want: Principal{Subject: "7", UserID: 7, Role: RoleUser},
		},
		{
			name: "service_with_opaque_subject",
			token: func(t *testing.T) string {
				return sign(t, base(jwt.MapClaims{"sub": "checkout-svc", "role": "service"}), jwt.SigningMethodHS256, []byte(testSecret))
			},
			want: Principal{Subject: "checkout-svc", Role: RoleService},
		},
		{
			name: "user_with_opaque_subject",
			token: func(t *testing.T) string {
				return sign(t, base(jwt.MapClaims{"sub": "bob"}), jwt.SigningMethodHS256, []byte(testSecret))
			},
			wantErr: true,
		},
		{
			name: "user_subject_beyond_bigint",
			token: func(t *testing.T) string {
				return sign(t, base(jwt.MapClaims{"sub": "18446744073709551615"}), jwt.SigningMethodHS256, []byte(testSecret))
			},
			wantErr: true,
		},
		{
			name: "largest_bigint_subject",
			token: func(t *testing.T) string {
				return sign(t, base(jwt.MapClaims{"sub": "9223372036854775807"}), jwt.SigningMethodHS256, []byte(testSecret))
			},
			want: Principal{Subject: "9223372036854775807", UserID: 9223372036854775807, Role: RoleUser},
		},
		{
			name: "service_subject_beyond_bigint",
			token: func(t *testing.T) string {
				return sign(t, base(jwt.MapClaims{"sub": "9223372036854775808", "role": "service"}), jwt.SigningMethodHS256, []byte(testSecret))
			},
			want: Principal{Subject: "9223372036854775808", Role: RoleService},
		},
		{
			name: "unknown_role",
			token: func(t *testing.T) string {
				return sign(t, base(jwt.MapClaims{"sub": "1", "role": "root"}), jwt.SigningMethodHS256, []byte(testSecret))
			},
			wantErr: true,
		},
		{
			name: "wrong_secret",
			token: func(t *testing.T) string {
				return sign(t, base(jwt.MapClaims{"sub": "1"}), jwt.SigningMethodHS256, []byte("other"))
			},
			wantErr: true,
		},
		{
			name: "wrong_method",
			token: func(t *testing.T) string {
				return sign(t, base(jwt.MapClaims{"sub": "1"}), jwt.SigningMethodHS512, []byte(testSecret))
			},
			wantErr: true,
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return sign(t, base(jwt.MapClaims{"sub": "1", "exp": time.Now().Add(-time.Minute).Unix()}), jwt.SigningMethodHS256, []byte(testSecret))
			},
			wantErr: true,
		},
		{
			name: "wrong_issuer",
			token: func(t *testing.T) string {
				return sign(t, jwt.MapClaims{"sub": "1", "iss": "elsewhere", "aud": "loyalty"}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			wantErr: true,
		},
		{
			name: "wrong_audience",
			token: func(t *testing.T) string {
				return sign(t, jwt.MapClaims{"sub": "1", "iss": "loyalty-test", "aud": "billing"}, jwt.SigningMethodHS256, []byte(testSecret))
			},
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   func(*testing.T) string { return "not.a.jwt" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := v.Verify(tt.token(t))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnauthorized)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewJWTVerifier_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTVerifier(config.AuthConfig{})
	require.Error(t, err)
}

func TestPrincipal_SelfOrAdmin(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Principal{UserID: 5, Role: RoleUser}.SelfOrAdmin(5))
	assert.NoError(t, Principal{Subject: "ops", Role: RoleAdmin}.SelfOrAdmin(5))
	assert.ErrorIs(t, Principal{UserID: 6, Role: RoleUser}.SelfOrAdmin(5), ErrForbidden)
	assert.ErrorIs(t, Principal{Subject: "svc", Role: RoleService}.SelfOrAdmin(5), ErrForbidden)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	v := newVerifier(t)

	var gotErr error

	onError := func(w http.ResponseWriter, _ *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusTeapot)
	}

	h := Middleware(v, onError)(RequireRole(onError, RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok || p.Role != RoleAdmin {
			t.Errorf("principal missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	})))

	call := func(header string) int {
		gotErr = nil
		req := httptest.NewRequest(http.MethodGet, "/reports/tiers", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		return rec.Code
	}

	admin := sign(t, jwt.MapClaims{"sub": "1", "role": "admin", "iss": "loyalty-test", "aud": "loyalty"}, jwt.SigningMethodHS256, []byte(testSecret))
	user := sign(t, jwt.MapClaims{"sub": "2", "iss": "loyalty-test", "aud": "loyalty"}, jwt.SigningMethodHS256, []byte(testSecret))

	assert.Equal(t, http.StatusNoContent, call("Bearer "+admin))

	assert.Equal(t, http.StatusTeapot, call(""))
	assert.True(t, errors.Is(gotErr, ErrUnauthorized))

	assert.Equal(t, http.StatusTeapot, call("Basic abc"))
	assert.True(t, errors.Is(gotErr, ErrUnauthorized))

	assert.Equal(t, http.StatusTeapot, call("Bearer "+user))
	assert.True(t, errors.Is(gotErr, ErrForbidden))
}
