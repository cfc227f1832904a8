package authcore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hermesgsc/authcore/refresh"
	"github.com/hermesgsc/authcore/token"
)

// Engine orchestrates the session state machine over a signer, a refresh
// token store, and the external identity collaborator. It is immutable
// after construction through [Builder.Build] and safe for concurrent use;
// every mutating store operation is keyed by a unique token string and is
// either idempotent or conflict-checked, so no engine-level locking is
// needed.
type Engine struct {
	config     Config
	tokens     *token.Manager
	store      refresh.Store
	identities IdentityStore
	hasher     PasswordHasher
	audit      *auditDispatcher
	metrics    *Metrics
}

// Close flushes the audit dispatcher. Safe on a nil receiver.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// MetricsSnapshot returns a deep copy of the engine's metrics.
func (e *Engine) MetricsSnapshot() Snapshot {
	if e == nil || e.metrics == nil {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were dropped under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login verifies credentials and, on success, issues an access token and
// persists a fresh refresh token. Unknown email and wrong password produce
// the same error; the distinction exists only in audit metadata.
// Multiple live refresh tokens per identity are allowed.
func (e *Engine) Login(ctx context.Context, email, password string) (*Credentials, error) {
	if e == nil || e.identities == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "missing_input"}
		})
		return nil, ErrInvalidCredentials
	}

	ident, err := e.identities.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrIdentityNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLogin, false, "", err, nil)
			return nil, errors.Join(ErrInternal, err)
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "unknown_email"}
		})
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(password, ident.PasswordHash)
	if err != nil {
		// A verify error means the stored hash is unreadable, not that the
		// caller presented the wrong password.
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, ident.ID, err, nil)
		return nil, errors.Join(ErrInternal, err)
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, ident.ID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "password_mismatch"}
		})
		return nil, ErrInvalidCredentials
	}
	password = ""

	creds, err := e.issueSession(ctx, ident)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLogin, false, ident.ID, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLogin, true, ident.ID, nil, nil)

	return creds, nil
}

// Refresh mints a new access token from a valid, non-revoked, non-expired
// refresh token. The presented refresh token is not rotated: it stays
// valid until natural expiry or logout. The role on the new access token
// is re-read from the identity store, never taken from refresh claims, so
// a privilege change is visible on the very next refresh.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if e == nil || e.identities == nil || e.store == nil {
		return "", ErrEngineNotReady
	}
	if refreshToken == "" {
		e.metricInc(MetricRefreshFailure)
		return "", ErrTokenInvalid
	}

	row, err := e.store.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefresh, false, "", ErrTokenInvalid, func() map[string]string {
				return map[string]string{"reason": "not_in_store"}
			})
			return "", ErrTokenInvalid
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, "", err, nil)
		return "", errors.Join(ErrInternal, err)
	}

	if row.Revoked {
		e.metricInc(MetricRefreshRevoked)
		e.emitAudit(ctx, auditEventRefresh, false, row.OwnerID, ErrTokenRevoked, nil)
		return "", ErrTokenRevoked
	}
	if row.Expired(time.Now().UTC()) {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, row.OwnerID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{"reason": "expired"}
		})
		return "", ErrTokenInvalid
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, row.OwnerID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{"reason": "crypto_invalid"}
		})
		return "", ErrTokenInvalid
	}
	if claims.Subject != row.OwnerID {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, row.OwnerID, ErrTokenInvalid, func() map[string]string {
			return map[string]string{"reason": "owner_mismatch"}
		})
		return "", ErrTokenInvalid
	}

	// Orphaned rows surviving an identity deletion must never mint tokens.
	ident, err := e.identities.GetByID(ctx, row.OwnerID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefresh, false, row.OwnerID, ErrTokenInvalid, func() map[string]string {
				return map[string]string{"reason": "owner_deleted"}
			})
			return "", ErrTokenInvalid
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, row.OwnerID, err, nil)
		return "", errors.Join(ErrInternal, err)
	}

	access, err := e.tokens.IssueAccess(ident.ID, string(ident.Role))
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefresh, false, ident.ID, err, nil)
		return "", errors.Join(ErrInternal, err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefresh, true, ident.ID, nil, nil)

	return access, nil
}

// Logout revokes the presented refresh token. It is defensively total:
// garbage input, replayed tokens, and even store failures do not surface
// to the caller. Store failures are still audited.
func (e *Engine) Logout(ctx context.Context, refreshToken string) {
	if e == nil || e.store == nil || refreshToken == "" {
		return
	}

	err := e.store.Revoke(ctx, refreshToken)
	if err == nil {
		e.metricInc(MetricLogout)
		e.metricInc(MetricTokenRevoked)
	}
	e.emitAudit(ctx, auditEventLogout, err == nil, "", err, nil)
}

// Authenticate resolves a raw Authorization header value into a
// RequestIdentity. Missing header, wrong scheme, and every verify failure
// map to the same ErrUnauthorized.
func (e *Engine) Authenticate(ctx context.Context, authorizationHeader string) (*RequestIdentity, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		// Deferring the Observe call directly would evaluate Since at
		// defer time and record a zero elapsed duration.
		defer func() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}()
	}

	raw, ok := BearerToken(authorizationHeader)
	if !ok {
		e.emitAudit(ctx, auditEventAuthenticate, false, "", ErrUnauthorized, func() map[string]string {
			return map[string]string{"reason": "missing_bearer"}
		})
		return nil, ErrUnauthorized
	}

	claims, err := e.tokens.ParseAccess(raw)
	if err != nil {
		e.emitAudit(ctx, auditEventAuthenticate, false, "", ErrUnauthorized, func() map[string]string {
			return map[string]string{"reason": "verify_failed"}
		})
		return nil, ErrUnauthorized
	}

	return &RequestIdentity{
		ID:   claims.Subject,
		Role: Role(claims.Role),
	}, nil
}

// RequireRole gates an operation on the resolved identity's role.
func (e *Engine) RequireRole(identity *RequestIdentity, role Role) error {
	if identity == nil {
		return ErrUnauthorized
	}
	if identity.Role != role {
		return ErrPermissionDenied
	}
	return nil
}

// BearerToken extracts the token segment from an "Authorization: Bearer
// <token>" header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	tok := value[len(bearer):]
	if tok == "" {
		return "", false
	}

	return tok, true
}

// issueSession mints the access/refresh pair and persists the refresh row.
// Issuance and persistence are one unit for response purposes: if the Put
// fails, no tokens reach the caller.
func (e *Engine) issueSession(ctx context.Context, ident *Identity) (*Credentials, error) {
	access, err := e.tokens.IssueAccess(ident.ID, string(ident.Role))
	if err != nil {
		return nil, errors.Join(ErrInternal, err)
	}

	refreshStr, expiresAt, err := e.tokens.IssueRefresh(ident.ID)
	if err != nil {
		return nil, errors.Join(ErrInternal, err)
	}

	row := refresh.Token{
		Token:     refreshStr,
		OwnerID:   ident.ID,
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	if err := e.store.Put(ctx, row); err != nil {
		// ErrConflict included: signature uniqueness makes it practically
		// unreachable, so any Put failure voids the whole issuance.
		return nil, errors.Join(ErrInternal, err)
	}

	e.metricInc(MetricTokenIssued)

	return &Credentials{
		Identity:     *ident,
		AccessToken:  access,
		RefreshToken: refreshStr,
	}, nil
}
