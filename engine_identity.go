package authcore

import (
	"context"
	"errors"
)

// Register creates a new identity with the configured default role, then
// issues and persists a token pair. The email is normalized to lowercase
// before the uniqueness check.
func (e *Engine) Register(ctx context.Context, name, email, password string) (*Credentials, error) {
	if e == nil || e.identities == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrValidation
	}

	hash, err := e.hasher.Hash(password)
	if err != nil {
		e.emitAudit(ctx, auditEventRegister, false, "", err, nil)
		return nil, errors.Join(ErrInternal, err)
	}
	password = ""

	ident, err := e.identities.Create(ctx, CreateIdentityInput{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         e.config.Account.DefaultRole,
	})
	if err != nil {
		if errors.Is(err, ErrEmailConflict) || errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegister, false, "", ErrAccountExists, func() map[string]string {
				return map[string]string{"reason": "duplicate_email"}
			})
			return nil, ErrAccountExists
		}
		e.emitAudit(ctx, auditEventRegister, false, "", err, nil)
		return nil, errors.Join(ErrInternal, err)
	}

	creds, err := e.issueSession(ctx, ident)
	if err != nil {
		e.emitAudit(ctx, auditEventRegister, false, ident.ID, err, nil)
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegister, true, ident.ID, nil, nil)

	return creds, nil
}

// UpdateIdentity applies a partial update to targetID. The token owner may
// change own name, email, and password; touching role, own or anyone
// else's, requires RoleAdmin. Plaintext passwords pass through the hash
// primitive here and are never stored or logged in clear form.
func (e *Engine) UpdateIdentity(ctx context.Context, requester RequestIdentity, targetID string, req UpdateRequest) (*Identity, error) {
	if e == nil || e.identities == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	if targetID == "" {
		return nil, ErrValidation
	}

	if requester.ID != targetID && requester.Role != RoleAdmin {
		e.emitAudit(ctx, auditEventIdentityUpdate, false, requester.ID, ErrPermissionDenied, nil)
		return nil, ErrPermissionDenied
	}
	if req.Role != nil && requester.Role != RoleAdmin {
		e.emitAudit(ctx, auditEventIdentityUpdate, false, requester.ID, ErrPermissionDenied, func() map[string]string {
			return map[string]string{"reason": "role_change_requires_admin"}
		})
		return nil, ErrPermissionDenied
	}
	if req.Role != nil && !req.Role.Valid() {
		return nil, ErrValidation
	}

	if _, err := e.identities.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Join(ErrInternal, err)
	}

	patch := IdentityPatch{
		Name: req.Name,
		Role: req.Role,
	}
	if req.Email != nil {
		normalized := NormalizeEmail(*req.Email)
		if normalized == "" {
			return nil, ErrValidation
		}
		patch.Email = &normalized
	}
	if req.Password != nil {
		hash, err := e.hasher.Hash(*req.Password)
		if err != nil {
			return nil, errors.Join(ErrInternal, err)
		}
		patch.PasswordHash = &hash
	}

	updated, err := e.identities.Update(ctx, targetID, patch)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailConflict):
			return nil, ErrEmailConflict
		case errors.Is(err, ErrIdentityNotFound):
			return nil, ErrIdentityNotFound
		default:
			e.emitAudit(ctx, auditEventIdentityUpdate, false, targetID, err, nil)
			return nil, errors.Join(ErrInternal, err)
		}
	}

	e.metricInc(MetricIdentityUpdated)
	e.emitAudit(ctx, auditEventIdentityUpdate, true, targetID, nil, func() map[string]string {
		return map[string]string{
			"by":           requester.ID,
			"role_changed": boolString(req.Role != nil),
		}
	})

	return updated, nil
}

// DeleteIdentity removes targetID and everything it owns. Outstanding
// refresh tokens are revoked strictly before the identity row goes away;
// if revocation fails, the identity is left intact so the unit stays
// failure-atomic.
func (e *Engine) DeleteIdentity(ctx context.Context, targetID string) error {
	if e == nil || e.identities == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if targetID == "" {
		return ErrValidation
	}

	if _, err := e.identities.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return ErrIdentityNotFound
		}
		return errors.Join(ErrInternal, err)
	}

	if err := e.store.RevokeAllForOwner(ctx, targetID); err != nil {
		e.emitAudit(ctx, auditEventIdentityDelete, false, targetID, err, func() map[string]string {
			return map[string]string{"reason": "revoke_cascade_failed"}
		})
		return errors.Join(ErrInternal, err)
	}
	e.metricInc(MetricTokenRevoked)

	if err := e.identities.Delete(ctx, targetID); err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			// Lost a race with another delete; tokens are already revoked.
			return ErrIdentityNotFound
		}
		e.emitAudit(ctx, auditEventIdentityDelete, false, targetID, err, nil)
		return errors.Join(ErrInternal, err)
	}

	e.metricInc(MetricIdentityDeleted)
	e.emitAudit(ctx, auditEventIdentityDelete, true, targetID, nil, nil)

	return nil
}

// GetIdentity returns one identity by id.
func (e *Engine) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	if e == nil || e.identities == nil {
		return nil, ErrEngineNotReady
	}

	ident, err := e.identities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Join(ErrInternal, err)
	}

	return ident, nil
}

// ListIdentities returns all identities. Callers gate this behind
// RequireRole(RoleAdmin) and must not serialize password hashes.
func (e *Engine) ListIdentities(ctx context.Context) ([]Identity, error) {
	if e == nil || e.identities == nil {
		return nil, ErrEngineNotReady
	}

	idents, err := e.identities.List(ctx)
	if err != nil {
		return nil, errors.Join(ErrInternal, err)
	}

	return idents, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
