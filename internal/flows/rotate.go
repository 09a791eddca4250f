package flows

import (
	"context"

	"github.com/MrEthical07/tokenslot/jwt"
)

// RotateFailureKind classifies rotation failures for root-level mapping.
type RotateFailureKind int

const (
	RotateFailureNone RotateFailureKind = iota
	RotateFailureIssueAccess
	RotateFailureIssueRefresh
	RotateFailurePublishAccess
	RotateFailurePublishRefresh
)

// RotateResult carries the new pair on success. On failure both Access and Refresh are
// zero so a caller cannot hand out a partially published pair.
type RotateResult struct {
	Failure RotateFailureKind
	Err     error
	Subject string
	Access  jwt.Issued
	Refresh jwt.Issued
}

type RotateIssuer interface {
	Issue(subject string, class jwt.TokenClass) (jwt.Issued, error)
}

type RotateRegistry interface {
	Publish(ctx context.Context, subject string, class jwt.TokenClass, sessionID string) error
}

// RotateDeps captures rotation dependencies.
type RotateDeps struct {
	Issuer   RotateIssuer
	Registry RotateRegistry
}

// RunRotate issues a fresh access/refresh pair for subject and publishes the access jti,
// then the refresh jti.
//
// The two publishes are independent writes. A failure on the second leaves the access
// pointer already moved and the previous refresh token still current; callers retry the
// whole rotation.
func RunRotate(ctx context.Context, subject string, deps RotateDeps) RotateResult {
	access, err := deps.Issuer.Issue(subject, jwt.Access)
	if err != nil {
		return RotateResult{Failure: RotateFailureIssueAccess, Err: err, Subject: subject}
	}
	refresh, err := deps.Issuer.Issue(subject, jwt.Refresh)
	if err != nil {
		return RotateResult{Failure: RotateFailureIssueRefresh, Err: err, Subject: subject}
	}

	if err := deps.Registry.Publish(ctx, subject, jwt.Access, access.SessionID); err != nil {
		return RotateResult{Failure: RotateFailurePublishAccess, Err: err, Subject: subject}
	}
	if err := deps.Registry.Publish(ctx, subject, jwt.Refresh, refresh.SessionID); err != nil {
		return RotateResult{Failure: RotateFailurePublishRefresh, Err: err, Subject: subject}
	}

	return RotateResult{
		Subject: subject,
		Access:  access,
		Refresh: refresh,
	}
}
