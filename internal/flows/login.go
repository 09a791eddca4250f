package flows

import "context"

// LoginFailureKind classifies login failures.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidCredentials
	LoginFailureRotate
)

// LoginResult wraps the rotation outcome of a successful credential check.
type LoginResult struct {
	Failure LoginFailureKind
	Rotate  RotateResult
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	CheckPassword func(plaintext, hash string) bool
	Rotate        RotateDeps
}

// RunLogin checks the presented password against the stored hash and, on success,
// rotates a fresh pair for subject.
func RunLogin(ctx context.Context, subject, plaintext, hash string, deps LoginDeps) LoginResult {
	if subject == "" || hash == "" || !deps.CheckPassword(plaintext, hash) {
		return LoginResult{Failure: LoginFailureInvalidCredentials}
	}

	res := RunRotate(ctx, subject, deps.Rotate)
	if res.Failure != RotateFailureNone {
		return LoginResult{Failure: LoginFailureRotate, Rotate: res}
	}
	return LoginResult{Rotate: res}
}
