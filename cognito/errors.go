package cognito

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// Common errors
var (
	// ErrMissingConfig indicates the user pool or app client is not configured
	ErrMissingConfig = errors.New("cognito user pool id and client id are required")
	// ErrInvalidCredentials indicates a wrong e-mail or password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotConfirmed indicates the account e-mail was never verified
	ErrUserNotConfirmed = errors.New("email not verified, confirm the account first")
	// ErrUserExists indicates sign-up for an e-mail that is already registered
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidPassword indicates the password fails the pool's policy
	ErrInvalidPassword = errors.New("password does not meet requirements")
	// ErrCodeMismatch indicates a wrong verification code
	ErrCodeMismatch = errors.New("invalid verification code")
	// ErrCodeExpired indicates the verification code is no longer valid
	ErrCodeExpired = errors.New("verification code expired")
	// ErrChallengeRequired indicates Cognito asked for an extra step (MFA,
	// new password) that this helper does not handle
	ErrChallengeRequired = errors.New("additional authentication challenge required")
)

// AuthError wraps a Cognito failure with the operation that produced it.
// Kind is one of the sentinel errors above when the failure is recognised.
type AuthError struct {
	Op   string
	Kind error
	Err  error
}

func (e *AuthError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() []error {
	if e.Kind != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Err}
}

// classify maps Cognito exceptions to the package sentinels
func classify(op string, err error) error {
	var (
		notAuthorized *types.NotAuthorizedException
		notConfirmed  *types.UserNotConfirmedException
		userNotFound  *types.UserNotFoundException
		exists        *types.UsernameExistsException
		badPassword   *types.InvalidPasswordException
		mismatch      *types.CodeMismatchException
		expired       *types.ExpiredCodeException
	)

	var kind error
	switch {
	case errors.As(err, &notAuthorized), errors.As(err, &userNotFound):
		kind = ErrInvalidCredentials
	case errors.As(err, &notConfirmed):
		kind = ErrUserNotConfirmed
	case errors.As(err, &exists):
		kind = ErrUserExists
	case errors.As(err, &badPassword):
		kind = ErrInvalidPassword
	case errors.As(err, &mismatch):
		kind = ErrCodeMismatch
	case errors.As(err, &expired):
		kind = ErrCodeExpired
	}
	return &AuthError{Op: op, Kind: kind, Err: err}
}
