package cryptography

import (
	"errors"
	"fmt"
)

const PrivateKeyPEMParam = "privateKeyPEM"
const PublicKeyPEMParam = "publicKeyPEM"

var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError reports which key parameter could not be imported.
type InvalidArgumentError struct {
	Param string
	Cause error
}

func (e *InvalidArgumentError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("invalid argument %s", e.Param)
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Param, e.Cause)
}

func (e *InvalidArgumentError) Unwrap() error {
	return e.Cause
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func newInvalidArgumentError(param string, cause error) *InvalidArgumentError {
	return &InvalidArgumentError{
		Param: param,
		Cause: cause,
	}
}
