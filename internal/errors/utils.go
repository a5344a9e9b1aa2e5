package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a CertError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *CertError {
	if err == nil {
		return nil
	}

	// If it's already a CertError, preserve its file and recoverability
	var ce *CertError
	if errors.As(err, &ce) {
		return &CertError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       ce,
			Context:     ce.Context,
			FilePath:    ce.FilePath,
			Recoverable: ce.Recoverable,
		}
	}

	return &CertError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeNetwork,
	}
}

// WrapRender wraps an error raised while rasterizing a frame.
func WrapRender(err error, message string) *CertError {
	return Wrap(err, ErrorTypeRender, ErrCodeRasterize, message)
}

// WrapEncode wraps an error raised by an export target.
func WrapEncode(err error, message string) *CertError {
	return Wrap(err, ErrorTypeEncode, ErrCodeEncode, message)
}

// WrapIO wraps an I/O error with a file path.
func WrapIO(err error, code, filePath, message string) *CertError {
	ce := Wrap(err, ErrorTypeIO, code, message)
	if ce != nil {
		ce.FilePath = filePath
	}
	return ce
}

// ExtractCause returns the innermost cause of an error chain.
func ExtractCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// AsCertError returns the first CertError in err's chain.
func AsCertError(err error) (*CertError, bool) {
	var ce *CertError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
