package rekognition

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied     = "AccessDeniedException"
	errCodeInvalidParameter = "InvalidParameterException"
	errCodeImageTooLarge    = "ImageTooLargeException"
	errCodeInvalidImage     = "InvalidImageFormatException"
	errCodeThrottling       = "ThrottlingException"
)

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrInvalidImage indicates the submitted bytes are not a usable image
	ErrInvalidImage = errors.New("invalid or oversized image")

	// ErrThrottled indicates the AWS API rejected the call due to rate limiting
	ErrThrottled = errors.New("rekognition request throttled")
)

// parseAPIError maps AWS error codes onto package sentinels so callers
// can branch with errors.Is instead of string matching.
func parseAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeAccessDenied:
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.ErrorMessage())
		case errCodeInvalidParameter, errCodeImageTooLarge, errCodeInvalidImage:
			return fmt.Errorf("%w: %s", ErrInvalidImage, apiErr.ErrorMessage())
		case errCodeThrottling:
			return fmt.Errorf("%w: %s", ErrThrottled, apiErr.ErrorMessage())
		}
	}

	return err
}
