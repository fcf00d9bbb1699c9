package aws

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// EC2 API error codes with a friendlier message
const (
	CodeInstanceNotFound       = "InvalidInstanceID.NotFound"
	CodeInstanceMalformed      = "InvalidInstanceID.Malformed"
	CodeIncorrectInstanceState = "IncorrectInstanceState"
	CodeUnauthorized           = "UnauthorizedOperation"
	CodeAuthFailure            = "AuthFailure"
	CodeRequestExpired         = "RequestExpired"
	CodeOptInRequired          = "OptInRequired"
)

// ErrorCode returns the AWS API error code in err's chain, or "".
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// ClassifyError wraps AWS API errors with a readable explanation.
// The original error stays reachable through errors.Is/As.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	switch ErrorCode(err) {
	case CodeInstanceNotFound:
		return fmt.Errorf("instance does not exist in this region: %w", err)
	case CodeInstanceMalformed:
		return fmt.Errorf("malformed instance ID: %w", err)
	case CodeIncorrectInstanceState:
		return fmt.Errorf("instance changed state during the request: %w", err)
	case CodeUnauthorized:
		return fmt.Errorf("not authorized for this operation, check IAM permissions: %w", err)
	case CodeAuthFailure:
		return fmt.Errorf("authentication failed, check your credentials: %w", err)
	case CodeRequestExpired:
		return fmt.Errorf("request expired, check your system clock or refresh credentials: %w", err)
	case CodeOptInRequired:
		return fmt.Errorf("region is not enabled for this account: %w", err)
	}

	var opErr *smithy.OperationError
	if stderrors.As(err, &opErr) && strings.Contains(err.Error(), "exceeded maximum number of attempts") {
		return fmt.Errorf("AWS retries exhausted: %w", err)
	}

	return err
}
