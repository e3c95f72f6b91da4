package cognito

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/isometry/groupsync/internal/directory"
)

// errorCategories maps Cognito error codes to directory categories.
var errorCategories = map[string]directory.ErrorCategory{
	"ResourceNotFoundException":       directory.ErrorCategoryNotFound,
	"UserNotFoundException":           directory.ErrorCategoryNotFound,
	"GroupExistsException":            directory.ErrorCategoryConflict,
	"ConcurrentModificationException": directory.ErrorCategoryConflict,
	"NotAuthorizedException":          directory.ErrorCategoryPermission,
	"AccessDeniedException":           directory.ErrorCategoryPermission,
	"ForbiddenException":              directory.ErrorCategoryPermission,
	"TooManyRequestsException":        directory.ErrorCategoryThrottling,
	"LimitExceededException":          directory.ErrorCategoryThrottling,
	"InvalidParameterException":       directory.ErrorCategoryValidation,
	"InternalErrorException":          directory.ErrorCategoryUnknown,
}

// mapError categorizes an SDK error. Errors that carry no API error code
// never reached the service and are treated as connection failures.
func mapError(operation, resource string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return directory.NewError(operation, directory.ErrorCategoryConnection, "", resource, err)
	}

	code := apiErr.ErrorCode()
	category, ok := errorCategories[code]
	if !ok {
		category = directory.ErrorCategoryUnknown
	}
	return directory.NewError(operation, category, code, resource, err)
}
