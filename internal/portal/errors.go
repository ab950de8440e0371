package portal

import "errors"

var (
	// ErrProtocolMismatch means a hidden field or marker the pinned
	// portal build is known to emit was absent. Usually a portal
	// version bump, not a transient failure.
	ErrProtocolMismatch = errors.New("portal markup does not match the expected layout")

	// ErrNotAuthenticated is raised by the first page that should only
	// exist behind the login. The login exchange itself never reports
	// bad credentials.
	ErrNotAuthenticated = errors.New("portal session is not authenticated")

	// ErrNoImage means the current response carries no script image.
	ErrNoImage = errors.New("no script image in response")

	ErrCourseNotFound  = errors.New("course not found in exam listing")
	ErrSubjectNotFound = errors.New("subject not found in listing")
)
