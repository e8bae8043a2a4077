package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

type PermissionDeniedError struct {
	Action string
}

func (e PermissionDeniedError) Error() string {
	if e.Action == "" {
		return "permission denied"
	}
	return fmt.Sprintf("permission denied: %s", e.Action)
}

func (e PermissionDeniedError) Is(target error) bool {
	_, ok := target.(PermissionDeniedError)
	if ok {
		return true
	}
	_, ok = target.(*PermissionDeniedError)
	return ok
}

var ErrPermissionDenied = PermissionDeniedError{}

type InvalidTransitionError struct {
	From OfferingState
	To   OfferingState
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

func (e InvalidTransitionError) Is(target error) bool {
	_, ok := target.(InvalidTransitionError)
	if ok {
		return true
	}
	_, ok = target.(*InvalidTransitionError)
	return ok
}

var ErrInvalidTransition = InvalidTransitionError{}

type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}
