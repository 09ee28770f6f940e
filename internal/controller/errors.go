package controller

import "errors"

// Domain errors for the controller package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, controller.ErrControllerNotFound) {
//	    // handle not found case
//	}
var (
	// ErrControllerNotFound is returned when a controller ID does not exist.
	ErrControllerNotFound = errors.New("controller: not found")

	// ErrInvalidController is returned when a controller fails validation.
	ErrInvalidController = errors.New("controller: invalid")

	// ErrRuleNotFound is returned when a rule ID does not exist on a controller.
	ErrRuleNotFound = errors.New("controller: rule not found")

	// ErrUnknownRuleKind is returned for a rule kind outside the four known kinds.
	ErrUnknownRuleKind = errors.New("controller: unknown rule kind")

	// ErrInvalidDuration is returned when a duration string cannot be parsed.
	ErrInvalidDuration = errors.New("controller: invalid duration")

	// ErrNoSnapshot is returned when neither the directory nor a stored
	// snapshot can supply controllers.
	ErrNoSnapshot = errors.New("controller: no snapshot available")
)
