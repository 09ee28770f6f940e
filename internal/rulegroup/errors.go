package rulegroup

import "errors"

// Domain errors for the rulegroup package.
var (
	// ErrGroupNotFound is returned when a mapped rule group ID does not exist.
	ErrGroupNotFound = errors.New("rulegroup: group not found")

	// ErrRuleNotFound is returned when a mapped rule ID does not exist in a group.
	ErrRuleNotFound = errors.New("rulegroup: rule not found")

	// ErrInstanceNotFound is returned when a mapped rule has no instance on
	// the given controller.
	ErrInstanceNotFound = errors.New("rulegroup: no instance on controller")

	// ErrControllerNotInGroup is returned when assigning a rule to a
	// controller that is not part of the rule's group.
	ErrControllerNotInGroup = errors.New("rulegroup: controller not in group")

	// ErrAlreadyAssigned is returned when the controller already carries the rule.
	ErrAlreadyAssigned = errors.New("rulegroup: rule already assigned to controller")

	// ErrUnresolved is returned when a rule's sensor, device or rule group
	// has no same-named counterpart on the target controller.
	ErrUnresolved = errors.New("rulegroup: reference cannot be resolved on controller")

	// ErrNotLoaded is returned by Service lookups before the first Reload.
	ErrNotLoaded = errors.New("rulegroup: not loaded")

	// ErrSuperseded is returned by Reload when a newer reload started first.
	ErrSuperseded = errors.New("rulegroup: reload superseded")

	// ErrInvalidPatch is returned when a patch sets fields the rule kind does not have.
	ErrInvalidPatch = errors.New("rulegroup: invalid patch")
)
