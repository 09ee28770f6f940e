package backend

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/nerrad567/controlhub-core/internal/controller"
)

// kindPaths maps rule kinds to their collection under /controllers/{id}.
var kindPaths = map[controller.Kind]string{
	controller.KindSensorTrigger: "sensor-triggers",
	controller.KindTimer:         "timers",
	controller.KindSchedule:      "schedules",
	controller.KindAlert:         "alerts",
}

func collectionPath(kind controller.Kind) (string, error) {
	p, ok := kindPaths[kind]
	if !ok {
		return "", fmt.Errorf("%w: kind %q", ErrInvalidRule, kind)
	}
	return "/controllers/{id}/" + p, nil
}

// CreateRule posts a new rule to the controller and returns the stored
// rule, including the ID the backend assigned.
func (c *Client) CreateRule(ctx context.Context, controllerID string, rule controller.Rule) (controller.Rule, error) {
	path, err := collectionPath(rule.Kind())
	if err != nil {
		return nil, err
	}
	req := c.http.R().SetContext(ctx).SetPathParam("id", controllerID)

	switch r := rule.(type) {
	case controller.SensorTrigger:
		return create(c, req, path, r)
	case controller.Timer:
		return create(c, req, path, r)
	case controller.Schedule:
		return create(c, req, path, r)
	case controller.Alert:
		return create(c, req, path, r)
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidRule, rule)
}

func create[R controller.Rule](c *Client, req *resty.Request, path string, rule R) (controller.Rule, error) {
	var created R
	resp, err := req.SetBody(rule).SetResult(&created).Post(path)
	if err := c.check(resp, err); err != nil {
		return nil, fmt.Errorf("creating %s: %w", rule.Kind(), err)
	}
	if created.Base().ID == "" {
		return nil, fmt.Errorf("%w: created %s has no id", ErrRequestFailed, rule.Kind())
	}
	return created, nil
}

// SaveRule replaces an existing rule on the controller.
func (c *Client) SaveRule(ctx context.Context, controllerID string, rule controller.Rule) error {
	path, err := collectionPath(rule.Kind())
	if err != nil {
		return err
	}
	id := rule.Base().ID
	if id == "" {
		return fmt.Errorf("%w: %s without id", ErrInvalidRule, rule.Kind())
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": controllerID, "ruleId": id}).
		SetBody(rule).
		Put(path + "/{ruleId}")
	if err := c.check(resp, err); err != nil {
		return fmt.Errorf("saving %s %s: %w", rule.Kind(), id, err)
	}
	return nil
}

// DeleteRule removes a rule from the controller.
func (c *Client) DeleteRule(ctx context.Context, controllerID string, kind controller.Kind, ruleID string) error {
	path, err := collectionPath(kind)
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": controllerID, "ruleId": ruleID}).
		Delete(path + "/{ruleId}")
	if err := c.check(resp, err); err != nil {
		return fmt.Errorf("deleting %s %s: %w", kind, ruleID, err)
	}
	return nil
}
