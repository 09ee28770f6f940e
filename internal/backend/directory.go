package backend

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/controlhub-core/internal/controller"
)

// ruleSet is the body of GET /controllers/{id}/rules.
type ruleSet struct {
	RuleGroups     []controller.RuleGroup     `json:"ruleGroups"`
	SensorTriggers []controller.SensorTrigger `json:"sensorTriggers"`
	Timers         []controller.Timer         `json:"timers"`
	Schedules      []controller.Schedule      `json:"schedules"`
	Alerts         []controller.Alert         `json:"alerts"`
}

// ListControllers fetches every controller with its module tree, then its
// rule groups and rules. Rule fetches run in parallel, at most
// maxConcurrency at a time; the first failure cancels the rest.
// The result keeps the order of GET /controllers.
func (c *Client) ListControllers(ctx context.Context) ([]controller.Controller, error) {
	var controllers []controller.Controller
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&controllers).
		Get("/controllers")
	if err := c.check(resp, err); err != nil {
		return nil, fmt.Errorf("listing controllers: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for i := range controllers {
		ctrl := &controllers[i]
		g.Go(func() error {
			rules, err := c.fetchRules(gctx, ctrl.ID)
			if err != nil {
				return fmt.Errorf("fetching rules for %s: %w", ctrl.Name, err)
			}
			ctrl.RuleGroups = rules.RuleGroups
			ctrl.SensorTriggers = rules.SensorTriggers
			ctrl.Timers = rules.Timers
			ctrl.Schedules = rules.Schedules
			ctrl.Alerts = rules.Alerts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return controllers, nil
}

func (c *Client) fetchRules(ctx context.Context, controllerID string) (*ruleSet, error) {
	var rules ruleSet
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", controllerID).
		SetResult(&rules).
		Get("/controllers/{id}/rules")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &rules, nil
}
