package articles

import (
	"fmt"

	"github.com/newsroom-cms/newsroom/internal/rbac"
	"github.com/newsroom-cms/newsroom/internal/shared"
)

// Rule describes who may perform one edge of the workflow.
type Rule struct {
	// AuthorMay lets the article's own author act without holding any permission.
	AuthorMay bool
	// AllOf must all be held by a non-author actor.
	AllOf []shared.Scope
	// AnyOf requires at least one scope; checked after AllOf.
	AnyOf []shared.Scope
	// System marks the edge the auto-publish sweep may take with no actor.
	System bool
}

type edge struct {
	from Status
	to   Status
}

var transitions = buildTransitions()

func buildTransitions() map[edge]Rule {
	t := map[edge]Rule{
		{StatusDraft, StatusSubmitted}: {
			AuthorMay: true,
			AllOf:     []shared.Scope{shared.PermArticleSubmit, shared.PermArticleUpdate},
		},
		{StatusSubmitted, StatusApproved}: {AllOf: []shared.Scope{shared.PermArticleApprove}},
		{StatusSubmitted, StatusRejected}: {AllOf: []shared.Scope{shared.PermArticleApprove}},
		{StatusApproved, StatusPublished}: {AllOf: []shared.Scope{shared.PermArticlePublish}, System: true},
		{StatusPublished, StatusArchived}: {AnyOf: []shared.Scope{shared.PermArticleUpdate, shared.PermArticleDelete}},
	}
	pullBack := Rule{AuthorMay: true, AllOf: []shared.Scope{shared.PermArticleUpdate}}
	for _, s := range Statuses() {
		if s != StatusDraft {
			t[edge{s, StatusDraft}] = pullBack
		}
	}
	return t
}

// LookupTransition returns the rule for from -> to, or ErrInvalidTransition when the
// workflow has no such edge.
func LookupTransition(from, to Status) (Rule, error) {
	if !from.IsValid() || !to.IsValid() {
		return Rule{}, fmt.Errorf("%w: %q -> %q", shared.ErrInvalidTransition, from, to)
	}
	rule, ok := transitions[edge{from, to}]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, from, to)
	}
	return rule, nil
}

// SystemTransition succeeds only for edges an unattended job may take.
func SystemTransition(from, to Status) error {
	rule, err := LookupTransition(from, to)
	if err != nil {
		return err
	}
	if !rule.System {
		return fmt.Errorf("%w: %s -> %s needs an actor", shared.ErrInvalidTransition, from, to)
	}
	return nil
}

// AllowedTargets lists the statuses reachable in one step, in workflow order.
func AllowedTargets(from Status) []Status {
	var out []Status
	for _, to := range Statuses() {
		if _, ok := transitions[edge{from, to}]; ok {
			out = append(out, to)
		}
	}
	return out
}

// Permits evaluates the rule for actorID acting on an article written by authorID.
// It returns the denial reason, or "" when the actor may proceed.
func (r Rule) Permits(access rbac.Access, authorID int64) string {
	if !access.Exists {
		return rbac.ReasonUnknownUser
	}
	if !access.Active {
		return rbac.ReasonInactiveUser
	}
	if r.AuthorMay && authorID != 0 && access.UserID == authorID {
		return ""
	}
	for _, s := range r.AllOf {
		if reason := access.DenyReason(s); reason != "" {
			return reason
		}
	}
	if len(r.AnyOf) > 0 && !access.AllowsAny(r.AnyOf...) {
		return access.DenyReason(r.AnyOf[0])
	}
	if len(r.AllOf) == 0 && len(r.AnyOf) == 0 {
		return rbac.ReasonMissingPermission
	}
	return ""
}

// Scopes lists every scope named by the rule, for logging.
func (r Rule) Scopes() []shared.Scope {
	out := make([]shared.Scope, 0, len(r.AllOf)+len(r.AnyOf))
	out = append(out, r.AllOf...)
	return append(out, r.AnyOf...)
}
