// internal/rules/compile.go
package rules

import (
	"strings"

	"github.com/solatis/querybuilder/internal/schema"
	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Rule tree compilation.
 *
 * Walks a GroupNode depth first and joins child fragments with the group's conjunction
 * token, children in declared order. The root group has depth 1.
 *
 * Parentheses wrap a group that has more than one child, sits below the root, or is
 * negated. A negated group is prefixed with settings.notToken:
 *
 *   name!=foo                           root, one rule
 *   name!=foo AND num<3                 root, two rules
 *   (name!=foo OR num<3) AND color:Red  nested group
 *   NOT (name!=foo)                     negated root
 *
 * Depth is checked on entry to each group, before any of its children compile, so an
 * over-deep subtree fails with ErrNestingTooDeep without partial work.
 *
 * Empty groups follow settings.emptyGroup: "error" fails with ErrEmptyGroup, "marker"
 * compiles to settings.emptyGroupMarker.
 *
 * Negation follows settings.negation: "wrap" always prefixes the not token. "fold" compiles
 * a negated group holding exactly one rule whose operator declares reversedOp as that
 * reversed operator instead, and wraps otherwise.
 *
 * The first error aborts compilation; no partial output is ever returned.
 */

// Stats describes a compiled tree.
type Stats struct {
	Rules    int
	Groups   int
	MaxDepth int
}

type treeCompiler struct {
	model    *schema.Model
	settings types.Settings
	stats    Stats
}

// Compile renders root against model.
func Compile(model *schema.Model, root *types.GroupNode) (string, error) {
	out, _, err := CompileWithStats(model, root)
	return out, err
}

// CompileWithStats renders root against model and reports tree statistics.
func CompileWithStats(model *schema.Model, root *types.GroupNode) (string, Stats, error) {
	if root == nil {
		return "", Stats{}, &types.CompileError{Depth: 1, Err: types.ErrEmptyNode}
	}
	c := &treeCompiler{model: model, settings: model.Settings()}
	out, err := c.group(root, 1)
	if err != nil {
		return "", Stats{}, err
	}
	return out, c.stats, nil
}

func (c *treeCompiler) group(g *types.GroupNode, depth int) (string, error) {
	fail := func(err error) error {
		return &types.CompileError{NodeID: g.ID, Depth: depth, Err: err}
	}

	if depth > c.settings.MaxNesting {
		return "", fail(types.ErrNestingTooDeep)
	}
	c.stats.Groups++
	if depth > c.stats.MaxDepth {
		c.stats.MaxDepth = depth
	}

	conj, err := c.model.Conjunction(g.Conjunction)
	if err != nil {
		return "", fail(types.ErrUnknownConjunction)
	}

	if len(g.Children) == 0 {
		if c.settings.EmptyGroup != types.EmptyGroupMarker {
			return "", fail(types.ErrEmptyGroup)
		}
		return c.wrap(c.settings.EmptyGroupMarker, 1, depth, g.Not), nil
	}

	if g.Not && c.settings.Negation == types.NegationFold && len(g.Children) == 1 && g.Children[0].Rule != nil {
		if out, ok, err := c.foldedRule(g.Children[0].Rule, depth); ok || err != nil {
			return out, err
		}
	}

	parts := make([]string, 0, len(g.Children))
	for _, child := range g.Children {
		var (
			out string
			err error
		)
		switch {
		case child.Rule != nil:
			c.stats.Rules++
			out, err = compileRule(c.model, child.Rule, "", depth)
		case child.Group != nil:
			out, err = c.group(child.Group, depth+1)
		default:
			err = fail(types.ErrEmptyNode)
		}
		if err != nil {
			return "", err
		}
		parts = append(parts, out)
	}

	return c.wrap(strings.Join(parts, " "+conj.Token+" "), len(parts), depth, g.Not), nil
}

// foldedRule compiles a lone negated rule with its operator's reversedOp.
// ok is false when the operator has no reversed form.
func (c *treeCompiler) foldedRule(rule *types.RuleNode, depth int) (string, bool, error) {
	operator, err := c.model.ResolveOperator(rule.Operator)
	if err != nil || operator.ReversedOp == "" {
		return "", false, nil
	}
	c.stats.Rules++
	out, err := compileRule(c.model, rule, operator.ReversedOp, depth)
	if err != nil {
		return "", true, err
	}
	return c.wrap(out, 1, depth, false), true, nil
}

func (c *treeCompiler) wrap(body string, children, depth int, not bool) string {
	if children > 1 || depth > 1 || not {
		body = "(" + body + ")"
	}
	if not {
		body = c.settings.NotToken + " " + body
	}
	return body
}
