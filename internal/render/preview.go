package render

import (
	"strings"

	"reelplan/internal/plan"
)

// Preview renders a plan's steps as shell commands, one per line.
func Preview(p plan.RenderPlan) string {
	lines := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		quoted := make([]string, len(step.CommandArgs))
		for i, arg := range step.CommandArgs {
			quoted[i] = shellQuote(arg)
		}
		lines = append(lines, strings.Join(quoted, " "))
	}
	return strings.Join(lines, "\n")
}

func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if strings.IndexFunc(arg, needsQuoting) < 0 {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=,+@%", r)
}
