package compiler

import (
	"log/slog"
	"strings"

	"reelplan/internal/config"
	"reelplan/internal/graph"
	"reelplan/internal/logging"
	"reelplan/internal/plan"
)

// CompileContext accumulates everything one compile produces besides the
// graph statements themselves. It is created per Compile call and never
// shared.
type CompileContext struct {
	Request     plan.RenderRequest
	Window      plan.Window
	ProfileName string
	Profile     config.Profile
	DurationMS  int64

	graph  *graph.Builder
	logger *slog.Logger
	inputs []plan.InputMeta

	warnings     []string
	seenWarnings map[string]struct{}
	notices      []plan.DependencyNotice
	seenNotices  map[string]struct{}
	slowmo       []plan.SlowmoDetail
	stabilise    []plan.StabiliseDetail
	transitions  []plan.TransitionMeta
	ducking      plan.DuckingAnalysis

	links     []transitionLink
	globalSeq int
}

func newCompileContext(req plan.RenderRequest, profileName string, profile config.Profile, logger *slog.Logger) *CompileContext {
	return &CompileContext{
		Request:      req,
		Window:       req.Window(),
		ProfileName:  profileName,
		Profile:      profile,
		graph:        graph.NewBuilder(),
		logger:       logger,
		seenWarnings: make(map[string]struct{}),
		seenNotices:  make(map[string]struct{}),
	}
}

// Warn records a soft degradation. Codes are stable machine-readable strings
// such as "proxy_missing_clip_<id>"; duplicates are dropped.
func (cc *CompileContext) Warn(code, msg string, attrs ...logging.Attr) {
	if _, seen := cc.seenWarnings[code]; seen {
		return
	}
	cc.seenWarnings[code] = struct{}{}
	cc.warnings = append(cc.warnings, code)
	attrs = append(attrs, logging.String("warning_code", code))
	logging.WarnWithContext(cc.logger, msg, "plan_degraded", attrs...)
}

// Decision logs a branch the compiler took.
func (cc *CompileContext) Decision(decisionType, result, reason string, attrs ...logging.Attr) {
	all := append(logging.DecisionAttrs(decisionType, result, reason), attrs...)
	cc.logger.Debug("compiler decision", logging.Args(all...)...)
}

// DecisionAmong logs a branch chosen from a known set of options.
func (cc *CompileContext) DecisionAmong(decisionType, result, reason string, options []string, attrs ...logging.Attr) {
	all := append(logging.DecisionAttrsWithOptions(decisionType, result, reason, strings.Join(options, ",")), attrs...)
	cc.logger.Debug("compiler decision", logging.Args(all...)...)
}

// Notice records a soft dependency. Entries are deduplicated by kind and
// subject; a missing dependency also raises a warning.
func (cc *CompileContext) Notice(n plan.DependencyNotice) {
	subject := n.AssetID
	if subject == "" {
		subject = n.ArtifactID
	}
	key := n.Kind + "|" + subject
	if _, seen := cc.seenNotices[key]; seen {
		return
	}
	cc.seenNotices[key] = struct{}{}
	cc.notices = append(cc.notices, n)
	if n.Status == plan.DependencyMissing {
		cc.Warn("dependency_missing_"+n.Kind+"_"+subject, "soft dependency missing",
			logging.String("dependency", n.Kind),
			logging.String("subject", subject),
		)
	}
}

// AddInput appends an input binding and returns its index.
func (cc *CompileContext) AddInput(in plan.InputMeta) int {
	in.Index = len(cc.inputs)
	cc.inputs = append(cc.inputs, in)
	return in.Index
}

// nextGlobal allocates the next post-composition label.
func (cc *CompileContext) nextGlobal(purpose string) string {
	label := cc.graph.Global(cc.globalSeq, purpose)
	cc.globalSeq++
	return label
}

// Warnings returns the codes recorded so far.
func (cc *CompileContext) Warnings() []string {
	return append([]string(nil), cc.warnings...)
}

func (cc *CompileContext) meta(sequenceID, encoder string) plan.PlanMeta {
	return plan.PlanMeta{
		RenderProfile:     cc.ProfileName,
		EncoderUsed:       encoder,
		SequenceID:        sequenceID,
		WindowStartMS:     cc.Window.StartMS,
		WindowEndMS:       cc.Window.StartMS + cc.DurationMS,
		TotalDurationMS:   cc.DurationMS,
		Transitions:       nonNil(cc.transitions),
		Warnings:          nonNil(cc.warnings),
		DependencyNotices: nonNil(cc.notices),
		SlowmoDetails:     nonNil(cc.slowmo),
		StabiliseDetails:  nonNil(cc.stabilise),
		DuckingAnalysis:   cc.ducking,
	}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// warnCode joins code fragments into a warning identifier.
func warnCode(parts ...string) string {
	return strings.Join(parts, "_")
}
