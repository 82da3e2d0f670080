package progress

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

//go:embed probeInstr.tmpl
var probeInstructions string

// Assessment is the strict JSON contract the self-assessment probe asks the
// upstream agent to honor. All fields are optional on the wire; parsing
// fills the gaps defensively.
type Assessment struct {
	Phases       map[string]float64 `json:"phases" jsonschema:"title=Phases,description=Score between 0 and 1 for each coaching phase: goal, reality, options, will"`
	Modes        map[string]float64 `json:"modes,omitempty" jsonschema:"title=Modes,description=Confidence between 0 and 1 for each coaching mode: supportive, challenging, exploratory, directive"`
	Phase        string             `json:"phase,omitempty" jsonschema:"title=Phase,description=The currently dominant coaching phase,enum=goal,enum=reality,enum=options,enum=will"`
	Mode         string             `json:"mode,omitempty" jsonschema:"title=Mode,description=The currently dominant coaching mode,enum=supportive,enum=challenging,enum=exploratory,enum=directive"`
	SummaryReady *bool              `json:"summary_ready,omitempty" jsonschema:"title=SummaryReady,description=Whether the conversation is ready to wrap up"`
	Note         string             `json:"note,omitempty" jsonschema:"title=Note,description=One short sentence justifying the scores"`
}

// assessmentSchemaJSON reflects the Assessment contract into a JSON schema
// embedded verbatim in the probe prompt.
func assessmentSchemaJSON() string {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(Assessment{})
	schemaBytes, err := schema.MarshalJSON()
	if err != nil {
		// The schema is reflected from a static type; failure here is a
		// programming error, not an input error.
		panic(fmt.Sprintf("failed to marshal assessment schema: %v", err))
	}
	return string(schemaBytes)
}

func probePrompt(transcript string) string {
	prompt := probeInstructions
	prompt = strings.ReplaceAll(prompt, "{{schema}}", assessmentSchemaJSON())
	prompt = strings.ReplaceAll(prompt, "{{transcript}}", transcript)
	return prompt
}

// parseAssessment decodes a probe payload. Malformed JSON fails; the caller
// logs and discards. Valid payloads are normalized: scores coerced into
// [0,1], missing dimensions defaulted to 0.
func parseAssessment(payload string) (*Assessment, error) {
	content := strings.TrimSpace(payload)
	// Some upstreams wrap JSON in markdown fences despite being asked not to.
	if split := strings.Split(content, "```"); len(split) > 1 {
		content = strings.TrimPrefix(strings.TrimSpace(split[1]), "json")
	}

	var assessment Assessment
	if err := json.Unmarshal([]byte(content), &assessment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assessment payload: %w", err)
	}
	return &assessment, nil
}

// apply folds a parsed assessment into the snapshot and returns the updated
// copy plus the derived wrap-up readiness.
func (a *Assessment) apply(snapshot Snapshot) (Snapshot, bool) {
	updated := cloneSnapshot(snapshot)

	for _, phase := range Phases() {
		updated.PhaseScores[phase] = clampScore(a.Phases[string(phase)])
	}
	for _, mode := range Modes() {
		updated.ModeConfidence[mode] = clampScore(a.Modes[string(mode)])
	}

	updated.CurrentPhase = highestPhase(updated.PhaseScores)
	if phase := Phase(a.Phase); phaseKnown(phase) {
		updated.CurrentPhase = phase
	}
	updated.CurrentMode = highestMode(updated.ModeConfidence)
	if mode := Mode(a.Mode); modeKnown(mode) {
		updated.CurrentMode = mode
	}

	if a.Note != "" {
		updated.Note = a.Note
	}

	ready := computedReadiness(updated.PhaseScores)
	if a.SummaryReady != nil {
		ready = *a.SummaryReady
	}
	updated.SummaryReady = ready

	return updated, ready
}

func phaseKnown(phase Phase) bool {
	for _, known := range Phases() {
		if phase == known {
			return true
		}
	}
	return false
}

func modeKnown(mode Mode) bool {
	for _, known := range Modes() {
		if mode == known {
			return true
		}
	}
	return false
}
