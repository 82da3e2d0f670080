package closure

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

//go:embed consentAskInstr.tmpl
var consentAskInstructions string

//go:embed consentCheckInstr.tmpl
var consentCheckInstructions string

//go:embed continueInstr.tmpl
var continueInstructions string

//go:embed summaryInstr.tmpl
var summaryInstructions string

// ConsentDecision is the classified answer to "should we wrap up?".
type ConsentDecision string

const (
	ConsentAccept    ConsentDecision = "accept"
	ConsentDecline   ConsentDecision = "decline"
	ConsentUncertain ConsentDecision = "uncertain"
)

// ConsentVerdict is the strict JSON contract the consent-check request asks
// the upstream agent to honor.
type ConsentVerdict struct {
	Decision   string  `json:"decision" jsonschema:"title=Decision,description=Whether the client agreed to wrap up,enum=accept,enum=decline,enum=uncertain"`
	Confidence float64 `json:"confidence" jsonschema:"title=Confidence,description=Confidence in the decision between 0 and 1"`
	Reason     string  `json:"reason,omitempty" jsonschema:"title=Reason,description=One short sentence explaining the decision"`
}

func consentVerdictSchemaJSON() string {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(ConsentVerdict{})
	schemaBytes, err := schema.MarshalJSON()
	if err != nil {
		panic(fmt.Sprintf("failed to marshal consent verdict schema: %v", err))
	}
	return string(schemaBytes)
}

func consentCheckPrompt(utterance string) string {
	prompt := consentCheckInstructions
	prompt = strings.ReplaceAll(prompt, "{{schema}}", consentVerdictSchemaJSON())
	prompt = strings.ReplaceAll(prompt, "{{utterance}}", utterance)
	return prompt
}

// parseConsentVerdict decodes a consent-check payload. Unknown decisions
// collapse to uncertain so an off-script upstream can never force a wrap-up.
func parseConsentVerdict(payload string) (ConsentDecision, *ConsentVerdict, error) {
	content := strings.TrimSpace(payload)
	if split := strings.Split(content, "```"); len(split) > 1 {
		content = strings.TrimPrefix(strings.TrimSpace(split[1]), "json")
	}

	var verdict ConsentVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return ConsentUncertain, nil, fmt.Errorf("failed to unmarshal consent verdict: %w", err)
	}

	switch ConsentDecision(verdict.Decision) {
	case ConsentAccept:
		return ConsentAccept, &verdict, nil
	case ConsentDecline:
		return ConsentDecline, &verdict, nil
	default:
		return ConsentUncertain, &verdict, nil
	}
}
