// Package prompt implements the prompt composer (C14): the three mode
// templates (EVIDENCE, ASSIST, CHAT), the numbered context block with SFS
// priority annotations, the optional strict-JSON output schema, and the
// truncation detector. The context-block rendering style (numbered
// "--- Source i ---" entries) is grounded on the teacher's
// reasoning.buildContext/buildAnswerPrompt, generalized to the spec's
// "[Källa i: Title]" marker format and Swedish-language templates.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

// StructuredAnswer is the strict-JSON schema optionally injected into the
// EVIDENCE template when structured output is enabled (spec §4.14).
type StructuredAnswer struct {
	Svar           string   `json:"svar" jsonschema_description:"Svaret på frågan, baserat enbart på källorna"`
	Mode           string   `json:"mode"`
	Kallor         []string `json:"källor"`
	SaknasUnderlag bool     `json:"saknas_underlag"`
}

var structuredAnswerSchema = jsonschema.Reflect(&StructuredAnswer{})

const identityBlock = `Du är en svensk juridisk assistent som svarar på frågor om svensk lagstiftning, med stöd av den svenska författningssamlingen (SFS) och riksdagens öppna data.`

const (
	evidenceGroundingPolicy = `Citera källtexten ordagrant och ange källhänvisning [Källa N] för varje sakpåstående. Hitta aldrig på lagrum eller källor som inte finns bland källorna nedan.`
	assistGroundingPolicy   = `Hänvisa direkt till de bifogade källorna. Du får sammanfatta med egna ord, men ange alltid vilken källa ett påstående kommer från.`
	chatGroundingPolicy     = `Inget källunderlag har hämtats för den här frågan. Svara allmänt och hitta aldrig på källhänvisningar.`
)

const proceduralControl = `Var koncis men fullständig. Om underlaget inte räcker för att besvara frågan, säg det explicit i stället för att gissa.`

// fewShotPlaceholder is written literally into every composed prompt.
// Nothing in this module replaces it with few-shot examples, so the LLM
// receives the placeholder text as is.
const fewShotPlaceholder = "{{CONSTITUTIONAL_EXAMPLES}}"

// Compose builds the full system+context prompt for one request. question
// is the standalone (decontextualized) query; sources are the post-grade,
// pre-generation kept results, already ordered by rank.
func Compose(mode ragtypes.Mode, question string, sources []ragtypes.SearchResult, structuredOutput bool) string {
	var b strings.Builder
	b.WriteString(identityBlock)
	b.WriteString("\n\n")

	switch mode {
	case ragtypes.ModeEvidence:
		b.WriteString(evidenceGroundingPolicy)
	case ragtypes.ModeAssist:
		b.WriteString(assistGroundingPolicy)
	default:
		b.WriteString(chatGroundingPolicy)
	}
	b.WriteString("\n\n")
	b.WriteString(proceduralControl)
	b.WriteString("\n\n")

	if mode != ragtypes.ModeChat && len(sources) > 0 {
		b.WriteString(ContextBlock(sources))
		b.WriteString("\n\n")
	}

	if mode == ragtypes.ModeEvidence && structuredOutput {
		if instr := schemaInstruction(); instr != "" {
			b.WriteString(instr)
			b.WriteString("\n\n")
		}
	}

	b.WriteString(fewShotPlaceholder)
	b.WriteString("\n\n")
	b.WriteString("Fråga: ")
	b.WriteString(question)
	return b.String()
}

func schemaInstruction() string {
	raw, err := json.Marshal(structuredAnswerSchema)
	if err != nil {
		return ""
	}
	return "Svara enbart med JSON enligt detta schema:\n" + string(raw)
}

// ContextBlock renders sources as numbered "[Källa i: Title]" entries in
// rank order. SFS entries carry a priority marker and inline annotations
// for stycke count, cross-references, and amendment history.
func ContextBlock(sources []ragtypes.SearchResult) string {
	var b strings.Builder
	for i, s := range sources {
		n := i + 1
		if s.Metadata != nil {
			b.WriteString("★ ")
		}
		fmt.Fprintf(&b, "[Källa %d: %s]\n", n, s.Title)
		b.WriteString(s.Snippet)
		if s.Metadata != nil {
			b.WriteString(annotateSFS(*s.Metadata))
		}
		if i < len(sources)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func annotateSFS(meta ragtypes.SFSMetadata) string {
	var notes []string
	if meta.StyckeCount > 0 {
		notes = append(notes, fmt.Sprintf("%d stycken", meta.StyckeCount))
	}
	if len(meta.CrossRefs) > 0 {
		notes = append(notes, "Se även "+strings.Join(meta.CrossRefs, ", "))
	}
	if meta.AmendmentRef != "" {
		notes = append(notes, "Senast ändrad "+meta.AmendmentRef)
	}
	if len(notes) == 0 {
		return ""
	}
	return "\n(" + strings.Join(notes, "; ") + ")"
}

// incompleteListCues are trailing fragments suggesting a response was cut
// off mid-sentence or mid-list.
var incompleteListCues = []string{",", ";", "och", "eller", "samt", "-", "–"}

// IsTruncated flags answers that look cut off: ending in ":" or trailing
// an incomplete-list cue (spec §4.14).
func IsTruncated(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return false
	}
	if strings.HasSuffix(trimmed, ":") {
		return true
	}
	for _, cue := range incompleteListCues {
		if strings.HasSuffix(trimmed, cue) {
			return true
		}
	}
	return false
}
