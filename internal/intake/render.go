package intake

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Renderer turns a prompt into reply text.
type Renderer interface {
	Render(p Prompt) (string, error)
}

var sectionIntros = map[string]string{
	"patient":   "Please tell me your first and last name, date of birth and phone number. An email address is optional.",
	"insurance": "Next, your insurance. What is your insurance provider and member ID? Plan type and group ID help too if you have them.",
	"address":   "What is your home address, including city, state and ZIP code?",
	"medical":   "What brings you in today? Feel free to mention how long it has been going on and how bad it is from 1 to 10.",
}

const issuesTmpl = `{{range .Invalid}}The {{.Label}} "{{.Value}}" {{.Constraint}}. {{end}}`

var promptTemplates = map[PromptKind]string{
	PromptGreeting:  `Hi! I can help you book an appointment. Are you a new or returning patient?`,
	PromptAskStatus: `Are you a new patient, or have you visited us before?`,
	PromptIdentify:  `{{with .Notice}}{{.}} {{end}}Please share the phone number or email address on your record so I can find you. If you are new, just say so.`,
	PromptCollect: `{{with .Notice}}{{.}} {{end}}` + issuesTmpl + `{{if .Fresh}}{{intro .Section}}{{else if .Missing}}I still need your {{join .MissingLabels}}.{{else}}Please check the details above and send them again.{{end}}`,
	PromptConfirmSection: `{{with .Notice}}{{.}} {{end}}` + issuesTmpl + `Here is what I have:
{{range .Lines}}- {{.}}
{{end}}Is this correct?`,
	PromptAddressRetry: `I couldn't verify that address.{{if .Suggestion}} Did you mean {{.Suggestion}}? Reply yes to use it, or enter the address again.{{else}} Please check it and enter it again.{{end}}`,
	PromptReviewProfile: `{{with .Notice}}{{.}} {{end}}` + issuesTmpl + `{{.Title}}
{{range .Lines}}- {{.}}
{{end}}{{if .Missing}}I still need your {{join .MissingLabels}}.{{else}}Tell me anything that has changed, or say "no changes" to continue.{{end}}`,
	PromptNoProviders: `{{.Notice}} Could you describe the reason for your visit another way?`,
	PromptChooseProvider: `{{with .Notice}}{{.}} {{end}}` + issuesTmpl + `These providers can see you:
{{range $i, $p := .Providers}}{{inc $i}}. {{$p.Name}} ({{$p.Specialty}}, rated {{printf "%.1f" $p.Rating}})
{{end}}Reply with a number or a name.`,
	PromptChooseTime: `{{with .Notice}}{{.}} {{end}}Available times{{with .Title}} with {{.}}{{end}}:
{{range $i, $s := .Slots}}{{inc $i}}. {{$s.Label}}
{{end}}Reply with a number or the time you want.`,
	PromptConfirmBooking: `Please confirm your appointment:
{{range .Lines}}- {{.}}
{{end}}Shall I book it?`,
	PromptBooked: `You're booked with {{.Booking.ProviderName}} on {{.Booking.Label}}. Your visit ID is {{.Booking.VisitID}}.`,
	PromptAbandoned:       `Okay, I've stopped here and nothing further was saved. Take care!`,
	PromptClarify:         `Sorry, I didn't catch that. {{with .Lines}}Here is what I have:
{{range .}}- {{.}}
{{end}}{{end}}Please reply yes or no.`,
	PromptTurnFailed:      `Sorry, something went wrong and that step did not complete. Nothing was changed; please try again.`,
	PromptSessionFinished: `This conversation has ended. Start a new one to book another appointment.`,
}

// TemplateRenderer renders prompts with text/template. Missing keys are errors.
type TemplateRenderer struct {
	templates map[PromptKind]*template.Template
}

func NewTemplateRenderer() *TemplateRenderer {
	funcs := template.FuncMap{
		"join":  joinWords,
		"inc":   func(i int) int { return i + 1 },
		"intro": func(section string) string { return sectionIntros[section] },
	}
	r := &TemplateRenderer{templates: make(map[PromptKind]*template.Template, len(promptTemplates))}
	for kind, text := range promptTemplates {
		r.templates[kind] = template.Must(template.New(string(kind)).Option("missingkey=error").Funcs(funcs).Parse(text))
	}
	return r
}

func (r *TemplateRenderer) Render(p Prompt) (string, error) {
	t, ok := r.templates[p.Kind]
	if !ok {
		return "", fmt.Errorf("intake: no template for prompt %q", p.Kind)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("intake: render %s: %w", p.Kind, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// joinWords renders "a", "a and b" or "a, b and c".
func joinWords(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	}
	return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
}
