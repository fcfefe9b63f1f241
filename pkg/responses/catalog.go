// Package responses renders canned response ids into user-facing text.
//
// Texts are Go text/template strings evaluated against the session slots, e.g.
//
//	utter_ask_use_previous_email: "Should I use {{ .previous_email }}? (yes/no)"
package responses

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"text/template"

	"github.com/aretw0/servicedesk/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Defaults is the built-in catalog used by the chat CLI.
var Defaults = map[string]string{
	domain.ResponseAskEmail:                 "What is your email address?",
	domain.ResponseAskUsePreviousEmail:      "Would you like to use {{ .previous_email }}? (yes/no)",
	domain.ResponseNoEmail:                  "Sorry, I could not find a unique user with that email address. Please try again.",
	domain.ResponseNoPriority:               "Sorry, that is not a valid priority. Please choose low, medium or high.",
	domain.ResponseIncidentCreationCanceled: "Okay, I will not open an incident.",
	domain.ResponseFeedbackSendingCanceled:  "Okay, I will not send your feedback.",

	domain.AskResponse(domain.SlotPriority):            "What is the priority of this issue? (low, medium, high)",
	domain.AskResponse(domain.SlotProblemDescription):  "What is the problem you are having?",
	domain.AskResponse(domain.SlotIncidentTitle):       "What should the title of the incident be?",
	domain.AskResponse(domain.SlotFeedbackDescription): "What feedback would you like to share?",
	domain.AskResponse(domain.SlotConfirm): "Should I open an incident with these details?\n" +
		"email: {{ .email }}\npriority: {{ .priority }}\nproblem description: {{ .problem_description }}\n" +
		"title: {{ .incident_title }}\n(yes/no)",
	domain.AskResponse(domain.SlotConfirmFeedback): "Should I send this feedback?\n{{ .feedback_description }}\n(yes/no)",
}

// Catalog maps response ids to templates.
type Catalog struct {
	templates map[string]*template.Template
}

// New builds a catalog from texts. Every text must parse as a template.
func New(texts map[string]string) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]*template.Template, len(texts))}
	for id, text := range texts {
		tmpl, err := template.New(id).Option("missingkey=zero").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("response %s: %w", id, err)
		}
		c.templates[id] = tmpl
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(Defaults)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a YAML map of id to text from path and layers it over Defaults.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read responses: %w", err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse responses %s: %w", path, err)
	}

	merged := make(map[string]string, len(Defaults)+len(overrides))
	for k, v := range Defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return New(merged)
}

// IDs returns the known response ids, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Render turns msg into text. Literal messages are returned as-is; unknown
// response ids render as the id itself.
func (c *Catalog) Render(msg domain.Message, slots map[string]any) string {
	if msg.Response == "" {
		return msg.Text
	}

	tmpl, ok := c.templates[msg.Response]
	if !ok {
		return msg.Response
	}

	data := make(map[string]any, len(slots))
	for k, v := range slots {
		if v != nil {
			data[k] = v
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return msg.Response
	}
	return buf.String()
}
