// Package touchpoint checks that the notification messages of a touch point
// only use parameters its event schema guarantees, and that email messages
// fill their remote template's parameters correctly.
package touchpoint

import (
	"github.com/reoring/clientflow/deep"
)

// SMSMessage is one SMS a touch point may send.
type SMSMessage struct {
	BodyFormat     string   `json:"body_format"`
	BodyParameters []string `json:"body_parameters"`
}

// PushMessage is one push notification a touch point may send.
type PushMessage struct {
	TitleFormat     string   `json:"title_format"`
	TitleParameters []string `json:"title_parameters"`
	BodyFormat      string   `json:"body_format"`
	BodyParameters  []string `json:"body_parameters"`
	ChannelID       string   `json:"channel_id"`
}

// Substitution fills the template parameter at Key with a formatted string.
type Substitution struct {
	Key        deep.Path `json:"key"`
	Format     string    `json:"format"`
	Parameters []string  `json:"parameters"`
}

// EmailMessage is one email a touch point may send. The body comes from a
// template rendered by the email-template service.
type EmailMessage struct {
	SubjectFormat                 string         `json:"subject_format"`
	SubjectParameters             []string       `json:"subject_parameters"`
	Template                      string         `json:"template"`
	TemplateParametersFixed       map[string]any `json:"template_parameters_fixed"`
	TemplateParametersSubstituted []Substitution `json:"template_parameters_substituted"`
}

// Messages groups the messages of a touch point by channel.
type Messages struct {
	SMS   []SMSMessage   `json:"sms"`
	Push  []PushMessage  `json:"push"`
	Email []EmailMessage `json:"email"`
}
