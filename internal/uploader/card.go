package uploader

// Card is a platform-neutral rendering of a message. The chat adapter
// translates it to whatever rich-message shape the platform supports and
// back; the codec treats it as the canonical wire format for request state.
type Card struct {
	Title   string
	Body    string
	Fields  []CardField
	Select  *SelectMenu
	Buttons []Button
}

// CardField is one labeled field on a card.
type CardField struct {
	Label string
	Value string
}

// Field returns the value of the field with the given label, and whether
// it was present.
func (c *Card) Field(label string) (string, bool) {
	for _, f := range c.Fields {
		if f.Label == label {
			return f.Value, true
		}
	}
	return "", false
}

// ButtonStyle hints how prominently the platform should render a button.
type ButtonStyle int

const (
	ButtonNeutral ButtonStyle = iota
	ButtonPrimary
	ButtonDanger
)

// Button is an interactive control. ID is the component identifier the
// platform echoes back on interaction events.
type Button struct {
	ID    string
	Label string
	Style ButtonStyle
}

// SelectMenu offers a bounded list of options; choosing one delivers the
// chosen value back through an interaction event carrying ID.
type SelectMenu struct {
	ID          string
	Placeholder string
	Options     []string
}

// Component identifiers. The event router maps these back to transition
// kinds; they are stable protocol constants, not free-form strings.
const (
	ComponentNavigate = "upload.nav"
	ComponentBack     = "upload.back"
	ComponentEdit     = "upload.edit"
	ComponentConfirm  = "upload.confirm"
	ComponentCancel   = "upload.cancel"

	ComponentApprove     = "review.approve"
	ComponentDeny        = "review.deny"
	ComponentOfficerEdit = "review.edit"
)

// Modal identifier prefixes. The token after the colon keys the pending
// edit relay for the second step of the form interaction.
const (
	ModalDetailsPrefix     = "upload.details:"
	ModalOfficerEditPrefix = "review.details:"
)

// Modal input identifiers.
const (
	InputFileName    = "filename"
	InputDescription = "description"
	InputDestination = "destination"
)

// ModalRequest asks the event router to present a form to the acting user.
// Values are prefilled from the request's current fields.
type ModalRequest struct {
	ID     string
	Title  string
	Inputs []ModalInput
}

// ModalInput is one text input on a modal form.
type ModalInput struct {
	ID       string
	Label    string
	Value    string
	Required bool
}
