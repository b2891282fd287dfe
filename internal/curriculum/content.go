package curriculum

import "strings"

// Text is a localised string. English is mandatory, Arabic optional.
type Text struct {
	EN string `json:"en" yaml:"en" validate:"required"`
	AR string `json:"ar,omitempty" yaml:"ar,omitempty"`
}

// In returns the text for a language tag ("en", "ar", "ar-EG"...), falling
// back to English.
func (t Text) In(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "ar") && t.AR != "" {
		return t.AR
	}
	return t.EN
}

// Challenge is an authored curriculum task.
type Challenge struct {
	ID               string `json:"id" yaml:"id" validate:"required,max=64"`
	Strand           int    `json:"strand" yaml:"strand" validate:"min=1"`
	Title            Text   `json:"title" yaml:"title"`
	Description      Text   `json:"description" yaml:"description" validate:"-"`
	Points           int    `json:"points" yaml:"points" validate:"min=0"`
	Repeatable       bool   `json:"repeatable" yaml:"repeatable"`
	Level            Tier   `json:"level" yaml:"level" validate:"oneof=ks1 ks2 secondary all"`
	Theme            string `json:"theme,omitempty" yaml:"theme,omitempty"`
	IconName         string `json:"icon_name,omitempty" yaml:"icon_name,omitempty"`
	ReflectionPrompt *Text  `json:"reflection_prompt,omitempty" yaml:"reflection_prompt,omitempty" validate:"omitempty"`
	Enabled          bool   `json:"enabled" yaml:"enabled"`
}

// MinReflectionLength is the shortest reflection accepted when one is required.
const MinReflectionLength = 5

// EligibleFor reports whether a participant in tier p may complete c.
func (c Challenge) EligibleFor(p Tier) bool {
	return c.Enabled && c.Level.Matches(p)
}

// RequiresReflection reports whether logging c for tier p needs a written
// reflection. Only secondary participants are asked to reflect.
func (c Challenge) RequiresReflection(p Tier) bool {
	return c.ReflectionPrompt != nil && p == TierSecondary
}

// Strand is a numbered curriculum category.
type Strand struct {
	Number int  `json:"number" yaml:"number" validate:"min=1"`
	Title  Text `json:"title" yaml:"title"`
}

// GlossaryTerm carries two definitions: a simple one for primary pupils and
// a precise one for secondary.
type GlossaryTerm struct {
	ID                  string `json:"id" yaml:"id"`
	Strand              int    `json:"strand" yaml:"strand"`
	Level               int    `json:"level" yaml:"level"`
	Term                Text   `json:"term" yaml:"term"`
	PrimaryDefinition   Text   `json:"primary_definition" yaml:"primary_definition"`
	SecondaryDefinition Text   `json:"secondary_definition" yaml:"secondary_definition"`
}

// Definition picks the definition suited to tier p.
func (g GlossaryTerm) Definition(p Tier) Text {
	if p == TierSecondary {
		return g.SecondaryDefinition
	}
	return g.PrimaryDefinition
}

// Poster is a printable campaign poster with a family quest.
type Poster struct {
	ID          string `json:"id" yaml:"id"`
	Title       Text   `json:"title" yaml:"title"`
	Category    string `json:"category" yaml:"category"`
	ImageURL    string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	FamilyQuest Text   `json:"family_quest" yaml:"family_quest"`
}

// SupportLink is an external helpline or reporting service.
type SupportLink struct {
	ID          string `json:"id" yaml:"id" validate:"required,max=64"`
	Name        Text   `json:"name" yaml:"name"`
	Description Text   `json:"description" yaml:"description" validate:"-"`
	Phone       string `json:"phone,omitempty" yaml:"phone,omitempty"`
	URL         string `json:"url" yaml:"url" validate:"omitempty,url"`
	IconName    string `json:"icon_name,omitempty" yaml:"icon_name,omitempty"`
}

// StaffMember is a named safeguarding contact.
type StaffMember struct {
	ID   string `json:"id" yaml:"id" validate:"required,max=64"`
	Name string `json:"name" yaml:"name" validate:"required,max=120"`
	Role string `json:"role" yaml:"role" validate:"max=120"`
}
