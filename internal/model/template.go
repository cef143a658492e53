package model

// Template is a regulatory narrative template tagged with the typologies
// it illustrates. Templates ground generation in accepted filing language.
type Template struct {
	Name       string
	Content    string
	Typologies []string
}
