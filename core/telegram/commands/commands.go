package commands

import tele "gopkg.in/telebot.v4"

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are wrapped with the operator allow-list check.
	AdminOnly bool
	// Hidden commands work but are not published in the command menu.
	Hidden  bool
	Aliases []string
}

// Listed reports whether the command belongs in the public command menu.
func (c Command) Listed() bool {
	return !c.Hidden && !c.AdminOnly
}
