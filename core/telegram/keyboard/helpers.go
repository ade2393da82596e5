// Package keyboard builds inline and reply markups from plain button specs.
package keyboard

import (
	"strconv"

	tele "gopkg.in/telebot.v4"
)

// InlineBtn is one inline button: the label, the callback key and an
// optional payload.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// RemoveKeyboard hides a reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// Indexed builds one button per label, all sharing unique and carrying the
// label's position as payload.
func Indexed(unique string, labels []string) []InlineBtn {
	btns := make([]InlineBtn, len(labels))
	for i, l := range labels {
		btns[i] = InlineBtn{Text: l, Unique: unique, Data: strconv.Itoa(i)}
	}
	return btns
}

// InlineButtons places every button on its own row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	return InlineButtonsNPerRow(buttons, 1)
}

// InlineButtonsNPerRow lays buttons out left to right, n per row.
func InlineButtonsNPerRow(buttons []InlineBtn, n int) *tele.ReplyMarkup {
	if n < 1 {
		n = 1
	}
	markup := &tele.ReplyMarkup{}
	var rows [][]tele.InlineButton
	for i, b := range buttons {
		if i%n == 0 {
			rows = append(rows, make([]tele.InlineButton, 0, n))
		}
		last := len(rows) - 1
		rows[last] = append(rows[last], *markup.Data(b.Text, b.Unique, b.Data).Inline())
	}
	markup.InlineKeyboard = rows
	return markup
}
