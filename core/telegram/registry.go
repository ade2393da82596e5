package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/core/telegram/commands"
)

// Registry holds the bot's slash commands and callback handlers keyed by the
// button's unique id.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
}

// NewRegistry creates an empty Registry whose unknown callbacks are answered
// with a short notice.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

func wireWarn(event string, attrs ...slog.Attr) {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, event, attrs...)
}

// RegisterCommand adds cmd under name, which must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	switch {
	case name == "" || cmd.Handler == nil || cmd.Description == "":
		wireWarn("register.command.skip", slog.String("name", name), slog.String("reason", "invalid"))
		return fmt.Errorf("invalid command %q", name)
	case name[0] != '/':
		wireWarn("register.command.skip", slog.String("name", name), slog.String("reason", "no_slash_prefix"))
		return fmt.Errorf("command %q must start with '/'", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		wireWarn("register.command.duplicate", slog.String("name", name))
		return fmt.Errorf("command already registered: %s", name)
	}
	r.commands[name] = cmd
	return nil
}

// ListCommands returns the commands sorted by name. With visibleOnly, hidden
// and admin-only commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && !meta.Listed() {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves name or one of the aliases to the canonical command.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = "/" + strings.TrimPrefix(strings.TrimSpace(name), "/")
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if "/"+strings.TrimPrefix(alias, "/") == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands returns a copy of the registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// RegisterCallback maps a button key to its handler. Keys are unique.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		wireWarn("register.callback.skip", slog.String("key", key), slog.Bool("handler_nil", handler == nil))
		return errors.New("invalid callback registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		wireWarn("register.callback.duplicate", slog.String("key", key))
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the sorted callback keys.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetCallbackNotFound replaces the handler for callbacks without an owner.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// CallbackNotFound returns the handler for callbacks without an owner.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetupCommands publishes the visible commands to the Telegram command menu.
// Hidden and admin-only commands stay reachable but are not advertised.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelDebug, "register.commands.set",
		slog.Int("count", len(list)),
	)
}
