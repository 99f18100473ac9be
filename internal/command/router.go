// Package command turns chat messages into relationship operations.
package command

import (
	"context"
	"strings"
	"time"

	"github.com/park285/cheese-social/internal/irisfast"
	"github.com/park285/cheese-social/internal/msgcat"
	"github.com/park285/cheese-social/internal/obslog"
	"github.com/park285/cheese-social/internal/relations"
	"go.uber.org/zap"
)

// Lists longer than this are folded behind KakaoTalk's "see more".
const maxInlineLines = 10

type Router struct {
	prefix  string
	svc     *relations.Service
	cat     *msgcat.Catalog
	out     irisfast.Egress
	allowed map[string]struct{}
	timeout time.Duration
}

func NewRouter(prefix string, svc *relations.Service, cat *msgcat.Catalog, out irisfast.Egress, allowedRooms []string) *Router {
	r := &Router{prefix: prefix, svc: svc, cat: cat, out: out, timeout: 10 * time.Second}
	if len(allowedRooms) > 0 {
		r.allowed = make(map[string]struct{}, len(allowedRooms))
		for _, room := range allowedRooms {
			r.allowed[room] = struct{}{}
		}
	}
	return r
}

// Accepts reports whether msg is a command this router should handle.
func (r *Router) Accepts(msg *irisfast.Message) bool {
	if msg == nil || strings.TrimSpace(msg.Msg) == "" {
		return false
	}
	if r.allowed != nil {
		if _, ok := r.allowed[msg.Room]; !ok {
			return false
		}
	}
	return strings.HasPrefix(strings.TrimSpace(msg.Msg), r.prefix)
}

// Listen subscribes the router to in. Each accepted message is handled on
// its own goroutine bound to ctx. The returned func unsubscribes.
func (r *Router) Listen(ctx context.Context, in irisfast.Inbound) func() {
	id := in.OnMessage(func(msg *irisfast.Message) {
		if !r.Accepts(msg) {
			return
		}
		go r.Handle(ctx, msg)
	})
	return func() { in.RemoveMessageCallback(id) }
}

// Handle answers one inbound message in its room.
func (r *Router) Handle(ctx context.Context, msg *irisfast.Message) {
	if !r.Accepts(msg) {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Msg), r.prefix))
	reply := r.Dispatch(ctx, userIDFromMessage(msg), raw)
	if reply == "" {
		return
	}
	if err := r.out.SendText(ctx, msg.Room, reply); err != nil {
		obslog.L().Warn("reply_send_error", zap.String("room", msg.Room), zap.Error(err))
	}
}

// Dispatch runs the command text (prefix already stripped) for user and
// returns the reply.
func (r *Router) Dispatch(ctx context.Context, user, raw string) string {
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return r.help()
	}
	if user == "" {
		return r.render("command.no_sender", nil, "Cannot identify sender.")
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]
	obslog.L().Debug("command", zap.String("cmd", cmd), zap.String("user", user))

	switch cmd {
	case "help", "도움말":
		return r.help()
	case "challenge", "도전":
		return r.challenge(ctx, user, args)
	case "friend", "친구":
		return r.friend(ctx, user, args)
	default:
		return r.render("command.unknown", r.prefixData(), "Unknown command. Try 'help'.")
	}
}

func (r *Router) help() string {
	return r.render("command.help", r.prefixData(), "Cheese Social")
}

func (r *Router) prefixData() map[string]any { return map[string]any{"Prefix": r.prefix} }

func (r *Router) render(key string, data any, fallback string) string {
	return r.cat.Text(key, data, fallback)
}

func (r *Router) failure(message string) string {
	return r.render("command.failure", map[string]any{"Message": message}, message)
}

func userIDFromMessage(msg *irisfast.Message) string {
	if msg.JSON != nil && strings.TrimSpace(msg.JSON.UserID) != "" {
		return strings.TrimSpace(msg.JSON.UserID)
	}
	if msg.Sender != nil {
		return strings.TrimSpace(*msg.Sender)
	}
	return ""
}

func sanitizeUserArg(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}
