// Package bot answers chat frames with pattern-routed replies.
package bot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/omochice/wschat/pkg/protocol"
)

// Sender forwards outgoing text. *transport.Channel satisfies it.
type Sender interface {
	Send(text string) bool
}

// Route replies to text that matches Pattern. Reply gets the submatches.
type Route struct {
	Pattern *regexp.Regexp
	Reply   func(match []string) string

	// Trim matches against the text with surrounding whitespace removed.
	Trim bool
}

// Responder picks the first route matching a frame's text.
type Responder struct {
	routes []Route
}

// NewResponder returns the default routes: "say my name [x]" answers with
// name, anything else non-empty is echoed.
func NewResponder(name string) *Responder {
	return &Responder{routes: []Route{
		{
			Pattern: regexp.MustCompile(`^say my name\s*(\w+)?$`),
			Trim:    true,
			Reply: func(m []string) string {
				if m[1] != "" {
					return fmt.Sprintf("%s, %s !", name, m[1])
				}
				return name + " !"
			},
		},
		{
			Pattern: regexp.MustCompile(`^(?s)(.+)$`),
			Reply:   func(m []string) string { return m[1] },
		},
	}}
}

// Respond returns the reply for frame, if any. Structured frames are matched
// on their message.
func (r *Responder) Respond(frame protocol.Frame) (string, bool) {
	var text string
	switch p := protocol.Decode(frame).(type) {
	case protocol.Structured:
		text = p.Message
	case protocol.Text:
		text = p.Body
	}

	for _, route := range r.routes {
		subject := text
		if route.Trim {
			subject = strings.TrimSpace(text)
		}
		if m := route.Pattern.FindStringSubmatch(subject); m != nil {
			return route.Reply(m), true
		}
	}
	return "", false
}

// Bot is a transport.Handler that replies through its Sender.
type Bot struct {
	responder *Responder
	sender    Sender
}

// New creates a Bot. Bind must be called before the channel opens.
func New(responder *Responder) *Bot {
	return &Bot{responder: responder}
}

// Bind sets the Sender replies go through.
func (b *Bot) Bind(sender Sender) {
	b.sender = sender
}

// OnOpen implements transport.Handler.
func (b *Bot) OnOpen() {
	log.Info().Msg("[bot] connected")
}

// OnMessage implements transport.Handler.
func (b *Bot) OnMessage(frame protocol.Frame) {
	reply, ok := b.responder.Respond(frame)
	if !ok {
		return
	}
	if !b.sender.Send(reply) {
		log.Debug().Str("reply", reply).Msg("[bot] reply dropped")
	}
}

// OnError implements transport.Handler.
func (b *Bot) OnError(err error) {
	log.Error().Err(err).Msg("[bot] connection error")
}

// OnClose implements transport.Handler.
func (b *Bot) OnClose() {
	log.Info().Msg("[bot] disconnected")
}
