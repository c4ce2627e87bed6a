package slackbot

import (
	"context"
	"log"
	"time"

	"github.com/slack-go/slack"

	"sevaflow/internal/domain"
)

// Notifier sends status-change DMs to reporters. Delivery is best effort:
// failures are logged and never undo the status change.
type Notifier struct {
	api *slack.Client
	loc *time.Location
}

func NewNotifier(api *slack.Client, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.Local
	}
	return &Notifier{api: api, loc: loc}
}

func (n *Notifier) StatusChanged(ctx context.Context, g domain.Grievance, note string) {
	if n == nil || n.api == nil || g.ReporterID == "" {
		return
	}
	channel, _, _, err := n.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{g.ReporterID},
	})
	if err != nil {
		log.Printf("notify open DM error ref=%s user=%s: %v", g.RefID, g.ReporterID, err)
		return
	}
	_, _, err = n.api.PostMessageContext(ctx, channel.ID, slack.MsgOptionText(formatStatusUpdate(g, note, n.loc), false))
	if err != nil {
		log.Printf("notify post error ref=%s user=%s: %v", g.RefID, g.ReporterID, err)
		return
	}
	log.Printf("notify sent ref=%s user=%s status=%s", g.RefID, g.ReporterID, g.Status)
}
