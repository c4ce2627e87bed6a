// Package slackbot is the chat front end: citizens file and track
// grievances with slash commands, managers move them through the
// lifecycle, and reporters get a DM whenever their grievance changes.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"sevaflow/internal/config"
	"sevaflow/internal/domain"
	"sevaflow/internal/intake"
)

const minGrievanceLength = 15

// Grievances is the slice of intake.Service the bot calls.
type Grievances interface {
	Register(ctx context.Context, text string, reporter domain.Reporter) (domain.Grievance, error)
	Transition(ctx context.Context, refID string, status domain.Status, note, actor string) (domain.Grievance, error)
	Get(ctx context.Context, refID string) (domain.Grievance, error)
	History(ctx context.Context, refID string) ([]domain.AuditEntry, error)
	ByReporter(ctx context.Context, reporterID string, limit int) ([]domain.Grievance, error)
	Stats(ctx context.Context) (domain.Stats, error)
	Departments() []intake.Department
}

type Bot struct {
	api      *slack.Client
	cfg      config.Config
	svc      Grievances
	notifier *Notifier
	loc      *time.Location
}

func New(cfg config.Config, api *slack.Client, svc Grievances) *Bot {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		api:      api,
		cfg:      cfg,
		svc:      svc,
		notifier: NewNotifier(api, loc),
		loc:      loc,
	}
}

func (b *Bot) Notifier() *Notifier {
	return b.notifier
}

// Run connects over Socket Mode and serves commands until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	client := socketmode.New(b.api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go b.handleSlashCommand(ctx, cmd)
			case socketmode.EventTypeEventsAPI:
				client.Ack(*evt.Request)
				eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				go b.handleEventsAPI(eventsAPIEvent)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.RunContext(ctx)
}

func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/grievance":
		b.handleRegister(ctx, cmd)
	case "/status":
		b.handleStatus(ctx, cmd)
	case "/mygrievances":
		b.handleMyGrievances(ctx, cmd)
	case "/history":
		b.handleHistory(ctx, cmd)
	case "/departments":
		b.postEphemeral(cmd, formatDepartments(b.svc.Departments()))
	case "/set-status":
		b.handleSetStatus(ctx, cmd)
	case "/grievance-stats":
		b.handleStats(ctx, cmd)
	case "/help":
		b.handleHelp(cmd)
	}
}

func (b *Bot) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MemberJoinedChannelEvent:
		log.Printf("member-joined user=%s channel=%s", ev.User, ev.Channel)
		b.postEphemeralTo(ev.Channel, ev.User, helpText(false))
	}
}

func (b *Bot) handleRegister(ctx context.Context, cmd slack.SlashCommand) {
	text := strings.TrimSpace(cmd.Text)
	if len([]rune(text)) < minGrievanceLength {
		b.postEphemeral(cmd, fmt.Sprintf("Please describe the problem in a little more detail (at least %d characters), including where it is.\nExample: `/grievance Streetlight near Laxmi Nagar metro gate has been off for 3 days`", minGrievanceLength))
		return
	}

	reporter := domain.Reporter{ID: cmd.UserID, Name: reporterName(b.api, cmd.UserID, cmd.UserName)}
	g, err := b.svc.Register(ctx, cmd.Text, reporter)
	if err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("Error registering grievance: %v", err))
		log.Printf("grievance register error user=%s: %v", cmd.UserID, err)
		return
	}
	b.postEphemeral(cmd, formatRegistration(g))
	log.Printf("grievance registered ref=%s user=%s", g.RefID, cmd.UserID)
}

func (b *Bot) handleStatus(ctx context.Context, cmd slack.SlashCommand) {
	refID := domain.NormalizeRefID(cmd.Text)
	if refID == "" {
		b.postEphemeral(cmd, "Usage: `/status SF-0001`")
		return
	}
	g, err := b.svc.Get(ctx, refID)
	if errors.Is(err, domain.ErrNotFound) {
		b.postEphemeral(cmd, fmt.Sprintf("No grievance found with reference `%s`. Please check the ID and try again.", refID))
		return
	}
	if err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("Error loading grievance: %v", err))
		log.Printf("status error ref=%s: %v", refID, err)
		return
	}
	b.postEphemeral(cmd, formatStatus(g, b.loc))
}

func (b *Bot) handleMyGrievances(ctx context.Context, cmd slack.SlashCommand) {
	items, err := b.svc.ByReporter(ctx, cmd.UserID, myGrievancesLimit)
	if err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("Error loading your grievances: %v", err))
		log.Printf("mygrievances error user=%s: %v", cmd.UserID, err)
		return
	}
	b.postEphemeral(cmd, formatMyGrievances(items))
}

func (b *Bot) handleHistory(ctx context.Context, cmd slack.SlashCommand) {
	refID := domain.NormalizeRefID(cmd.Text)
	if refID == "" {
		b.postEphemeral(cmd, "Usage: `/history SF-0001`")
		return
	}
	entries, err := b.svc.History(ctx, refID)
	if err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("Error loading history: %v", err))
		log.Printf("history error ref=%s: %v", refID, err)
		return
	}
	if len(entries) == 0 {
		b.postEphemeral(cmd, fmt.Sprintf("No grievance found with reference `%s`.", refID))
		return
	}
	b.postEphemeral(cmd, formatHistory(refID, entries, b.loc))
}

// parseSetStatusArgs splits "SF-0001 in_progress crew dispatched" into
// its reference, status and optional note.
func parseSetStatusArgs(text string) (string, domain.Status, string, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", "", "", fmt.Errorf("usage: /set-status SF-0001 <status> [note]")
	}
	status, err := domain.ParseStatus(fields[1])
	if err != nil {
		return "", "", "", err
	}
	note := strings.TrimSpace(strings.Join(fields[2:], " "))
	return domain.NormalizeRefID(fields[0]), status, note, nil
}

func (b *Bot) handleSetStatus(ctx context.Context, cmd slack.SlashCommand) {
	if !b.cfg.IsManagerID(cmd.UserID) {
		b.postEphemeral(cmd, "Sorry, only managers can use this command.")
		log.Printf("set-status denied user=%s", cmd.UserID)
		return
	}
	refID, status, note, err := parseSetStatusArgs(cmd.Text)
	if err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("%v\nStatuses: %s", err, statusList()))
		return
	}

	g, err := b.svc.Transition(ctx, refID, status, note, cmd.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		b.postEphemeral(cmd, fmt.Sprintf("No grievance found with reference `%s`.", refID))
		return
	}
	if err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("Error updating grievance: %v", err))
		log.Printf("set-status error ref=%s: %v", refID, err)
		return
	}

	b.postEphemeral(cmd, fmt.Sprintf("`%s` is now *%s*.", g.RefID, g.Status.Label()))
	b.notifier.StatusChanged(ctx, g, note)
	log.Printf("set-status ref=%s status=%s user=%s", g.RefID, g.Status, cmd.UserID)
}

func (b *Bot) handleStats(ctx context.Context, cmd slack.SlashCommand) {
	if !b.cfg.IsManagerID(cmd.UserID) {
		b.postEphemeral(cmd, "Sorry, only managers can use this command.")
		log.Printf("grievance-stats denied user=%s", cmd.UserID)
		return
	}
	st, err := b.svc.Stats(ctx)
	if err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("Error loading stats: %v", err))
		log.Printf("grievance-stats error: %v", err)
		return
	}
	b.postEphemeral(cmd, formatStats(st))
}

func (b *Bot) handleHelp(cmd slack.SlashCommand) {
	b.postEphemeral(cmd, helpText(b.cfg.IsManagerID(cmd.UserID)))
}

func helpText(isManager bool) string {
	lines := []string{
		"*SevaFlow Commands*",
		"",
		"`/grievance <description>` — Report a civic problem in plain language.",
		">*Example:* `/grievance Streetlight near Laxmi Nagar metro gate has been off for 3 days`",
		"`/status SF-0001` — Check a grievance's status.",
		"`/mygrievances` — List your recent grievances.",
		"`/history SF-0001` — Show every status change of a grievance.",
		"`/departments` — List departments and their resolution times.",
		"`/help` — Show this help.",
		"",
		"_Tip: mention the exact location and how long the problem has existed._",
	}
	if isManager {
		lines = append(lines,
			"",
			"*Manager Commands*",
			"",
			"`/set-status SF-0001 <status> [note]` — Update a grievance and notify its reporter.",
			">Statuses: "+statusList(),
			"`/grievance-stats` — Show the grievance dashboard.",
		)
	}
	return strings.Join(lines, "\n")
}

func statusList() string {
	names := make([]string, len(domain.Statuses))
	for i, st := range domain.Statuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}

func (b *Bot) postEphemeral(cmd slack.SlashCommand, text string) {
	b.postEphemeralTo(cmd.ChannelID, cmd.UserID, text)
}

func (b *Bot) postEphemeralTo(channelID, userID, text string) {
	_, err := b.api.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral: %v", err)
	}
}
