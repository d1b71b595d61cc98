package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// SlackConfig holds Slack announcement settings.
type SlackConfig struct {
	Token   string // bot token (xoxb-...)
	Channel string // channel ID or name
	APIURL  string // optional; defaults to slack.com
}

// Slack posts announcements to one channel.
type Slack struct {
	api     *slack.Client
	channel string
	logger  *slog.Logger
}

// NewSlack creates a Slack announcer.
func NewSlack(cfg SlackConfig, logger *slog.Logger) (*Slack, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("slack: token is required")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var opts []slack.Option
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(strings.TrimRight(cfg.APIURL, "/")+"/"))
	}
	return &Slack{
		api:     slack.New(cfg.Token, opts...),
		channel: cfg.Channel,
		logger:  logger,
	}, nil
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Announce(ctx context.Context, t *protocol.Ticket) error {
	_, ts, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(slackText(t), false))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	s.logger.Debug("ticket announced", "platform", "slack", "channel", s.channel, "ts", ts)
	return nil
}

func slackText(t *protocol.Ticket) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*New ticket:* %s\n", escapeMrkdwn(t.Summary))
	fmt.Fprintf(&sb, "*Priority:* %s  *Story points:* %d", orDash(string(t.Priority)), t.StoryPoints)
	if len(t.Labels) > 0 {
		labels := make([]string, len(t.Labels))
		for i, l := range t.Labels {
			labels[i] = "`" + escapeMrkdwn(l) + "`"
		}
		fmt.Fprintf(&sb, "\n*Labels:* %s", strings.Join(labels, " "))
	}
	return sb.String()
}

// escapeMrkdwn escapes the three characters Slack treats as control sequences.
func escapeMrkdwn(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
