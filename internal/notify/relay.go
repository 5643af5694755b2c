package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jensholdgaard/squadmarket/internal/clock"
	"github.com/jensholdgaard/squadmarket/internal/config"
	"github.com/jensholdgaard/squadmarket/internal/store"
)

// Sender posts one rendered message somewhere. Satisfied by the Discord
// session wrapper below; tests swap in their own.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Relay drains undelivered inbox messages to a Sender on an interval.
type Relay struct {
	store    *store.Repositories
	sender   Sender
	interval time.Duration
	batch    int
	logger   *slog.Logger
	clock    clock.Clock
}

// NewRelay returns a Relay.
func NewRelay(repos *store.Repositories, sender Sender, interval time.Duration, logger *slog.Logger, clk clock.Clock) *Relay {
	return &Relay{
		store:    repos,
		sender:   sender,
		interval: interval,
		batch:    50,
		logger:   logger,
		clock:    clk,
	}
}

// Run delivers until ctx is done. Only one instance should run at a time;
// the caller gates this behind leader election.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.DeliverPending(ctx); err != nil {
				r.logger.ErrorContext(ctx, "inbox delivery pass failed", slog.Any("error", err))
			}
		}
	}
}

// DeliverPending sends one batch of undelivered messages, marking each as
// delivered on success. A message that fails to send stays queued for the
// next pass.
func (r *Relay) DeliverPending(ctx context.Context) error {
	msgs, err := r.store.Inbox.ListUndelivered(ctx, r.batch)
	if err != nil {
		return fmt.Errorf("listing undelivered messages: %w", err)
	}

	for _, m := range msgs {
		text := fmt.Sprintf("**%s** → %s: %s", m.Title, m.Account, m.Body)
		if err := r.sender.Send(ctx, text); err != nil {
			r.logger.WarnContext(ctx, "message delivery failed",
				slog.String("message_id", m.ID),
				slog.Any("error", err),
			)
			continue
		}
		if err := r.store.Inbox.MarkDelivered(ctx, m.ID, r.clock.Now().UTC()); err != nil {
			return fmt.Errorf("marking message delivered: %w", err)
		}
	}
	return nil
}

// DiscordSender posts messages to a Discord channel.
type DiscordSender struct {
	session *discordgo.Session
	channel string
}

// NewDiscordSender opens a Discord session for the configured channel.
func NewDiscordSender(cfg config.NotifyConfig) (*DiscordSender, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("opening discord session: %w", err)
	}
	return &DiscordSender{session: session, channel: cfg.ChannelID}, nil
}

// Send posts text to the channel.
func (d *DiscordSender) Send(ctx context.Context, text string) error {
	_, err := d.session.ChannelMessageSendComplex(d.channel, &discordgo.MessageSend{Content: text})
	return err
}

// Close shuts the Discord session down.
func (d *DiscordSender) Close() error { return d.session.Close() }
