package switchbot

import (
	"context"

	"switchbot/internal/domain"
)

// Bot controls a SwitchBot Bot (the button pusher).
type Bot struct {
	api      DeviceAPI
	deviceID string
}

func NewBot(api DeviceAPI, deviceID string) *Bot {
	return &Bot{api: api, deviceID: deviceID}
}

func (b *Bot) DeviceID() string {
	return b.deviceID
}

func (b *Bot) Power(ctx context.Context) (domain.Power, error) {
	return readPower(ctx, b.api, b.deviceID)
}

func (b *Bot) TurnOn(ctx context.Context) error {
	return b.api.Control(ctx, b.deviceID, domain.NewCommand(domain.CommandTurnOn, domain.DefaultParameter))
}

func (b *Bot) TurnOff(ctx context.Context) error {
	return b.api.Control(ctx, b.deviceID, domain.NewCommand(domain.CommandTurnOff, domain.DefaultParameter))
}

// Press triggers a single push regardless of the bot's switch mode.
func (b *Bot) Press(ctx context.Context) error {
	return b.api.Control(ctx, b.deviceID, domain.NewCommand(domain.CommandPress, domain.DefaultParameter))
}
