package typist

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/game"
	"github.com/rs/zerolog/log"
)

// Racer is the part of the controller a bot drives.
type Racer interface {
	View(ctx context.Context) (game.View, error)
	Type(text string)
}

type BotSettings struct {
	WPM int
	// Accuracy is the chance each character is typed correctly.
	Accuracy float64
	Tick     time.Duration
	Seed     uint64
}

func DefaultBotSettings() BotSettings {
	return BotSettings{
		WPM:      DefaultBotWPM,
		Accuracy: 1,
		Tick:     250 * time.Millisecond,
	}
}

// Bot types every round's sentence at a steady pace. Useful for load and
// for having company in an empty lobby.
type Bot struct {
	racer    Racer
	clock    clockwork.Clock
	settings BotSettings
	rng      *rand.Rand

	roundID   uuid.UUID
	startedAt time.Time
	typed     []rune
}

func NewBot(racer Racer, clock clockwork.Clock, settings BotSettings) *Bot {
	return &Bot{
		racer:    racer,
		clock:    clock,
		settings: settings,
		rng:      rand.New(rand.NewPCG(settings.Seed, settings.Seed^0x9e3779b97f4a7c15)),
	}
}

func (b *Bot) Run(ctx context.Context) error {
	ticker := b.clock.NewTicker(b.settings.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			view, err := b.racer.View(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Debug().Err(err).Msg("bot failed to read view")
				continue
			}
			b.step(view)
		}
	}
}

func (b *Bot) step(view game.View) {
	if view.Phase != game.PhasePlaying || view.Round == nil || !view.Joined {
		return
	}
	now := b.clock.Now()
	if view.Round.ID != b.roundID {
		b.roundID = view.Round.ID
		b.startedAt = now
		b.typed = b.typed[:0]
		log.Info().Str("round_id", b.roundID.String()).Msg("bot starting round")
	}

	target := []rune(view.Round.Sentence)
	// a word is five characters
	want := int(now.Sub(b.startedAt) * time.Duration(b.settings.WPM*5) / time.Minute)
	want = min(want, len(target))
	if want <= len(b.typed) {
		return
	}
	for i := len(b.typed); i < want; i++ {
		r := target[i]
		if b.rng.Float64() >= b.settings.Accuracy {
			r = typo(r)
		}
		b.typed = append(b.typed, r)
	}
	b.racer.Type(string(b.typed))
}

func typo(r rune) rune {
	if r == 'x' {
		return 'z'
	}
	return 'x'
}
