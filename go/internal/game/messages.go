package game

import (
	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/mcdev12/typerace/go/internal/models"
)

// msg is anything the controller loop processes.
type msg interface{ isControllerMsg() }

type fetchResult struct {
	round *models.Round
	err   error
}

func (fetchResult) isControllerMsg() {}

type retryFetch struct{}

func (retryFetch) isControllerMsg() {}

type timerTick struct {
	roundID     uuid.UUID
	secondsLeft int
}

func (timerTick) isControllerMsg() {}

type timeUp struct{ roundID uuid.UUID }

func (timeUp) isControllerMsg() {}

type joinResult struct {
	roundID       uuid.UUID
	participation *models.Participation
	err           error
}

func (joinResult) isControllerMsg() {}

type typed struct{ text string }

func (typed) isControllerMsg() {}

type pushed struct{ event *events.RoundEvent }

func (pushed) isControllerMsg() {}

// idleEnded reports the End request made for a round nobody typed in.
type idleEnded struct {
	roundID uuid.UUID
	err     error
}

func (idleEnded) isControllerMsg() {}

// submitted reports the save-then-end sequence for a round with activity.
type submitted struct {
	roundID uuid.UUID
	saveErr error
	endErr  error
}

func (submitted) isControllerMsg() {}

type resultsTick struct{}

func (resultsTick) isControllerMsg() {}

type statsResult struct {
	stats *models.PlayerStats
	err   error
}

func (statsResult) isControllerMsg() {}

type viewRequest struct{ reply chan View }

func (viewRequest) isControllerMsg() {}
