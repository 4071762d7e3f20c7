package app

import (
	"time"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/repository"
)

func newInfraction(plate string) repository.NewInfraction {
	at := time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)
	return repository.NewInfraction{
		Series:          constants.SeriesCamera,
		Domain:          plate,
		Type:            constants.DefaultInfractionType,
		MeasuredSpeed:   80,
		AuthorizedSpeed: 60,
		Status:          constants.StatusValidated,
		LoggedAt:        at,
		IssuedAt:        at,
	}
}
