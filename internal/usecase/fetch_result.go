package usecase

import (
	"fmt"

	"github.com/riskibarqy/sports-tracker/internal/domain/game"
)

const (
	sourceESPN = "espn"
	sourceMLB  = "mlb_statsapi"
)

// FetchError describes one failed upstream fetch. Callers degrade to an empty
// result for that sport instead of failing the whole request.
type FetchError struct {
	Sport  game.Sport
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.Sport, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchResult carries either a value or the reason it is missing.
type FetchResult[T any] struct {
	Value T
	Err   *FetchError
}

func (r FetchResult[T]) OK() bool {
	return r.Err == nil
}

func sourceFor(sport game.Sport) string {
	if sport == game.SportMLB {
		return sourceMLB
	}
	return sourceESPN
}
