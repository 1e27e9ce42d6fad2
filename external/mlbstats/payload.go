package mlbstats

type scheduleEnvelope struct {
	Dates []struct {
		Date  string        `json:"date"`
		Games []gamePayload `json:"games"`
	} `json:"dates"`
}

type gamePayload struct {
	GamePK   int64  `json:"gamePk"`
	GameDate string `json:"gameDate"`
	Status   struct {
		AbstractGameState string `json:"abstractGameState"`
		DetailedState     string `json:"detailedState"`
	} `json:"status"`
	Teams struct {
		Home sidePayload `json:"home"`
		Away sidePayload `json:"away"`
	} `json:"teams"`
	Linescore struct {
		CurrentInning int    `json:"currentInning"`
		InningHalf    string `json:"inningHalf"`
	} `json:"linescore"`
	Venue struct {
		Name string `json:"name"`
	} `json:"venue"`
}

// sidePayload.Score is absent before first pitch, so it stays untyped.
type sidePayload struct {
	Score any         `json:"score"`
	Team  teamPayload `json:"team"`
}

type teamPayload struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type standingsEnvelope struct {
	Records []struct {
		Division struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"division"`
		TeamRecords []teamRecord `json:"teamRecords"`
	} `json:"records"`
}

type teamRecord struct {
	Team              teamPayload `json:"team"`
	Wins              int         `json:"wins"`
	Losses            int         `json:"losses"`
	WinningPercentage string      `json:"winningPercentage"`
	GamesBack         string      `json:"gamesBack"`
	DivisionRank      string      `json:"divisionRank"`
}
