package espn

type scoreboardEnvelope struct {
	Events []eventPayload `json:"events"`
}

type eventPayload struct {
	ID           string               `json:"id"`
	Date         string               `json:"date"`
	Name         string               `json:"name"`
	Status       eventStatus          `json:"status"`
	Competitions []competitionPayload `json:"competitions"`
}

type eventStatus struct {
	DisplayClock string `json:"displayClock"`
	Period       int    `json:"period"`
	Type         struct {
		State       string `json:"state"`
		Completed   bool   `json:"completed"`
		Description string `json:"description"`
	} `json:"type"`
}

type competitionPayload struct {
	Venue struct {
		FullName string `json:"fullName"`
	} `json:"venue"`
	Situation struct {
		LastPlay struct {
			Text string `json:"text"`
		} `json:"lastPlay"`
	} `json:"situation"`
	Competitors []competitorPayload `json:"competitors"`
}

// competitorPayload keeps score untyped: ESPN sends strings on scoreboards
// and {value, displayValue} objects on some feeds.
type competitorPayload struct {
	ID       string      `json:"id"`
	HomeAway string      `json:"homeAway"`
	Score    any         `json:"score"`
	Team     teamPayload `json:"team"`
}

type teamPayload struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	Abbreviation string `json:"abbreviation"`
}

type standingsGroup struct {
	Name      string `json:"name"`
	Standings struct {
		Entries []standingEntry `json:"entries"`
	} `json:"standings"`
	Children []standingsGroup `json:"children"`
}

type standingEntry struct {
	Team  teamPayload    `json:"team"`
	Stats []standingStat `json:"stats"`
}

type standingStat struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	DisplayValue string  `json:"displayValue"`
}
