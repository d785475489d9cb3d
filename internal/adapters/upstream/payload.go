package upstream

import (
	"encoding/json"
	"strconv"
	"strings"
)

type localized struct {
	Default string `json:"default"`
}

type teamRef struct {
	ID         int        `json:"id"`
	Abbrev     string     `json:"abbrev"`
	PlaceName  *localized `json:"placeName"`
	CommonName *localized `json:"commonName"`
}

// FullName is "<place> <common>", or the common name alone when the place is
// missing. Empty when neither can be built.
func (t *teamRef) FullName() string {
	if t == nil || t.CommonName == nil {
		return ""
	}
	common := strings.TrimSpace(t.CommonName.Default)
	if common == "" {
		return ""
	}
	if t.PlaceName != nil {
		if place := strings.TrimSpace(t.PlaceName.Default); place != "" {
			return place + " " + common
		}
	}
	return common
}

type scheduleResponse struct {
	GameWeek []struct {
		Date  string `json:"date"`
		Games []struct {
			ID       json.Number `json:"id"`
			HomeTeam *teamRef    `json:"homeTeam"`
			AwayTeam *teamRef    `json:"awayTeam"`
		} `json:"games"`
	} `json:"gameWeek"`
}

type skater struct {
	PlayerID       int64      `json:"playerId"`
	Name           *localized `json:"name"`
	Goals          int        `json:"goals"`
	Assists        int        `json:"assists"`
	Shots          *int       `json:"shots"`
	SOG            *int       `json:"sog"`
	Hits           int        `json:"hits"`
	BlockedShots   int        `json:"blockedShots"`
	PIM            int        `json:"pim"`
	TOI            string     `json:"toi"`
	PowerPlayTOI   string     `json:"powerPlayToi"`
	ShortHandedTOI string     `json:"shorthandedToi"`
}

func (s skater) shots() int {
	switch {
	case s.Shots != nil:
		return *s.Shots
	case s.SOG != nil:
		return *s.SOG
	default:
		return 0
	}
}

func (s skater) name() string {
	if s.Name == nil || s.Name.Default == "" {
		return "Unknown Player"
	}
	return s.Name.Default
}

type teamSkaters struct {
	Forwards []skater `json:"forwards"`
	Defense  []skater `json:"defense"`
}

func (t *teamSkaters) all() []skater {
	if t == nil {
		return nil
	}
	out := make([]skater, 0, len(t.Forwards)+len(t.Defense))
	out = append(out, t.Forwards...)
	return append(out, t.Defense...)
}

type boxscoreResponse struct {
	ID                json.Number `json:"id"`
	PlayerByGameStats *struct {
		AwayTeam *teamSkaters `json:"awayTeam"`
		HomeTeam *teamSkaters `json:"homeTeam"`
	} `json:"playerByGameStats"`
}

func gameID(n json.Number) string {
	if _, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return n.String()
	}
	return ""
}
