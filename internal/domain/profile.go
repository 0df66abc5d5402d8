package domain

import "time"

type Profile struct {
	UUID      string
	Username  string
	QueriedAt time.Time

	Experience float64
	GamesOwned []string
	LastLogin  *time.Time
}
