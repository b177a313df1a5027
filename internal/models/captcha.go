package models

import "time"

type CaptchaChallenge struct {
	Key       string
	Response  string
	ExpiresAt time.Time
}
