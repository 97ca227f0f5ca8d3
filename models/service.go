package models

// Service is a long running background loop owned by main.
type Service interface {
	Start()
	Stop()
}
