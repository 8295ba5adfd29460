package models

// User is the identity record resolved through the platform's user directory.
// The messaging engine only needs existence and a display name; everything else
// about identity (auth, profiles, friend graph) lives outside this service.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
