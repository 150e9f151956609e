// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into security audit log lines.
package queue

// Queue names, one per event kind.
const (
    UserRegisteredQueue = "user.registered"
    UserLoggedInQueue   = "user.logged_in"
)

// UserRegisteredEvent is published after a new identity is created.
type UserRegisteredEvent struct {
    UserID       string `json:"user_id"`
    Email        string `json:"email"`
    DisplayName  string `json:"display_name"`
    RegisteredAt string `json:"registered_at"`
}

// UserLoggedInEvent is published after a successful password login.  It
// carries enough client information for downstream consumers to flag
// unfamiliar devices without querying the primary database.
type UserLoggedInEvent struct {
    UserID     string `json:"user_id"`
    Email      string `json:"email"`
    IPAddress  string `json:"ip"`
    UserAgent  string `json:"user_agent"`
    LoggedInAt string `json:"logged_in_at"`
}
