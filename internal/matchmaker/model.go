package matchmaker

// Participant is one connected endpoint, keyed by its connection id. The id
// comes from the transport layer and is never reused while the process lives.
type Participant struct {
	ID   string
	Name string
}
