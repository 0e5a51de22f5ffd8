package redis

// Connection represents a connection with redis client, it also carries the session state
type Connection interface {
	Write([]byte) (int, error)
	Close() error
	RemoteAddr() string
	// ID returns an identifier which is unique during the process lifetime
	ID() string

	// used for multi database
	GetDBIndex() int
	SelectDB(int)

	// SELECT is allowed only before the first executed command of a session
	CommandExecuted() bool
	MarkCommandExecuted()

	// used by session-scoped command queue
	EnqueueCmd(cmd Command)
	DequeueCmd() (Command, bool)
}
