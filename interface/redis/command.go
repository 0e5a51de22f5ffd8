package redis

// Command is a request which passed the decoder, it is immutable and executed at most once
type Command interface {
	// Name returns the lower case command name, such as "get" or "blpop"
	Name() string
	// CmdLine returns the canonical command line, name included
	CmdLine() [][]byte
	// String describes the command for diagnostics
	String() string
}
