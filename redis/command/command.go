// Package command resolves decoded command lines into typed, validated commands.
//
// Every supported command registers a parser with its argument bounds and usage hint.
// Parse looks the name up case-insensitively, checks the argument count and lets the
// command specific parser validate the rest, for example the database index of SELECT
// or the timeout of BLPOP.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/lib/utils"
)

const (
	// MaxDatabases is the largest database index accepted by SELECT
	MaxDatabases = 15
	// MaxKeys is the largest number of keys a blocking pop may wait on
	MaxKeys = 5
)

var (
	// ErrUnsupported is returned for well-formed requests naming an unknown command
	ErrUnsupported = errors.New("Unsupported command")
	// ErrInvalidDBIndex is returned by SELECT for indexes out of [0, MaxDatabases]
	ErrInvalidDBIndex = errors.New("Invalid database index")
	// ErrInvalidTimeout is returned by blocking pops whose timeout is not a non-negative number
	ErrInvalidTimeout = errors.New("Invalid timeout")
	// ErrTooManyKeys is returned by blocking pops waiting on more than MaxKeys keys
	ErrTooManyKeys = fmt.Errorf("Exceeded maximum number of keys (%d)", MaxKeys)
)

// SyntaxError reports a wrong number of arguments
type SyntaxError struct {
	Usage string
}

func (e *SyntaxError) Error() string {
	return "Syntax error. Usage: " + e.Usage
}

// parseFunc builds a command from the arguments following the command name,
// the argument count has been validated already
type parseFunc func(args []string) (redis.Command, error)

type entry struct {
	name  string
	usage string
	// minArgs and maxArgs bound the number of arguments after the name, maxArgs < 0 means unbounded
	minArgs int
	maxArgs int
	parse   parseFunc
}

var cmdTable = make(map[string]*entry)

func register(name string, usage string, minArgs int, maxArgs int, parse parseFunc) {
	name = strings.ToLower(name)
	cmdTable[name] = &entry{
		name:    name,
		usage:   usage,
		minArgs: minArgs,
		maxArgs: maxArgs,
		parse:   parse,
	}
}

func (s *entry) validateArity(args []string) bool {
	if len(args) < s.minArgs {
		return false
	}
	return s.maxArgs < 0 || len(args) <= s.maxArgs
}

// Parse resolves a command line whose first element is the command name
func Parse(cmdLine [][]byte) (redis.Command, error) {
	if len(cmdLine) == 0 {
		return nil, ErrUnsupported
	}
	s, ok := cmdTable[strings.ToLower(string(cmdLine[0]))]
	if !ok {
		return nil, ErrUnsupported
	}
	args := utils.BytesToStrings(cmdLine[1:])
	if !s.validateArity(args) {
		return nil, &SyntaxError{Usage: s.usage}
	}
	return s.parse(args)
}

// Supported tells whether the given command name is registered
func Supported(name string) bool {
	_, ok := cmdTable[strings.ToLower(name)]
	return ok
}

func toCmdLine(name string, args ...string) [][]byte {
	return utils.ToCmdLine2(strings.ToUpper(name), args...)
}
