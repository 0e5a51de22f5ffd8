package command

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/hdt3213/minidis/interface/redis"
)

/* ---- SELECT ---- */

// Select switches the session to another database
type Select struct {
	Index int
}

func (c *Select) Name() string { return "select" }

func (c *Select) CmdLine() [][]byte {
	return toCmdLine(c.Name(), strconv.Itoa(c.Index))
}

func (c *Select) String() string {
	return fmt.Sprintf("Select database %d", c.Index)
}

func parseSelect(args []string) (redis.Command, error) {
	index, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil || index > MaxDatabases {
		return nil, ErrInvalidDBIndex
	}
	return &Select{Index: int(index)}, nil
}

/* ---- GET ---- */

// Get reads a scalar
type Get struct {
	Key string
}

func (c *Get) Name() string { return "get" }

func (c *Get) CmdLine() [][]byte {
	return toCmdLine(c.Name(), c.Key)
}

func (c *Get) String() string {
	return fmt.Sprintf("Get value for key %s", c.Key)
}

func parseGet(args []string) (redis.Command, error) {
	return &Get{Key: args[0]}, nil
}

/* ---- SET ---- */

// Set overwrites a key with a scalar
type Set struct {
	Key   string
	Value string
}

func (c *Set) Name() string { return "set" }

func (c *Set) CmdLine() [][]byte {
	return toCmdLine(c.Name(), c.Key, c.Value)
}

func (c *Set) String() string {
	return fmt.Sprintf("Set value for key %s to %s", c.Key, c.Value)
}

func parseSet(args []string) (redis.Command, error) {
	return &Set{Key: args[0], Value: args[1]}, nil
}

/* ---- PING ---- */

// Ping answers PONG, or echoes its message
type Ping struct {
	Message string
	// Echo is set when a message was given, the message itself may be empty
	Echo bool
}

func (c *Ping) Name() string { return "ping" }

func (c *Ping) CmdLine() [][]byte {
	if c.Echo {
		return toCmdLine(c.Name(), c.Message)
	}
	return toCmdLine(c.Name())
}

func (c *Ping) String() string {
	if c.Echo {
		return fmt.Sprintf("Ping with message %s", c.Message)
	}
	return "Ping"
}

func parsePing(args []string) (redis.Command, error) {
	if len(args) == 0 {
		return &Ping{}, nil
	}
	return &Ping{Message: args[0], Echo: true}, nil
}

/* ---- EXISTS ---- */

// Exists counts present keys, duplicates are counted once per occurrence
type Exists struct {
	Keys []string
}

func (c *Exists) Name() string { return "exists" }

func (c *Exists) CmdLine() [][]byte {
	return toCmdLine(c.Name(), c.Keys...)
}

func (c *Exists) String() string {
	return fmt.Sprintf("Check if key %q exists", c.Keys)
}

func parseExists(args []string) (redis.Command, error) {
	return &Exists{Keys: args}, nil
}

/* ---- RPUSH / LPUSH ---- */

// RPush appends values to the tail of a list
type RPush struct {
	Key    string
	Values []string
}

func (c *RPush) Name() string { return "rpush" }

func (c *RPush) CmdLine() [][]byte {
	return toCmdLine(c.Name(), append([]string{c.Key}, c.Values...)...)
}

func (c *RPush) String() string {
	return fmt.Sprintf("Push values %q to key %s", c.Values, c.Key)
}

func parseRPush(args []string) (redis.Command, error) {
	return &RPush{Key: args[0], Values: args[1:]}, nil
}

// LPush prepends values one by one, so the list ends up holding them in reverse order
type LPush struct {
	Key    string
	Values []string
}

func (c *LPush) Name() string { return "lpush" }

func (c *LPush) CmdLine() [][]byte {
	return toCmdLine(c.Name(), append([]string{c.Key}, c.Values...)...)
}

func (c *LPush) String() string {
	return fmt.Sprintf("Push values %q to key %s", c.Values, c.Key)
}

func parseLPush(args []string) (redis.Command, error) {
	return &LPush{Key: args[0], Values: args[1:]}, nil
}

/* ---- BLPOP / BRPOP ---- */

// BlockingPop holds the arguments shared by BLPOP and BRPOP
type BlockingPop struct {
	Keys []string
	// Seconds is the timeout as given by the client
	Seconds float64
}

// Timeout converts Seconds into a duration, saturating instead of overflowing
func (c *BlockingPop) Timeout() time.Duration {
	if c.Seconds >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(c.Seconds * float64(time.Second))
}

func (c *BlockingPop) cmdLine(name string) [][]byte {
	args := make([]string, 0, len(c.Keys)+1)
	args = append(args, c.Keys...)
	args = append(args, strconv.FormatFloat(c.Seconds, 'f', -1, 64))
	return toCmdLine(name, args...)
}

// BLPop pops the head of the first non-empty list, waiting up to the timeout
type BLPop struct {
	BlockingPop
}

func (c *BLPop) Name() string { return "blpop" }

func (c *BLPop) CmdLine() [][]byte {
	return c.cmdLine(c.Name())
}

func (c *BLPop) String() string {
	return fmt.Sprintf("BLPOP on keys %q with timeout %v", c.Keys, c.Seconds)
}

// BRPop pops the tail of the first non-empty list, waiting up to the timeout
type BRPop struct {
	BlockingPop
}

func (c *BRPop) Name() string { return "brpop" }

func (c *BRPop) CmdLine() [][]byte {
	return c.cmdLine(c.Name())
}

func (c *BRPop) String() string {
	return fmt.Sprintf("BRPOP on keys %q with timeout %v", c.Keys, c.Seconds)
}

func parseBlockingPop(args []string) (*BlockingPop, error) {
	keys := args[:len(args)-1]
	if len(keys) > MaxKeys {
		return nil, ErrTooManyKeys
	}
	seconds, err := strconv.ParseFloat(args[len(args)-1], 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return nil, ErrInvalidTimeout
	}
	return &BlockingPop{Keys: keys, Seconds: seconds}, nil
}

func parseBLPop(args []string) (redis.Command, error) {
	pop, err := parseBlockingPop(args)
	if err != nil {
		return nil, err
	}
	return &BLPop{BlockingPop: *pop}, nil
}

func parseBRPop(args []string) (redis.Command, error) {
	pop, err := parseBlockingPop(args)
	if err != nil {
		return nil, err
	}
	return &BRPop{BlockingPop: *pop}, nil
}

func init() {
	register("Select", "SELECT <index>", 1, 1, parseSelect)
	register("Get", "GET <key>", 1, 1, parseGet)
	register("Set", "SET <key> <value>", 2, 2, parseSet)
	register("Ping", "PING [<message>]", 0, 1, parsePing)
	register("Exists", "EXISTS <key> [<key> ...]", 1, -1, parseExists)
	register("RPush", "RPUSH <key> <value> [<value> ...]", 2, -1, parseRPush)
	register("LPush", "LPUSH <key> <value> [<value> ...]", 2, -1, parseLPush)
	register("BLPop", "BLPOP <key> [<key> ...] <timeout>", 2, -1, parseBLPop)
	register("BRPop", "BRPOP <key> [<key> ...] <timeout>", 2, -1, parseBRPop)
}
