package asserts

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/lib/utils"
	"github.com/hdt3213/minidis/redis/protocol"
)

// AssertIntReply checks if the given redis.Reply is the expected integer
func AssertIntReply(t *testing.T, actual redis.Reply, expected int) {
	t.Helper()
	intResult, ok := actual.(*protocol.IntReply)
	if !ok {
		t.Errorf("expected int protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if intResult.Code != int64(expected) {
		t.Errorf("expected %d, actually %d, %s", expected, intResult.Code, printStack())
	}
}

// AssertStatusReply checks if the given redis.Reply is the expected status
func AssertStatusReply(t *testing.T, actual redis.Reply, expected string) {
	t.Helper()
	statusReply, ok := actual.(*protocol.StatusReply)
	if !ok {
		// may be a protocol.OkReply e.g.
		expectBytes := protocol.MakeStatusReply(expected).ToBytes()
		if utils.BytesEquals(actual.ToBytes(), expectBytes) {
			return
		}
		t.Errorf("expected status protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if statusReply.Status != expected {
		t.Errorf("expected %s, actually %s, %s", expected, actual.ToBytes(), printStack())
	}
}

// AssertErrReply checks if the given redis.Reply is the expected error
func AssertErrReply(t *testing.T, actual redis.Reply, expected string) {
	t.Helper()
	errReply, ok := actual.(protocol.ErrorReply)
	if !ok {
		expectBytes := protocol.MakeErrReply(expected).ToBytes()
		if utils.BytesEquals(actual.ToBytes(), expectBytes) {
			return
		}
		t.Errorf("expected err protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if errReply.Error() != expected {
		t.Errorf("expected %s, actually %s, %s", expected, actual.ToBytes(), printStack())
	}
}

// AssertNullBulk checks if the given redis.Reply is protocol.NullBulkReply
func AssertNullBulk(t *testing.T, result redis.Reply) {
	t.Helper()
	if result == nil {
		t.Errorf("result is nil %s", printStack())
		return
	}
	expect := protocol.MakeNullBulkReply().ToBytes()
	if !utils.BytesEquals(expect, result.ToBytes()) {
		t.Errorf("result is not null-bulk-protocol %s", printStack())
	}
}

// AssertMultiBulkReply checks if the given redis.Reply has the expected content
func AssertMultiBulkReply(t *testing.T, actual redis.Reply, expected []string) {
	t.Helper()
	multiBulk, ok := actual.(*protocol.MultiBulkReply)
	if !ok {
		t.Errorf("expected bulk protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if len(multiBulk.Args) != len(expected) {
		t.Errorf("expected %d elements, actually %d, %s",
			len(expected), len(multiBulk.Args), printStack())
		return
	}
	for i, v := range multiBulk.Args {
		str := string(v)
		if str != expected[i] {
			t.Errorf("expected %s, actually %s, %s", expected[i], str, printStack())
		}
	}
}

// AssertRawReply compares the wire form of the given redis.Reply
func AssertRawReply(t *testing.T, actual redis.Reply, expected string) {
	t.Helper()
	if actual == nil {
		t.Errorf("result is nil %s", printStack())
		return
	}
	if string(actual.ToBytes()) != expected {
		t.Errorf("expected %q, actually %q, %s", expected, actual.ToBytes(), printStack())
	}
}

func printStack() string {
	_, file, no, ok := runtime.Caller(2)
	if ok {
		return fmt.Sprintf("at %s:%d", file, no)
	}
	return ""
}
