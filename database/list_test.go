package database

import (
	"strconv"
	"testing"

	"github.com/hdt3213/minidis/redis/protocol/asserts"
)

func equalStrings(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRPush(t *testing.T) {
	c := newSession()
	key := randKey()
	result := execLine(t, testServer, c, "rpush", key, "x", "y")
	asserts.AssertRawReply(t, result, ":2\r\n")
	result = execLine(t, testServer, c, "rpush", key, "z")
	asserts.AssertIntReply(t, result, 3)
	if actual := listValues(testServer, 0, key); !equalStrings(actual, []string{"x", "y", "z"}) {
		t.Errorf("expected [x y z], actually %v", actual)
	}
}

func TestLPush(t *testing.T) {
	c := newSession()
	key := randKey()
	result := execLine(t, testServer, c, "lpush", key, "x", "y")
	asserts.AssertIntReply(t, result, 2)
	if actual := listValues(testServer, 0, key); !equalStrings(actual, []string{"y", "x"}) {
		t.Errorf("expected [y x], actually %v", actual)
	}
}

func TestPushMany(t *testing.T) {
	c := newSession()
	size := 100
	key := randKey()
	expected := make([]string, size)
	for i := 0; i < size; i++ {
		value := strconv.Itoa(i)
		expected[i] = value
		result := execLine(t, testServer, c, "rpush", key, value)
		asserts.AssertIntReply(t, result, i+1)
	}
	if actual := listValues(testServer, 0, key); !equalStrings(actual, expected) {
		t.Error("push error")
	}
}

func TestPushOnScalar(t *testing.T) {
	c := newSession()
	key := randKey()
	execLine(t, testServer, c, "set", key, "v")

	result := execLine(t, testServer, c, "rpush", key, "x")
	asserts.AssertRawReply(t, result, "-Key is not a list\r\n")
	result = execLine(t, testServer, c, "lpush", key, "x")
	asserts.AssertErrReply(t, result, "Key is not a list")

	// scalar unchanged
	result = execLine(t, testServer, c, "get", key)
	asserts.AssertStatusReply(t, result, "v")
}
