package command

import (
	"errors"
	"testing"
	"time"

	"github.com/hdt3213/minidis/lib/utils"
)

func TestParseCaseInsensitive(t *testing.T) {
	for _, name := range []string{"get", "GET", "gEt"} {
		cmd, err := Parse(utils.ToCmdLine(name, "k"))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		get, ok := cmd.(*Get)
		if !ok || get.Key != "k" {
			t.Errorf("%s: unexpected command %#v", name, cmd)
		}
	}
}

func TestParseSelect(t *testing.T) {
	cmd, err := Parse(utils.ToCmdLine("select", "15"))
	if err != nil {
		t.Fatal(err)
	}
	if cmd.(*Select).Index != 15 {
		t.Errorf("expected index 15, got %d", cmd.(*Select).Index)
	}
	for _, arg := range []string{"16", "-1", "abc", "1.5", "256"} {
		_, err = Parse(utils.ToCmdLine("select", arg))
		if !errors.Is(err, ErrInvalidDBIndex) {
			t.Errorf("select %s: expected invalid index, got %v", arg, err)
		}
	}
}

func TestParseArity(t *testing.T) {
	cases := []struct {
		line  []string
		usage string
	}{
		{[]string{"get"}, "GET <key>"},
		{[]string{"get", "a", "b"}, "GET <key>"},
		{[]string{"set", "a"}, "SET <key> <value>"},
		{[]string{"ping", "a", "b"}, "PING [<message>]"},
		{[]string{"exists"}, "EXISTS <key> [<key> ...]"},
		{[]string{"rpush", "l"}, "RPUSH <key> <value> [<value> ...]"},
		{[]string{"lpush"}, "LPUSH <key> <value> [<value> ...]"},
		{[]string{"blpop", "1"}, "BLPOP <key> [<key> ...] <timeout>"},
		{[]string{"brpop"}, "BRPOP <key> [<key> ...] <timeout>"},
		{[]string{"select"}, "SELECT <index>"},
	}
	for _, c := range cases {
		_, err := Parse(utils.ToCmdLine(c.line...))
		var syntaxErr *SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Errorf("%v: expected syntax error, got %v", c.line, err)
			continue
		}
		if syntaxErr.Error() != "Syntax error. Usage: "+c.usage {
			t.Errorf("%v: unexpected message %s", c.line, syntaxErr.Error())
		}
	}
}

func TestParseUnsupported(t *testing.T) {
	_, err := Parse(utils.ToCmdLine("flushall"))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected unsupported, got %v", err)
	}
	_, err = Parse(nil)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected unsupported, got %v", err)
	}
	if Supported("flushall") || !Supported("BLPOP") {
		t.Error("wrong supported table")
	}
}

func TestParsePing(t *testing.T) {
	cmd, _ := Parse(utils.ToCmdLine("ping"))
	if cmd.(*Ping).Echo {
		t.Error("expected plain ping")
	}
	cmd, _ = Parse(utils.ToCmdLine("ping", ""))
	ping := cmd.(*Ping)
	if !ping.Echo || ping.Message != "" {
		t.Error("expected echo of empty message")
	}
}

func TestParseBlockingPop(t *testing.T) {
	cmd, err := Parse(utils.ToCmdLine("blpop", "a", "b", "0.3"))
	if err != nil {
		t.Fatal(err)
	}
	pop := cmd.(*BLPop)
	if len(pop.Keys) != 2 || pop.Keys[0] != "a" || pop.Keys[1] != "b" {
		t.Errorf("unexpected keys %v", pop.Keys)
	}
	if pop.Timeout() != 300*time.Millisecond {
		t.Errorf("unexpected timeout %v", pop.Timeout())
	}

	_, err = Parse(utils.ToCmdLine("brpop", "1", "2", "3", "4", "5", "6", "1"))
	if !errors.Is(err, ErrTooManyKeys) {
		t.Errorf("expected too many keys, got %v", err)
	}
	if ErrTooManyKeys.Error() != "Exceeded maximum number of keys (5)" {
		t.Errorf("unexpected message %s", ErrTooManyKeys.Error())
	}
	_, err = Parse(utils.ToCmdLine("brpop", "1", "2", "3", "4", "5", "1"))
	if err != nil {
		t.Errorf("five keys should be accepted: %v", err)
	}

	for _, timeout := range []string{"abc", "-1", "NaN", "+Inf"} {
		_, err = Parse(utils.ToCmdLine("blpop", "k", timeout))
		if !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("%s: expected invalid timeout, got %v", timeout, err)
		}
	}

	cmd, _ = Parse(utils.ToCmdLine("brpop", "k", "1e300"))
	if cmd.(*BRPop).Timeout() <= 0 {
		t.Error("huge timeout should saturate")
	}
}

func TestCmdLineRoundTrip(t *testing.T) {
	lines := [][]string{
		{"SELECT", "3"},
		{"GET", "k"},
		{"SET", "k", "v"},
		{"PING"},
		{"PING", "hello"},
		{"EXISTS", "a", "b", "a"},
		{"RPUSH", "l", "x", "y"},
		{"LPUSH", "l", "x"},
		{"BLPOP", "a", "b", "0.5"},
		{"BRPOP", "a", "0"},
	}
	for _, line := range lines {
		cmd, err := Parse(utils.ToCmdLine(line...))
		if err != nil {
			t.Fatalf("%v: %v", line, err)
		}
		got := utils.BytesToStrings(cmd.CmdLine())
		if len(got) != len(line) {
			t.Errorf("%v: got %v", line, got)
			continue
		}
		for i := range line {
			if got[i] != line[i] {
				t.Errorf("%v: got %v", line, got)
				break
			}
		}
	}
}

func TestString(t *testing.T) {
	cmd, _ := Parse(utils.ToCmdLine("select", "1"))
	if cmd.String() != "Select database 1" {
		t.Errorf("unexpected description %s", cmd.String())
	}
	cmd, _ = Parse(utils.ToCmdLine("blpop", "k", "1"))
	if cmd.String() != `BLPOP on keys ["k"] with timeout 1` {
		t.Errorf("unexpected description %s", cmd.String())
	}
	if cmd.Name() != "blpop" {
		t.Errorf("unexpected name %s", cmd.Name())
	}
}
