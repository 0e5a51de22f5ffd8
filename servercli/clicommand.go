package servercli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/lib/utils"
	"github.com/hdt3213/minidis/redis/client"
	"github.com/hdt3213/minidis/redis/command"
	"github.com/hdt3213/minidis/redis/protocol"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of minidis",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "minidis v%s\n", Version)
	},
}

var callCmd = &cobra.Command{
	Use:   "call <command> [<arg> ...]",
	Short: "Send one command to a running server and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		return call(cmd.OutOrStdout(), addr, timeout, args)
	},
}

func call(out io.Writer, addr string, timeout time.Duration, args []string) error {
	if !command.Supported(args[0]) {
		return fmt.Errorf("unsupported command %s", args[0])
	}
	c, err := client.MakeClient(addr, client.WithTimeout(timeout))
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()
	reply, err := c.Send(utils.ToCmdLine(args...))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, formatReply(reply))
	return err
}

// formatReply renders a reply the way redis-cli does
func formatReply(reply redis.Reply) string {
	switch r := reply.(type) {
	case *protocol.StatusReply:
		return r.Status
	case protocol.ErrorReply:
		return "(error) " + r.Error()
	case *protocol.IntReply:
		return "(integer) " + strconv.FormatInt(r.Code, 10)
	case *protocol.NullBulkReply:
		return "(nil)"
	case *protocol.BulkReply:
		return strconv.Quote(string(r.Arg))
	case *protocol.EmptyMultiBulkReply:
		return "(empty array)"
	case *protocol.MultiBulkReply:
		lines := make([]string, len(r.Args))
		for i, arg := range r.Args {
			if arg == nil {
				lines[i] = fmt.Sprintf("%d) (nil)", i+1)
			} else {
				lines[i] = fmt.Sprintf("%d) %s", i+1, strconv.Quote(string(arg)))
			}
		}
		return strings.Join(lines, "\n")
	default:
		return strings.TrimSuffix(string(reply.ToBytes()), "\r\n")
	}
}

func init() {
	callCmd.Flags().String("addr", "127.0.0.1:6399", "address of the server")
	callCmd.Flags().Duration("timeout", 0, "round trip timeout, 0 waits forever")
	AddCommand(versionCmd)
	AddCommand(callCmd)
}
