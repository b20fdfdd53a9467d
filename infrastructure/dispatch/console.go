package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/fieldteam/orchestrator/domain/message"
	"github.com/fieldteam/orchestrator/domain/team"
)

// ConsoleUserProxy is a team.UserProxyName agent that relays questions to
// an operator's terminal and blocks on their typed response. It is the
// only concrete Agent this module provides — every other team member is
// an external collaborator (§6.1) the operator registers separately.
type ConsoleUserProxy struct {
	out io.Writer
	in  *bufio.Scanner
}

// NewConsoleUserProxy creates a user_proxy agent reading from in and
// writing prompts to out.
func NewConsoleUserProxy(in io.Reader, out io.Writer) *ConsoleUserProxy {
	return &ConsoleUserProxy{out: out, in: bufio.NewScanner(in)}
}

// Name returns team.UserProxyName.
func (c *ConsoleUserProxy) Name() string {
	return team.UserProxyName
}

// Stream prints instruction to the console and waits for one line of
// operator input, emitting it as the final event. Cancellation unblocks
// only once the operator submits a line or closes stdin; there is no way
// to interrupt a blocking terminal read mid-scan.
func (c *ConsoleUserProxy) Stream(ctx context.Context, instruction string, transcript []message.Message) (<-chan team.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fmt.Fprintf(c.out, "\n%s\n> ", instruction)

	ch := make(chan team.Event, 1)
	var answer string
	if c.in.Scan() {
		answer = c.in.Text()
	}

	ch <- team.Event{
		Message: message.NewText(message.KindAgentResponse, team.UserProxyName, answer),
		Final:   true,
	}
	close(ch)
	return ch, nil
}

var _ team.Agent = (*ConsoleUserProxy)(nil)
