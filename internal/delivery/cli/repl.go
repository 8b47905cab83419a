package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"intent-orchestrator/internal/domain/conversation"
	"intent-orchestrator/internal/domain/tool"
	"intent-orchestrator/internal/usecase/orchestrator"
	appErrors "intent-orchestrator/pkg/errors"
)

const historyShown = 10

// Orchestrator is what the REPL drives. *orchestrator.Service satisfies it.
type Orchestrator interface {
	Handle(ctx context.Context, req *orchestrator.ChatRequest) (*orchestrator.ChatResponse, error)
	ListTools() []tool.Info
	History(ctx context.Context, sessionID string, limit int) ([]conversation.Message, error)
	Clear(ctx context.Context, sessionID string) error
	Sessions(ctx context.Context) ([]conversation.SessionInfo, error)
}

type REPL struct {
	svc     Orchestrator
	in      io.Reader
	out     io.Writer
	session string
	verbose bool
}

func NewREPL(svc Orchestrator, in io.Reader, out io.Writer, session string, verbose bool) *REPL {
	return &REPL{svc: svc, in: in, out: out, session: session, verbose: verbose}
}

func (r *REPL) Session() string {
	return r.session
}

// Run reads lines until EOF, a quit command or ctx cancellation.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintf(r.out, "Intent orchestrator ready (session %s). Type 'help' for commands.\n", r.session)

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := r.dispatch(ctx, line); quit {
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		}
	}
}

func (r *REPL) dispatch(ctx context.Context, line string) bool {
	command, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(command) {
	case "quit", "exit", "q":
		return true
	case "help":
		r.printHelp()
	case "tools":
		r.printTools()
	case "history":
		r.printHistory(ctx)
	case "clear":
		if err := r.svc.Clear(ctx, r.session); err != nil {
			r.printError(err)
			return false
		}
		fmt.Fprintf(r.out, "Cleared history for session %s.\n", r.session)
	case "sessions":
		r.printSessions(ctx)
	case "switch":
		if arg = strings.TrimSpace(arg); arg == "" {
			fmt.Fprintln(r.out, "Usage: switch <session_id>")
			return false
		}
		r.session = arg
		fmt.Fprintf(r.out, "Switched to session %s.\n", r.session)
	default:
		r.chat(ctx, line)
	}
	return false
}

func (r *REPL) chat(ctx context.Context, line string) {
	resp, err := r.svc.Handle(ctx, &orchestrator.ChatRequest{SessionID: r.session, Message: line})
	if err != nil {
		r.printError(err)
		return
	}

	if r.verbose {
		fmt.Fprintf(r.out, "[%s", resp.Tool)
		if resp.Operation != "" {
			fmt.Fprintf(r.out, ".%s", resp.Operation)
		}
		if resp.Intent != nil {
			fmt.Fprintf(r.out, " confidence=%.2f", resp.Intent.Confidence)
		}
		fmt.Fprintln(r.out, "]")
		if resp.Result != nil {
			raw, err := json.MarshalIndent(resp.Result, "", "  ")
			if err == nil {
				fmt.Fprintln(r.out, string(raw))
			}
		}
	}
	fmt.Fprintln(r.out, resp.Reply)
}

func (r *REPL) printHelp() {
	fmt.Fprint(r.out, `Commands:
  help             show this help
  tools            list available tools
  history          show recent messages in this session
  clear            delete this session's history
  sessions         list sessions
  switch <id>      change the active session
  quit, exit, q    leave
Anything else is sent to the assistant.
`)
}

func (r *REPL) printTools() {
	for _, t := range r.svc.ListTools() {
		fmt.Fprintf(r.out, "  %-18s %s\n", t.Name, t.Description)
		fmt.Fprintf(r.out, "  %-18s operations: %s\n", "", strings.Join(t.Operations, ", "))
	}
}

func (r *REPL) printHistory(ctx context.Context) {
	messages, err := r.svc.History(ctx, r.session, historyShown)
	if err != nil {
		r.printError(err)
		return
	}
	if len(messages) == 0 {
		fmt.Fprintln(r.out, "No messages yet.")
		return
	}
	for _, m := range messages {
		fmt.Fprintf(r.out, "[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.Role, m.Content)
	}
}

func (r *REPL) printSessions(ctx context.Context) {
	sessions, err := r.svc.Sessions(ctx)
	if err != nil {
		r.printError(err)
		return
	}
	if len(sessions) == 0 {
		fmt.Fprintln(r.out, "No sessions yet.")
		return
	}
	for _, s := range sessions {
		marker := " "
		if s.SessionID == r.session {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %s (%d messages, last %s)\n", marker, s.SessionID, s.MessageCount, s.LastActivity.Format("2006-01-02 15:04"))
	}
}

func (r *REPL) printError(err error) {
	fmt.Fprintf(r.out, "Error [%s]: %v\n", appErrors.CodeOf(err), err)
}
