// Package tui provides the interactive terminal chat for claw. Every message
// typed by the user runs as one independent agent invocation.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/klubi/claw/internal/agent"
)

// Invoker runs one agent invocation. *agent.Runtime implements it.
type Invoker interface {
	Invoke(ctx context.Context, inv agent.Invocation, onEvent agent.EventFunc) (agent.RunResult, error)
}

// maxResultPreview bounds tool output shown inline in the transcript.
const maxResultPreview = 600

// App is the chat application: a scrolling transcript above a single-line
// input, framed by a header and a footer.
type App struct {
	app        *tview.Application
	header     *tview.TextView
	footer     *tview.TextView
	transcript *tview.TextView
	input      *tview.InputField
	layout     *tview.Flex

	invoker Invoker
	base    agent.Invocation
	info    string // provider/model shown in the header

	mu      sync.Mutex
	busy    bool
	cancel  context.CancelFunc
	turns   int
	started time.Time

	// stopped is set once the event loop is gone; workers then stop
	// queueing updates, which would otherwise block on a full queue.
	stopped atomic.Bool
	workers sync.WaitGroup
}

// NewApp creates the chat UI. base carries the root, model and limits used
// for every message; its Prompt is ignored.
func NewApp(invoker Invoker, base agent.Invocation, info string) *App {
	a := &App{
		app:     tview.NewApplication(),
		invoker: invoker,
		base:    base,
		info:    info,
	}

	// -- Header --
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.header.SetBackgroundColor(tcell.ColorDarkBlue)

	// -- Footer --
	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.footer.SetBackgroundColor(tcell.ColorDarkBlue)

	// -- Transcript --
	a.transcript = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	a.transcript.SetBorder(true).
		SetTitle(" Conversation ").
		SetBorderColor(tcell.ColorDodgerBlue)

	// -- Input --
	a.input = tview.NewInputField().
		SetLabel(" > ").
		SetFieldBackgroundColor(tcell.ColorBlack).
		SetLabelColor(tcell.ColorYellow)
	a.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := strings.TrimSpace(a.input.GetText())
		a.input.SetText("")
		if text == "" {
			return
		}
		a.handleInput(text)
	})

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(a.transcript, 0, 1, false).
		AddItem(a.input, 1, 0, true).
		AddItem(a.footer, 1, 0, false)

	a.setupKeyBindings()
	a.updateHeader()
	a.updateFooter()
	a.appendLine(welcomeText(base.Root))

	a.app.SetRoot(a.layout, true).SetFocus(a.input)

	return a
}

// Run runs the TUI event loop until the user quits. A running invocation
// is interrupted and waited for before Run returns.
func (a *App) Run() error {
	err := a.app.Run()
	a.stopped.Store(true)
	a.cancelRunning()
	a.workers.Wait()
	return err
}

// queue runs f on the UI goroutine unless the app has stopped.
func (a *App) queue(f func()) {
	if a.stopped.Load() {
		return
	}
	a.app.QueueUpdateDraw(f)
}

// ---------------------------------------------------------------------------
// Key bindings
// ---------------------------------------------------------------------------

func (a *App) setupKeyBindings() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape:
			// Escape interrupts the running invocation.
			if a.cancelRunning() {
				a.appendLine("[yellow]Interrupting...[-]")
			}
			return nil
		case tcell.KeyPgUp, tcell.KeyPgDn:
			a.transcript.InputHandler()(event, nil)
			return nil
		}
		return event
	})
}

// ---------------------------------------------------------------------------
// Input handling
// ---------------------------------------------------------------------------

// command is a slash command understood by the chat.
type command int

const (
	cmdNone command = iota
	cmdQuit
	cmdClear
	cmdHelp
	cmdUnknown
)

// parseCommand classifies input starting with "/".
func parseCommand(text string) command {
	if !strings.HasPrefix(text, "/") {
		return cmdNone
	}
	switch strings.ToLower(strings.Fields(text)[0]) {
	case "/quit", "/exit", "/q":
		return cmdQuit
	case "/clear":
		return cmdClear
	case "/help", "/?":
		return cmdHelp
	default:
		return cmdUnknown
	}
}

func (a *App) handleInput(text string) {
	switch parseCommand(text) {
	case cmdQuit:
		a.stopped.Store(true)
		a.cancelRunning()
		a.app.Stop()
		return
	case cmdClear:
		a.transcript.Clear()
		return
	case cmdHelp:
		a.appendLine(helpText)
		return
	case cmdUnknown:
		a.appendLine(fmt.Sprintf("[red]Unknown command %s[-] (try /help)", tview.Escape(text)))
		return
	}

	a.mu.Lock()
	if a.busy {
		a.mu.Unlock()
		a.appendLine("[yellow]Still working on the previous message. Press Esc to interrupt.[-]")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.busy = true
	a.cancel = cancel
	a.turns++
	a.started = time.Now()
	a.mu.Unlock()

	a.appendLine(fmt.Sprintf("\n[::b][green]You:[-][::-] %s", tview.Escape(text)))
	a.updateHeader()
	a.input.SetDisabled(true)

	inv := a.base
	inv.Prompt = text

	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		res, err := a.invoker.Invoke(ctx, inv, func(kind agent.EventKind, content string) {
			line := formatEvent(kind, content)
			a.queue(func() { a.appendLine(line) })
		})
		cancel()

		a.mu.Lock()
		elapsed := time.Since(a.started)
		a.busy = false
		a.cancel = nil
		a.mu.Unlock()

		a.queue(func() {
			if err != nil {
				a.appendLine(fmt.Sprintf("[red]Error: %s[-]", tview.Escape(err.Error())))
			} else {
				a.appendLine(formatResult(res, elapsed))
			}
			a.input.SetDisabled(false)
			a.app.SetFocus(a.input)
			a.updateHeader()
		})
	}()
}

// cancelRunning interrupts the current invocation, if any.
func (a *App) cancelRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel == nil {
		return false
	}
	a.cancel()
	return true
}

func (a *App) appendLine(line string) {
	fmt.Fprintln(a.transcript, line)
	a.transcript.ScrollToEnd()
}

// ---------------------------------------------------------------------------
// Header & Footer
// ---------------------------------------------------------------------------

func (a *App) updateHeader() {
	a.mu.Lock()
	busy, turns := a.busy, a.turns
	a.mu.Unlock()

	state := "[green]idle[-]"
	if busy {
		state = "[yellow]working...[-]"
	}
	a.header.SetText(fmt.Sprintf(" [::b]Claw[::-] | %s | %s | messages: %d | %s",
		tview.Escape(a.info), tview.Escape(a.base.Root), turns, state))
}

func (a *App) updateFooter() {
	a.footer.SetText(" [yellow]<enter>[white]Send  [yellow]<esc>[white]Interrupt  [yellow]<pgup/pgdn>[white]Scroll  [yellow]/clear[white] Clear  [yellow]/quit[white] Quit")
}

// ---------------------------------------------------------------------------
// Formatting
// ---------------------------------------------------------------------------

const helpText = `[::b]Commands[::-]
  /help    show this help
  /clear   clear the conversation
  /quit    leave the chat
Each message runs as its own task against the project directory.`

func welcomeText(root string) string {
	return fmt.Sprintf("[::b]Claw chat[::-] working in [dodgerblue]%s[-]\nDescribe a task and press Enter. Type /help for commands.",
		tview.Escape(root))
}

// formatEvent renders one progress event as a tview-tagged line.
func formatEvent(kind agent.EventKind, content string) string {
	switch kind {
	case agent.EventAssistant:
		return fmt.Sprintf("[::b][dodgerblue]Claw:[-][::-] %s", tview.Escape(content))
	case agent.EventToolCall:
		return fmt.Sprintf("  [yellow]> %s[-]", tview.Escape(content))
	case agent.EventToolResult:
		return fmt.Sprintf("[gray]%s[-]", indent(tview.Escape(preview(content, maxResultPreview)), "    "))
	case agent.EventError:
		return fmt.Sprintf("[red]%s[-]", tview.Escape(content))
	default:
		return tview.Escape(content)
	}
}

// formatResult renders the terminal line of an invocation.
func formatResult(res agent.RunResult, elapsed time.Duration) string {
	color := outcomeColorName(res.Outcome)
	return fmt.Sprintf("[%s]%s[-] [gray](%d iterations, %s)[-]\n[::b]%s[::-]",
		color, res.Outcome, res.Iterations, elapsed.Round(100*time.Millisecond), tview.Escape(res.Text))
}

// outcomeColorName returns the tview color tag name for an outcome.
func outcomeColorName(o agent.Outcome) string {
	switch o {
	case agent.OutcomeDone:
		return "green"
	case agent.OutcomeExhausted:
		return "yellow"
	case agent.OutcomeFailed:
		return "red"
	default:
		return "white"
	}
}

// preview shortens s to at most n runes, marking the cut.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n... (truncated)"
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
