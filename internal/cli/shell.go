package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"fxjournal/internal/calc"
	"fxjournal/internal/format"
	"fxjournal/internal/logger"
	"fxjournal/internal/models"
	"fxjournal/internal/services"
	"fxjournal/internal/session"
)

const shellHelp = `Commands:
  month [YYYY-MM]                      show or switch the active month
  list                                 list the trades matching the filters
  filter [symbols=A,B] [type=BUY|SELL|all] [open=true|false] [clear]
  date [YYYY-MM-DD|clear]              narrow the list to one day
  add SYMBOL BUY|SELL VOLUME ENTRY [exit=X] [sl=X] [tp=X] [swap=X] [at=YYYY-MM-DDTHH:MM] [note=...]
  close ID EXIT                        set the exit price of a trade
  rm ID                                delete a trade
  stats                                statistics of the active month
  help                                 show this help
  quit                                 leave the shell

IDs may be shortened to any unique prefix of a listed trade.`

// idWidth is how many characters of a trade ID the listings show.
const idWidth = 8

var atLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// Shell is the interactive journal view of one user. Every command goes through
// the session store, which reloads from the backend after each write.
type Shell struct {
	store  *session.Store
	stats  services.StatsServicer
	userID string
	out    io.Writer
	now    func() time.Time
}

// NewShell creates a shell for userID writing to out.
func NewShell(trades services.TradeServicer, stats services.StatsServicer, userID string, out io.Writer, now func() time.Time) *Shell {
	if now == nil {
		now = time.Now
	}
	return &Shell{
		store:  session.New(trades, userID, session.WithClock(now), session.WithLogger(logger.Named("shell"))),
		stats:  stats,
		userID: userID,
		out:    out,
		now:    now,
	}
}

// Prompt shows the active month.
func (sh *Shell) Prompt() string {
	return fmt.Sprintf("journal [%s]> ", sh.store.State().ActiveMonth)
}

// Start loads the active month and the pickers.
func (sh *Shell) Start() error {
	sh.store.RefreshMetadata()
	return sh.store.LoadTradesByMonth(sh.store.State().ActiveMonth)
}

// Exec runs one command line. quit is true when the user asked to leave.
func (sh *Shell) Exec(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	defer sh.store.ClearError()

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(sh.out, shellHelp)
		return false, nil
	case "month":
		return false, sh.month(args)
	case "list", "ls":
		if err := sh.store.LoadTradesByFilters(); err != nil {
			return false, err
		}
		sh.printTrades()
		return false, nil
	case "filter":
		return false, sh.filter(args)
	case "date":
		return false, sh.date(args)
	case "add":
		return false, sh.add(args)
	case "close":
		return false, sh.close(args)
	case "rm", "delete":
		return false, sh.remove(args)
	case "stats":
		return false, printStats(sh.out, sh.stats, sh.userID, sh.store.State().ActiveMonth)
	}
	return false, fmt.Errorf("unknown command %q, type help for a list", cmd)
}

func (sh *Shell) month(args []string) error {
	if len(args) == 0 {
		st := sh.store.State()
		labels := make([]string, len(st.MonthKeys))
		for i, k := range st.MonthKeys {
			labels[i] = format.MonthShort(k)
		}
		fmt.Fprintf(sh.out, "Active month: %s\n", format.MonthLabel(st.ActiveMonth))
		fmt.Fprintf(sh.out, "Months: %s\n", strings.Join(labels, ", "))
		return nil
	}
	if err := sh.store.SetActiveMonth(args[0]); err != nil {
		return err
	}
	sh.printTrades()
	return nil
}

func (sh *Shell) filter(args []string) error {
	if len(args) == 0 {
		f := sh.store.State().Filters
		symbols, direction := "all", "all"
		if len(f.Symbols) > 0 {
			symbols = strings.Join(f.Symbols, ",")
		}
		if f.Direction != nil {
			direction = string(*f.Direction)
		}
		fmt.Fprintf(sh.out, "symbols=%s type=%s open=%t\n", symbols, direction, f.OnlyOpen)
		return nil
	}

	var patch session.FilterPatch
	for _, arg := range args {
		if arg == "clear" {
			patch = session.FilterPatch{
				Symbols:   models.Null[[]string](),
				Direction: models.Null[models.Direction](),
				OnlyOpen:  models.Null[bool](),
			}
			continue
		}
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", arg)
		}
		switch strings.ToLower(key) {
		case "symbols", "symbol":
			if value == "" || strings.EqualFold(value, "all") {
				patch.Symbols = models.Null[[]string]()
				continue
			}
			patch.Symbols = models.Some(strings.Split(strings.ToUpper(value), ","))
		case "type", "direction":
			if value == "" || strings.EqualFold(value, "all") {
				patch.Direction = models.Null[models.Direction]()
				continue
			}
			d, err := models.ParseDirection(value)
			if err != nil {
				return err
			}
			patch.Direction = models.Some(d)
		case "open":
			open, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("open must be true or false, got %q", value)
			}
			patch.OnlyOpen = models.Some(open)
		default:
			return fmt.Errorf("unknown filter %q", key)
		}
	}

	if err := sh.store.SetFilters(patch); err != nil {
		return err
	}
	sh.printTrades()
	return nil
}

func (sh *Shell) date(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: date YYYY-MM-DD|clear")
	}
	date := args[0]
	if date == "clear" {
		date = ""
	} else if !calc.ValidDateKey(date) {
		return fmt.Errorf("date must be formatted as YYYY-MM-DD, got %q", date)
	}
	if err := sh.store.SetSelectedDate(date); err != nil {
		return err
	}
	sh.printTrades()
	return nil
}

func (sh *Shell) add(args []string) error {
	if len(args) < 4 {
		return errors.New("usage: add SYMBOL BUY|SELL VOLUME ENTRY [exit=X] [sl=X] [tp=X] [swap=X] [at=...] [note=...]")
	}
	direction, err := models.ParseDirection(args[1])
	if err != nil {
		return err
	}
	volume, err := parseNumber("volume", args[2])
	if err != nil {
		return err
	}
	entry, err := parseNumber("entry", args[3])
	if err != nil {
		return err
	}

	attrs := models.TradeAttributes{
		Symbol:     args[0],
		OpenedAt:   sh.now().Truncate(time.Minute),
		Direction:  direction,
		Volume:     volume,
		EntryPrice: entry,
	}

	opts := args[4:]
	for i, opt := range opts {
		key, value, ok := strings.Cut(opt, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", opt)
		}
		if key == "note" {
			note := strings.Join(append([]string{value}, opts[i+1:]...), " ")
			attrs.Notes = &note
			break
		}
		switch key {
		case "at":
			at, err := parseAt(value)
			if err != nil {
				return err
			}
			attrs.OpenedAt = at
			continue
		case "exit", "sl", "tp", "swap":
		default:
			return fmt.Errorf("unknown option %q", key)
		}
		v, err := parseNumber(key, value)
		if err != nil {
			return err
		}
		switch key {
		case "exit":
			attrs.ExitPrice = &v
		case "sl":
			attrs.StopLoss = &v
		case "tp":
			attrs.TakeProfit = &v
		case "swap":
			attrs.Swap = &v
		}
	}

	trade, err := sh.store.AddTrade(attrs)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Added %s %s %s\n", shortID(trade.ID), trade.Symbol, trade.Direction)
	return nil
}

func (sh *Shell) close(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: close ID EXIT")
	}
	id, err := sh.resolveID(args[0])
	if err != nil {
		return err
	}
	exit, err := parseNumber("exit", args[1])
	if err != nil {
		return err
	}
	trade, err := sh.store.UpdateTrade(id, models.TradePatch{ExitPrice: models.Some(exit)})
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Closed %s %s at %s: %s (%s)\n", shortID(trade.ID), trade.Symbol,
		format.Price(trade.Symbol, trade.ExitPrice), format.USD(trade.PLAmount), format.Percent(trade.ChangePct))
	return nil
}

func (sh *Shell) remove(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: rm ID")
	}
	id, err := sh.resolveID(args[0])
	if err != nil {
		return err
	}
	if err := sh.store.DeleteTrade(id); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Deleted %s\n", shortID(id))
	return nil
}

// resolveID expands prefix against the listed trades.
func (sh *Shell) resolveID(prefix string) (string, error) {
	var match string
	for _, t := range sh.store.State().Trades {
		if !strings.HasPrefix(t.ID, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("id %q is ambiguous", prefix)
		}
		match = t.ID
	}
	if match == "" {
		return "", fmt.Errorf("no listed trade with id %q", prefix)
	}
	return match, nil
}

func (sh *Shell) printTrades() {
	st := sh.store.State()
	if len(st.Trades) == 0 {
		fmt.Fprintln(sh.out, "No trades.")
		return
	}
	tw := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPENED\tSYMBOL\tTYPE\tVOLUME\tENTRY\tEXIT\tCHANGE\tP&L")
	for _, t := range st.Trades {
		change, pl := format.Placeholder, format.Placeholder
		if t.IsClosed() {
			change, pl = format.Percent(t.ChangePct), format.USD(t.PLAmount)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID), format.DateTime(t.OpenedAt.Local()), t.Symbol, t.Direction,
			format.Volume(t.Volume), format.Price(t.Symbol, &t.EntryPrice), format.Price(t.Symbol, t.ExitPrice),
			change, pl)
	}
	_ = tw.Flush()
	fmt.Fprintf(sh.out, "%d trade(s)\n", len(st.Trades))
}

func shortID(id string) string {
	if len(id) > idWidth {
		return id[:idWidth]
	}
	return id
}

func parseNumber(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !calc.Finite(v) {
		return 0, fmt.Errorf("%s must be a number, got %q", name, raw)
	}
	return v, nil
}

func parseAt(raw string) (time.Time, error) {
	for _, layout := range atLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("at must look like 2006-01-02T15:04, got %q", raw)
}

func newShellCmd(app *App) *cobra.Command {
	var historyFile string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Browse and edit trades interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, userID, err := app.owner()
			if err != nil {
				return err
			}
			sh := NewShell(svc.Trades, svc.Stats, userID, cmd.OutOrStdout(), app.Now)
			return runShell(sh, app.Stdin, cmd.OutOrStdout(), historyFile)
		},
	}
	cmd.Flags().StringVar(&historyFile, "history", "", "file to keep the command history in")
	return cmd
}

func shellCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("month"),
		readline.PcItem("list"),
		readline.PcItem("filter",
			readline.PcItem("symbols="),
			readline.PcItem("type=BUY"),
			readline.PcItem("type=SELL"),
			readline.PcItem("open=true"),
			readline.PcItem("clear"),
		),
		readline.PcItem("date", readline.PcItem("clear")),
		readline.PcItem("add"),
		readline.PcItem("close"),
		readline.PcItem("rm"),
		readline.PcItem("stats"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// runShell reads commands until quit or end of input.
func runShell(sh *Shell, in io.ReadCloser, out io.Writer, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          sh.Prompt(),
		HistoryFile:     historyFile,
		AutoComplete:    shellCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdin:           in,
		Stdout:          out,
	})
	if err != nil {
		return fmt.Errorf("start shell: %w", err)
	}
	defer rl.Close()

	if err := sh.Start(); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}
	fmt.Fprintln(out, "Type help for a list of commands.")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := sh.Exec(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
		rl.SetPrompt(sh.Prompt())
	}
}
