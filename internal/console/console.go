// Package console is the interactive text front end of the ledger: a menu
// loop reading commands from an io.Reader and writing tables to an io.Writer.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the set of use cases the console drives.
type Ledger interface {
	PostTransaction(ctx context.Context, accountID string, date time.Time, typ domain.TransactionType, amount decimal.Decimal) (*domain.Transaction, error)
	GetTransactions(ctx context.Context, accountID string) []domain.Transaction
	AddInterestRule(ctx context.Context, date time.Time, ruleID string, rate decimal.Decimal) (*domain.InterestRule, error)
	InterestRules(ctx context.Context) []domain.InterestRule
	GenerateStatement(ctx context.Context, accountID string, year int, month time.Month) string
}

const (
	msgWelcome      = "Welcome to AwesomeGIC Bank! What would you like to do?"
	msgAnythingElse = "Is there anything else you'd like to do?"
	msgGoodbye      = "Thank you for banking with us.\nHave a nice day!"
	msgInvalidOpt   = "Invalid option. Please try again."
	prompt          = "> "
)

var menuOptions = []string{
	"[T] Input transactions",
	"[I] Define interest rules",
	"[P] Print statement",
	"[Q] Quit",
}

// Console runs the menu loop for one session.
type Console struct {
	ledger    Ledger
	out       io.Writer
	logger    *zap.Logger
	sessionID string
	handlers  map[Command]handlerFunc

	lines <-chan string
	done  chan struct{}
}

// New creates a console reading from in and writing to out.
func New(ledger Ledger, in io.Reader, out io.Writer, logger *zap.Logger) *Console {
	c := &Console{
		ledger:    ledger,
		out:       out,
		sessionID: uuid.NewString(),
		done:      make(chan struct{}),
	}
	c.logger = logger.With(zap.String("session_id", c.sessionID))
	c.handlers = map[Command]handlerFunc{
		CommandTransaction: c.inputTransactions,
		CommandRule:        c.defineRules,
		CommandStatement:   c.printStatement,
	}
	c.lines = readLines(in, c.done)
	return c
}

// SessionID identifies this console session in logs.
func (c *Console) SessionID() string {
	return c.sessionID
}

// Run shows the menu until the user quits, the input ends or ctx is done.
// Only ctx cancellation is reported as an error.
func (c *Console) Run(ctx context.Context) error {
	defer close(c.done)
	c.logger.Info("console session started")

	greeting := msgWelcome
	for {
		c.printMenu(greeting)
		greeting = msgAnythingElse

		line, ok, err := c.readLine(ctx)
		if err != nil {
			return err
		}
		if !ok {
			c.logger.Info("console input closed")
			return nil
		}

		cmd, valid := ParseCommand(line)
		if !valid {
			c.println(msgInvalidOpt)
			continue
		}
		if cmd == CommandQuit {
			c.println(msgGoodbye)
			c.logger.Info("console session ended")
			return nil
		}

		c.logger.Debug("console command", zap.String("command", string(cmd)))
		if err := c.handlers[cmd](ctx); err != nil {
			return err
		}
	}
}

func (c *Console) printMenu(greeting string) {
	c.println("")
	c.println(greeting)
	for _, opt := range menuOptions {
		c.println(opt)
	}
	c.print(prompt)
}

// readLine returns the next input line. ok is false once input is exhausted.
func (c *Console) readLine(ctx context.Context) (string, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line, ok := <-c.lines:
		return strings.TrimSpace(line), ok, nil
	}
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) print(s string) {
	fmt.Fprint(c.out, s)
}

func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}
