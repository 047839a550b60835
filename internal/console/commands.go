package console

import (
	"context"
	"errors"
	"strings"

	"github.com/boddenberg/interest-ledger-go/internal/domain"
	"github.com/boddenberg/interest-ledger-go/internal/statement"
	"github.com/boddenberg/interest-ledger-go/internal/validation"

	"go.uber.org/zap"
)

// Command is a main menu selection.
type Command string

const (
	CommandTransaction Command = "T"
	CommandRule        Command = "I"
	CommandStatement   Command = "P"
	CommandQuit        Command = "Q"
)

// ParseCommand maps menu input to a Command, case-insensitive.
func ParseCommand(s string) (Command, bool) {
	switch cmd := Command(strings.ToUpper(strings.TrimSpace(s))); cmd {
	case CommandTransaction, CommandRule, CommandStatement, CommandQuit:
		return cmd, true
	}
	return "", false
}

type handlerFunc func(ctx context.Context) error

const (
	promptTransaction = "Please enter transaction details in <Date> <Account> <Type> <Amount> format\n(or enter blank to go back to main menu):"
	promptRule        = "Please enter interest rules details in <Date> <RuleId> <Rate in %> format\n(or enter blank to go back to main menu):"
	promptStatement   = "Please enter account and month to generate the statement <Account> <Year><Month>\n(or enter blank to go back to main menu):"
)

// ask prints a sub-prompt and reads the answer. Blank input or end of
// input returns ok=false.
func (c *Console) ask(ctx context.Context, question string) (string, bool, error) {
	c.println(question)
	c.print(prompt)
	line, ok, err := c.readLine(ctx)
	if err != nil || !ok || line == "" {
		return "", false, err
	}
	c.println("")
	return line, true, nil
}

func (c *Console) inputTransactions(ctx context.Context) error {
	line, ok, err := c.ask(ctx, promptTransaction)
	if !ok {
		return err
	}

	in, err := validation.ParseTransactionInput(line)
	if err != nil {
		c.println("Invalid transaction: " + err.Error())
		return nil
	}

	if _, err := c.ledger.PostTransaction(ctx, in.AccountID, in.Date, in.Type, in.Amount); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("console transaction rejected", zap.String("account_id", in.AccountID), zap.Error(err))
		c.println("Transaction failed: " + describe(err))
		return nil
	}

	c.println(statement.RenderTransactions(in.AccountID, c.ledger.GetTransactions(ctx, in.AccountID)))
	return nil
}

func (c *Console) defineRules(ctx context.Context) error {
	line, ok, err := c.ask(ctx, promptRule)
	if !ok {
		return err
	}

	in, err := validation.ParseRuleInput(line)
	if err != nil {
		c.println("Invalid interest rule: " + err.Error())
		return nil
	}

	if _, err := c.ledger.AddInterestRule(ctx, in.Date, in.RuleID, in.Rate); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("console interest rule rejected", zap.String("rule_id", in.RuleID), zap.Error(err))
		c.println("Interest rule failed: " + describe(err))
		return nil
	}

	c.println(statement.RenderRules(c.ledger.InterestRules(ctx)))
	return nil
}

func (c *Console) printStatement(ctx context.Context) error {
	line, ok, err := c.ask(ctx, promptStatement)
	if !ok {
		return err
	}

	in, err := validation.ParseStatementInput(line)
	if err != nil {
		c.println("Invalid statement request: " + err.Error())
		return nil
	}

	c.println(c.ledger.GenerateStatement(ctx, in.AccountID, in.Year, in.Month))
	return nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidFirstTransaction):
		return "the first transaction of an account must be a deposit"
	default:
		var ife *domain.ErrInsufficientFunds
		if errors.As(err, &ife) {
			return "insufficient balance (available " + ife.Available.StringFixed(2) + ")"
		}
		return err.Error()
	}
}
