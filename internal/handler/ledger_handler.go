package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/boddenberg/interest-ledger-go/internal/domain"
	"github.com/boddenberg/interest-ledger-go/internal/service"
	"github.com/boddenberg/interest-ledger-go/internal/statement"
	"github.com/boddenberg/interest-ledger-go/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// DTOs
// ============================================================

// Amounts and rates travel as strings with two decimals.

type transactionRequest struct {
	Date   string `json:"date"`
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

type transactionResponse struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Type   string `json:"type"`
	Amount string `json:"amount"`
}

type ruleRequest struct {
	Date   string `json:"date"`
	RuleID string `json:"rule_id"`
	Rate   string `json:"rate"`
}

type ruleResponse struct {
	Date   string `json:"date"`
	RuleID string `json:"rule_id"`
	Rate   string `json:"rate"`
}

type statementLineResponse struct {
	transactionResponse
	Balance string `json:"balance"`
}

type statementResponse struct {
	AccountID        string                  `json:"account_id"`
	Period           string                  `json:"period"`
	OpeningBalance   string                  `json:"opening_balance"`
	ClosingBalance   string                  `json:"closing_balance"`
	InterestCredited string                  `json:"interest_credited,omitempty"`
	Lines            []statementLineResponse `json:"lines"`
}

func toTransactionResponse(tx domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:     tx.ID,
		Date:   domain.FormatDate(tx.Date),
		Type:   string(tx.Type),
		Amount: tx.Amount.StringFixed(2),
	}
}

func toRuleResponse(rule domain.InterestRule) ruleResponse {
	return ruleResponse{
		Date:   domain.FormatDate(rule.EffectiveDate),
		RuleID: rule.RuleID,
		Rate:   rule.Rate.StringFixed(2),
	}
}

func toStatementResponse(st *domain.Statement, period string) statementResponse {
	resp := statementResponse{
		AccountID:      st.AccountID,
		Period:         period,
		OpeningBalance: st.OpeningBalance.StringFixed(2),
		ClosingBalance: st.ClosingBalance.StringFixed(2),
		Lines:          make([]statementLineResponse, 0, len(st.Lines)),
	}
	if st.Interest != nil {
		resp.InterestCredited = st.Interest.Amount.StringFixed(2)
	}
	for _, line := range st.Lines {
		resp.Lines = append(resp.Lines, statementLineResponse{
			transactionResponse: toTransactionResponse(line.Transaction),
			Balance:             line.Balance.StringFixed(2),
		})
	}
	return resp
}

// ============================================================
// Transactions
// ============================================================

func postTransactionHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/{accountId}/transactions")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		var req transactionRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		date, err := validation.ParseDate(req.Date)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		typ, err := validation.ParseType(req.Type)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		amount, err := validation.ParseAmount(req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		tx, err := svc.PostTransaction(ctx, accountID, date, typ, amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, toTransactionResponse(*tx))
	}
}

func listTransactionsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/transactions")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		txs := svc.GetTransactions(ctx, accountID)

		resp := make([]transactionResponse, 0, len(txs))
		for _, tx := range txs {
			resp = append(resp, toTransactionResponse(tx))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"account_id":   accountID,
			"transactions": resp,
		})
	}
}

// ============================================================
// Statements
// ============================================================

// statementHandler answers JSON by default and the fixed-width table when
// the client asks for text/plain or ?format=text.
func statementHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/statements/{period}")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		period := chi.URLParam(r, "period")
		span.SetAttributes(
			attribute.String("account.id", accountID),
			attribute.String("statement.period", period),
		)

		in, err := validation.ParseStatementInput(accountID + " " + period)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		st, err := svc.Statement(ctx, in.AccountID, in.Year, in.Month)
		if err != nil {
			var notFound *domain.ErrNotFound
			if wantsText(r) && errors.As(err, &notFound) {
				writeText(w, http.StatusNotFound, statement.AccountNotFound)
				return
			}
			handleServiceError(w, err, logger)
			return
		}

		if wantsText(r) {
			writeText(w, http.StatusOK, statement.Render(*st))
			return
		}
		writeJSON(w, http.StatusOK, toStatementResponse(st, period))
	}
}

func wantsText(r *http.Request) bool {
	return r.URL.Query().Get("format") == "text" ||
		strings.Contains(r.Header.Get("Accept"), "text/plain")
}

// ============================================================
// Interest rules
// ============================================================

func postRuleHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/interest-rules")
		defer span.End()

		var req ruleRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		date, err := validation.ParseDate(req.Date)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rate, err := validation.ParseRate(req.Rate)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rule, err := svc.AddInterestRule(ctx, date, strings.TrimSpace(req.RuleID), rate)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if op := OperatorFromContext(ctx); op != "" {
			logger.Info("interest rule written by operator",
				zap.String("operator", op),
				zap.String("rule_id", rule.RuleID),
			)
		}
		writeJSON(w, http.StatusCreated, toRuleResponse(*rule))
	}
}

func listRulesHandler(svc *service.LedgerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/interest-rules")
		defer span.End()

		rules := svc.InterestRules(ctx)
		resp := make([]ruleResponse, 0, len(rules))
		for _, rule := range rules {
			resp = append(resp, toRuleResponse(rule))
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": resp})
	}
}
