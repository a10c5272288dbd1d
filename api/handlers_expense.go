package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billbatista/splittab/ledger"
	"github.com/billbatista/splittab/middleware"
)

// splitPayload mirrors ledger.SplitInput on the wire. Amounts and
// percentages arrive as decimal strings.
type splitPayload struct {
	UserID     uuid.UUID       `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	Shares     int64           `json:"shares"`
}

type createExpensePayload struct {
	GroupID     uuid.UUID        `json:"group_id"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Currency    string           `json:"currency"`
	SplitMode   ledger.SplitMode `json:"split_mode"`
	Category    string           `json:"category"`
	SpentOn     string           `json:"spent_on"`
	Splits      []splitPayload   `json:"splits"`
}

type updateExpensePayload struct {
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Currency    string           `json:"currency"`
	SplitMode   ledger.SplitMode `json:"split_mode"`
	Category    string           `json:"category"`
	SpentOn     string           `json:"spent_on"`
	PayerID     uuid.UUID        `json:"payer_id"`
	Splits      []splitPayload   `json:"splits"`
}

type expenseBody struct {
	Expense *ledger.Expense       `json:"expense"`
	Splits  []ledger.ExpenseSplit `json:"splits"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())

	var payload createExpensePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	spentOn, ok := parseDate(w, payload.SpentOn)
	if !ok {
		return
	}

	expense, splits, err := s.expenses.CreateExpense(r.Context(), callerID, ledger.CreateExpenseInput{
		GroupID:     payload.GroupID,
		Description: payload.Description,
		Amount:      payload.Amount,
		Currency:    payload.Currency,
		SplitMode:   payload.SplitMode,
		Category:    payload.Category,
		SpentOn:     spentOn,
		Splits:      toSplitInputs(payload.Splits),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, expenseBody{Expense: expense, Splits: splits})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	expenseID, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	expense, splits, err := s.expenses.GetExpense(r.Context(), callerID, expenseID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, expenseBody{Expense: expense, Splits: splits})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	expenseID, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var payload updateExpensePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	spentOn, ok := parseDate(w, payload.SpentOn)
	if !ok {
		return
	}

	expense, splits, err := s.expenses.UpdateExpense(r.Context(), callerID, expenseID, ledger.UpdateExpenseInput{
		Description: payload.Description,
		Amount:      payload.Amount,
		Currency:    payload.Currency,
		SplitMode:   payload.SplitMode,
		Category:    payload.Category,
		SpentOn:     spentOn,
		PayerID:     payload.PayerID,
		Splits:      toSplitInputs(payload.Splits),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, expenseBody{Expense: expense, Splits: splits})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	expenseID, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), callerID, expenseID); err != nil {
		respondError(w, r, err)
		return
	}

	respondMessage(w, http.StatusOK, "expense deleted")
}

func (s *Server) handleListGroupExpenses(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	groupID, ok := parseID(w, chi.URLParam(r, "groupID"))
	if !ok {
		return
	}

	limit, offset := parsePagination(r)
	expenses, total, err := s.expenses.ListGroupExpenses(r.Context(), callerID, groupID, limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondPaginated(w, http.StatusOK, orEmpty(expenses), Pagination{Limit: limit, Offset: offset, Total: total})
}

func toSplitInputs(payloads []splitPayload) []ledger.SplitInput {
	if len(payloads) == 0 {
		return nil
	}
	inputs := make([]ledger.SplitInput, 0, len(payloads))
	for _, p := range payloads {
		inputs = append(inputs, ledger.SplitInput{
			UserID:     p.UserID,
			Amount:     p.Amount,
			Percentage: p.Percentage,
			Shares:     p.Shares,
		})
	}
	return inputs
}

func parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid id "+raw)
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		badRequest(w, "invalid date "+raw+", expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}
