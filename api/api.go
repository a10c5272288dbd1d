// Package api exposes the group ledger over REST. Every endpoint answers
// with the {success, data, message, pagination?} envelope and transmits
// monetary fields as decimal strings.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/billbatista/splittab/group"
	"github.com/billbatista/splittab/ledger"
	"github.com/billbatista/splittab/middleware"
	"github.com/billbatista/splittab/session"
	"github.com/billbatista/splittab/user"
)

type Server struct {
	expenses *ledger.Service
	groups   group.Repository
	users    user.Repository
	sessions session.Repository
}

func NewServer(expenses *ledger.Service, groups group.Repository, users user.Repository, sessions session.Repository) *Server {
	return &Server{
		expenses: expenses,
		groups:   groups,
		users:    users,
		sessions: sessions,
	}
}

func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.AuthMiddleware(s.sessions))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	router.Post("/auth/register", s.handleRegister)
	router.Post("/auth/login", s.handleLogin)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/auth/me", s.handleMe)
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/auth/logout-all", s.handleLogoutAll)

		r.Post("/groups", s.handleCreateGroup)
		r.Get("/groups/{id}", s.handleGetGroup)
		r.Post("/groups/{id}/members", s.handleAddMember)
		r.Delete("/groups/{id}/members/{userID}", s.handleRemoveMember)

		r.Post("/expenses", s.handleCreateExpense)
		r.Get("/expenses/{id}", s.handleGetExpense)
		r.Put("/expenses/{id}", s.handleUpdateExpense)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)
		r.Get("/expenses/group/{groupID}", s.handleListGroupExpenses)

		r.Get("/balances/group/{groupID}", s.handleGroupBalances)
		r.Get("/balances/group/{groupID}/user/{userID}", s.handleMemberBalance)
		r.Get("/balances/group/{groupID}/simplified-debts", s.handleSimplifiedDebts)
		r.Get("/balances/user", s.handleUserBalances)
		r.Get("/balances/user/net", s.handleUserNet)
	})

	return router
}
