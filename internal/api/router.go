package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/stash/internal/event"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/removal"
	"github.com/erazemk/stash/internal/swap"
)

// Deps are the services the API is built on.
type Deps struct {
	DB        *sql.DB
	JWTSecret string
	Events    *event.Bus
	Removals  *removal.Manager
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	swaps := &swap.Handler{DB: d.DB, Events: d.Events}

	authHandler := &AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret}
	usersHandler := &UsersHandler{DB: d.DB}
	stashesHandler := &StashesHandler{DB: d.DB}
	itemsHandler := &ItemsHandler{DB: d.DB, Removals: d.Removals, Swaps: swaps}
	ledgerHandler := &LedgerHandler{DB: d.DB}
	swapsHandler := &SwapsHandler{DB: d.DB, Swaps: swaps}
	dropsHandler := &DropsHandler{DB: d.DB, Events: d.Events}
	tradesHandler := &TradesHandler{DB: d.DB, Events: d.Events}
	removalsHandler := &RemovalsHandler{DB: d.DB, Removals: d.Removals}
	leaderboardHandler := &LeaderboardHandler{DB: d.DB}

	authMW := AuthMiddleware(d.JWTSecret, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireTeacher := RequireRole(model.RoleTeacher)

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(h))
	}
	handleTeacher := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(requireTeacher(h)))
	}
	handleAdmin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(requireAdmin(h)))
	}

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	handle("PUT /api/auth/password", authHandler.ChangePassword)
	handle("POST /api/auth/logout", authHandler.Logout)

	// Users (admin only).
	handleAdmin("GET /api/users", usersHandler.List)
	handleAdmin("POST /api/users", usersHandler.Create)
	handleAdmin("GET /api/users/{id}", usersHandler.Get)
	handleAdmin("PUT /api/users/{id}", usersHandler.Update)
	handleAdmin("PUT /api/users/{id}/password", usersHandler.ResetPassword)
	handleAdmin("DELETE /api/users/{id}", usersHandler.Delete)

	// Stashes: read (all roles), write (teacher+).
	handle("GET /api/stashes", stashesHandler.List)
	handleTeacher("POST /api/stashes", stashesHandler.Create)
	handle("GET /api/stashes/{sid}", stashesHandler.Get)
	handleTeacher("PUT /api/stashes/{sid}", stashesHandler.Update)

	// Items.
	handle("GET /api/stashes/{sid}/items", itemsHandler.List)
	handleTeacher("POST /api/stashes/{sid}/items", itemsHandler.Create)
	handle("GET /api/stashes/{sid}/items/{id}", itemsHandler.Get)
	handleTeacher("PUT /api/stashes/{sid}/items/{id}", itemsHandler.Update)
	handleTeacher("DELETE /api/stashes/{sid}/items/{id}", itemsHandler.Delete)
	handleTeacher("PUT /api/stashes/{sid}/items/{id}/image", itemsHandler.UploadImage)
	handle("GET /api/stashes/{sid}/items/{id}/image", itemsHandler.GetImage)
	handle("GET /api/stashes/{sid}/items/{id}/holders", itemsHandler.Holders)
	handle("GET /api/stashes/{sid}/swappable", itemsHandler.Swappable)

	// Ledger: students see their own, teachers see and change everyone's.
	handle("GET /api/stashes/{sid}/users/{uid}/items", ledgerHandler.List)
	handleTeacher("PUT /api/stashes/{sid}/users/{uid}/items/{itemid}", ledgerHandler.Grant)
	handleTeacher("DELETE /api/stashes/{sid}/users/{uid}/items/{itemid}", ledgerHandler.Reset)

	// Swaps.
	handle("POST /api/stashes/{sid}/swaps", swapsHandler.Create)
	handle("GET /api/stashes/{sid}/swaps", swapsHandler.List)
	handle("GET /api/stashes/{sid}/swaps/unread", swapsHandler.Unread)
	handle("GET /api/stashes/{sid}/swaps/{id}", swapsHandler.Get)
	handle("POST /api/stashes/{sid}/swaps/{id}/view", swapsHandler.View)
	handle("POST /api/stashes/{sid}/swaps/{id}/accept", swapsHandler.Accept)
	handle("POST /api/stashes/{sid}/swaps/{id}/decline", swapsHandler.Decline)
	handle("DELETE /api/stashes/{sid}/swaps/{id}", swapsHandler.Delete)

	// Drops.
	handleTeacher("GET /api/stashes/{sid}/drops", dropsHandler.List)
	handleTeacher("POST /api/stashes/{sid}/drops", dropsHandler.Create)
	handleTeacher("DELETE /api/stashes/{sid}/drops/{id}", dropsHandler.Delete)
	handle("POST /api/drops/{hash}/pickup", dropsHandler.Pickup)

	// Trades.
	handle("GET /api/stashes/{sid}/trades", tradesHandler.List)
	handleTeacher("POST /api/stashes/{sid}/trades", tradesHandler.Create)
	handleTeacher("DELETE /api/stashes/{sid}/trades/{id}", tradesHandler.Delete)
	handle("POST /api/trades/{hash}/execute", tradesHandler.Execute)

	// Removals.
	handleTeacher("GET /api/stashes/{sid}/removals", removalsHandler.List)
	handleTeacher("POST /api/stashes/{sid}/removals", removalsHandler.Save)
	handleTeacher("DELETE /api/stashes/{sid}/removals", removalsHandler.DeleteAll)
	handleTeacher("DELETE /api/stashes/{sid}/removals/{id}", removalsHandler.Delete)
	handle("GET /api/stashes/{sid}/modules/{cmid}/costs", removalsHandler.Costs)
	handle("POST /api/stashes/{sid}/modules/{cmid}/accessed", removalsHandler.Accessed)

	// Leaderboards.
	handle("GET /api/stashes/{sid}/leaderboards/unique", leaderboardHandler.UniqueItems)
	handle("GET /api/stashes/{sid}/leaderboards/items/{id}", leaderboardHandler.MostOfItem)
	handle("GET /api/stashes/{sid}/leaderboards/settings", leaderboardHandler.Settings)
	handleTeacher("PUT /api/stashes/{sid}/leaderboards/settings", leaderboardHandler.UpdateSettings)

	return mux
}
