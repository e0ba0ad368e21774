// internal/handlers/router.go
package handlers

import (
	"github.com/go-chi/chi/v5"

	"worktrack/internal/handlers/reports"
	"worktrack/internal/handlers/workitems"
	"worktrack/internal/report"
	"worktrack/internal/workflow"
)

func RegisterRoutes(mux *chi.Mux, machine *workflow.Machine, engine *report.Engine) {
	wi := workitems.New(machine)
	rp := reports.New(engine)

	mux.Route("/work-items", func(sr chi.Router) {
		sr.Post("/", wi.Create)
		sr.Get("/", wi.List)
		sr.Get("/{id}", wi.Get)
		sr.Patch("/{id}", wi.Update)
		sr.Get("/{id}/events", wi.Events)

		sr.Post("/{id}/start", wi.Start)
		sr.Post("/{id}/stop", wi.Stop)
		sr.Post("/{id}/cancel", wi.Cancel)
		sr.Post("/{id}/reopen", wi.Reopen)
	})

	mux.Route("/reports", func(sr chi.Router) {
		sr.Post("/", rp.Build)
	})
}
