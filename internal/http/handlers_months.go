package http

import (
	"net/http"

	"drivertrack/internal/amqp"
	"drivertrack/internal/core"
)

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.engine.GetStore(r.Context()))
}

// handleMonth is the read-with-repair entry point; it may write.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, s.engine.GetMonthData(r.Context(), year, month))
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, s.engine.ComputeMonthSummary(r.Context(), year, month, nil))
}

// handleWeek serves the weekly view. An index outside the month's partition
// resolves to the first range.
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	week, err := pathInt(r, "week")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, s.engine.Week(r.Context(), year, month, week, nil))
}

func (s *Server) handleSetDay(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		s.badWrite(w, r, amqp.KindDay, err)
		return
	}
	day, err := pathInt(r, "day")
	if err != nil {
		s.badWrite(w, r, amqp.KindDay, err)
		return
	}
	var patch core.DayPatch
	if err := decodePatch(w, r, &patch); err != nil {
		s.badWrite(w, r, amqp.KindDay, err)
		return
	}
	rec, err := s.service.SetDay(r.Context(), year, month, day, patch)
	s.metrics.writes.WithLabelValues(amqp.KindDay, writeResultLabel(err)).Inc()
	writeResult(w, r, rec, err)
}

func (s *Server) handleSetWeek(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		s.badWrite(w, r, amqp.KindWeek, err)
		return
	}
	week, err := pathInt(r, "week")
	if err != nil {
		s.badWrite(w, r, amqp.KindWeek, err)
		return
	}
	var patch core.WeekPatch
	if err := decodePatch(w, r, &patch); err != nil {
		s.badWrite(w, r, amqp.KindWeek, err)
		return
	}
	rec, err := s.service.SetWeek(r.Context(), year, month, week, patch)
	s.metrics.writes.WithLabelValues(amqp.KindWeek, writeResultLabel(err)).Inc()
	writeResult(w, r, rec, err)
}

func (s *Server) handleSetMonthlyExpenses(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		s.badWrite(w, r, amqp.KindMonthlyExpenses, err)
		return
	}
	var patch core.MonthlyExpensesPatch
	if err := decodePatch(w, r, &patch); err != nil {
		s.badWrite(w, r, amqp.KindMonthlyExpenses, err)
		return
	}
	me, err := s.service.SetMonthlyExpenses(r.Context(), year, month, patch)
	s.metrics.writes.WithLabelValues(amqp.KindMonthlyExpenses, writeResultLabel(err)).Inc()
	writeResult(w, r, me, err)
}

func (s *Server) badWrite(w http.ResponseWriter, r *http.Request, kind string, err error) {
	s.metrics.writes.WithLabelValues(kind, "invalid").Inc()
	writeError(w, r, http.StatusBadRequest, err.Error())
}
