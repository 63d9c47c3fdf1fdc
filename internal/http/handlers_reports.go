package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"drivertrack/internal/core"
	"drivertrack/internal/export"
	"drivertrack/internal/log"
	"drivertrack/internal/tracker"
)

// yearReport serves from the cache; writes to the year evict its entry.
func (s *Server) yearReport(r *http.Request, year int) tracker.YearReport {
	if rep, ok := s.reports.Get(year); ok {
		s.metrics.reportCache.WithLabelValues("hit").Inc()
		return rep
	}
	s.metrics.reportCache.WithLabelValues("miss").Inc()
	gen := s.reportGeneration(year)
	rep := s.engine.YearReport(r.Context(), year)
	s.cacheReport(year, gen, rep)
	return rep
}

func (s *Server) reportGeneration(year int) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.reportGen[year]
}

// cacheReport stores rep unless the year was invalidated after gen was read.
func (s *Server) cacheReport(year int, gen uint64, rep tracker.YearReport) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.reportGen[year] != gen {
		return false
	}
	s.reports.Set(year, rep)
	return true
}

func (s *Server) invalidateReport(year int) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.reportGen[year]++
	s.reports.Delete(year)
}

func pathYear(r *http.Request) (int, error) {
	year, err := pathInt(r, "year")
	if err != nil {
		return 0, err
	}
	return year, core.ValidateYear(year)
}

func (s *Server) handleYearReport(w http.ResponseWriter, r *http.Request) {
	year, err := pathYear(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, s.yearReport(r, year))
}

func (s *Server) handleYearReportXLSX(w http.ResponseWriter, r *http.Request) {
	year, err := pathYear(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Render fully before the first byte so a failure can still be a 500.
	var buf bytes.Buffer
	if err := export.WriteYearReport(&buf, s.yearReport(r, year)); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to render workbook",
			log.FieldYear, year, log.FieldOperation, log.OpExport, log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "could not render workbook")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%d.xlsx", year))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
