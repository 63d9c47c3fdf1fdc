package http

import (
	"net/http"

	"drivertrack/internal/calendar"
	"drivertrack/internal/services"
)

type calendarResponse struct {
	Year             int                  `json:"year"`
	Month            int                  `json:"month"`
	DaysInMonth      int                  `json:"daysInMonth"`
	Weeks            []calendar.WeekRange `json:"weeks"`
	CurrentWeekIndex int                  `json:"currentWeekIndex"`
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cal := s.engine.Calendar()
	writeJSON(w, r, http.StatusOK, calendarResponse{
		Year:             year,
		Month:            month,
		DaysInMonth:      calendar.DaysInMonth(year, month),
		Weeks:            cal.WeekRanges(year, month),
		CurrentWeekIndex: cal.CurrentWeekIndex(year, month, s.engine.Now()),
	})
}

func (s *Server) handleDayName(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	day, err := pathInt(r, "day")
	if err == nil {
		err = services.ValidateDay(year, month, day)
	}
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"day":  day,
		"name": calendar.DayName(year, month, day),
	})
}
