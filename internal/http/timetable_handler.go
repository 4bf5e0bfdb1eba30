package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/lab-timetable/internal/application"
	"github.com/example/lab-timetable/internal/importfile"
)

type timetableService interface {
	WeekView(ctx context.Context, roomID int, anyDate string) (application.WeekView, error)
	ReplaceWeek(ctx context.Context, roomID int, anyDate string, inputs []application.SessionInput) (application.WeekView, error)
	ImportRecords(ctx context.Context, records []map[string]any, dryRun bool) (application.UpsertResult, error)
	ClearRoom(ctx context.Context, roomID *int) (int64, error)
}

type TimetableHandler struct {
	service   timetableService
	responder responder
	logger    *slog.Logger
}

func NewTimetableHandler(service timetableService, logger *slog.Logger) *TimetableHandler {
	base := defaultLogger(logger)
	return &TimetableHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TimetableHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "TimetableHandler", operation, attrs...)
}

func (h *TimetableHandler) available(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// Week serves GET /timetable/week?room_id=&date=.
func (h *TimetableHandler) Week(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	vErr := &application.ValidationError{}
	roomID := queryRoomID(r, vErr)
	if roomID == nil && !vErr.HasErrors() {
		setFieldError(vErr, "room_id", "room_id is required")
	}
	date := queryDate(r, "date", vErr)
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	view, err := h.service.WeekView(r.Context(), *roomID, date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toWeekDTO(view))
}

// ReplaceWeek serves PUT /timetable/week.
func (h *TimetableHandler) ReplaceWeek(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	var req replaceWeekRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errBadRequestBody) {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	inputs := make([]application.SessionInput, 0, len(req.Sessions))
	for _, s := range req.Sessions {
		inputs = append(inputs, s.toInput())
	}

	view, err := h.service.ReplaceWeek(r.Context(), req.RoomID, req.Date, inputs)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "ReplaceWeek", "room_id", req.RoomID, "week_start", view.WeekStart).
		InfoContext(r.Context(), "week replaced", "session_count", len(inputs))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toWeekDTO(view))
}

// Import serves POST /timetable/import?dry_run=. The body is a JSON array,
// a {"records": [...]} object, or CSV when Content-Type is text/csv.
func (h *TimetableHandler) Import(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	dryRun := false
	if raw := strings.TrimSpace(r.URL.Query().Get("dry_run")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			vErr := &application.ValidationError{}
			setFieldError(vErr, "dry_run", "dry_run must be true or false")
			h.responder.handleServiceError(r.Context(), w, vErr)
			return
		}
		dryRun = parsed
	}

	format := importfile.FormatFromContentType(r.Header.Get("Content-Type"))
	records, err := importfile.Read(io.LimitReader(r.Body, maxBodyBytes), format)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	result, err := h.service.ImportRecords(r.Context(), records, dryRun)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Import", "dry_run", dryRun, "format", string(format)).InfoContext(r.Context(), "import processed",
		"inserted", result.Inserted, "updated", result.Updated, "rejected", len(result.Errors))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUpsertResultDTO(result))
}

// Clear serves DELETE /timetable?room_id=. Without room_id every room is cleared.
func (h *TimetableHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	vErr := &application.ValidationError{}
	roomID := queryRoomID(r, vErr)
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	deleted, err := h.service.ClearRoom(r.Context(), roomID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Clear").WarnContext(r.Context(), "sessions cleared", "deleted", deleted)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, clearResponse{Deleted: deleted})
}

type replaceWeekRequest struct {
	RoomID   int              `json:"room_id" validate:"required,gt=0"`
	Date     string           `json:"date" validate:"required,datetime=2006-01-02"`
	Sessions []sessionRequest `json:"sessions" validate:"dive"`
}

type sessionRequest struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Period      int     `json:"period" validate:"required,min=1,max=8"`
	CourseName  string  `json:"course_name" validate:"required"`
	TeacherName string  `json:"teacher_name"`
	Content     *string `json:"content"`
	Planned     *int    `json:"planned" validate:"omitempty,min=0"`
	Capacity    *int    `json:"capacity" validate:"omitempty,min=0"`
	Duration    *int    `json:"duration" validate:"omitempty,min=1"`
	ClassNames  *string `json:"class_names"`
}

func (s sessionRequest) toInput() application.SessionInput {
	return application.SessionInput{
		Date:        strings.TrimSpace(s.Date),
		Period:      s.Period,
		CourseName:  s.CourseName,
		TeacherName: s.TeacherName,
		Content:     s.Content,
		Planned:     s.Planned,
		Capacity:    s.Capacity,
		Duration:    s.Duration,
		ClassNames:  s.ClassNames,
	}
}

type clearResponse struct {
	Deleted int64 `json:"deleted"`
}

type sessionDTO struct {
	ID            string  `json:"id"`
	RoomID        int     `json:"room_id"`
	Date          string  `json:"date"`
	Period        int     `json:"period"`
	CourseName    string  `json:"course_name"`
	TeacherName   string  `json:"teacher_name"`
	Content       *string `json:"content,omitempty"`
	Planned       int     `json:"planned"`
	Capacity      int     `json:"capacity"`
	AllowOverflow bool    `json:"allow_overflow"`
	Duration      int     `json:"duration"`
	ClassNames    *string `json:"class_names,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
	UpdatedAt     string  `json:"updated_at,omitempty"`
}

func toSessionDTO(s application.Session) sessionDTO {
	return sessionDTO{
		ID:            s.ID,
		RoomID:        s.RoomID,
		Date:          s.Date,
		Period:        s.Period,
		CourseName:    s.CourseName,
		TeacherName:   s.TeacherName,
		Content:       s.Content,
		Planned:       s.Planned,
		Capacity:      s.Capacity,
		AllowOverflow: s.AllowOverflow,
		Duration:      s.Duration,
		ClassNames:    s.ClassNames,
		CreatedAt:     formatTimestamp(s.CreatedAt),
		UpdatedAt:     formatTimestamp(s.UpdatedAt),
	}
}

type weekDTO struct {
	Room         roomDTO  `json:"room"`
	WeekStart    string   `json:"week_start"`
	WeekEnd      string   `json:"week_end"`
	WeekNumber   int      `json:"week_number"`
	SemesterYear int      `json:"semester_year"`
	Days         []dayDTO `json:"days"`
}

type dayDTO struct {
	Date     string    `json:"date"`
	Weekday  string    `json:"weekday"`
	Workday  bool      `json:"workday"`
	Seasonal bool      `json:"seasonal"`
	Slots    []slotDTO `json:"slots"`
}

type slotDTO struct {
	Period  int         `json:"period"`
	Start   string      `json:"start"`
	End     string      `json:"end"`
	Session *sessionDTO `json:"session"`
}

func toWeekDTO(view application.WeekView) weekDTO {
	out := weekDTO{
		Room:         toRoomDTO(view.Room),
		WeekStart:    view.WeekStart,
		WeekEnd:      view.WeekEnd,
		WeekNumber:   view.WeekNumber,
		SemesterYear: view.SemesterYear,
		Days:         make([]dayDTO, 0, len(view.Days)),
	}
	for _, day := range view.Days {
		d := dayDTO{
			Date:     day.Date,
			Weekday:  day.Weekday,
			Workday:  day.Workday,
			Seasonal: day.Seasonal,
			Slots:    make([]slotDTO, 0, len(day.Slots)),
		}
		for _, slot := range day.Slots {
			s := slotDTO{Period: slot.Period, Start: slot.Start, End: slot.End}
			if slot.Session != nil {
				dto := toSessionDTO(*slot.Session)
				s.Session = &dto
			}
			d.Slots = append(d.Slots, s)
		}
		out.Days = append(out.Days, d)
	}
	return out
}

type rowErrorDTO struct {
	Index   int      `json:"index"`
	Kind    string   `json:"kind"`
	Field   string   `json:"field,omitempty"`
	Message string   `json:"message"`
	Names   []string `json:"names,omitempty"`
}

type rowWriteDTO struct {
	Index   int        `json:"index"`
	Action  string     `json:"action"`
	Session sessionDTO `json:"session"`
}

type upsertResultDTO struct {
	DryRun   bool          `json:"dry_run"`
	Inserted int           `json:"inserted"`
	Updated  int           `json:"updated"`
	Errors   []rowErrorDTO `json:"errors"`
	Rows     []rowWriteDTO `json:"rows"`
}

func toUpsertResultDTO(result application.UpsertResult) upsertResultDTO {
	out := upsertResultDTO{
		DryRun:   result.DryRun,
		Inserted: result.Inserted,
		Updated:  result.Updated,
		Errors:   make([]rowErrorDTO, 0, len(result.Errors)),
		Rows:     make([]rowWriteDTO, 0, len(result.Rows)),
	}
	for _, e := range result.Errors {
		out.Errors = append(out.Errors, rowErrorDTO(e))
	}
	for _, row := range result.Rows {
		out.Rows = append(out.Rows, rowWriteDTO{Index: row.Index, Action: string(row.Action), Session: toSessionDTO(row.Session)})
	}
	return out
}
