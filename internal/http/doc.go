// Package http exposes the timetable services over JSON.
//
// The router exposes the following endpoints:
//   - GET /rooms, PUT /rooms/{id}/capacity: the fixed lab room catalogue. Capacity
//     updates take {"capacity": n} and never touch stored sessions.
//   - GET /rosters, POST /rosters, PUT /rosters/{id}, DELETE /rosters/{id}: class
//     roster maintenance exchanging `rosterDTO`. GET /rosters/headcount?names=
//     returns the summed headcount for a delimited class list.
//   - GET /timetable/week?room_id=&date=: the Monday to Sunday grid containing date,
//     with period start times adjusted for the season.
//   - PUT /timetable/week: replaces every session of one room and week atomically.
//     Body: {"room_id","date","sessions":[...]}.
//   - POST /timetable/import?dry_run=: bulk upsert keyed by (room, date, period).
//     Accepts a JSON array, {"records": [...]}, or CSV with Content-Type text/csv.
//     Row failures are reported per index and never abort the batch.
//   - DELETE /timetable?room_id=: clears one room, or every room without room_id.
//   - GET /calendar/overrides, PUT /calendar/overrides,
//     DELETE /calendar/overrides/{date}: holiday and make-up day overrides.
//   - GET /utilization?from=&to=&room_id=: occupied slots per room over workdays.
//   - GET /metrics and GET /healthz.
//
// Validation failures answer 422 with an `errors` map keyed by field path,
// unresolved class or room names answer 422 with `field` and `names`.
package http
