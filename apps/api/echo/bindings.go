package echoapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/pathway/core"
)

const (
	orderingParam = "ordering"
	dateLayout    = "2006-01-02"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=-created_at,first_name`. The services drop fields they cannot order by.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// queryParams reads typed query parameters, collecting the malformed ones into a validation error.
type queryParams struct {
	ctx  echo.Context
	errs []core.FieldError
}

func newQueryParams(ctx echo.Context) *queryParams {
	return &queryParams{ctx: ctx}
}

func (q *queryParams) String(name string) string {
	return strings.TrimSpace(q.ctx.QueryParam(name))
}

// Strings accepts repeated params and comma separated values: `?status=new&status=lost` or `?status=new,lost`.
func (q *queryParams) Strings(name string) []string {
	var values []string
	for _, raw := range q.ctx.QueryParams()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

func (q *queryParams) Int(name string) int {
	raw := q.String(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.errs = append(q.errs, core.FieldError{Field: name, Error: "enter a whole number"})
	}
	return n
}

func (q *queryParams) Bool(name string) *bool {
	raw := q.String(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.errs = append(q.errs, core.FieldError{Field: name, Error: "enter true or false"})
		return nil
	}
	return &b
}

// Time accepts RFC 3339 timestamps and plain dates. With endOfDay, a plain date means the end of that day.
func (q *queryParams) Time(name string, endOfDay ...bool) time.Time {
	raw := q.String(name)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		q.errs = append(q.errs, core.FieldError{Field: name, Error: "enter a date as YYYY-MM-DD"})
		return time.Time{}
	}
	if len(endOfDay) > 0 && endOfDay[0] {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}

func (q *queryParams) Page() core.Page {
	return core.Page{Limit: q.Int("limit"), Offset: q.Int("offset")}
}

func (q *queryParams) Ordering() []core.DBOrdering {
	ord := new(Ordering)
	ord.Bind(q.ctx)
	return ord.Orderings
}

func (q *queryParams) Err() error {
	if len(q.errs) == 0 {
		return nil
	}
	return core.NewValidationError(nil, q.errs...)
}

// bindJSON decodes the JSON request body into dest; malformed bodies are a 400.
// Unlike echo.Context.Bind, path and query params are not bound.
func bindJSON(ctx echo.Context, dest interface{}) error {
	req := ctx.Request()
	if req.ContentLength == 0 {
		return nil
	}
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return echo.ErrUnsupportedMediaType
	}
	if err := json.NewDecoder(req.Body).Decode(dest); err != nil && err != io.EOF {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").SetInternal(err)
	}
	return nil
}

// listOf makes sure nil slices are rendered as [].
func listOf[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
