package db

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
)

const maxTracedQueryLen = 512

type traceSpanKey struct{}

// queryTracer opens a db.query span for every statement issued inside a
// sampled transaction. Statements outside a transaction are not traced.
type queryTracer struct{}

func newQueryTracer() *queryTracer {
	return &queryTracer{}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if sentry.SpanFromContext(ctx) == nil {
		return ctx
	}

	statement := compactSQL(data.SQL)
	span := sentry.StartSpan(ctx, "db.query",
		sentry.WithDescription(statement),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	span.SetData("db.system", "postgresql")
	if verb, table := describeSQL(statement); verb != "" {
		span.SetData("db.operation", verb)
		if table != "" {
			span.SetData("db.sql.table", table)
		}
	}

	return context.WithValue(span.Context(), traceSpanKey{}, span)
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(traceSpanKey{}).(*sentry.Span)
	if !ok || span == nil {
		return
	}
	defer span.Finish()

	if data.Err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("db.error", data.Err.Error())
		return
	}
	span.Status = sentry.SpanStatusOK
	if rows := data.CommandTag.RowsAffected(); rows >= 0 {
		span.SetData("db.rows_affected", rows)
	}
}

// compactSQL collapses whitespace and truncates long statements.
func compactSQL(sql string) string {
	compact := strings.Join(strings.Fields(sql), " ")
	if compact == "" {
		return "sql.query"
	}
	if len(compact) > maxTracedQueryLen {
		return compact[:maxTracedQueryLen]
	}
	return compact
}

// describeSQL returns the statement verb and, when obvious, the target table.
func describeSQL(statement string) (verb, table string) {
	fields := strings.Fields(statement)
	if len(fields) == 0 {
		return "", ""
	}
	verb = strings.ToUpper(fields[0])

	var marker string
	switch verb {
	case "SELECT", "DELETE":
		marker = "FROM"
	case "INSERT":
		marker = "INTO"
	case "UPDATE":
		if len(fields) > 1 {
			return verb, fields[1]
		}
		return verb, ""
	default:
		return verb, ""
	}
	for i := 1; i < len(fields)-1; i++ {
		if strings.EqualFold(fields[i], marker) {
			return verb, strings.TrimSuffix(fields[i+1], "(")
		}
	}
	return verb, ""
}
