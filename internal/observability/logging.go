package observability

import (
	"context"
	"log/slog"
	"sort"
)

// RepoLogger provides structured logging for repository writes.
type RepoLogger struct {
	tableName string
	logger    *slog.Logger
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string, logger *slog.Logger) *RepoLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepoLogger{tableName: tableName, logger: logger}
}

func (l *RepoLogger) attrs(operation string, fields map[string]any) []any {
	attrs := []any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	return attrs
}

// LogCreate logs a repository create operation.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]any) {
	l.logger.InfoContext(ctx, "repository create", l.attrs("create", fields)...)
}

// LogUpdate logs a repository update operation.
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]any) {
	l.logger.InfoContext(ctx, "repository update", l.attrs("update", fields)...)
}

// LogDelete logs a repository delete operation.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]any) {
	l.logger.InfoContext(ctx, "repository delete", l.attrs("delete", fields)...)
}

// LogIncrement logs a counter increment. These are frequent, so debug level.
func (l *RepoLogger) LogIncrement(ctx context.Context, fields map[string]any) {
	l.logger.DebugContext(ctx, "repository increment", l.attrs("increment", fields)...)
}
