package store

import (
	"database/sql"

	"github.com/ykvlv/report-bot/internal/domain"
)

func intervalToNull(iv *domain.Interval) (start, end sql.NullInt64) {
	if iv == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(iv.Start), Valid: true},
		sql.NullInt64{Int64: int64(iv.End), Valid: true}
}

func intervalFromNull(start, end sql.NullInt64) *domain.Interval {
	if !start.Valid || !end.Valid {
		return nil
	}
	return &domain.Interval{Start: int(start.Int64), End: int(end.Int64)}
}
