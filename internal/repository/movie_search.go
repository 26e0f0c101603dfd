package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/movie-booking/internal/model"
)

// MovieSearchQuery filters the active catalog.  Title and Genre match
// case-insensitive substrings; empty fields are ignored.
type MovieSearchQuery struct {
	Title  string
	Genre  string
	Offset int
	Limit  int
}

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// SearchActive returns one page of matching active movies and the total
// number of matches.
func (r *MovieRepo) SearchActive(ctx context.Context, q MovieSearchQuery) ([]model.Movie, int64, error) {
	where := []string{"is_active = 1"}
	args := []any{}

	if t := strings.TrimSpace(q.Title); t != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(t))+"%")
	}
	if g := strings.TrimSpace(q.Genre); g != "" {
		where = append(where, "LOWER(genre) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(g))+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Movie{}, 0, nil
	}

	dataSQL := `SELECT ` + movieColumns + ` FROM movies WHERE ` + cond + ` ORDER BY title, id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Movie, 0, q.Limit)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
