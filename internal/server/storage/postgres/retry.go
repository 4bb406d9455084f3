package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// retry reruns fn on connection-class postgres errors with a growing
// backoff, giving up after three attempts.
func retry(fn func() error) error {
	i, n := 1, 3

	for {
		err := fn()

		var pgErr *pgconn.PgError

		if err == nil || !errors.As(err, &pgErr) || !pgerrcode.IsConnectionException(pgErr.Code) || i > n {
			return err
		}

		time.Sleep(time.Duration(2*i-1) * time.Second)

		i++
	}
}
